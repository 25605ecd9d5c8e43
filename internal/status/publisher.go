package status

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Default transport settings.
const (
	DefaultAddr    = "127.0.0.1:12345"
	DefaultTimeout = 100 * time.Millisecond
)

// Publisher accepts snapshots without blocking the caller.
type Publisher interface {
	Publish(Snapshot)
}

// Nop discards every snapshot.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(Snapshot) {}

// Client sends each snapshot on its own TCP connection from one background
// worker. Only the most recent pending snapshot is kept; failures are
// dropped and never retried.
type Client struct {
	addr    string
	timeout time.Duration
	logger  *slog.Logger
	debug   bool

	pending chan Snapshot
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Addr    string
	Timeout time.Duration
	Debug   bool
	Logger  *slog.Logger
}

// NewClient starts the send worker. Call Close to stop it.
func NewClient(opts ClientOptions) *Client {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Client{
		addr:    opts.Addr,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		debug:   opts.Debug,
		pending: make(chan Snapshot, 1),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Publish hands s to the worker, replacing any snapshot not yet sent.
func (c *Client) Publish(s Snapshot) {
	for {
		select {
		case c.pending <- s:
			return
		default:
		}
		select {
		case <-c.pending:
		default:
		}
	}
}

// Close stops the worker after its in-flight send.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
	c.wg.Wait()
}

func (c *Client) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case s := <-c.pending:
			if err := c.send(s); err != nil && c.debug {
				c.logger.Debug("status update dropped", "addr", c.addr, "error", err)
			}
		}
	}
}

func (c *Client) send(s Snapshot) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(s); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
