package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"

	"warpvoice/internal/clock"
)

// MaxPayload is the most the server reads from one connection.
const MaxPayload = 4 << 10

const readTimeout = time.Second

// Accept failures are retried after a delay that starts at
// acceptRetryMin and doubles up to acceptRetryMax.
const (
	acceptRetryMin = 5 * time.Millisecond
	acceptRetryMax = time.Second
)

// Server receives updates and hands each well-formed one to a handler.
type Server struct {
	ln     net.Listener
	logger *slog.Logger
	debug  bool
	clk    clock.Clock
}

// Listen binds addr.
func Listen(addr string, logger *slog.Logger, debug bool) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return &Server{ln: ln, logger: logger, debug: debug, clk: clock.Real{}}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve accepts connections until ctx is done. Connections are handled one
// at a time, so handle is never called concurrently.
func (s *Server) Serve(ctx context.Context, handle func(Update)) error {
	stop := context.AfterFunc(ctx, func() { _ = s.ln.Close() })
	defer stop()

	retry := &backoff.ExponentialBackOff{
		InitialInterval: acceptRetryMin,
		Multiplier:      2,
		MaxInterval:     acceptRetryMax,
	}
	retry.Reset()
	failing := false
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			delay := retry.NextBackOff()
			if !failing {
				s.logger.Warn("status accept failed; retrying", "error", err, "delay", delay)
			} else if s.debug {
				s.logger.Debug("status accept failed", "error", err, "delay", delay)
			}
			failing = true
			if err := s.clk.Sleep(ctx, delay); err != nil {
				return nil
			}
			continue
		}
		if failing {
			retry.Reset()
			failing = false
		}
		u, err := readUpdate(conn)
		_ = conn.Close()
		if err != nil {
			if s.debug {
				s.logger.Debug("status payload ignored", "error", err)
			}
			continue
		}
		handle(u)
	}
}

// Close releases the listener.
func (s *Server) Close() error {
	return s.ln.Close()
}

func readUpdate(conn net.Conn) (Update, error) {
	var u Update
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return u, err
	}
	data, err := io.ReadAll(io.LimitReader(conn, MaxPayload))
	if err != nil {
		return u, fmt.Errorf("read: %w", err)
	}
	if len(data) == 0 {
		return u, errors.New("empty payload")
	}
	if err := json.Unmarshal(data, &u); err != nil {
		return u, fmt.Errorf("decode: %w", err)
	}
	return u, nil
}
