package status

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T) (*Server, <-chan Update) {
	t.Helper()
	srv, err := Listen("127.0.0.1:0", nil, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan Update, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, func(u Update) { updates <- u })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return srv, updates
}

func send(t *testing.T, addr, payload string) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = conn.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestClientDeliversSnapshot(t *testing.T) {
	srv, updates := startServer(t)
	c := NewClient(ClientOptions{Addr: srv.Addr()})
	defer c.Close()

	c.Publish(Snapshot{Confirming: true, Cycle: 7, StatusText: "hello"})

	select {
	case u := <-updates:
		var s Snapshot
		s.Merge(u)
		assert.True(t, s.Confirming)
		assert.Equal(t, 7, s.Cycle)
		assert.Equal(t, "hello", s.StatusText)
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}
}

func TestPublishNeverBlocksWithoutReceiver(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := NewClient(ClientOptions{Addr: addr, Timeout: 20 * time.Millisecond})
	defer c.Close()

	start := time.Now()
	for i := 0; i < 1000; i++ {
		c.Publish(Snapshot{Cycle: i})
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestServerIgnoresMalformedPayloads(t *testing.T) {
	srv, updates := startServer(t)

	send(t, srv.Addr(), "{not json")
	send(t, srv.Addr(), "")
	send(t, srv.Addr(), `{"status_text":"`+strings.Repeat("x", MaxPayload)+`"}`)
	send(t, srv.Addr(), `{"cycle":3}`)

	select {
	case u := <-updates:
		require.NotNil(t, u.Cycle)
		assert.Equal(t, 3, *u.Cycle)
		assert.Nil(t, u.StatusText)
	case <-time.After(2 * time.Second):
		t.Fatal("valid update not received")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", nil, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, func(Update) {}) }()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

// failingListener fails Accept a fixed number of times, then reports closed.
type failingListener struct {
	net.Listener
	fails int
}

func (l *failingListener) Accept() (net.Conn, error) {
	if l.fails > 0 {
		l.fails--
		return nil, errors.New("too many open files")
	}
	return nil, net.ErrClosed
}

func (l *failingListener) Close() error { return nil }

type sleepRecorder struct {
	sleeps []time.Duration
}

func (r *sleepRecorder) Now() time.Time { return time.Time{} }

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.sleeps = append(r.sleeps, d)
	return ctx.Err()
}

func TestServeBacksOffOnAcceptErrors(t *testing.T) {
	rec := &sleepRecorder{}
	srv := &Server{ln: &failingListener{fails: 12}, logger: discardLogger(), clk: rec}

	require.NoError(t, srv.Serve(context.Background(), func(Update) {}))

	require.Len(t, rec.sleeps, 12)
	assert.InDelta(t, float64(acceptRetryMin), float64(rec.sleeps[0]), float64(time.Microsecond))
	assert.InDelta(t, float64(2*acceptRetryMin), float64(rec.sleeps[1]), float64(time.Microsecond))
	for i := 1; i < len(rec.sleeps); i++ {
		assert.GreaterOrEqual(t, rec.sleeps[i], rec.sleeps[i-1])
		assert.LessOrEqual(t, rec.sleeps[i], acceptRetryMax)
	}
	assert.InDelta(t, float64(acceptRetryMax), float64(rec.sleeps[11]), float64(time.Microsecond))
}

func TestServeStopsBackingOffOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &sleepRecorder{}
	srv := &Server{ln: &failingListener{fails: 100}, logger: discardLogger(), clk: rec}

	require.NoError(t, srv.Serve(ctx, func(Update) {}))
	assert.Empty(t, rec.sleeps)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	p.Publish(Snapshot{})
}
