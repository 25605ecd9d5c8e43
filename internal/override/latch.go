// Package override latches the two out-of-band signals a session reacts to:
// "confirm now" and "abort session".
package override

import (
	"sync"
	"sync/atomic"
)

// Latch is safe for concurrent use by key listeners and the tick loop.
type Latch struct {
	confirm atomic.Bool
	abort   atomic.Bool
	abortCh chan struct{}
	once    sync.Once
}

// NewLatch returns a cleared latch.
func NewLatch() *Latch {
	return &Latch{abortCh: make(chan struct{})}
}

// RequestConfirm records a confirm press. Presses are not counted.
func (l *Latch) RequestConfirm() {
	l.confirm.Store(true)
}

// RequestAbort makes the abort flag sticky for the rest of the process.
func (l *Latch) RequestAbort() {
	l.abort.Store(true)
	l.once.Do(func() { close(l.abortCh) })
}

// TakeConfirm reports whether a confirm was requested since the last call and clears it.
func (l *Latch) TakeConfirm() bool {
	return l.confirm.Swap(false)
}

// Aborted reports whether an abort was ever requested.
func (l *Latch) Aborted() bool {
	return l.abort.Load()
}

// Done is closed once an abort has been requested.
func (l *Latch) Done() <-chan struct{} {
	return l.abortCh
}
