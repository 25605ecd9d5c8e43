//go:build linux || darwin || freebsd || netbsd || openbsd

package hotkey

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
)

func TestTerminalProbeRoundTrips(t *testing.T) {
	for _, in := range []string{"space", "esc", "enter", "tab", "q", "ctrl+g", "backspace"} {
		spec, err := ParseSpec(in)
		if err != nil {
			t.Fatalf("ParseSpec(%q): %v", in, err)
		}
		probe := terminalProbe(spec)
		if probe == nil || !spec.MatchesTerminal(probe) {
			t.Fatalf("%q: probe %q does not match", in, probe)
		}
	}
}

func TestListenRejectsKeysWithoutTerminalEncoding(t *testing.T) {
	if _, err := Listen(Keys{Confirm: "f5", Abort: "esc"}, false, func(Action) {}, nil, false); err == nil {
		t.Fatalf("expected error for f5")
	}
	if _, err := Listen(Keys{Confirm: "alt+space", Abort: "esc"}, false, func(Action) {}, nil, false); err == nil {
		t.Fatalf("expected error for alt+space")
	}
}

// chunkReader returns one chunk per Read and calls before ahead of each.
type chunkReader struct {
	chunks []string
	before func(i int)
	i      int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.before != nil {
		r.before(r.i)
	}
	if r.i >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.i])
	r.i++
	return n, nil
}

func TestReadKeysDispatchesUntilStopped(t *testing.T) {
	matchers, err := terminalMatchers(Keys{Confirm: "space", Abort: "esc"})
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var stopped atomic.Bool
	var got []Action
	r := &chunkReader{
		chunks: []string{" ", "x", "\x1b", " ", "\x1b"},
		before: func(i int) {
			if i == 3 {
				stopped.Store(true)
			}
		},
	}
	readKeys(r, matchers, &stopped, func(a Action) { got = append(got, a) }, logger, true)

	if len(got) != 2 || got[0] != ActionConfirm || got[1] != ActionAbort {
		t.Fatalf("unexpected actions: %v", got)
	}
	if r.i != 4 {
		t.Fatalf("reader kept reading after stop: %d reads", r.i)
	}
}
