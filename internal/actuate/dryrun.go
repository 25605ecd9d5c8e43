package actuate

import (
	"context"
	"log/slog"
	"sync"

	"warpvoice/internal/policy"
)

// DryRun logs each command instead of performing it.
type DryRun struct {
	Logger *slog.Logger
}

// Execute logs cmd and always succeeds.
func (d DryRun) Execute(_ context.Context, cmd policy.Command) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("dry run", "command", cmd)
	return nil
}

// Recorder records commands and can be told to fail. It is safe for
// concurrent use.
type Recorder struct {
	mu       sync.Mutex
	commands []policy.Command
	failures map[policy.Command][]error
}

// FailNext makes the next len(errs) executions of cmd return errs in order.
func (r *Recorder) FailNext(cmd policy.Command, errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures == nil {
		r.failures = map[policy.Command][]error{}
	}
	r.failures[cmd] = append(r.failures[cmd], errs...)
}

// Execute records cmd.
func (r *Recorder) Execute(_ context.Context, cmd policy.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	if q := r.failures[cmd]; len(q) > 0 {
		r.failures[cmd] = q[1:]
		return q[0]
	}
	return nil
}

// Commands returns every command executed so far, failed ones included.
func (r *Recorder) Commands() []policy.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]policy.Command(nil), r.commands...)
}
