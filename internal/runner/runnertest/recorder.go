// Package runnertest provides a runner.Runner that records commands instead of executing them.
package runnertest

import (
	"context"
	"sync"

	"github.com/patrikhermansson/annprep/internal/runner"
)

// Recorder records every command it is asked to run.
// Fn, when set, decides the outcome of each command.
type Recorder struct {
	mu       sync.Mutex
	Commands []runner.Command
	Fn       func(cmd runner.Command) error
}

// Run implements runner.Runner.
func (r *Recorder) Run(_ context.Context, cmd runner.Command) error {
	r.mu.Lock()
	r.Commands = append(r.Commands, cmd)
	fn := r.Fn
	r.mu.Unlock()
	if fn != nil {
		return fn(cmd)
	}
	return nil
}

// Lines returns the recorded commands rendered as strings.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Commands))
	for i, c := range r.Commands {
		out[i] = c.String()
	}
	return out
}

// Fail returns an exit error for cmd with the given code.
func Fail(cmd runner.Command, code int) error {
	return &runner.ExitError{Command: cmd.String(), ExitCode: code}
}
