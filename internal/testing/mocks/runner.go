// Package mocks provides shared test doubles for nodetest packages.
package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/AndreyAkinshin/nodetest/internal/command"
	"github.com/AndreyAkinshin/nodetest/internal/runner"
)

// Runner implements runner.Runner for testing.
// Use NewRunner() to create instances with a fluent builder API.
type Runner struct {
	results map[string]runner.Result

	// RunFunc is called by Run when set. It takes precedence over the
	// per-program results.
	RunFunc func(ctx context.Context, cmd command.Command) runner.Result

	// Execution tracking (thread-safe)
	runCount int32
	mu       sync.Mutex
	calls    []command.Command
}

// NewRunner creates a runner where every program succeeds.
func NewRunner() *Runner {
	return &Runner{results: make(map[string]runner.Result)}
}

// WithExitCode makes runs of program exit with code.
func (m *Runner) WithExitCode(program string, code int) *Runner {
	m.results[program] = runner.Result{Success: code == 0, ExitCode: code}
	return m
}

// WithResult makes runs of program return res.
func (m *Runner) WithResult(program string, res runner.Result) *Runner {
	m.results[program] = res
	return m
}

// WithRunFunc sets the function called by Run.
func (m *Runner) WithRunFunc(fn func(ctx context.Context, cmd command.Command) runner.Result) *Runner {
	m.RunFunc = fn
	return m
}

// Run records cmd and returns the scripted result.
func (m *Runner) Run(ctx context.Context, cmd command.Command) runner.Result {
	atomic.AddInt32(&m.runCount, 1)
	m.mu.Lock()
	m.calls = append(m.calls, cmd)
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, cmd)
	}
	if res, ok := m.results[cmd.Program]; ok {
		return res
	}
	return runner.Result{Success: true}
}

// Test inspection methods

// RunCount returns the number of times Run was called.
func (m *Runner) RunCount() int32 {
	return atomic.LoadInt32(&m.runCount)
}

// Calls returns the commands passed to Run, in order.
func (m *Runner) Calls() []command.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]command.Command, len(m.calls))
	copy(result, m.calls)
	return result
}

// Programs returns the program of each recorded call, in order.
func (m *Runner) Programs() []string {
	calls := m.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Program
	}
	return out
}

var _ runner.Runner = (*Runner)(nil)
