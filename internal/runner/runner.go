// Package runner launches external programs with inherited standard streams
// and reports whether they exited successfully.
package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/AndreyAkinshin/nodetest/internal/command"
	"github.com/AndreyAkinshin/nodetest/internal/ctxlog"
)

// ExitLaunchFailure is the exit code reported when a program could not be
// started at all.
const ExitLaunchFailure = -1

// Result is the outcome of one process run.
type Result struct {
	Success  bool
	ExitCode int
	Err      error // Launch or wait error; nil on a clean zero exit
}

// Runner runs a command to completion.
type Runner interface {
	Run(ctx context.Context, cmd command.Command) Result
}

// Exec runs commands as child processes.
type Exec struct {
	Dir    string    // Working directory; empty means the current directory
	Env    []string  // Environment; nil means the parent's environment
	Stdin  io.Reader // Defaults to os.Stdin
	Stdout io.Writer // Defaults to os.Stdout
	Stderr io.Writer // Defaults to os.Stderr
}

// New creates an Exec runner working in dir with inherited stdio.
func New(dir string) *Exec {
	return &Exec{Dir: dir}
}

// Run launches cmd, waits for it, and maps its exit code to Success.
// The child's output is not interpreted.
func (e *Exec) Run(ctx context.Context, cmd command.Command) Result {
	log := ctxlog.FromContext(ctx)

	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = e.Dir
	c.Env = e.Env
	if c.Env == nil {
		c.Env = os.Environ()
	}
	c.Stdin = orReader(e.Stdin, os.Stdin)
	c.Stdout = orWriter(e.Stdout, os.Stdout)
	c.Stderr = orWriter(e.Stderr, os.Stderr)

	log.Debug("launching process", "program", cmd.Program, "args", len(cmd.Args), "dir", e.Dir)
	err := c.Run()
	res := resultFrom(err)
	log.Debug("process exited", "program", cmd.Program, "code", res.ExitCode)
	return res
}

func resultFrom(err error) Result {
	if err == nil {
		return Result{Success: true, ExitCode: 0}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Err: err}
	}
	return Result{ExitCode: ExitLaunchFailure, Err: err}
}

func orReader(r, def io.Reader) io.Reader {
	if r == nil {
		return def
	}
	return r
}

func orWriter(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
