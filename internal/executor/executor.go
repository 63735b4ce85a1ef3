// Package executor runs the test pipeline for one project: validate the
// TypeScript configuration, optionally compile and relocate config files,
// build the test command, and run it.
package executor

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AndreyAkinshin/nodetest/internal/command"
	"github.com/AndreyAkinshin/nodetest/internal/ctxlog"
	"github.com/AndreyAkinshin/nodetest/internal/errors"
	"github.com/AndreyAkinshin/nodetest/internal/mirror"
	"github.com/AndreyAkinshin/nodetest/internal/options"
	"github.com/AndreyAkinshin/nodetest/internal/output"
	"github.com/AndreyAkinshin/nodetest/internal/runner"
	"github.com/AndreyAkinshin/nodetest/internal/tsc"
	"github.com/AndreyAkinshin/nodetest/internal/workspace"
)

// Environment variables overriding the test executables.
const (
	EnvNode = "NODETEST_NODE"
	EnvTsx  = "NODETEST_TSX"
)

// Binaries names every external executable the pipeline may launch.
type Binaries struct {
	Test  command.Binaries
	Build tsc.Binaries
}

// BinariesFromEnv returns the default executables with environment
// overrides applied.
func BinariesFromEnv() Binaries {
	test := command.DefaultBinaries()
	if v := os.Getenv(EnvNode); v != "" {
		test.Node = v
	}
	if v := os.Getenv(EnvTsx); v != "" {
		test.Tsx = v
	}
	return Binaries{Test: test, Build: tsc.BinariesFromEnv()}
}

// Request identifies what to run.
type Request struct {
	WorkspaceRoot string
	Project       workspace.Project
	Options       options.Options
}

// Result reports the outcome of a run. ExitCode is the test process exit
// code, or 1 when the pipeline stopped before the tests ran.
type Result struct {
	Success  bool
	ExitCode int
	Err      error
}

// Executor runs requests. Runner and Out must be set.
type Executor struct {
	Runner   runner.Runner
	Out      *output.Writer
	Binaries Binaries

	// OnTransition, if set, is called on every state change.
	OnTransition func(from, to State)
}

// New creates an executor that launches real processes from the
// workspace root.
func New(workspaceRoot string, out *output.Writer) *Executor {
	return &Executor{
		Runner:   runner.New(workspaceRoot),
		Out:      out,
		Binaries: BinariesFromEnv(),
	}
}

// Run executes the pipeline. A non-nil error is returned only for
// precondition failures, which happen before any side effect. Every other
// failure, including a panic, is reported through Result.
func (e *Executor) Run(ctx context.Context, req Request) (res Result, err error) {
	log := ctxlog.FromContext(ctx).With("project", req.Project.Name)
	m := &machine{state: StateIdle, onTransition: e.OnTransition, log: log}

	m.to(StateValidating)
	if err := Validate(req); err != nil {
		m.to(StateFailed)
		return Result{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("executor panicked", "panic", r, "stack", string(debug.Stack()))
			e.Out.ErrorPrefix("%s: unexpected failure: %v", req.Project.Name, r)
			m.to(StateDone)
			res = Result{Success: false, ExitCode: 1, Err: fmt.Errorf("panic: %v", r)}
			err = nil
		}
	}()

	return e.run(ctx, m, req), nil
}

func (e *Executor) run(ctx context.Context, m *machine, req Request) Result {
	opts := req.Options
	if opts.Verbose {
		e.Out.SetVerbose(true)
	}

	compiled := opts.EnableTsc
	if compiled {
		if res, ok := e.build(ctx, m, req); !ok {
			m.to(StateDone)
			return res
		}
	}

	m.to(StateCommandBuilding)
	cmd, err := e.testCommand(req, compiled)
	if err != nil {
		e.Out.ErrorPrefix("%s: %v", req.Project.Name, err)
		m.log.Error("building test command failed", "error", err)
		m.to(StateDone)
		return Result{Success: false, ExitCode: 1, Err: err}
	}
	if opts.Verbose {
		e.summary(req)
		e.Out.Debug("Running: %s", cmd)
	}

	m.to(StateRunning)
	rr := e.Runner.Run(ctx, cmd)
	m.log.Debug("test run finished", "exitCode", rr.ExitCode, "success", rr.Success)
	m.to(StateDone)

	if !rr.Success && rr.ExitCode == runner.ExitLaunchFailure {
		e.Out.ErrorPrefix("%s: launching %s: %v", req.Project.Name, cmd.Program, rr.Err)
		return Result{Success: false, ExitCode: 1, Err: rr.Err}
	}
	return Result{Success: rr.Success, ExitCode: rr.ExitCode, Err: rr.Err}
}

// build runs compile, mirror and alias. It reports false when the run must
// stop; ignoreBuildErrors turns compile and alias failures into warnings.
func (e *Executor) build(ctx context.Context, m *machine, req Request) (Result, bool) {
	opts := req.Options
	step := e.step(req)

	m.to(StateCompiling)
	e.Out.Step(req.Project.Name, tsc.StepCompile)
	if err := tsc.Compile(ctx, e.Runner, e.Binaries.Build.Tsc, step); err != nil {
		if !e.tolerate(req, err) {
			return Result{Success: false, ExitCode: 1, Err: err}, false
		}
	}

	m.to(StateMirroring)
	ops, err := mirror.Mirror(req.WorkspaceRoot, opts.OutputDir, req.Project.Root, mirror.ConfigFiles,
		func(op mirror.CopyOp) { e.Out.Debug("copy %s -> %s", op.Src, op.Dst) })
	if err != nil {
		m.log.Debug("mirroring config files incomplete", "error", err)
	}
	m.log.Debug("mirrored config files", "count", len(ops))

	if opts.UseAlias {
		m.to(StateAliasing)
		e.Out.Step(req.Project.Name, tsc.StepAlias)
		if err := tsc.Alias(ctx, e.Runner, e.Binaries.Build.Alias, step); err != nil {
			if !e.tolerate(req, err) {
				return Result{Success: false, ExitCode: 1, Err: err}, false
			}
		}
	}
	return Result{}, true
}

func (e *Executor) tolerate(req Request, err error) bool {
	if req.Options.IgnoreBuildErrors {
		e.Out.Warning("%v (ignored)", err)
		return true
	}
	e.Out.ErrorPrefix("%v", err)
	return false
}

func (e *Executor) step(req Request) tsc.Step {
	return tsc.Step{
		Project:       req.Project.Name,
		ProjectRoot:   req.Project.Root,
		WorkspaceRoot: req.WorkspaceRoot,
		TsConfig:      TsConfigPath(req.Project, req.Options),
		OutputDir:     req.Options.OutputDir,
	}
}

func (e *Executor) testCommand(req Request, compiled bool) (command.Command, error) {
	return command.Compile(req.Options, command.Input{
		TestGlob: command.TestGlob(req.WorkspaceRoot, req.Project.Root, req.Options, compiled),
		Compiled: compiled,
		Binaries: e.Binaries.Test,
	})
}

// Plan returns the commands Run would launch for req, in order, without
// touching the filesystem beyond validation.
func (e *Executor) Plan(req Request) ([]command.Command, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var cmds []command.Command
	compiled := req.Options.EnableTsc
	if compiled {
		step := e.step(req)
		cmds = append(cmds, tsc.CompileCommand(e.Binaries.Build.Tsc, step))
		if req.Options.UseAlias {
			cmds = append(cmds, tsc.AliasCommand(e.Binaries.Build.Alias, step))
		}
	}
	cmd, err := e.testCommand(req, compiled)
	if err != nil {
		return nil, &errors.Error{Kind: errors.KindConfig, Project: req.Project.Name, Message: "invalid additionalArgs", Cause: err}
	}
	return append(cmds, cmd), nil
}

func (e *Executor) summary(req Request) {
	opts := req.Options
	e.Out.SummaryHeader("Options")
	e.Out.SummaryItem("Project", req.Project.Name)
	e.Out.SummaryItem("Reporter", cases.Title(language.English).String(opts.Reporter))
	e.Out.SummaryItem("Test files", opts.TestFiles)
	e.Out.SummaryItem("TypeScript", onOff(opts.EnableTsc))
	if opts.EnableTsc {
		e.Out.SummaryItem("Output dir", opts.OutputDir)
	}
	e.Out.SummaryItem("Coverage", onOff(opts.Coverage))
	concurrency := "runner default"
	switch {
	case !opts.Parallel:
		concurrency = "1"
	case opts.MaxWorkers > 0:
		concurrency = strconv.Itoa(opts.MaxWorkers)
	}
	e.Out.SummaryItem("Concurrency", concurrency)
	if len(opts.Imports) > 0 {
		e.Out.SummaryItem("Imports", strings.Join(opts.Imports, ", "))
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// TsConfigPath returns the slash-separated tsconfig path relative to the
// workspace root.
func TsConfigPath(p workspace.Project, opts options.Options) string {
	return path.Join(p.Root, opts.TsConfig)
}

// Validate checks the preconditions of req: a named project, an existing
// TypeScript configuration file and an output directory that is safe to
// recreate.
func Validate(req Request) error {
	if req.Project.Name == "" {
		return errors.Precondition("project name is required")
	}
	rel := TsConfigPath(req.Project, req.Options)
	info, err := os.Stat(filepath.Join(req.WorkspaceRoot, filepath.FromSlash(rel)))
	if err != nil || info.IsDir() {
		e := errors.NotFound("tsconfig", rel)
		e.Project = req.Project.Name
		return e
	}
	if err := tsc.CheckOutputDir(req.Options.OutputDir, req.Project.Root); err != nil {
		return &errors.Error{Kind: errors.KindPrecondition, Project: req.Project.Name, Message: err.Error()}
	}
	return nil
}
