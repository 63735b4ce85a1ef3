// Package tsc drives the TypeScript compiler and the path-alias rewriter.
// Both tools are treated as black boxes reached through a runner.Runner.
package tsc

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/AndreyAkinshin/nodetest/internal/command"
	"github.com/AndreyAkinshin/nodetest/internal/ctxlog"
	"github.com/AndreyAkinshin/nodetest/internal/errors"
	"github.com/AndreyAkinshin/nodetest/internal/runner"
)

// Step names used in errors and progress output.
const (
	StepCompile = "compile"
	StepAlias   = "alias"
)

// Default executables, looked up in PATH.
const (
	DefaultTscBinary   = "tsc"
	DefaultAliasBinary = "tsc-alias"
)

// Environment variables overriding the executables.
const (
	EnvTsc   = "NODETEST_TSC"
	EnvAlias = "NODETEST_TSC_ALIAS"
)

// Binaries names the compiler and alias-rewriter executables.
type Binaries struct {
	Tsc   string
	Alias string
}

// BinariesFromEnv returns the executables, honoring environment overrides.
func BinariesFromEnv() Binaries {
	return Binaries{
		Tsc:   envOr(EnvTsc, DefaultTscBinary),
		Alias: envOr(EnvAlias, DefaultAliasBinary),
	}
}

// Step describes one compile or alias invocation. Paths in TsConfig and
// OutputDir are relative to WorkspaceRoot, which is also the working
// directory of the runner.
type Step struct {
	Project       string
	ProjectRoot   string // slash separated, relative to WorkspaceRoot
	WorkspaceRoot string
	TsConfig      string // <projectRoot>/<tsConfig>, slash separated
	OutputDir     string // slash separated
}

// CompileCommand returns the compiler invocation for s.
func CompileCommand(bin string, s Step) command.Command {
	return command.NewBuilder(orDefault(bin, DefaultTscBinary)).
		Arg("-p", s.TsConfig, "--outDir", s.OutputDir).
		Command()
}

// AliasCommand returns the alias-rewriter invocation for s.
func AliasCommand(bin string, s Step) command.Command {
	return command.NewBuilder(orDefault(bin, DefaultAliasBinary)).
		Arg("-p", s.TsConfig, "--outDir", s.OutputDir).
		Command()
}

// Compile recreates the output directory and runs the compiler.
// Any failure is returned as a KindCompile error.
func Compile(ctx context.Context, r runner.Runner, bin string, s Step) error {
	if err := CheckOutputDir(s.OutputDir, s.ProjectRoot); err != nil {
		return errors.StepError(errors.KindCompile, s.Project, StepCompile, err)
	}
	out := filepath.Join(s.WorkspaceRoot, filepath.FromSlash(s.OutputDir))
	if err := resetDir(out); err != nil {
		return errors.StepError(errors.KindCompile, s.Project, StepCompile,
			fmt.Errorf("preparing output directory: %w", err))
	}

	cmd := CompileCommand(bin, s)
	ctxlog.FromContext(ctx).Debug("compiling", "project", s.Project, "cmd", cmd.String())
	return check(r.Run(ctx, cmd), errors.KindCompile, s.Project, StepCompile)
}

// Alias rewrites path aliases in the compiled output.
// Any failure is returned as a KindAlias error.
func Alias(ctx context.Context, r runner.Runner, bin string, s Step) error {
	cmd := AliasCommand(bin, s)
	ctxlog.FromContext(ctx).Debug("rewriting aliases", "project", s.Project, "cmd", cmd.String())
	return check(r.Run(ctx, cmd), errors.KindAlias, s.Project, StepAlias)
}

func check(res runner.Result, kind errors.ErrorKind, project, step string) error {
	if res.Success {
		return nil
	}
	cause := res.Err
	if cause == nil {
		cause = fmt.Errorf("exit code %d", res.ExitCode)
	}
	return errors.StepError(kind, project, step, cause)
}

// CheckOutputDir reports whether outputDir is safe to wipe and recreate: a
// relative path strictly inside the workspace that neither is nor contains
// the project root.
func CheckOutputDir(outputDir, projectRoot string) error {
	if strings.TrimSpace(outputDir) == "" {
		return fmt.Errorf("output directory is empty")
	}
	slashed := filepath.ToSlash(outputDir)
	if path.IsAbs(slashed) || filepath.IsAbs(outputDir) || filepath.VolumeName(outputDir) != "" {
		return fmt.Errorf("output directory %q must be relative to the workspace root", outputDir)
	}
	dir := path.Clean(slashed)
	switch {
	case dir == ".":
		return fmt.Errorf("output directory %q is the workspace root", outputDir)
	case dir == ".." || strings.HasPrefix(dir, "../"):
		return fmt.Errorf("output directory %q is outside the workspace", outputDir)
	}
	root := path.Clean(filepath.ToSlash(projectRoot))
	if root == dir || strings.HasPrefix(root+"/", dir+"/") {
		return fmt.Errorf("output directory %q contains the project sources (%s)", outputDir, root)
	}
	return nil
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
