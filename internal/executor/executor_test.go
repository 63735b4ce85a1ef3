package executor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/AndreyAkinshin/nodetest/internal/command"
	"github.com/AndreyAkinshin/nodetest/internal/errors"
	"github.com/AndreyAkinshin/nodetest/internal/options"
	"github.com/AndreyAkinshin/nodetest/internal/output"
	"github.com/AndreyAkinshin/nodetest/internal/runner"
	"github.com/AndreyAkinshin/nodetest/internal/testing/mocks"
	"github.com/AndreyAkinshin/nodetest/internal/tsc"
	"github.com/AndreyAkinshin/nodetest/internal/workspace"
)

type fixture struct {
	root   string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	runner *mocks.Runner
	states []State
	exec   *Executor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "packages/pkg/tsconfig.spec.json", "{}")

	f := &fixture{
		root:   root,
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		runner: mocks.NewRunner(),
	}
	f.exec = &Executor{
		Runner:   f.runner,
		Out:      output.NewWithWriters(f.stdout, f.stderr, false),
		Binaries: Binaries{Test: command.DefaultBinaries(), Build: tscDefaults()},
		OnTransition: func(_, to State) {
			f.states = append(f.states, to)
		},
	}
	return f
}

func (f *fixture) request(p options.Partial) Request {
	return Request{
		WorkspaceRoot: f.root,
		Project:       workspace.Project{Name: "pkg", Root: "packages/pkg", Dir: filepath.Join(f.root, "packages", "pkg")},
		Options:       options.Normalize(p, "pkg"),
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_EndToEnd_TsxScenario(t *testing.T) {
	f := newFixture(t)
	req := f.request(options.Partial{
		EnableTsc:        options.Bool(false),
		UseTsx:           options.Bool(true),
		EnableJestCompat: options.Bool(true),
		Reporter:         options.String("tap"),
		Coverage:         options.Bool(true),
	})

	res, err := f.exec.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Success {
		t.Errorf("Run() = %+v, want success", res)
	}

	calls := f.runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("runner calls = %d, want 1", len(calls))
	}
	want := []string{
		"tsx", "--test",
		"--import", command.JestCompatModule,
		"--test-reporter", "tap",
		"--experimental-test-coverage",
		filepath.Join(f.root, "packages", "pkg", "**/*.test.{js,ts}"),
	}
	if diff := cmp.Diff(want, calls[0].Argv()); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}

	wantStates := []State{StateValidating, StateCommandBuilding, StateRunning, StateDone}
	if diff := cmp.Diff(wantStates, f.states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_MissingTsConfigIsPrecondition(t *testing.T) {
	f := newFixture(t)
	req := f.request(options.Partial{TsConfig: options.String("tsconfig.missing.json")})

	_, err := f.exec.Run(context.Background(), req)
	if err == nil {
		t.Fatal("Run() expected precondition error")
	}
	if !errors.IsKind(err, errors.KindPrecondition) {
		t.Errorf("error kind = %v, want precondition", err)
	}
	if f.runner.RunCount() != 0 {
		t.Errorf("runner called %d times, want 0", f.runner.RunCount())
	}
	if diff := cmp.Diff([]State{StateValidating, StateFailed}, f.states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_CompilePipeline(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.root, "packages/pkg/src/tsconfig.json", "{}")
	f.runner.WithRunFunc(func(_ context.Context, cmd command.Command) runner.Result {
		if cmd.Program == "tsc" {
			// Emulate compiler output layout.
			writeFile(t, f.root, "dist/test-out/pkg/src/a.test.js", "")
		}
		return runner.Result{Success: true}
	})

	req := f.request(options.Partial{EnableTsc: options.Bool(true)})
	res, err := f.exec.Run(context.Background(), req)
	if err != nil || !res.Success {
		t.Fatalf("Run() = %+v, %v", res, err)
	}

	if got := f.runner.Programs(); !cmp.Equal(got, []string{"tsc", "tsc-alias", "node"}) {
		t.Errorf("Programs() = %v, want [tsc tsc-alias node]", got)
	}
	wantStates := []State{
		StateValidating, StateCompiling, StateMirroring, StateAliasing,
		StateCommandBuilding, StateRunning, StateDone,
	}
	if diff := cmp.Diff(wantStates, f.states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}

	copied := filepath.Join(f.root, "dist", "test-out", "pkg", "src", "tsconfig.json")
	if _, err := os.Stat(copied); err != nil {
		t.Errorf("tsconfig not mirrored: %v", err)
	}

	testCmd := f.runner.Calls()[2]
	glob := testCmd.Args[len(testCmd.Args)-1]
	if want := filepath.Join(f.root, "dist", "test-out", "pkg", "**/*.test.{js,ts}"); glob != want {
		t.Errorf("test glob = %q, want %q", glob, want)
	}
}

func TestRun_NoAliasStep(t *testing.T) {
	f := newFixture(t)
	req := f.request(options.Partial{EnableTsc: options.Bool(true), UseAlias: options.Bool(false)})

	if _, err := f.exec.Run(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if got := f.runner.Programs(); !cmp.Equal(got, []string{"tsc", "node"}) {
		t.Errorf("Programs() = %v, want [tsc node]", got)
	}
}

func TestRun_BuildFailures(t *testing.T) {
	tests := []struct {
		name        string
		failing     string
		ignore      bool
		wantSuccess bool
		wantProgs   []string
		wantKind    errors.ErrorKind
	}{
		{"compile fails", "tsc", false, false, []string{"tsc"}, errors.KindCompile},
		{"compile fails ignored", "tsc", true, true, []string{"tsc", "tsc-alias", "node"}, 0},
		{"alias fails", "tsc-alias", false, false, []string{"tsc", "tsc-alias"}, errors.KindAlias},
		{"alias fails ignored", "tsc-alias", true, true, []string{"tsc", "tsc-alias", "node"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.runner.WithExitCode(tt.failing, 2)
			req := f.request(options.Partial{
				EnableTsc:         options.Bool(true),
				IgnoreBuildErrors: options.Bool(tt.ignore),
			})

			res, err := f.exec.Run(context.Background(), req)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", res.Success, tt.wantSuccess)
			}
			if got := f.runner.Programs(); !cmp.Equal(got, tt.wantProgs) {
				t.Errorf("Programs() = %v, want %v", got, tt.wantProgs)
			}
			if !tt.wantSuccess && !errors.IsKind(res.Err, tt.wantKind) {
				t.Errorf("Err = %v, want kind %v", res.Err, tt.wantKind)
			}
			if tt.ignore && !strings.Contains(f.stderr.String(), "warning:") {
				t.Errorf("stderr = %q, want a warning", f.stderr.String())
			}
		})
	}
}

func TestRun_TestExitCodeIsAuthoritative(t *testing.T) {
	f := newFixture(t)
	f.runner.WithExitCode("tsx", 7)

	res, err := f.exec.Run(context.Background(), f.request(options.Partial{}))
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || res.ExitCode != 7 {
		t.Errorf("Run() = %+v, want failure with exit 7", res)
	}
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.WithRunFunc(func(context.Context, command.Command) runner.Result {
		panic("boom")
	})

	res, err := f.exec.Run(context.Background(), f.request(options.Partial{}))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if res.Success {
		t.Error("Run() reported success after panic")
	}
	if !strings.Contains(f.stderr.String(), "boom") {
		t.Errorf("stderr = %q, want panic message", f.stderr.String())
	}
}

func TestRun_InvalidAdditionalArgsFails(t *testing.T) {
	f := newFixture(t)
	req := f.request(options.Partial{AdditionalArgs: options.String(`--foo "unterminated`)})

	res, err := f.exec.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Success {
		t.Error("Run() succeeded with unparsable additionalArgs")
	}
	if f.runner.RunCount() != 0 {
		t.Errorf("runner called %d times, want 0", f.runner.RunCount())
	}
}

func TestRun_VerbosePrintsCommandAndCopies(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.root, "packages/pkg/tsconfig.json", "{}")
	req := f.request(options.Partial{
		EnableTsc: options.Bool(true),
		Verbose:   options.Bool(true),
		Reporter:  options.String("spec"),
	})

	if _, err := f.exec.Run(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	out := f.stdout.String()
	for _, want := range []string{
		"Running: node --enable-source-maps --test",
		"copy packages/pkg/tsconfig.json -> dist/test-out/pkg/tsconfig.json",
		"Reporter: Spec",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "--no-warnings") {
		t.Error("verbose run should not suppress warnings")
	}
}

func TestPlan(t *testing.T) {
	f := newFixture(t)
	req := f.request(options.Partial{EnableTsc: options.Bool(true)})

	cmds, err := f.exec.Plan(req)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	var programs []string
	for _, c := range cmds {
		programs = append(programs, c.Program)
	}
	if !cmp.Equal(programs, []string{"tsc", "tsc-alias", "node"}) {
		t.Errorf("Plan() programs = %v", programs)
	}
	if f.runner.RunCount() != 0 {
		t.Error("Plan() launched a process")
	}
	if _, err := os.Stat(filepath.Join(f.root, "dist")); !os.IsNotExist(err) {
		t.Error("Plan() touched the output directory")
	}
}

func TestPlan_InvalidAdditionalArgsIsConfigError(t *testing.T) {
	f := newFixture(t)
	req := f.request(options.Partial{AdditionalArgs: options.String(`'open`)})

	_, err := f.exec.Plan(req)
	if !errors.IsKind(err, errors.KindConfig) {
		t.Errorf("Plan() error = %v, want config kind", err)
	}
}

func TestValidate(t *testing.T) {
	f := newFixture(t)

	if err := Validate(f.request(options.Partial{})); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	noName := f.request(options.Partial{})
	noName.Project.Name = ""
	if err := Validate(noName); !errors.IsKind(err, errors.KindPrecondition) {
		t.Errorf("Validate(no name) = %v, want precondition", err)
	}

	dir := f.request(options.Partial{TsConfig: options.String(".")})
	if err := Validate(dir); err == nil {
		t.Error("Validate() accepted a directory as tsconfig")
	}
}

func TestRun_UnsafeOutputDirIsPrecondition(t *testing.T) {
	tests := []struct {
		name string
		dir  string
	}{
		{"workspace root", "."},
		{"empty", ""},
		{"project root", "packages/pkg"},
		{"project parent", "packages"},
		{"outside workspace", "../.."},
		{"absolute", filepath.Join(os.TempDir(), "nodetest-out")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			writeFile(t, f.root, "packages/pkg/src/index.ts", "export const x = 1;")

			res, err := f.exec.Run(context.Background(), f.request(options.Partial{
				EnableTsc: options.Bool(true),
				OutputDir: options.String(tt.dir),
			}))

			if !errors.IsKind(err, errors.KindPrecondition) {
				t.Fatalf("Run() = %+v, %v, want precondition error", res, err)
			}
			if f.runner.RunCount() != 0 {
				t.Errorf("runner called %d times, want 0", f.runner.RunCount())
			}
			if _, err := os.Stat(filepath.Join(f.root, "packages", "pkg", "src", "index.ts")); err != nil {
				t.Errorf("project source removed: %v", err)
			}
			if diff := cmp.Diff([]State{StateValidating, StateFailed}, f.states); diff != "" {
				t.Errorf("states mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBinariesFromEnv(t *testing.T) {
	t.Setenv(EnvNode, "/usr/local/bin/node22")
	t.Setenv(EnvTsx, "")

	b := BinariesFromEnv()
	if b.Test.Node != "/usr/local/bin/node22" || b.Test.Tsx != command.DefaultTsxBinary {
		t.Errorf("BinariesFromEnv().Test = %+v", b.Test)
	}
}

func TestStateString(t *testing.T) {
	if StateCommandBuilding.String() != "command-building" {
		t.Errorf("String() = %q", StateCommandBuilding.String())
	}
	if State(99).String() != "unknown" {
		t.Errorf("String() = %q", State(99).String())
	}
}

func tscDefaults() tsc.Binaries {
	return tsc.Binaries{Tsc: tsc.DefaultTscBinary, Alias: tsc.DefaultAliasBinary}
}
