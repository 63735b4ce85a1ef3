package integration

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/AndreyAkinshin/nodetest/internal/command"
	"github.com/AndreyAkinshin/nodetest/internal/options"
	"github.com/AndreyAkinshin/nodetest/internal/workspace"
)

func TestNxWorkspaceDiscovery(t *testing.T) {
	t.Parallel()
	root := filepath.Join(fixturesDir(), "nx-workspace")

	found, err := workspace.FindRootFrom(filepath.Join(root, "libs", "math", "src"))
	if err != nil {
		t.Fatalf("FindRootFrom() error = %v", err)
	}
	if found != root {
		t.Errorf("FindRootFrom() = %q, want %q", found, root)
	}

	ws, err := workspace.Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{"math", "web"}, ws.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestPnpmWorkspaceDiscovery(t *testing.T) {
	t.Parallel()
	root := filepath.Join(fixturesDir(), "pnpm-workspace")

	ws, err := workspace.Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{"@acme/core", "scripts"}, ws.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	core, err := ws.Project("@acme/core")
	if err != nil {
		t.Fatal(err)
	}
	if core.Root != "packages/core" {
		t.Errorf("core.Root = %q, want packages/core", core.Root)
	}
}

func TestFixtureOptionSources(t *testing.T) {
	t.Parallel()
	tests := []struct {
		fixture, project string
		wantSource       string
		wantTarget       string
		check            func(t *testing.T, opts options.Options)
	}{
		{
			fixture: "nx-workspace", project: "math",
			wantSource: "project.json", wantTarget: "test",
			check: func(t *testing.T, opts options.Options) {
				if !opts.EnableTsc || opts.Reporter != "tap" || opts.Parallel || opts.MaxWorkers != 4 {
					t.Errorf("unexpected options %+v", opts)
				}
				if opts.OutputDir != "dist/test-out/math" {
					t.Errorf("OutputDir = %q", opts.OutputDir)
				}
			},
		},
		{
			fixture: "nx-workspace", project: "web",
			wantSource: "nodetest.yaml",
			check: func(t *testing.T, opts options.Options) {
				if opts.TestNamePattern != "smoke" || !opts.Coverage || opts.Reporter != "spec" {
					t.Errorf("unexpected options %+v", opts)
				}
			},
		},
		{
			fixture: "pnpm-workspace", project: "@acme/core",
			wantSource: "nodetest.json",
			check: func(t *testing.T, opts options.Options) {
				if opts.UseTsx || opts.TestFiles != "**/*.spec.ts" {
					t.Errorf("unexpected options %+v", opts)
				}
				if opts.OutputDir != "dist/test-out/@acme/core" {
					t.Errorf("OutputDir = %q", opts.OutputDir)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.project, func(t *testing.T) {
			t.Parallel()
			ws, err := workspace.Load(filepath.Join(fixturesDir(), tt.fixture))
			if err != nil {
				t.Fatal(err)
			}
			proj, err := ws.Project(tt.project)
			if err != nil {
				t.Fatal(err)
			}
			p, src, err := options.LoadProject(proj.Dir, "")
			if err != nil {
				t.Fatalf("LoadProject() error = %v", err)
			}
			if filepath.Base(src.Path) != tt.wantSource || src.Target != tt.wantTarget {
				t.Errorf("source = %+v, want %s target %q", src, tt.wantSource, tt.wantTarget)
			}
			tt.check(t, options.Normalize(p, proj.Name))
		})
	}
}

func TestFixtureCommands(t *testing.T) {
	t.Parallel()
	root := filepath.Join(fixturesDir(), "nx-workspace")
	ws, err := workspace.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	web, err := ws.Project("web")
	if err != nil {
		t.Fatal(err)
	}
	p, _, err := options.LoadProject(web.Dir, "")
	if err != nil {
		t.Fatal(err)
	}
	opts := options.Normalize(p, web.Name)

	cmd, err := command.Compile(opts, command.Input{
		TestGlob: command.TestGlob(root, web.Root, opts, false),
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	want := []string{
		"tsx", "--test",
		"--import", command.JestCompatModule,
		"--test-reporter", "spec",
		"--experimental-test-coverage",
		"--test-name-pattern=smoke",
		"--test-only", "--trace-warnings",
		filepath.Join(root, "apps", "web", "**/*.test.{js,ts}"),
	}
	if diff := cmp.Diff(want, cmd.Argv()); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(cmd.String(), `--test-name-pattern="smoke"`) {
		t.Errorf("String() = %q, want quoted name pattern", cmd.String())
	}
}
