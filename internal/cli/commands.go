package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AndreyAkinshin/nodetest/internal/command"
	"github.com/AndreyAkinshin/nodetest/internal/ctxlog"
	"github.com/AndreyAkinshin/nodetest/internal/errors"
	"github.com/AndreyAkinshin/nodetest/internal/executor"
	"github.com/AndreyAkinshin/nodetest/internal/options"
	"github.com/AndreyAkinshin/nodetest/internal/runner"
	"github.com/AndreyAkinshin/nodetest/internal/testparser"
	"github.com/AndreyAkinshin/nodetest/internal/version"
	"github.com/AndreyAkinshin/nodetest/internal/workspace"
)

// resolved is a project with its effective options.
type resolved struct {
	ws      *workspace.Workspace
	project workspace.Project
	source  options.Source
	req     executor.Request
}

func (a *app) loadWorkspace() (*workspace.Workspace, error) {
	root, err := workspace.FindRootFrom(a.cwd)
	if err != nil {
		return nil, &errors.Error{Kind: errors.KindPrecondition, Message: err.Error(), Cause: err}
	}
	return workspace.Load(root)
}

// resolve finds the named project and layers defaults, its options file and
// any flags set on cmd.
func (a *app) resolve(cmd *cobra.Command, name string, flags *optionFlags) (*resolved, error) {
	ws, err := a.loadWorkspace()
	if err != nil {
		return nil, err
	}
	proj, err := ws.Project(name)
	if err != nil {
		if names := ws.Names(); len(names) > 0 {
			a.out.Hint("Known projects: %s", strings.Join(names, ", "))
		}
		return nil, err
	}
	partial, src, err := options.LoadProject(proj.Dir, a.target)
	if err != nil {
		return nil, err
	}
	if flags != nil {
		fp := flags.partial(cmd.Flags())
		if err := fp.Validate(); err != nil {
			return nil, errors.Configf("%s: invalid flag values: %v", cmd.CommandPath(), err)
		}
		partial = partial.Merge(fp)
	}
	return &resolved{
		ws:      ws,
		project: proj,
		source:  src,
		req: executor.Request{
			WorkspaceRoot: ws.Root,
			Project:       proj,
			Options:       options.Normalize(partial, proj.Name),
		},
	}, nil
}

func (a *app) runCommand() *cobra.Command {
	flags := &optionFlags{}
	cmd := &cobra.Command{
		Use:   "run <project>",
		Short: "Run the tests of a project",
		Example: `  nodetest run my-lib
  nodetest run my-lib --enable-tsc --coverage
  nodetest run my-lib -t "adds numbers" --bail`,
		Args: projectArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTests(cmd, args[0], flags)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func (a *app) runTests(cmd *cobra.Command, name string, flags *optionFlags) error {
	r, err := a.resolve(cmd, name, flags)
	if err != nil {
		return err
	}
	opts := r.req.Options
	ctx := ctxlog.WithLogger(cmd.Context(), ctxlog.New(a.out.Stderr(), opts.Verbose))
	ctxlog.FromContext(ctx).Debug("resolved options", "project", r.project.Name, "source", r.source.Path, "target", r.source.Target)

	tail := testparser.NewTail(testparser.DefaultTailSize)
	ex := &executor.Executor{
		Runner:   a.newRunner(r.req.WorkspaceRoot, tail),
		Out:      a.out,
		Binaries: executor.BinariesFromEnv(),
	}
	a.out.Step(r.project.Name, "test")
	res, err := ex.Run(ctx, r.req)
	if err != nil {
		return err
	}
	a.reportSummary(opts.Reporter, tail.String())
	if !res.Success {
		a.out.FinalFailure("%s", failureMessage(r.project.Name, res))
		return exitCode(errors.ExitRuntimeError)
	}
	a.out.FinalSuccess("%s: tests passed", r.project.Name)
	return nil
}

// failureMessage names the step that ended a failed run.
func failureMessage(project string, res executor.Result) string {
	switch {
	case errors.IsKind(res.Err, errors.KindCompile):
		return project + ": compilation failed"
	case errors.IsKind(res.Err, errors.KindAlias):
		return project + ": path alias rewriting failed"
	}
	return fmt.Sprintf("%s: tests failed (exit code %d)", project, res.ExitCode)
}

// reportSummary prints the counts found in the test output, if the
// reporter's output can be summarized.
func (a *app) reportSummary(reporter, output string) {
	parser := testparser.NewRegistry().GetParser(reporter)
	if parser == nil {
		return
	}
	counts := parser.Parse(output)
	if !counts.Parsed {
		return
	}
	a.out.SummaryHeader("Test Summary")
	a.out.SummaryItem("Total", strconv.Itoa(counts.Total))
	a.out.SummaryItem("Passed", strconv.Itoa(counts.Passed))
	a.out.SummaryItem("Failed", strconv.Itoa(counts.Failed))
	a.out.SummaryItem("Skipped", strconv.Itoa(counts.Skipped))
	for _, ft := range counts.FailedTests {
		a.out.SummaryItem("Failed test", ft.Name)
	}
}

func (a *app) printCommand() *cobra.Command {
	flags := &optionFlags{}
	cmd := &cobra.Command{
		Use:   "print <project>",
		Short: "Print the commands run would execute, without running them",
		Args:  projectArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printPlan(cmd, args[0], flags)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func (a *app) printPlan(cmd *cobra.Command, name string, flags *optionFlags) error {
	r, err := a.resolve(cmd, name, flags)
	if err != nil {
		return err
	}
	bins := executor.BinariesFromEnv()
	ex := &executor.Executor{Out: a.out, Binaries: bins}
	cmds, err := ex.Plan(r.req)
	if err != nil {
		return err
	}

	a.out.DryRunStart()
	if r.source.Found() {
		a.out.Info("options: %s", sourceLabel(r.ws.Root, r.source))
	}
	for _, c := range cmds {
		a.out.Println("%s", c)
	}

	ctx := ctxlog.WithLogger(cmd.Context(), ctxlog.New(a.out.Stderr(), r.req.Options.Verbose))
	a.warnUnsupported(ctx, bins.Test.Node, cmds[len(cmds)-1])
	a.out.Hint("Run 'nodetest run %s' to execute.", r.project.Name)
	return nil
}

// warnUnsupported warns about runner flags the installed Node.js does not
// accept. Probe failures are logged and otherwise ignored.
func (a *app) warnUnsupported(ctx context.Context, nodeBin string, cmd command.Command) {
	log := ctxlog.FromContext(ctx)
	v, err := a.probeNode(ctx, nodeBin)
	if err != nil {
		log.Debug("node version probe failed", "error", err)
		return
	}
	unmet, err := version.Check(v, cmd.Args)
	if err != nil {
		log.Debug("unparsable node version", "version", v, "error", err)
		return
	}
	for _, u := range unmet {
		a.out.WarningSimple("%s (found %s)", u, strings.TrimSpace(v))
	}
}

func (a *app) projectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List workspace projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listProjects()
		},
	}
}

func (a *app) listProjects() error {
	ws, err := a.loadWorkspace()
	if err != nil {
		return err
	}
	caser := cases.Title(language.English)

	rows := make([][]string, 0, len(ws.Projects))
	for _, p := range ws.Projects {
		source, reporter := "-", caser.String(options.DefaultReporter)
		partial, src, err := options.LoadProject(p.Dir, a.target)
		switch {
		case err != nil:
			source = "invalid"
		case src.Found():
			source = sourceLabel(ws.Root, src)
		}
		if err == nil {
			reporter = caser.String(options.Normalize(partial, p.Name).Reporter)
		}
		rows = append(rows, []string{p.Name, p.Root, source, reporter})
	}
	a.out.Table([]string{"PROJECT", "ROOT", "OPTIONS", "REPORTER"}, rows)
	return nil
}

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <project>",
		Short: "Validate a project's options file",
		Args:  projectArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(cmd, args[0])
		},
	})
	return cmd
}

func (a *app) validateConfig(cmd *cobra.Command, name string) error {
	r, err := a.resolve(cmd, name, nil)
	if err != nil {
		return err
	}
	if err := executor.Validate(r.req); err != nil {
		return err
	}

	source := "none (defaults)"
	if r.source.Found() {
		source = relTo(r.ws.Root, r.source.Path)
		if r.source.Target != "" {
			source += fmt.Sprintf(" (target %q)", r.source.Target)
		}
	}
	opts := r.req.Options
	a.out.ValidationSuccess("Configuration is valid.")
	a.out.SummaryItem("Project", r.project.Name)
	a.out.SummaryItem("Source", source)
	a.out.SummaryItem("TypeScript config", executor.TsConfigPath(r.project, opts))
	if opts.EnableTsc {
		a.out.SummaryItem("Output dir", opts.OutputDir)
	}
	return nil
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.out.Println("nodetest %s", Version)
			bins := executor.BinariesFromEnv()
			if v, err := a.probeNode(cmd.Context(), bins.Test.Node); err == nil {
				a.out.Println("node %s", strings.TrimSpace(v))
			} else {
				a.out.Println("node: not found (%s)", bins.Test.Node)
			}
			return nil
		},
	}
}

// probeNode returns the output of "<bin> --version".
func probeNode(ctx context.Context, bin string) (string, error) {
	var stdout bytes.Buffer
	e := &runner.Exec{Stdout: &stdout, Stderr: io.Discard}
	res := e.Run(ctx, command.NewBuilder(bin).Arg("--version").Command())
	if !res.Success {
		if res.Err != nil {
			return "", res.Err
		}
		return "", fmt.Errorf("%s --version exited with code %d", bin, res.ExitCode)
	}
	return stdout.String(), nil
}

// sourceLabel renders an options source as "<path>#<target>".
func sourceLabel(root string, src options.Source) string {
	label := relTo(root, src.Path)
	if src.Target != "" {
		label += "#" + src.Target
	}
	return label
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
