// Package cli provides the command-line interface for nodetest.
package cli

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/AndreyAkinshin/nodetest/internal/errors"
	"github.com/AndreyAkinshin/nodetest/internal/output"
	"github.com/AndreyAkinshin/nodetest/internal/runner"
)

// Version is set at build time.
var Version = "dev"

// exitCode ends a command with a specific exit code without printing an error.
type exitCode int

func (c exitCode) Error() string {
	return "exit code " + strconv.Itoa(int(c))
}

// app holds the state shared by all commands of one invocation.
type app struct {
	out *output.Writer

	// Global flags.
	cwd    string
	target string
	quiet  bool

	newRunner func(workspaceRoot string, tee io.Writer) runner.Runner
	probeNode func(ctx context.Context, bin string) (string, error)
}

func newApp(out *output.Writer) *app {
	return &app{
		out:       out,
		newRunner: execRunner,
		probeNode: probeNode,
	}
}

// execRunner launches processes from the workspace root with inherited
// stdio. When stdout is not a terminal, the child's stdout is also copied to
// tee; on a terminal it is left untouched so reporters keep their TTY output.
func execRunner(root string, tee io.Writer) runner.Runner {
	e := runner.New(root)
	if tee != nil && !term.IsTerminal(int(os.Stdout.Fd())) {
		e.Stdout = io.MultiWriter(os.Stdout, tee)
	}
	return e
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	return newApp(output.New()).run(args)
}

func (a *app) run(args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return errors.ExitSuccess
	}
	if code, ok := err.(exitCode); ok {
		return int(code)
	}
	a.out.ErrorPrefix("%v", err)
	return errors.GetExitCode(err)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "nodetest",
		Short: "Run the Node.js test runner for workspace projects",
		Long: `nodetest runs "node --test" for one project of a JavaScript or TypeScript
workspace. It builds the runner command line from the project's options,
optionally compiles TypeScript first, and exits with the runner's status.

Options are read from the project's project.json target, nodetest.yaml or
nodetest.json, and can be overridden with flags.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.out.SetQuiet(a.quiet)
		},
	}
	root.SetOut(a.out.Stdout())
	root.SetErr(a.out.Stderr())
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.Configf("%s: %v", cmd.CommandPath(), err)
	})
	root.SetVersionTemplate("nodetest {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cwd, "cwd", "C", ".", "directory to start workspace discovery from")
	pf.StringVar(&a.target, "target", "test", "project.json target whose options are read")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "minimal output (errors only)")

	root.AddCommand(
		a.runCommand(),
		a.printCommand(),
		a.projectsCommand(),
		a.configCommand(),
		a.versionCommand(),
	)
	return root
}

// projectArg requires exactly one project name.
func projectArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.Configf("%s: expected exactly one project name, got %d arguments", cmd.CommandPath(), len(args))
	}
	return nil
}
