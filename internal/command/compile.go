package command

import (
	"path/filepath"
	"strconv"

	"github.com/AndreyAkinshin/nodetest/internal/options"
)

// JestCompatModule is imported ahead of user imports when Jest
// compatibility is enabled.
const JestCompatModule = "@simonegianni/node-test-jest-compat"

// Node test runner flags.
const (
	FlagNoWarnings      = "--no-warnings"
	FlagSourceMaps      = "--enable-source-maps"
	FlagTest            = "--test"
	FlagImport          = "--import"
	FlagReporter        = "--test-reporter"
	FlagModuleMocks     = "--experimental-test-module-mocks"
	FlagCoverage        = "--experimental-test-coverage"
	FlagUpdateSnapshots = "--test-update-snapshots"
	FlagTimeout         = "--test-timeout"
	FlagFailFast        = "--test-fail-fast"
	FlagNamePattern     = "--test-name-pattern"
	FlagConcurrency     = "--test-concurrency"
	FlagPathPattern     = "--test-path-pattern"
)

const singleConcurrencyArg = FlagConcurrency + "=1"

// Default executables, looked up in PATH.
const (
	DefaultNodeBinary = "node"
	DefaultTsxBinary  = "tsx"
)

// Binaries names the executables used to run tests.
type Binaries struct {
	Node string
	Tsx  string
}

// DefaultBinaries returns the binaries resolved from PATH.
func DefaultBinaries() Binaries {
	return Binaries{Node: DefaultNodeBinary, Tsx: DefaultTsxBinary}
}

// Input carries the values the compiler needs besides the options.
type Input struct {
	TestGlob string // Resolved test-file glob, always the last argument
	Compiled bool   // Whether TypeScript was compiled before the run
	Binaries Binaries
}

// Compile maps normalized options to the test-run command. The order of the
// emitted flags is fixed and the test glob is always the final argument.
// It fails only when AdditionalArgs cannot be split into words.
func Compile(opts options.Options, in Input) (Command, error) {
	bins := in.Binaries
	if bins.Node == "" {
		bins.Node = DefaultNodeBinary
	}
	if bins.Tsx == "" {
		bins.Tsx = DefaultTsxBinary
	}

	useTsx := !in.Compiled && opts.UseTsx

	var b *Builder
	if useTsx {
		b = NewBuilder(bins.Tsx)
	} else {
		b = NewBuilder(bins.Node)
		if !opts.Verbose {
			b.Arg(FlagNoWarnings)
		}
		b.Arg(FlagSourceMaps)
	}

	b.Arg(FlagTest)

	if opts.EnableJestCompat {
		b.Arg(FlagImport, JestCompatModule)
	}
	for _, imp := range opts.Imports {
		b.Arg(FlagImport, imp)
	}

	b.Arg(FlagReporter, opts.Reporter)

	if opts.Experimental {
		b.Arg(FlagModuleMocks)
	}
	if opts.Coverage {
		b.Arg(FlagCoverage)
	}
	if opts.UpdateSnapshot {
		b.Arg(FlagUpdateSnapshots)
	}
	if timeoutSet(opts) {
		b.Arg(FlagTimeout + "=" + strconv.Itoa(opts.TestTimeout))
	}
	if opts.Bail {
		b.Arg(FlagFailFast)
	}
	if opts.TestNamePattern != "" {
		b.FlagQuoted(FlagNamePattern, opts.TestNamePattern)
	}

	switch {
	case !opts.Parallel:
		b.Arg(singleConcurrencyArg)
	case opts.MaxWorkers > 0:
		b.Arg(FlagConcurrency + "=" + strconv.Itoa(opts.MaxWorkers))
	}

	if opts.TestPathPattern != "" {
		b.FlagQuoted(FlagPathPattern, opts.TestPathPattern)
	}

	if opts.AdditionalArgs != "" {
		if err := b.Raw(opts.AdditionalArgs); err != nil {
			return Command{}, err
		}
	}

	b.Quoted(in.TestGlob)

	return b.Command(), nil
}

// timeoutSet reports whether a timeout flag should be emitted: only for a
// positive timeout that was configured explicitly.
func timeoutSet(opts options.Options) bool {
	return opts.TestTimeoutSet && opts.TestTimeout > 0
}

// TestGlob resolves the test-file glob. Compiled runs look in the output
// directory; otherwise the glob is rooted at the project directory.
func TestGlob(workspaceRoot, projectRoot string, opts options.Options, compiled bool) string {
	if compiled {
		return filepath.Join(workspaceRoot, filepath.FromSlash(opts.OutputDir), opts.TestFiles)
	}
	return filepath.Join(workspaceRoot, filepath.FromSlash(projectRoot), opts.TestFiles)
}
