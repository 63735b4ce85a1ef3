package cli

import (
	"github.com/spf13/pflag"

	"github.com/AndreyAkinshin/nodetest/internal/options"
)

// Flag names for executor options.
const (
	flagEnableTsc         = "enable-tsc"
	flagUseTsx            = "use-tsx"
	flagEnableJestCompat  = "enable-jest-compat"
	flagImport            = "import"
	flagReporter          = "reporter"
	flagTestFiles         = "test-files"
	flagTsConfig          = "ts-config"
	flagUseAlias          = "use-alias"
	flagIgnoreBuildErrors = "ignore-build-errors"
	flagVerbose           = "verbose"
	flagCoverage          = "coverage"
	flagAdditionalArgs    = "additional-args"
	flagOutputDir         = "output-dir"
	flagExperimental      = "experimental"
	flagUpdateSnapshot    = "update-snapshot"
	flagTestTimeout       = "test-timeout"
	flagBail              = "bail"
	flagTestNamePattern   = "test-name-pattern"
	flagTestPathPattern   = "test-path-pattern"
	flagMaxWorkers        = "max-workers"
	flagParallel          = "parallel"
)

// optionFlags holds the values of the executor option flags. Only flags the
// user set end up in the Partial, so file options are not overwritten by
// flag defaults.
type optionFlags struct {
	enableTsc         bool
	useTsx            bool
	enableJestCompat  bool
	imports           []string
	reporter          string
	testFiles         string
	tsConfig          string
	useAlias          bool
	ignoreBuildErrors bool
	verbose           bool
	coverage          bool
	additionalArgs    string
	outputDir         string
	experimental      bool
	updateSnapshot    bool
	testTimeout       int
	bail              bool
	testNamePattern   string
	testPathPattern   string
	maxWorkers        int
	parallel          bool
}

func (f *optionFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&f.enableTsc, flagEnableTsc, false, "compile TypeScript with tsc before running")
	fs.BoolVar(&f.useTsx, flagUseTsx, true, "run uncompiled tests through tsx")
	fs.BoolVar(&f.enableJestCompat, flagEnableJestCompat, true, "import the Jest compatibility layer")
	fs.StringArrayVar(&f.imports, flagImport, nil, "module to import before tests (repeatable)")
	fs.StringVar(&f.reporter, flagReporter, options.DefaultReporter, "test reporter")
	fs.StringVar(&f.testFiles, flagTestFiles, options.DefaultTestFiles, "test file glob")
	fs.StringVar(&f.tsConfig, flagTsConfig, options.DefaultTsConfig, "tsconfig file, relative to the project root")
	fs.BoolVar(&f.useAlias, flagUseAlias, true, "rewrite path aliases in compiled output")
	fs.BoolVar(&f.ignoreBuildErrors, flagIgnoreBuildErrors, false, "run tests even if compilation fails")
	fs.BoolVarP(&f.verbose, flagVerbose, "v", false, "print commands and file copies")
	fs.BoolVar(&f.coverage, flagCoverage, false, "collect test coverage")
	fs.StringVar(&f.additionalArgs, flagAdditionalArgs, "", "extra arguments appended to the runner command")
	fs.StringVar(&f.outputDir, flagOutputDir, options.DefaultOutputDir, "compiled output directory, relative to the workspace root")
	fs.BoolVar(&f.experimental, flagExperimental, false, "enable experimental module mocks")
	fs.BoolVarP(&f.updateSnapshot, flagUpdateSnapshot, "u", false, "update snapshots")
	fs.IntVar(&f.testTimeout, flagTestTimeout, options.DefaultTestTimeout, "per-test timeout in milliseconds")
	fs.BoolVar(&f.bail, flagBail, false, "stop after the first failing test")
	fs.StringVarP(&f.testNamePattern, flagTestNamePattern, "t", "", "run only tests whose name matches")
	fs.StringVar(&f.testPathPattern, flagTestPathPattern, "", "run only test files whose path matches")
	fs.IntVar(&f.maxWorkers, flagMaxWorkers, 0, "maximum number of concurrent test files")
	fs.BoolVar(&f.parallel, flagParallel, true, "run test files concurrently")
}

// partial returns the options set on the command line.
func (f *optionFlags) partial(fs *pflag.FlagSet) options.Partial {
	var p options.Partial
	setBool := func(name string, dst **bool, v bool) {
		if fs.Changed(name) {
			*dst = options.Bool(v)
		}
	}
	setString := func(name string, dst **string, v string) {
		if fs.Changed(name) {
			*dst = options.String(v)
		}
	}
	setInt := func(name string, dst **int, v int) {
		if fs.Changed(name) {
			*dst = options.Int(v)
		}
	}

	setBool(flagEnableTsc, &p.EnableTsc, f.enableTsc)
	setBool(flagUseTsx, &p.UseTsx, f.useTsx)
	setBool(flagEnableJestCompat, &p.EnableJestCompat, f.enableJestCompat)
	if fs.Changed(flagImport) {
		p.Imports = append([]string{}, f.imports...)
	}
	setString(flagReporter, &p.Reporter, f.reporter)
	setString(flagTestFiles, &p.TestFiles, f.testFiles)
	setString(flagTsConfig, &p.TsConfig, f.tsConfig)
	setBool(flagUseAlias, &p.UseAlias, f.useAlias)
	setBool(flagIgnoreBuildErrors, &p.IgnoreBuildErrors, f.ignoreBuildErrors)
	setBool(flagVerbose, &p.Verbose, f.verbose)
	setBool(flagCoverage, &p.Coverage, f.coverage)
	setString(flagAdditionalArgs, &p.AdditionalArgs, f.additionalArgs)
	setString(flagOutputDir, &p.OutputDir, f.outputDir)
	setBool(flagExperimental, &p.Experimental, f.experimental)
	setBool(flagUpdateSnapshot, &p.UpdateSnapshot, f.updateSnapshot)
	setInt(flagTestTimeout, &p.TestTimeout, f.testTimeout)
	setBool(flagBail, &p.Bail, f.bail)
	setString(flagTestNamePattern, &p.TestNamePattern, f.testNamePattern)
	setString(flagTestPathPattern, &p.TestPathPattern, f.testPathPattern)
	setInt(flagMaxWorkers, &p.MaxWorkers, f.maxWorkers)
	setBool(flagParallel, &p.Parallel, f.parallel)
	return p
}
