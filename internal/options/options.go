// Package options defines the executor options, their defaults, and how they
// are layered from configuration files and command-line flags.
package options

import "strings"

// Default option values.
const (
	DefaultReporter    = "default"
	DefaultTestFiles   = "**/*.test.{js,ts}"
	DefaultTsConfig    = "tsconfig.spec.json"
	DefaultOutputDir   = "dist/test-out/{projectName}"
	DefaultTestTimeout = 5000

	// ProjectNamePlaceholder is substituted in OutputDir during normalization.
	ProjectNamePlaceholder = "{projectName}"
)

// Options is the fully defaulted option record for one invocation.
// It is produced by Normalize and treated as read-only afterwards.
type Options struct {
	EnableTsc         bool
	UseTsx            bool
	EnableJestCompat  bool
	Imports           []string
	Reporter          string
	TestFiles         string
	TsConfig          string
	UseAlias          bool
	IgnoreBuildErrors bool
	Verbose           bool
	Coverage          bool
	AdditionalArgs    string
	OutputDir         string
	Experimental      bool
	UpdateSnapshot    bool
	TestTimeout       int
	TestTimeoutSet    bool // TestTimeout came from configuration, not the default
	Bail              bool
	TestNamePattern   string // empty means unset
	TestPathPattern   string // empty means unset
	MaxWorkers        int    // zero means unset
	Parallel          bool
}

// Partial is an option record where every field may be absent.
// Pointer fields distinguish "not set" from the zero value.
type Partial struct {
	EnableTsc         *bool    `json:"enableTsc,omitempty" yaml:"enableTsc,omitempty"`
	UseTsx            *bool    `json:"useTsx,omitempty" yaml:"useTsx,omitempty"`
	EnableJestCompat  *bool    `json:"enableJestCompat,omitempty" yaml:"enableJestCompat,omitempty"`
	Imports           []string `json:"imports,omitempty" yaml:"imports,omitempty"`
	Reporter          *string  `json:"reporter,omitempty" yaml:"reporter,omitempty"`
	TestFiles         *string  `json:"testFiles,omitempty" yaml:"testFiles,omitempty"`
	TsConfig          *string  `json:"tsConfig,omitempty" yaml:"tsConfig,omitempty"`
	UseAlias          *bool    `json:"useAlias,omitempty" yaml:"useAlias,omitempty"`
	IgnoreBuildErrors *bool    `json:"ignoreBuildErrors,omitempty" yaml:"ignoreBuildErrors,omitempty"`
	Verbose           *bool    `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Coverage          *bool    `json:"coverage,omitempty" yaml:"coverage,omitempty"`
	AdditionalArgs    *string  `json:"additionalArgs,omitempty" yaml:"additionalArgs,omitempty"`
	OutputDir         *string  `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	Experimental      *bool    `json:"experimental,omitempty" yaml:"experimental,omitempty"`
	UpdateSnapshot    *bool    `json:"updateSnapshot,omitempty" yaml:"updateSnapshot,omitempty"`
	TestTimeout       *int     `json:"testTimeout,omitempty" yaml:"testTimeout,omitempty"`
	Bail              *bool    `json:"bail,omitempty" yaml:"bail,omitempty"`
	TestNamePattern   *string  `json:"testNamePattern,omitempty" yaml:"testNamePattern,omitempty"`
	TestPathPattern   *string  `json:"testPathPattern,omitempty" yaml:"testPathPattern,omitempty"`
	MaxWorkers        *int     `json:"maxWorkers,omitempty" yaml:"maxWorkers,omitempty"`
	Parallel          *bool    `json:"parallel,omitempty" yaml:"parallel,omitempty"`
}

// Normalize applies defaults to p and substitutes the project name into the
// output directory. The returned Options shares no memory with p.
func Normalize(p Partial, projectName string) Options {
	opts := Options{
		EnableTsc:         boolOr(p.EnableTsc, false),
		UseTsx:            boolOr(p.UseTsx, true),
		EnableJestCompat:  boolOr(p.EnableJestCompat, true),
		Imports:           copyStrings(p.Imports),
		Reporter:          stringOr(p.Reporter, DefaultReporter),
		TestFiles:         stringOr(p.TestFiles, DefaultTestFiles),
		TsConfig:          stringOr(p.TsConfig, DefaultTsConfig),
		UseAlias:          boolOr(p.UseAlias, true),
		IgnoreBuildErrors: boolOr(p.IgnoreBuildErrors, false),
		Verbose:           boolOr(p.Verbose, false),
		Coverage:          boolOr(p.Coverage, false),
		AdditionalArgs:    stringOr(p.AdditionalArgs, ""),
		OutputDir:         stringOr(p.OutputDir, DefaultOutputDir),
		Experimental:      boolOr(p.Experimental, false),
		UpdateSnapshot:    boolOr(p.UpdateSnapshot, false),
		TestTimeout:       intOr(p.TestTimeout, DefaultTestTimeout),
		TestTimeoutSet:    p.TestTimeout != nil,
		Bail:              boolOr(p.Bail, false),
		TestNamePattern:   stringOr(p.TestNamePattern, ""),
		TestPathPattern:   stringOr(p.TestPathPattern, ""),
		MaxWorkers:        intOr(p.MaxWorkers, 0),
		Parallel:          boolOr(p.Parallel, true),
	}
	opts.OutputDir = strings.ReplaceAll(opts.OutputDir, ProjectNamePlaceholder, projectName)
	return opts
}

// Merge returns a copy of p with every field set in over taking precedence.
func (p Partial) Merge(over Partial) Partial {
	out := p
	if over.EnableTsc != nil {
		out.EnableTsc = over.EnableTsc
	}
	if over.UseTsx != nil {
		out.UseTsx = over.UseTsx
	}
	if over.EnableJestCompat != nil {
		out.EnableJestCompat = over.EnableJestCompat
	}
	if over.Imports != nil {
		out.Imports = copyStrings(over.Imports)
	}
	if over.Reporter != nil {
		out.Reporter = over.Reporter
	}
	if over.TestFiles != nil {
		out.TestFiles = over.TestFiles
	}
	if over.TsConfig != nil {
		out.TsConfig = over.TsConfig
	}
	if over.UseAlias != nil {
		out.UseAlias = over.UseAlias
	}
	if over.IgnoreBuildErrors != nil {
		out.IgnoreBuildErrors = over.IgnoreBuildErrors
	}
	if over.Verbose != nil {
		out.Verbose = over.Verbose
	}
	if over.Coverage != nil {
		out.Coverage = over.Coverage
	}
	if over.AdditionalArgs != nil {
		out.AdditionalArgs = over.AdditionalArgs
	}
	if over.OutputDir != nil {
		out.OutputDir = over.OutputDir
	}
	if over.Experimental != nil {
		out.Experimental = over.Experimental
	}
	if over.UpdateSnapshot != nil {
		out.UpdateSnapshot = over.UpdateSnapshot
	}
	if over.TestTimeout != nil {
		out.TestTimeout = over.TestTimeout
	}
	if over.Bail != nil {
		out.Bail = over.Bail
	}
	if over.TestNamePattern != nil {
		out.TestNamePattern = over.TestNamePattern
	}
	if over.TestPathPattern != nil {
		out.TestPathPattern = over.TestPathPattern
	}
	if over.MaxWorkers != nil {
		out.MaxWorkers = over.MaxWorkers
	}
	if over.Parallel != nil {
		out.Parallel = over.Parallel
	}
	return out
}

// Bool returns a pointer to v, for building Partial literals.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v, for building Partial literals.
func String(v string) *string { return &v }

// Int returns a pointer to v, for building Partial literals.
func Int(v int) *int { return &v }

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func stringOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// copyStrings always returns a non-nil slice so Options.Imports is never nil.
func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
