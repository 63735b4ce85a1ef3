// Package nodetest provides public constants for tools that invoke the
// nodetest CLI.
package nodetest

// Exit codes returned by the nodetest CLI.
// These constants allow external tools to check exit codes symbolically
// rather than using magic numbers.
const (
	// ExitSuccess indicates the tests ran and passed.
	ExitSuccess = 0

	// ExitFailure indicates a test or build failure.
	ExitFailure = 1

	// ExitConfigError indicates invalid options, an unknown project or a
	// missing TypeScript configuration.
	ExitConfigError = 2

	// ExitEnvError indicates an environment error.
	ExitEnvError = 3
)
