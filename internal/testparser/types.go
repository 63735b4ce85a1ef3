// Package testparser extracts result counts from Node.js test runner output.
package testparser

// FailedTest holds information about a single failed test.
type FailedTest struct {
	Name   string // Test name as printed by the reporter
	Reason string // Failure reason/error message
}

// TestCounts holds parsed test result counts.
type TestCounts struct {
	Passed      int
	Failed      int
	Skipped     int
	Total       int
	Parsed      bool         // true if counts were successfully extracted
	FailedTests []FailedTest // details of failed tests
}

// Parser defines the interface for test output parsers.
type Parser interface {
	// Parse extracts test counts from the reporter output.
	Parse(output string) TestCounts
	// Name returns the name of the parser.
	Name() string
}
