package testparser

import "strings"

// Registry maps reporter names to their parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates a registry with parsers for the built-in reporters
// that print a summary.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}

	node := &NodeParser{}
	r.parsers["default"] = node
	r.parsers["spec"] = node
	r.parsers["tap"] = node

	return r
}

// GetParser returns a parser for the given reporter.
// Returns nil if the reporter's output cannot be summarized.
func (r *Registry) GetParser(reporter string) Parser {
	return r.parsers[strings.ToLower(reporter)]
}

