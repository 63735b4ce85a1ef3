package testparser

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// NodeParser parses the summary printed by the spec and tap reporters of
// the Node.js test runner.
type NodeParser struct{}

// Name returns the parser name.
func (p *NodeParser) Name() string {
	return "node"
}

var (
	// ℹ tests 12 (spec) or # tests 12 (tap)
	nodeSummaryRegex = regexp.MustCompile(`^\s*(?:ℹ|#)\s+(tests|pass|fail|cancelled|skipped|todo)\s+(\d+)\s*$`)
	// not ok 3 - adds numbers # TODO
	tapFailRegex = regexp.MustCompile(`^\s*not ok \d+ - (.+?)(?:\s+#\s*(.*))?$`)
	// ✖ adds numbers (1.25ms)
	specFailRegex = regexp.MustCompile(`^\s*✖ (.+?) \(\d[\d.]*m?s\)\s*$`)
)

// Parse extracts test counts from Node.js test runner output. It reads the
// summary block both reporters print at the end:
//
//	ℹ tests 5        # tests 5
//	ℹ pass 4         # pass 4
//	ℹ fail 1         # fail 1
//	ℹ cancelled 0    # cancelled 0
//	ℹ skipped 0      # skipped 0
//	ℹ todo 0         # todo 0
//
// Cancelled tests count as failed and todo tests as skipped. When the block
// appears more than once, the last one wins.
func (p *NodeParser) Parse(output string) TestCounts {
	counts := TestCounts{}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := nodeSummaryRegex.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[2])
			switch m[1] {
			case "tests":
				// A new summary block starts; drop the previous one.
				counts.Passed, counts.Failed, counts.Skipped = 0, 0, 0
				counts.Total = n
			case "pass":
				counts.Passed = n
			case "fail", "cancelled":
				counts.Failed += n
			case "skipped", "todo":
				counts.Skipped += n
			}
			counts.Parsed = true
			continue
		}

		name := ""
		if m := tapFailRegex.FindStringSubmatch(line); m != nil {
			if !tapDirective(m[2]) {
				name = m[1]
			}
		} else if m := specFailRegex.FindStringSubmatch(line); m != nil {
			name = m[1]
		}
		if name != "" && !seen[name] {
			seen[name] = true
			counts.FailedTests = append(counts.FailedTests, FailedTest{Name: name})
		}
	}
	return counts
}

// tapDirective reports whether a TAP comment is a TODO or SKIP directive,
// which marks a "not ok" line as not failing.
func tapDirective(comment string) bool {
	c := strings.ToUpper(comment)
	return strings.HasPrefix(c, "TODO") || strings.HasPrefix(c, "SKIP")
}
