// Package version parses Node.js runtime versions and checks them against
// the minimum versions required by test runner flags.
package version

import (
	"cmp"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SemverRegex validates semantic version strings.
var SemverRegex = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(-([a-zA-Z0-9]+(\.[a-zA-Z0-9]+)*))?(\+([a-zA-Z0-9]+(\.[a-zA-Z0-9]+)*))?$`)

// Semver represents a parsed semantic version.
type Semver struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string
}

// Parse parses a semantic version string. A leading "v", as printed by
// node --version, is accepted.
func Parse(version string) (*Semver, error) {
	match := SemverRegex.FindStringSubmatch(strings.TrimPrefix(strings.TrimSpace(version), "v"))
	if match == nil {
		return nil, fmt.Errorf("invalid semver format: %q", version)
	}

	// Errors ignored: regex guarantees these capture groups contain only digits
	major, _ := strconv.Atoi(match[1])
	minor, _ := strconv.Atoi(match[2])
	patch, _ := strconv.Atoi(match[3])

	return &Semver{
		Major:      major,
		Minor:      minor,
		Patch:      patch,
		Prerelease: match[5], // Group 5 is prerelease without the dash
		Build:      match[8], // Group 8 is build without the plus
	}, nil
}

// String returns the semver string representation.
func (s *Semver) String() string {
	result := fmt.Sprintf("%d.%d.%d", s.Major, s.Minor, s.Patch)
	if s.Prerelease != "" {
		result += "-" + s.Prerelease
	}
	if s.Build != "" {
		result += "+" + s.Build
	}
	return result
}

// MinNode lists the first Node.js release accepting each test runner flag.
// Flags not listed are assumed to be always available.
var MinNode = map[string]string{
	"--test":                           "18.0.0",
	"--test-name-pattern":              "18.11.0",
	"--test-reporter":                  "19.6.0",
	"--experimental-test-coverage":     "19.7.0",
	"--test-concurrency":               "20.10.0",
	"--test-timeout":                   "20.11.0",
	"--experimental-test-module-mocks": "22.3.0",
	"--test-update-snapshots":          "22.3.0",
}

// Unmet is a flag the detected runtime is too old for.
type Unmet struct {
	Flag     string
	Requires string
}

func (u Unmet) String() string {
	return fmt.Sprintf("%s requires Node.js >= %s", u.Flag, u.Requires)
}

// Check returns the flags in args that need a newer Node.js than node.
// Results are sorted by flag name and contain each flag once.
func Check(node string, args []string) ([]Unmet, error) {
	if _, err := Parse(node); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var unmet []Unmet
	for _, arg := range args {
		flag, _, _ := strings.Cut(arg, "=")
		need, ok := MinNode[flag]
		if !ok || seen[flag] {
			continue
		}
		seen[flag] = true
		c, err := Compare(node, need)
		if err != nil {
			return nil, err
		}
		if c < 0 {
			unmet = append(unmet, Unmet{Flag: flag, Requires: need})
		}
	}
	sort.Slice(unmet, func(i, j int) bool { return unmet[i].Flag < unmet[j].Flag })
	return unmet, nil
}

// Compare compares two semver strings.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}

	if va.Major != vb.Major {
		return cmp.Compare(va.Major, vb.Major), nil
	}
	if va.Minor != vb.Minor {
		return cmp.Compare(va.Minor, vb.Minor), nil
	}
	if va.Patch != vb.Patch {
		return cmp.Compare(va.Patch, vb.Patch), nil
	}

	// Prerelease comparison per SemVer §9:
	// - Version without prerelease is greater than version with prerelease
	// - If both have prereleases, compare them per §11
	// - If both empty (or equal), fall through to return 0
	if va.Prerelease == "" && vb.Prerelease != "" {
		return 1, nil
	}
	if va.Prerelease != "" && vb.Prerelease == "" {
		return -1, nil
	}
	if va.Prerelease != vb.Prerelease {
		return comparePrerelease(va.Prerelease, vb.Prerelease), nil
	}

	return 0, nil
}

// comparePrerelease compares prerelease strings per SemVer §11:
// - Split by dots into identifiers
// - Numeric identifiers compare as integers
// - Alphanumeric identifiers compare as strings
// - Numeric identifiers have lower precedence than alphanumeric
// - Fewer identifiers has lower precedence if all preceding are equal
func comparePrerelease(a, b string) int {
	partsA := strings.Split(a, ".")
	partsB := strings.Split(b, ".")

	minLen := len(partsA)
	if len(partsB) < minLen {
		minLen = len(partsB)
	}

	for i := 0; i < minLen; i++ {
		cmp := compareIdentifier(partsA[i], partsB[i])
		if cmp != 0 {
			return cmp
		}
	}

	// Longer prerelease has higher precedence if all shared identifiers are equal
	return cmp.Compare(len(partsA), len(partsB))
}

// compareIdentifier compares two prerelease identifiers per SemVer §11.
func compareIdentifier(a, b string) int {
	aNum, aIsNum := parseNumeric(a)
	bNum, bIsNum := parseNumeric(b)

	// Both numeric: compare as integers
	if aIsNum && bIsNum {
		return cmp.Compare(aNum, bNum)
	}
	// Numeric has lower precedence than alphanumeric
	if aIsNum {
		return -1
	}
	if bIsNum {
		return 1
	}
	// Both alphanumeric: string comparison
	return strings.Compare(a, b)
}

// parseNumeric attempts to parse a string as a non-negative integer.
// Returns (value, true) if successful, (0, false) otherwise.
func parseNumeric(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	// Reject leading zeros (except "0" itself) per SemVer spec
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
