package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/nodetest/internal/errors"
)

// projectManifests mark a directory as a project.
var projectManifests = []string{"project.json", "package.json"}

// pnpmWorkspace is the subset of pnpm-workspace.yaml we read.
type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

// discoverProjectDirs returns slash-separated project paths relative to root.
// pnpm-workspace.yaml package globs take precedence; without it, every
// directory holding a project.json is a project.
func discoverProjectDirs(root string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(root, PnpmWorkspaceFile))
	if err == nil {
		var ws pnpmWorkspace
		if err := yaml.Unmarshal(data, &ws); err != nil {
			return nil, errors.Configf("%s: %v", PnpmWorkspaceFile, err)
		}
		return globProjectDirs(root, ws.Packages)
	}
	if !os.IsNotExist(err) {
		return nil, errors.Environmentf("cannot read %s: %v", PnpmWorkspaceFile, err)
	}
	return walkProjectDirs(root)
}

// globProjectDirs expands pnpm package globs. Patterns prefixed with "!"
// exclude matches of the other patterns.
func globProjectDirs(root string, patterns []string) ([]string, error) {
	var include, exclude []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if neg, ok := strings.CutPrefix(p, "!"); ok {
			exclude = append(exclude, cleanPattern(neg))
			continue
		}
		if p != "" {
			include = append(include, cleanPattern(p))
		}
	}

	fsys := os.DirFS(root)
	found := make(map[string]bool)
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Configf("%s: invalid package pattern %q", PnpmWorkspaceFile, pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if hasExcludedSegment(m) || matchesAny(exclude, m) {
				continue
			}
			if isProjectDir(filepath.Join(root, filepath.FromSlash(m))) {
				found[m] = true
			}
		}
	}

	dirs := make([]string, 0, len(found))
	for d := range found {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// walkProjectDirs finds every directory holding a project.json.
// Unreadable directories are skipped.
func walkProjectDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		if _, statErr := os.Stat(filepath.Join(path, "project.json")); statErr == nil {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			dirs = append(dirs, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Environmentf("cannot scan workspace: %v", err)
	}
	return dirs, nil
}

func cleanPattern(p string) string {
	p = strings.TrimPrefix(p, "./")
	return strings.TrimSuffix(p, "/")
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func isProjectDir(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	for _, m := range projectManifests {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}

func hasExcludedSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == "node_modules" {
			return true
		}
	}
	return false
}

// isExcludedDir returns true for directories that never hold workspace projects.
func isExcludedDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	excluded := map[string]bool{
		"node_modules": true,
		"dist":         true,
		"coverage":     true,
		"tmp":          true,
	}
	return excluded[name]
}
