// Package workspace provides workspace discovery and project resolution.
package workspace

import (
	"errors"
	"os"
	"path/filepath"
)

// Marker files identifying a workspace root, checked in order.
const (
	NxFile            = "nx.json"
	PnpmWorkspaceFile = "pnpm-workspace.yaml"
	WorkspaceJSONFile = "workspace.json"
)

var rootMarkers = []string{NxFile, PnpmWorkspaceFile, WorkspaceJSONFile}

// ErrNoWorkspaceRoot is returned when no workspace marker is found.
var ErrNoWorkspaceRoot = errors.New("nx.json, pnpm-workspace.yaml or workspace.json not found: not a workspace (or any parent up to the root)")

// FindRootFrom walks up from the given directory until it finds a workspace marker.
func FindRootFrom(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspaceRoot
		}
		dir = parent
	}
}
