package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AndreyAkinshin/nodetest/internal/errors"
)

// Project is a single workspace project.
type Project struct {
	Name string // Project name (project.json name, package.json name, or directory name)
	Root string // Slash-separated path relative to the workspace root ("." for the root itself)
	Dir  string // Absolute project directory
}

// Workspace is a loaded workspace.
type Workspace struct {
	Root     string
	Projects []Project
}

// Load discovers all projects of the workspace rooted at root.
func Load(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	dirs, err := discoverProjectDirs(abs)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{Root: abs}
	seen := make(map[string]string)
	for _, rel := range dirs {
		dir := filepath.Join(abs, filepath.FromSlash(rel))
		name := projectName(dir)
		if prev, ok := seen[name]; ok {
			return nil, errors.Configf("duplicate project name %q in %q and %q", name, prev, rel)
		}
		seen[name] = rel
		ws.Projects = append(ws.Projects, Project{Name: name, Root: rel, Dir: dir})
	}

	sort.Slice(ws.Projects, func(i, j int) bool {
		return ws.Projects[i].Name < ws.Projects[j].Name
	})
	return ws, nil
}

// Project returns the project with the given name.
func (w *Workspace) Project(name string) (Project, error) {
	for _, p := range w.Projects {
		if p.Name == name {
			return p, nil
		}
	}
	return Project{}, errors.NotFound("project", name)
}

// Names returns the sorted project names.
func (w *Workspace) Names() []string {
	names := make([]string, len(w.Projects))
	for i, p := range w.Projects {
		names[i] = p.Name
	}
	return names
}

type manifest struct {
	Name string `json:"name"`
}

// projectName resolves a project's name from its manifests, falling back to
// the directory name.
func projectName(dir string) string {
	for _, file := range []string{"project.json", "package.json"} {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			continue
		}
		var m manifest
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		if m.Name != "" {
			return m.Name
		}
	}
	return filepath.Base(dir)
}

// String implements fmt.Stringer.
func (p Project) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Root)
}
