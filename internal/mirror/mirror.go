// Package mirror copies configuration files from a project's source tree into
// the matching directories of its compiled output tree.
//
// Planning is a pure walk over an fs.FS rooted at the workspace; applying the
// plan is the only step that touches the real filesystem.
package mirror

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Match selects files by name prefix and suffix.
type Match struct {
	Prefix string
	Suffix string
}

// ConfigFiles matches TypeScript configuration files (tsconfig*.json).
var ConfigFiles = Match{Prefix: "tsconfig", Suffix: ".json"}

// Matches reports whether name satisfies m.
func (m Match) Matches(name string) bool {
	return strings.HasPrefix(name, m.Prefix) && strings.HasSuffix(name, m.Suffix)
}

// CopyOp copies Src to Dst. Both are slash-separated paths relative to the
// filesystem the plan was made from.
type CopyOp struct {
	Src string
	Dst string
}

// Plan walks every directory of outRoot (including outRoot itself) in
// depth-first pre-order, re-bases each onto srcRoot, and returns one CopyOp
// per matching regular file found in the source directory. Directories that
// cannot be listed and source directories that do not exist contribute
// nothing.
func Plan(fsys fs.FS, outRoot, srcRoot string, m Match) []CopyOp {
	outRoot = path.Clean(outRoot)
	srcRoot = path.Clean(srcRoot)

	var ops []CopyOp
	var visit func(outDir, rel string)
	visit = func(outDir, rel string) {
		ops = append(ops, planDir(fsys, outDir, path.Join(srcRoot, rel), m)...)

		entries, err := fs.ReadDir(fsys, outDir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.IsDir() {
				visit(path.Join(outDir, e.Name()), path.Join(rel, e.Name()))
			}
		}
	}
	visit(outRoot, ".")
	return ops
}

func planDir(fsys fs.FS, outDir, srcDir string, m Match) []CopyOp {
	info, err := fs.Stat(fsys, srcDir)
	if err != nil || !info.IsDir() {
		return nil
	}
	entries, err := fs.ReadDir(fsys, srcDir)
	if err != nil {
		return nil
	}
	var ops []CopyOp
	for _, e := range entries {
		if !e.Type().IsRegular() || !m.Matches(e.Name()) {
			continue
		}
		ops = append(ops, CopyOp{
			Src: path.Join(srcDir, e.Name()),
			Dst: path.Join(outDir, e.Name()),
		})
	}
	return ops
}

// Apply performs ops against the directory root. Destinations outside
// outRoot are refused. Every op is attempted; failures are joined into the
// returned error. onCopy, if non-nil, is called before each copy.
func Apply(root, outRoot string, ops []CopyOp, onCopy func(CopyOp)) error {
	outRoot = path.Clean(outRoot)
	var errs []error
	for _, op := range ops {
		if !within(outRoot, op.Dst) {
			errs = append(errs, fmt.Errorf("refusing to write %s outside %s", op.Dst, outRoot))
			continue
		}
		if onCopy != nil {
			onCopy(op)
		}
		src := filepath.Join(root, filepath.FromSlash(op.Src))
		dst := filepath.Join(root, filepath.FromSlash(op.Dst))
		if err := copyFile(src, dst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Mirror plans and applies in one step against the real filesystem.
// outRoot and srcRoot are slash-separated and relative to root.
func Mirror(root, outRoot, srcRoot string, m Match, onCopy func(CopyOp)) ([]CopyOp, error) {
	ops := Plan(os.DirFS(root), outRoot, srcRoot, m)
	return ops, Apply(root, outRoot, ops, onCopy)
}

func within(root, p string) bool {
	p = path.Clean(p)
	if root == "." {
		return !strings.HasPrefix(p, "../") && p != ".." && !path.IsAbs(p)
	}
	return p == root || strings.HasPrefix(p, root+"/")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
