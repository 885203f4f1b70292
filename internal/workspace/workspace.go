// Package workspace maps workspace paths ("/project/bin") to files below a
// fixed, symlink-resolved root directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound is returned by Abs when no member exists at the given path.
var ErrNotFound = errors.New("workspace: no such member")

// Root provides read-only lookups of workspace members relative to a fixed root.
type Root struct {
	absRoot string // absolute root with symlinks resolved
}

// New locks all future lookups to the given root directory.
func New(root string) (*Root, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("workspace: root is not a directory")
	}
	return &Root{absRoot: abs}, nil
}

// Dir returns the absolute directory bound to this workspace.
func (w *Root) Dir() string {
	if w == nil {
		return ""
	}
	return w.absRoot
}

// FindMember returns the filesystem path of the member at wsPath and whether
// it exists.
func (w *Root) FindMember(wsPath string) (string, bool) {
	p, err := w.Abs(wsPath)
	if err != nil {
		return "", false
	}
	return p, true
}

// Abs resolves wsPath to an existing filesystem path under the root.
func (w *Root) Abs(wsPath string) (string, error) {
	joined, err := w.join(wsPath)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, wsPath)
		}
		return "", err
	}
	if !hasPathPrefix(resolved, w.absRoot) {
		return "", fmt.Errorf("workspace: %s resolves outside root (root=%s, path=%s)", wsPath, w.absRoot, resolved)
	}
	return resolved, nil
}

// Clean normalises a workspace path to its canonical "/a/b" form.
func Clean(wsPath string) string {
	p := strings.TrimSpace(filepath.ToSlash(wsPath))
	return path.Clean("/" + p)
}

func (w *Root) join(wsPath string) (string, error) {
	if w == nil {
		return "", errors.New("workspace: not configured")
	}
	if strings.TrimSpace(wsPath) == "" {
		return "", errors.New("workspace: empty path")
	}
	// Clean against "/" so ".." can never climb above the workspace root.
	rel := strings.TrimPrefix(Clean(wsPath), "/")
	if rel == "" {
		return w.absRoot, nil
	}
	return filepath.Join(w.absRoot, filepath.FromSlash(rel)), nil
}

func hasPathPrefix(p, root string) bool {
	p = filepath.Clean(p)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
		root = strings.ToLower(root)
	}
	if p == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(p+sep, root)
}
