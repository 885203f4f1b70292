package scan

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ClassVisitor receives every class artifact found by a Walker. name is the
// slash path of the artifact relative to the walked location; archive
// members are named "<archive>!/<entry>".
type ClassVisitor interface {
	AnalyzeClass(name string, data []byte) error
}

// ClassVisitorFunc adapts a function to ClassVisitor.
type ClassVisitorFunc func(name string, data []byte) error

func (f ClassVisitorFunc) AnalyzeClass(name string, data []byte) error { return f(name, data) }

// TraversalError reports an entry below the walked location that could not
// be read. The walk stops at the first one.
type TraversalError struct {
	Path string
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("scan: cannot read %s: %v", e.Path, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// Options configures a Walker.
type Options struct {
	// Exclude holds gitignore-style patterns matched against the slash path
	// relative to the walked location (and relative to an archive's root for
	// archive members).
	Exclude []string
}

// Walker feeds class files found in directories, archives and single files
// to a ClassVisitor. Siblings are visited in lexical order.
type Walker struct {
	exclude *ignore.GitIgnore
}

func NewWalker(opts Options) *Walker {
	w := &Walker{}
	var lines []string
	for _, p := range opts.Exclude {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	if len(lines) > 0 {
		w.exclude = ignore.CompileIgnoreLines(lines...)
	}
	return w
}

// Walk visits every class artifact reachable from root, depth-first.
// Read failures surface as *TraversalError; errors returned by visit are
// passed through unchanged.
func (w *Walker) Walk(root string, visit ClassVisitor) error {
	if w == nil {
		w = &Walker{}
	}
	info, err := os.Stat(root)
	if err != nil {
		return &TraversalError{Path: root, Err: err}
	}
	if info.IsDir() {
		real, err := filepath.EvalSymlinks(root)
		if err != nil {
			return &TraversalError{Path: root, Err: err}
		}
		return w.walkDir(root, "", visit, map[string]bool{real: true})
	}
	return w.walkFile(root, filepath.Base(root), visit)
}

// walkDir visits dir's entries. Symlinks are followed; visited holds the
// real paths of directories already entered so that link cycles end.
func (w *Walker) walkDir(dir, rel string, visit ClassVisitor, visited map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &TraversalError{Path: dir, Err: err}
	}
	// os.ReadDir already sorts by name.
	for _, e := range entries {
		childRel := path.Join(rel, e.Name())
		abs := filepath.Join(dir, e.Name())
		mode := e.Type()
		if mode&fs.ModeSymlink != 0 {
			target, err := os.Stat(abs)
			if err != nil {
				return &TraversalError{Path: abs, Err: err}
			}
			mode = target.Mode().Type()
		}
		if w.excluded(childRel, mode.IsDir()) {
			continue
		}
		switch {
		case mode.IsDir():
			real, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return &TraversalError{Path: abs, Err: err}
			}
			if visited[real] {
				continue
			}
			visited[real] = true
			if err := w.walkDir(abs, childRel, visit, visited); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := w.walkFile(abs, childRel, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Walker) walkFile(abs, name string, visit ClassVisitor) error {
	switch {
	case isClassFile(name):
		data, err := os.ReadFile(abs)
		if err != nil {
			return &TraversalError{Path: abs, Err: err}
		}
		return visit.AnalyzeClass(name, data)
	case isArchive(name):
		zr, err := zip.OpenReader(abs)
		if err != nil {
			return &TraversalError{Path: abs, Err: err}
		}
		defer zr.Close()
		return w.walkArchive(&zr.Reader, name, visit)
	}
	return nil
}

func (w *Walker) walkArchive(zr *zip.Reader, name string, visit ClassVisitor) error {
	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files = append(files, f)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	for _, f := range files {
		entry := strings.TrimPrefix(f.Name, "/")
		if w.excluded(entry, false) {
			continue
		}
		member := name + "!/" + entry
		switch {
		case isClassFile(entry):
			data, err := readEntry(f)
			if err != nil {
				return &TraversalError{Path: member, Err: err}
			}
			if err := visit.AnalyzeClass(member, data); err != nil {
				return err
			}
		case isArchive(entry):
			data, err := readEntry(f)
			if err != nil {
				return &TraversalError{Path: member, Err: err}
			}
			nested, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				return &TraversalError{Path: member, Err: err}
			}
			if err := w.walkArchive(nested, member, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (w *Walker) excluded(rel string, isDir bool) bool {
	if w.exclude == nil || rel == "" {
		return false
	}
	if isDir {
		return w.exclude.MatchesPath(rel + "/")
	}
	return w.exclude.MatchesPath(rel)
}

func isClassFile(name string) bool {
	return strings.EqualFold(path.Ext(name), ".class")
}

func isArchive(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".jar", ".zip", ".war", ".ear":
		return true
	}
	return false
}
