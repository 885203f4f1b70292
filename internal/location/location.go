// Package location resolves logical code roots to the physical locations
// holding their class files.
package location

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mchr3k/eclemma/internal/types"
	"github.com/mchr3k/eclemma/internal/workspace"
)

// Scheme tells how the path of a Physical location is interpreted.
type Scheme string

const (
	// SchemeWorkspace paths are relative to the workspace root ("/proj/bin").
	SchemeWorkspace Scheme = "workspace"
	// SchemeFile paths are filesystem paths.
	SchemeFile Scheme = "file"
)

// Physical identifies the artifacts a root resolves to. It is a comparable
// value: two resolutions of the same place are equal and share a cache entry.
type Physical struct {
	Scheme Scheme
	Path   string
}

// Workspace returns the location of a workspace member.
func Workspace(wsPath string) Physical {
	return Physical{Scheme: SchemeWorkspace, Path: workspace.Clean(wsPath)}
}

// External returns the location of an external filesystem path.
func External(path string) Physical {
	p := strings.TrimSpace(path)
	if p != "" {
		p = filepath.Clean(p)
	}
	return Physical{Scheme: SchemeFile, Path: p}
}

func (p Physical) String() string {
	return string(p.Scheme) + ":" + p.Path
}

// WorkspaceModel is the part of the workspace model the resolver needs.
type WorkspaceModel interface {
	FindMember(wsPath string) (string, bool)
	Abs(wsPath string) (string, error)
}

// ResolutionError reports a root whose class file location could not be found.
type ResolutionError struct {
	Root string
	Path string
	Err  error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("resolve %q", e.Root)
	if e.Path != "" {
		msg += fmt.Sprintf(": no workspace member at %s", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

var (
	errNoResource = errors.New("root has no resource")
	errNoOutput   = errors.New("no output location configured")
)

// Resolver computes physical locations for internal roots.
type Resolver struct {
	ws WorkspaceModel
}

func NewResolver(ws WorkspaceModel) *Resolver {
	return &Resolver{ws: ws}
}

// ResolveInternal returns where the class files of an internal root live.
// Binary roots are their own location. Source roots use the root's output
// override, falling back to the project default, looked up in the workspace.
func (r *Resolver) ResolveInternal(root types.CodeRoot) (Physical, error) {
	if root.Kind == types.KindBinary {
		if strings.TrimSpace(root.Resource) == "" {
			return Physical{}, &ResolutionError{Root: root.Name, Err: errNoResource}
		}
		return Workspace(root.Resource), nil
	}

	out := strings.TrimSpace(root.OutputPath)
	if out == "" {
		out = strings.TrimSpace(root.ProjectOutputPath)
	}
	if out == "" {
		return Physical{}, &ResolutionError{Root: root.Name, Err: errNoOutput}
	}
	out = workspace.Clean(out)
	if r == nil || r.ws == nil {
		return Physical{}, &ResolutionError{Root: root.Name, Path: out, Err: errors.New("workspace not configured")}
	}
	if _, ok := r.ws.FindMember(out); !ok {
		return Physical{}, &ResolutionError{Root: root.Name, Path: out}
	}
	return Workspace(out), nil
}

// Filesystem returns the path the walker opens for loc.
func (r *Resolver) Filesystem(loc Physical) (string, error) {
	switch loc.Scheme {
	case SchemeFile:
		if loc.Path == "" {
			return "", errors.New("location: empty external path")
		}
		return loc.Path, nil
	case SchemeWorkspace:
		if r == nil || r.ws == nil {
			return "", errors.New("location: workspace not configured")
		}
		return r.ws.Abs(loc.Path)
	default:
		return "", fmt.Errorf("location: unknown scheme %q", loc.Scheme)
	}
}
