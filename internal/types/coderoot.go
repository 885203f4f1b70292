package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RootKind tells whether a code root holds sources or compiled classes.
type RootKind int

const (
	KindSource RootKind = iota
	KindBinary
)

func (k RootKind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("RootKind(%d)", int(k))
	}
}

func (k RootKind) MarshalText() ([]byte, error) {
	switch k {
	case KindSource, KindBinary:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("types: unknown root kind %d", int(k))
}

// UnmarshalText accepts "source"/"src" and "binary"/"bin"/"lib", case-insensitive.
func (k *RootKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "source", "src":
		*k = KindSource
	case "binary", "bin", "lib":
		*k = KindBinary
	default:
		return fmt.Errorf("types: unknown root kind %q", string(b))
	}
	return nil
}

// CodeRoot is a logical compilation unit as supplied by the project model.
// Workspace paths (Resource, OutputPath, ProjectOutputPath, SourceAttachment)
// use forward slashes and are relative to the workspace root, e.g. "/proj/bin".
// ExternalPath is a filesystem path.
type CodeRoot struct {
	Name     string   `json:"name"`
	Kind     RootKind `json:"kind"`
	External bool     `json:"external,omitempty"`

	// Resource is the root's own workspace resource (source folder or class folder/archive).
	Resource string `json:"resource,omitempty"`
	// OutputPath overrides the project output folder for this source root.
	OutputPath string `json:"output,omitempty"`
	// ProjectOutputPath is the enclosing project's default output folder.
	ProjectOutputPath string `json:"project_output,omitempty"`

	ExternalPath     string `json:"path,omitempty"`
	SourceAttachment string `json:"source_attachment,omitempty"`
}

// Project groups the code roots of one project together with its default output folder.
type Project struct {
	Name   string     `json:"name"`
	Output string     `json:"output"`
	Roots  []CodeRoot `json:"roots"`
}

// CodeRoots returns the project's roots with ProjectOutputPath filled in from
// the project default. Roots that already carry one keep it.
func (p Project) CodeRoots() []CodeRoot {
	out := make([]CodeRoot, 0, len(p.Roots))
	for _, r := range p.Roots {
		if strings.TrimSpace(r.ProjectOutputPath) == "" {
			r.ProjectOutputPath = p.Output
		}
		out = append(out, r)
	}
	return out
}

// DecodeProjects reads a project description. Both a bare array of projects
// and an object of the form {"projects":[...]} are accepted.
func DecodeProjects(data []byte) ([]Project, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []Project
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode projects: %w", err)
		}
		return list, nil
	}
	var doc struct {
		Projects []Project `json:"projects"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return doc.Projects, nil
}
