// Package directive finds coverage directives in source files.
//
// A directive is a line comment:
//
//	//coverage:off     excludes this line and the following ones
//	//coverage:on      ends an excluded region (the line itself is excluded)
//	//coverage:ignore  excludes this line and the next
//
// Text after " - " is the directive's comment, e.g.
// "//coverage:off - generated accessors". In strict mode directives without
// a comment are ignored.
package directive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchr3k/eclemma/internal/types"
)

// Mode selects whether and how source directives are honoured.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeLoose    Mode = "enabled-loose"
	ModeStrict   Mode = "enabled-strict"
)

// ParseMode maps a configuration value to a Mode. Empty means disabled.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDisabled:
		return ModeDisabled, nil
	case ModeLoose:
		return ModeLoose, nil
	case ModeStrict:
		return ModeStrict, nil
	}
	return "", fmt.Errorf("directive: unknown source directives mode %q (want %s, %s or %s)", s, ModeDisabled, ModeLoose, ModeStrict)
}

// RequireComment reports whether directives must carry a comment to count.
func (m Mode) RequireComment() bool { return m == ModeStrict }

// Enabled reports whether directives are honoured at all.
func (m Mode) Enabled() bool { return m == ModeLoose || m == ModeStrict }

// SourceFileLocator opens the source file of a class. A (nil, nil) result
// means the file is not available.
type SourceFileLocator interface {
	OpenSourceFile(packageName, fileName string) (io.ReadCloser, error)
}

// LocatorFactory returns the locator for a code root, or nil when the root
// has no sources.
type LocatorFactory func(root types.CodeRoot) (SourceFileLocator, error)

// CreateLocator returns the locator used for root, or nil when directives
// are disabled or no factory is configured.
func CreateLocator(mode Mode, factory LocatorFactory, root types.CodeRoot) (SourceFileLocator, error) {
	if !mode.Enabled() || factory == nil {
		return nil, nil
	}
	return factory(root)
}

// DirLocator looks up sources below a list of directories, in order.
type DirLocator struct {
	Dirs []string
}

func (l DirLocator) OpenSourceFile(packageName, fileName string) (io.ReadCloser, error) {
	rel := filepath.Join(filepath.FromSlash(packageName), fileName)
	for _, dir := range l.Dirs {
		f, err := os.Open(filepath.Join(dir, rel))
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return nil, nil
}

// Workspace resolves workspace paths to filesystem paths.
type Workspace interface {
	Abs(wsPath string) (string, error)
}

// WorkspaceLocators is the default LocatorFactory: source roots are searched
// in their own folder, binary roots in their source attachment.
func WorkspaceLocators(ws Workspace) LocatorFactory {
	return func(root types.CodeRoot) (SourceFileLocator, error) {
		var wsPath string
		switch root.Kind {
		case types.KindSource:
			wsPath = root.Resource
		case types.KindBinary:
			wsPath = root.SourceAttachment
		}
		if strings.TrimSpace(wsPath) == "" {
			return nil, nil
		}
		dir, err := ws.Abs(wsPath)
		if err != nil {
			return nil, fmt.Errorf("source location of %q: %w", root.Name, err)
		}
		return DirLocator{Dirs: []string{dir}}, nil
	}
}
