package coverage

import (
	"fmt"
	"path"
	"slices"
	"sort"
)

// ClassCoverage is the analysis result for one class file.
type ClassCoverage struct {
	Name        string // internal name, e.g. "com/acme/Foo"
	ID          uint64
	PackageName string // e.g. "com/acme"
	SourceFile  string // e.g. "Foo.java"; empty when the class carries no SourceFile attribute
	Artifact    string // where the class file was found, relative to the walked location
	ProbeCount  int
	HitCount    int
	// NoMatch is set when execution data exists for the class name but was
	// recorded for different class bytes.
	NoMatch bool
}

// Executed reports whether any probe of the class fired.
func (c ClassCoverage) Executed() bool { return c.HitCount > 0 }

// SourceFileCoverage aggregates the classes compiled from one source file.
type SourceFileCoverage struct {
	PackageName string
	Name        string
	Classes     []string
	ProbeCount  int
	HitCount    int
	// ExcludedLines lists 1-based lines suppressed by source directives.
	ExcludedLines []int
}

// Path returns the package-qualified source path, e.g. "com/acme/Foo.java".
func (s SourceFileCoverage) Path() string {
	if s.PackageName == "" {
		return s.Name
	}
	return path.Join(s.PackageName, s.Name)
}

// AnalyzedNodes is the immutable result of analyzing one physical location.
// Accessors return copies so that a cached value can be shared freely.
type AnalyzedNodes struct {
	classes []ClassCoverage
	sources []SourceFileCoverage
}

// NewAnalyzedNodes copies its inputs and orders them by name.
func NewAnalyzedNodes(classes []ClassCoverage, sources []SourceFileCoverage) *AnalyzedNodes {
	n := &AnalyzedNodes{
		classes: slices.Clone(classes),
		sources: make([]SourceFileCoverage, 0, len(sources)),
	}
	for _, s := range sources {
		s.Classes = slices.Clone(s.Classes)
		s.ExcludedLines = slices.Clone(s.ExcludedLines)
		n.sources = append(n.sources, s)
	}
	sort.Slice(n.classes, func(i, j int) bool { return n.classes[i].Name < n.classes[j].Name })
	sort.Slice(n.sources, func(i, j int) bool { return n.sources[i].Path() < n.sources[j].Path() })
	return n
}

func (n *AnalyzedNodes) Classes() []ClassCoverage {
	if n == nil {
		return nil
	}
	return slices.Clone(n.classes)
}

func (n *AnalyzedNodes) SourceFiles() []SourceFileCoverage {
	if n == nil {
		return nil
	}
	out := make([]SourceFileCoverage, 0, len(n.sources))
	for _, s := range n.sources {
		s.Classes = slices.Clone(s.Classes)
		s.ExcludedLines = slices.Clone(s.ExcludedLines)
		out = append(out, s)
	}
	return out
}

func (n *AnalyzedNodes) ClassCount() int {
	if n == nil {
		return 0
	}
	return len(n.classes)
}

func (n *AnalyzedNodes) SourceFileCount() int {
	if n == nil {
		return 0
	}
	return len(n.sources)
}

// Builder accumulates class and source file coverage during one analysis pass.
type Builder struct {
	classes map[string]ClassCoverage
	sources map[string]*SourceFileCoverage
}

func NewBuilder() *Builder {
	return &Builder{
		classes: make(map[string]ClassCoverage),
		sources: make(map[string]*SourceFileCoverage),
	}
}

// AddClass records a class. The same class (same name and id) found twice is
// recorded once; a different class under an already used name is an error.
func (b *Builder) AddClass(c ClassCoverage, excludedLines []int) error {
	if prev, ok := b.classes[c.Name]; ok {
		if prev.ID != c.ID {
			return fmt.Errorf("coverage: different classes named %s (%s, %s)", c.Name, prev.Artifact, c.Artifact)
		}
		return nil
	}
	b.classes[c.Name] = c
	if c.SourceFile == "" {
		return nil
	}
	key := path.Join(c.PackageName, c.SourceFile)
	sf, ok := b.sources[key]
	if !ok {
		sf = &SourceFileCoverage{PackageName: c.PackageName, Name: c.SourceFile, ExcludedLines: slices.Clone(excludedLines)}
		b.sources[key] = sf
	}
	sf.Classes = append(sf.Classes, c.Name)
	sort.Strings(sf.Classes)
	sf.ProbeCount += c.ProbeCount
	sf.HitCount += c.HitCount
	return nil
}

// Nodes snapshots the accumulated model.
func (b *Builder) Nodes() *AnalyzedNodes {
	classes := make([]ClassCoverage, 0, len(b.classes))
	for _, c := range b.classes {
		classes = append(classes, c)
	}
	sources := make([]SourceFileCoverage, 0, len(b.sources))
	for _, s := range b.sources {
		sources = append(sources, *s)
	}
	return NewAnalyzedNodes(classes, sources)
}
