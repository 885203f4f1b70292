package coverage

import (
	"fmt"
	"path"
)

// DirectiveSource supplies the lines of a source file that directives
// exclude from coverage.
type DirectiveSource interface {
	Directives(packageName, sourceFile string) ([]int, error)
}

// EngineError reports a class artifact the engine could not analyze.
type EngineError struct {
	Name string
	Err  error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("coverage: analyze %s: %v", e.Name, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Analyzer correlates class files with execution data and feeds the results
// into a Builder. It implements scan.ClassVisitor.
type Analyzer struct {
	store      *ExecutionDataStore
	builder    *Builder
	directives DirectiveSource
}

// NewAnalyzer binds an engine to execution data and an accumulator.
// directives may be nil, in which case no lines are excluded.
func NewAnalyzer(store *ExecutionDataStore, builder *Builder, directives DirectiveSource) *Analyzer {
	return &Analyzer{store: store, builder: builder, directives: directives}
}

// AnalyzeClass analyzes one class file.
func (a *Analyzer) AnalyzeClass(name string, data []byte) error {
	info, err := parseClassInfo(data)
	if err != nil {
		return &EngineError{Name: name, Err: err}
	}

	c := ClassCoverage{
		Name:        info.Name,
		ID:          ClassID(data),
		PackageName: packageOf(info.Name),
		SourceFile:  info.SourceFile,
		Artifact:    name,
	}
	if d, ok := a.store.Get(c.ID); ok {
		c.ProbeCount = len(d.Probes)
		c.HitCount = d.HitCount()
	} else if a.store.HasName(c.Name) {
		c.NoMatch = true
	}

	var excluded []int
	if a.directives != nil && c.SourceFile != "" {
		excluded, err = a.directives.Directives(c.PackageName, c.SourceFile)
		if err != nil {
			return &EngineError{Name: name, Err: fmt.Errorf("source directives for %s: %w", c.SourceFile, err)}
		}
	}
	if err := a.builder.AddClass(c, excluded); err != nil {
		return &EngineError{Name: name, Err: err}
	}
	return nil
}

func packageOf(internalName string) string {
	dir := path.Dir(internalName)
	if dir == "." {
		return ""
	}
	return dir
}
