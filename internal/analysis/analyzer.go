// Package analysis analyzes the class files behind code roots and caches the
// results by physical location, so that roots sharing a location are
// analyzed once per Analyzer.
package analysis

import (
	"fmt"
	"log"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/mchr3k/eclemma/internal/cache/nodes"
	"github.com/mchr3k/eclemma/internal/coverage"
	"github.com/mchr3k/eclemma/internal/directive"
	"github.com/mchr3k/eclemma/internal/location"
	"github.com/mchr3k/eclemma/internal/scan"
	"github.com/mchr3k/eclemma/internal/types"
)

// EngineFactory builds the engine for one analysis pass. directives is nil
// when source directives are not in use.
type EngineFactory func(store *coverage.ExecutionDataStore, builder *coverage.Builder, directives coverage.DirectiveSource) scan.ClassVisitor

// DefaultEngine is the EngineFactory used when Options.NewEngine is nil.
func DefaultEngine(store *coverage.ExecutionDataStore, builder *coverage.Builder, directives coverage.DirectiveSource) scan.ClassVisitor {
	return coverage.NewAnalyzer(store, builder, directives)
}

// Options carries the configuration an Analyzer is built with.
type Options struct {
	Directives directive.Mode
	// Locators supplies source locators for directives. Nil disables directives.
	Locators  directive.LocatorFactory
	Walker    *scan.Walker
	NewEngine EngineFactory
}

// AnalysisError is returned for any failure while analyzing a root. Location
// is nil when the root could not be resolved.
type AnalysisError struct {
	Root     string
	Location *location.Physical
	Err      error
}

func (e *AnalysisError) Error() string {
	where := "<unresolved>"
	if e.Location != nil {
		where = e.Location.String()
	}
	return fmt.Sprintf("analysis of %q at %s failed: %v", e.Root, where, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Metrics reports the work an Analyzer has done so far.
type Metrics struct {
	// Passes counts walk+engine passes actually run.
	Passes uint64
	Cache  nodes.MetricsSnapshot
}

// Analyzer analyzes code roots against one execution data snapshot. Results
// are cached for the Analyzer's lifetime and never invalidated. Analyze is
// safe for concurrent use.
type Analyzer struct {
	execData  *coverage.ExecutionDataStore
	resolver  *location.Resolver
	walker    *scan.Walker
	mode      directive.Mode
	locators  directive.LocatorFactory
	newEngine EngineFactory

	cache  *nodes.Store
	flight singleflight.Group
	passes atomic.Uint64
}

// New builds an Analyzer. A nil execData analyzes every class as not
// executed; zero Options fields take their defaults.
func New(execData *coverage.ExecutionDataStore, resolver *location.Resolver, opts Options) *Analyzer {
	if execData == nil {
		execData = coverage.NewExecutionDataStore()
	}
	walker := opts.Walker
	if walker == nil {
		walker = scan.NewWalker(scan.Options{})
	}
	newEngine := opts.NewEngine
	if newEngine == nil {
		newEngine = DefaultEngine
	}
	mode := opts.Directives
	if mode == "" {
		mode = directive.ModeDisabled
	}
	return &Analyzer{
		execData:  execData,
		resolver:  resolver,
		walker:    walker,
		mode:      mode,
		locators:  opts.Locators,
		newEngine: newEngine,
		cache:     nodes.New(),
	}
}

// Analyze returns the coverage model of root's class files.
func (a *Analyzer) Analyze(root types.CodeRoot) (*coverage.AnalyzedNodes, error) {
	if root.External {
		return a.analyzeExternal(root)
	}
	return a.analyzeInternal(root)
}

func (a *Analyzer) analyzeInternal(root types.CodeRoot) (*coverage.AnalyzedNodes, error) {
	loc, err := a.resolver.ResolveInternal(root)
	if err != nil {
		return nil, &AnalysisError{Root: root.Name, Err: err}
	}
	return a.analyzeAt(root, loc, true)
}

func (a *Analyzer) analyzeExternal(root types.CodeRoot) (*coverage.AnalyzedNodes, error) {
	return a.analyzeAt(root, location.External(root.ExternalPath), false)
}

func (a *Analyzer) analyzeAt(root types.CodeRoot, loc location.Physical, withDirectives bool) (*coverage.AnalyzedNodes, error) {
	if n, ok := a.cache.Get(loc); ok {
		return n, nil
	}
	v, err, _ := a.flight.Do(loc.String(), func() (any, error) {
		// Another caller may have finished the same location meanwhile.
		if n, ok := a.cache.Peek(loc); ok {
			return n, nil
		}
		return a.run(root, loc, withDirectives)
	})
	if err != nil {
		return nil, &AnalysisError{Root: root.Name, Location: &loc, Err: err}
	}
	return v.(*coverage.AnalyzedNodes), nil
}

// run performs one walk+engine pass and caches the result. Nothing is cached
// unless the walk completes.
func (a *Analyzer) run(root types.CodeRoot, loc location.Physical, withDirectives bool) (*coverage.AnalyzedNodes, error) {
	path, err := a.resolver.Filesystem(loc)
	if err != nil {
		return nil, &location.ResolutionError{Root: root.Name, Path: loc.Path, Err: err}
	}

	builder := coverage.NewBuilder()
	var directives coverage.DirectiveSource
	if withDirectives {
		locator, err := directive.CreateLocator(a.mode, a.locators, root)
		if err != nil {
			return nil, err
		}
		if locator != nil {
			directives = directive.NewParser(locator, a.mode.RequireComment())
		}
	}
	engine := a.newEngine(a.execData, builder, directives)

	a.passes.Add(1)
	log.Printf("analysis: analyzing %q at %s", root.Name, loc)
	if err := a.walker.Walk(path, engine); err != nil {
		return nil, err
	}
	n := builder.Nodes()
	a.cache.Put(loc, n)
	return n, nil
}

// Cached returns the result stored for loc, if any.
func (a *Analyzer) Cached(loc location.Physical) (*coverage.AnalyzedNodes, bool) {
	return a.cache.Peek(loc)
}

// Metrics returns the pass count and a snapshot of the cache counters.
func (a *Analyzer) Metrics() Metrics {
	return Metrics{Passes: a.passes.Load(), Cache: a.cache.Metrics()}
}
