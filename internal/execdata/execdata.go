// Package execdata loads execution data snapshots from local files or an
// S3-compatible object store.
package execdata

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mchr3k/eclemma/internal/coverage"
)

// Source opens one execution data snapshot.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// FileSource reads a snapshot from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Open(context.Context) (io.ReadCloser, error) {
	path := strings.TrimSpace(s.Path)
	if path == "" {
		return nil, fmt.Errorf("execution data path is required")
	}
	return os.Open(path)
}

func (s FileSource) String() string { return "file:" + s.Path }

// Load reads and decodes the snapshot behind src. A nil src yields an empty
// store, which analyzes every class as not executed.
func Load(ctx context.Context, src Source) (*coverage.ExecutionDataStore, error) {
	if src == nil {
		return coverage.NewExecutionDataStore(), nil
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open execution data %s: %w", src, err)
	}
	defer rc.Close()
	store, err := coverage.DecodeExecutionData(rc)
	if err != nil {
		return nil, fmt.Errorf("load execution data %s: %w", src, err)
	}
	return store, nil
}
