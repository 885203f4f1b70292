package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mchr3k/eclemma/internal/analysis"
	"github.com/mchr3k/eclemma/internal/config"
	"github.com/mchr3k/eclemma/internal/directive"
	"github.com/mchr3k/eclemma/internal/execdata"
	"github.com/mchr3k/eclemma/internal/location"
	"github.com/mchr3k/eclemma/internal/scan"
	"github.com/mchr3k/eclemma/internal/types"
	"github.com/mchr3k/eclemma/internal/workspace"
)

var errRootsFailed = errors.New("one or more code roots failed")

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		stop()
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	ws, err := workspace.New(cfg.Workspace)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}

	src, err := execSource(cfg)
	if err != nil {
		return err
	}
	store, err := execdata.Load(ctx, src)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.Projects)
	if err != nil {
		return fmt.Errorf("read projects: %w", err)
	}
	projects, err := types.DecodeProjects(data)
	if err != nil {
		return err
	}

	a := analysis.New(store, location.NewResolver(ws), analysis.Options{
		Directives: cfg.Directives,
		Locators:   directive.WorkspaceLocators(ws),
		Walker:     scan.NewWalker(scan.Options{Exclude: cfg.Exclude}),
	})

	failed := 0
	for _, p := range projects {
		for _, root := range p.CodeRoots() {
			if err := ctx.Err(); err != nil {
				return err
			}
			nodes, err := a.Analyze(root)
			if err != nil {
				log.Printf("covroots: %v", err)
				failed++
				continue
			}
			executed := 0
			for _, c := range nodes.Classes() {
				if c.Executed() {
					executed++
				}
			}
			fmt.Fprintf(out, "%s\t%s\tclasses=%d executed=%d sources=%d\n",
				p.Name, root.Name, nodes.ClassCount(), executed, nodes.SourceFileCount())
		}
	}

	m := a.Metrics()
	fmt.Fprintf(out, "passes=%d cache_hits=%d cache_misses=%d failed=%d\n",
		m.Passes, m.Cache.Hits, m.Cache.Misses, failed)
	if failed > 0 {
		return fmt.Errorf("%w: %d", errRootsFailed, failed)
	}
	return nil
}

func execSource(cfg *config.Config) (execdata.Source, error) {
	switch {
	case cfg.ExecS3.Enabled:
		s3cfg := cfg.ExecS3
		src, err := execdata.NewS3Source(execdata.S3Config{
			Endpoint:  s3cfg.Endpoint,
			Region:    s3cfg.Region,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			Bucket:    s3cfg.Bucket,
			Object:    s3cfg.Object,
			UseSSL:    s3cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("execution data source: %w", err)
		}
		return src, nil
	case cfg.ExecFile != "":
		return execdata.FileSource{Path: cfg.ExecFile}, nil
	}
	log.Println("covroots: no execution data configured; reporting every class as not executed")
	return nil, nil
}
