package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchr3k/eclemma/internal/config"
	"github.com/mchr3k/eclemma/internal/coverage"
	"github.com/mchr3k/eclemma/internal/coverage/coveragetest"
	"github.com/mchr3k/eclemma/internal/directive"
)

func write(t *testing.T, root, rel string, data []byte) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestRunReportsEveryRoot(t *testing.T) {
	dir := t.TempDir()
	foo := coveragetest.ClassBytes("com/acme/Foo", "Foo.java", 1)
	write(t, dir, "app/bin/com/acme/Foo.class", foo)
	write(t, dir, "app/bin/com/acme/Bar.class", coveragetest.ClassBytes("com/acme/Bar", "Bar.java", 2))

	execFile := write(t, dir, "cov.json", []byte(fmt.Sprintf(
		`{"classes":[{"id":"%x","name":"com/acme/Foo","probes":[true]}]}`, coverage.ClassID(foo))))
	projects := write(t, dir, "projects.json", []byte(`{"projects":[{
		"name":"app","output":"/app/bin",
		"roots":[
			{"name":"src/main","kind":"source","resource":"/app/src/main"},
			{"name":"src/test","kind":"source","resource":"/app/src/test"},
			{"name":"src/gen","kind":"source","resource":"/app/src/gen","output":"/app/missing"}
		]}]}`))

	var out bytes.Buffer
	err := run(context.Background(), &config.Config{
		Workspace:  dir,
		Projects:   projects,
		ExecFile:   execFile,
		Directives: directive.ModeDisabled,
	}, &out)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errRootsFailed))
	report := out.String()
	assert.Contains(t, report, "app\tsrc/main\tclasses=2 executed=1 sources=2\n")
	assert.Contains(t, report, "app\tsrc/test\tclasses=2 executed=1 sources=2\n")
	assert.NotContains(t, report, "src/gen\t")
	assert.Contains(t, report, "passes=1 cache_hits=1 cache_misses=1 failed=1\n")
}

func TestRunWithoutFailures(t *testing.T) {
	dir := t.TempDir()
	projects := write(t, dir, "projects.json", []byte(`[{"name":"p","output":"/bin","roots":[]}]`))

	var out bytes.Buffer
	err := run(context.Background(), &config.Config{Workspace: dir, Projects: projects}, &out)
	require.NoError(t, err)
	assert.Equal(t, "passes=0 cache_hits=0 cache_misses=0 failed=0\n", out.String())
}

func TestRunSetupErrors(t *testing.T) {
	dir := t.TempDir()
	err := run(context.Background(), &config.Config{Workspace: dir, Projects: filepath.Join(dir, "nope.json")}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "read projects")

	err = run(context.Background(), &config.Config{Workspace: dir, ExecFile: filepath.Join(dir, "nope.json")}, &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
