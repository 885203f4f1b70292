package location

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchr3k/eclemma/internal/types"
	"github.com/mchr3k/eclemma/internal/workspace"
)

// fakeWorkspace records lookups so tests can tell whether output-folder
// logic ran at all.
type fakeWorkspace struct {
	members map[string]string
	lookups []string
}

func (w *fakeWorkspace) FindMember(p string) (string, bool) {
	w.lookups = append(w.lookups, p)
	abs, ok := w.members[p]
	return abs, ok
}

func (w *fakeWorkspace) Abs(p string) (string, error) {
	if abs, ok := w.members[p]; ok {
		return abs, nil
	}
	return "", workspace.ErrNotFound
}

func newFakeWorkspace(paths ...string) *fakeWorkspace {
	w := &fakeWorkspace{members: map[string]string{}}
	for _, p := range paths {
		w.members[p] = "/fs" + p
	}
	return w
}

func TestResolveInternalPrefersRootOverride(t *testing.T) {
	ws := newFakeWorkspace("/proj/bin", "/proj/bin-custom")
	r := NewResolver(ws)

	root := types.CodeRoot{
		Name:              "src",
		Kind:              types.KindSource,
		Resource:          "/proj/src",
		OutputPath:        "/proj/bin-custom",
		ProjectOutputPath: "/proj/bin",
	}
	loc, err := r.ResolveInternal(root)
	require.NoError(t, err)
	assert.Equal(t, Workspace("/proj/bin-custom"), loc)

	root.OutputPath = ""
	loc, err = r.ResolveInternal(root)
	require.NoError(t, err)
	assert.Equal(t, Workspace("/proj/bin"), loc)
}

func TestResolveInternalBinaryRootBypassesOutputLogic(t *testing.T) {
	ws := newFakeWorkspace("/proj/bin")
	r := NewResolver(ws)

	loc, err := r.ResolveInternal(types.CodeRoot{
		Name:              "lib.jar",
		Kind:              types.KindBinary,
		Resource:          "/proj/lib/lib.jar",
		OutputPath:        "/proj/bin",
		ProjectOutputPath: "/proj/bin",
	})
	require.NoError(t, err)
	assert.Equal(t, Workspace("/proj/lib/lib.jar"), loc)
	assert.Empty(t, ws.lookups, "binary roots must not consult the workspace for output folders")
}

func TestResolveInternalMissingOutputFolder(t *testing.T) {
	r := NewResolver(newFakeWorkspace())

	_, err := r.ResolveInternal(types.CodeRoot{Name: "src", Kind: types.KindSource, ProjectOutputPath: "/proj/bin"})
	var rerr *ResolutionError
	require.True(t, errors.As(err, &rerr), "got %v", err)
	assert.Equal(t, "src", rerr.Root)
	assert.Equal(t, "/proj/bin", rerr.Path)
}

func TestResolveInternalNoOutputConfigured(t *testing.T) {
	r := NewResolver(newFakeWorkspace())
	_, err := r.ResolveInternal(types.CodeRoot{Name: "src", Kind: types.KindSource})
	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, errNoOutput)
}

func TestResolveInternalBinaryWithoutResource(t *testing.T) {
	r := NewResolver(newFakeWorkspace())
	_, err := r.ResolveInternal(types.CodeRoot{Name: "lib", Kind: types.KindBinary})
	assert.ErrorIs(t, err, errNoResource)
}

func TestPhysicalEqualityIsStructural(t *testing.T) {
	a := Workspace("/proj/bin/")
	b := Workspace("proj/bin")
	assert.Equal(t, a, b)
	assert.True(t, a == b)

	m := map[Physical]int{a: 1}
	assert.Equal(t, 1, m[b])

	assert.NotEqual(t, Workspace("/x"), External("/x"))
	assert.Equal(t, External("/opt/lib/../lib/a.jar"), External("/opt/lib/a.jar"))
}

func TestFilesystemAgainstRealWorkspace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "proj", "bin"), 0o755))
	ws, err := workspace.New(dir)
	require.NoError(t, err)
	r := NewResolver(ws)

	loc, err := r.ResolveInternal(types.CodeRoot{Name: "src", ProjectOutputPath: "/proj/bin"})
	require.NoError(t, err)

	p, err := r.Filesystem(loc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Dir(), "proj", "bin"), p)

	p, err = r.Filesystem(External("/opt/x.jar"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/opt/x.jar"), p)

	_, err = r.Filesystem(Physical{Scheme: "ftp", Path: "/x"})
	assert.Error(t, err)
}
