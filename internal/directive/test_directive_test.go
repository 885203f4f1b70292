package directive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchr3k/eclemma/internal/types"
	"github.com/mchr3k/eclemma/internal/workspace"
)

type countingLocator struct {
	files map[string]string
	opens int
}

func (l *countingLocator) OpenSourceFile(pkg, name string) (io.ReadCloser, error) {
	l.opens++
	src, ok := l.files[pkg+"/"+name]
	if !ok {
		return nil, nil
	}
	return io.NopCloser(strings.NewReader(src)), nil
}

const sample = `package com.acme;            // 1
class Foo {                                // 2
  //coverage:off - generated accessors     // 3
  int a() { return 1; }                    // 4
  //coverage:on                            // 5
  int b() { return 2; } //coverage:ignore  // 6
  int c() { return 3; }                    // 7
  //coverage:off                           // 8
  int d() { return 4; }                    // 9
  //coverage:on - end                      // 10
}                                          // 11
`

func TestParseModes(t *testing.T) {
	cases := map[string]Mode{
		"":               ModeDisabled,
		"disabled":       ModeDisabled,
		" Enabled-Loose": ModeLoose,
		"enabled-strict": ModeStrict,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("sometimes")
	assert.Error(t, err)

	assert.True(t, ModeStrict.RequireComment())
	assert.False(t, ModeLoose.RequireComment())
	assert.False(t, ModeDisabled.RequireComment())
	assert.False(t, ModeDisabled.Enabled())
}

func TestParseLinesLoose(t *testing.T) {
	lines, err := ParseLines(strings.NewReader(sample), false)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9, 10}, lines)
}

func TestParseLinesStrictNeedsComment(t *testing.T) {
	lines, err := ParseLines(strings.NewReader(sample), true)
	require.NoError(t, err)
	// Only the commented region 3.. survives; its terminating //coverage:on
	// has no comment, so the region runs until the commented "on" at line 10.
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9, 10}, lines)

	src := "a\n//coverage:ignore\nb\n//coverage:ignore - flaky\nc\n"
	lines, err = ParseLines(strings.NewReader(src), true)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, lines)
}

func TestParseLinesUnterminatedRegionAndTrailingIgnore(t *testing.T) {
	lines, err := ParseLines(strings.NewReader("a\n//coverage:off\nb\nc"), false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, lines)

	lines, err = ParseLines(strings.NewReader("a\nb //coverage:ignore"), false)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, lines)
}

func TestParseLinesIgnoresMarkersInLiterals(t *testing.T) {
	src := strings.Join([]string{
		`String s = "//coverage:off now";`,
		`String u = "http://x"; //coverage:ignore - url`,
		`char c = '"'; log("//coverage:on");`,
		`int a; // see //coverage:off`,
		`int b;`,
	}, "\n")
	lines, err := ParseLines(strings.NewReader(src), false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, lines)
}

func TestParserMemoisesAndCopies(t *testing.T) {
	loc := &countingLocator{files: map[string]string{"com/acme/Foo.java": sample}}
	p := NewParser(loc, false)

	first, err := p.Directives("com/acme", "Foo.java")
	require.NoError(t, err)
	first[0] = -1
	second, err := p.Directives("com/acme", "Foo.java")
	require.NoError(t, err)

	assert.Equal(t, 3, second[0])
	assert.Equal(t, 1, loc.opens)

	missing, err := p.Directives("com/acme", "Missing.java")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

type failingLocator struct{}

func (failingLocator) OpenSourceFile(string, string) (io.ReadCloser, error) {
	return nil, errors.New("permission denied")
}

func TestParserLocatorFailure(t *testing.T) {
	_, err := NewParser(failingLocator{}, true).Directives("p", "A.java")
	assert.ErrorContains(t, err, "permission denied")
}

func TestCreateLocatorGating(t *testing.T) {
	calls := 0
	factory := func(types.CodeRoot) (SourceFileLocator, error) {
		calls++
		return DirLocator{}, nil
	}
	root := types.CodeRoot{Name: "src"}

	loc, err := CreateLocator(ModeDisabled, factory, root)
	require.NoError(t, err)
	assert.Nil(t, loc)
	assert.Zero(t, calls)

	loc, err = CreateLocator(ModeStrict, nil, root)
	require.NoError(t, err)
	assert.Nil(t, loc)

	loc, err = CreateLocator(ModeLoose, factory, root)
	require.NoError(t, err)
	assert.NotNil(t, loc)
	assert.Equal(t, 1, calls)
}

func TestWorkspaceLocators(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "proj", "src", "com", "acme")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Foo.java"), []byte(sample), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "proj", "lib-src", "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "proj", "lib-src", "x", "Y.java"), []byte("//coverage:ignore\n"), 0o644))

	ws, err := workspace.New(dir)
	require.NoError(t, err)
	factory := WorkspaceLocators(ws)

	loc, err := factory(types.CodeRoot{Name: "src", Kind: types.KindSource, Resource: "/proj/src"})
	require.NoError(t, err)
	lines, err := NewParser(loc, false).Directives("com/acme", "Foo.java")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9, 10}, lines)

	loc, err = factory(types.CodeRoot{Name: "lib.jar", Kind: types.KindBinary, Resource: "/proj/lib.jar", SourceAttachment: "/proj/lib-src"})
	require.NoError(t, err)
	lines, err = NewParser(loc, false).Directives("x", "Y.java")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, lines)

	loc, err = factory(types.CodeRoot{Name: "lib.jar", Kind: types.KindBinary, Resource: "/proj/lib.jar"})
	require.NoError(t, err)
	assert.Nil(t, loc)

	_, err = factory(types.CodeRoot{Name: "gone", Kind: types.KindSource, Resource: "/proj/gone"})
	assert.Error(t, err)
}
