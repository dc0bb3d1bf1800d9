package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte("content of "+n), 0o600))
	}
}

func TestExpandPaths_WalksDirectoriesByExtension(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.md", "b.txt", "c.png", "sub/d.md", ".git/e.md")

	got, err := expandPaths([]string{root}, "", extSet([]string{"md", ".TXT"}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.md"),
		filepath.Join(root, "b.txt"),
		filepath.Join(root, "sub", "d.md"),
	}, got)
}

func TestExpandPaths_GlobAndDedup(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "docs/x/one.md", "docs/two.md", "docs/three.txt")

	explicit := filepath.Join(root, "docs", "two.md")
	got, err := expandPaths([]string{explicit}, filepath.Join(root, "docs", "**", "*.md"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "docs", "two.md"),
		filepath.Join(root, "docs", "x", "one.md"),
	}, got)
}

func TestExpandPaths_MissingPath(t *testing.T) {
	_, err := expandPaths([]string{filepath.Join(t.TempDir(), "nope.md")}, "", nil)
	assert.Error(t, err)
}

func TestParseMeta(t *testing.T) {
	meta, err := parseMeta([]string{"source=owasp", " title = LLM Top 10 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"source": "owasp", "title": "LLM Top 10"}, meta)

	_, err = parseMeta([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseMeta([]string{"=x"})
	assert.Error(t, err)
}

type stubIngester struct {
	calls []string
	fail  map[string]bool
}

func (s *stubIngester) IngestPath(_ context.Context, docID, path string, _ map[string]any) ([]string, error) {
	s.calls = append(s.calls, docID+"|"+path)
	if s.fail[path] {
		return nil, errors.New("boom")
	}
	return []string{"c1", "c2"}, nil
}

func TestIngestFiles_ReportsPerFile(t *testing.T) {
	kb := &stubIngester{fail: map[string]bool{"bad.md": true}}
	var out bytes.Buffer

	total, failed := ingestFiles(context.Background(), &out, kb, []string{"a.md", "bad.md", "b.md"}, "", nil)
	assert.Equal(t, 4, total)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"|a.md", "|bad.md", "|b.md"}, kb.calls)
	assert.Contains(t, out.String(), "a.md: 2 chunks")
	assert.Contains(t, out.String(), "bad.md: error: boom")
}

func TestHashTracker(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "a.md")
	require.NoError(t, os.WriteFile(p, []byte("v1"), 0o600))

	tr := newHashTracker()
	changed, err := tr.changed(p)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = tr.changed(p)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(p, []byte("v2"), 0o600))
	changed, err = tr.changed(p)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = tr.changed(filepath.Join(root, "gone.md"))
	require.NoError(t, err)
	assert.False(t, changed)
}
