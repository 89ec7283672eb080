package mining

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typhfeng/pulse/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestMineFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n// TODO: wire up flags\nfunc main() {}\n")
	writeFile(t, dir, "notes.md", "remember the FIXME in the parser\nall good here\n")
	writeFile(t, dir, "clean.go", "package main\n")
	// Markers inside ignored directories must not surface.
	writeFile(t, dir, "node_modules/dep/index.js", "// TODO ignore me\n")
	writeFile(t, dir, ".git/config", "TODO should never be read\n")

	hits := NewMiner(Limits{}).MineFiles(context.Background(), dir)

	require.Len(t, hits, 2)
	bySource := map[string]types.IssueHit{}
	for _, h := range hits {
		bySource[h.Source] = h
		assert.Equal(t, types.HitTypeCode, h.Type)
	}
	todo, ok := bySource["main.go:2"]
	require.True(t, ok, "expected a hit at main.go:2, got %v", hits)
	assert.Equal(t, "// TODO: wire up flags", todo.Content)

	_, ok = bySource["notes.md:1"]
	assert.True(t, ok, "expected a hit at notes.md:1")
}

func TestMineFilesWordBoundary(t *testing.T) {
	dir := t.TempDir()
	// "mastodon" contains "todo" but not at a word boundary.
	writeFile(t, dir, "a.txt", "mastodon is a bird\nmethods of debugging\n")
	writeFile(t, dir, "b.txt", "todo: lowercase still counts\n")

	hits := NewMiner(Limits{}).MineFiles(context.Background(), dir)
	require.Len(t, hits, 1)
	assert.Equal(t, "b.txt:1", hits[0].Source)
}

func TestMineFilesRespectsBounds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.txt", strings.Repeat("TODO line\n", 1000))
	writeFile(t, dir, "small.txt", "TODO one\n")

	t.Run("MaxHits", func(t *testing.T) {
		hits := NewMiner(Limits{MaxHits: 5}).MineFiles(context.Background(), dir)
		assert.Len(t, hits, 5)
	})

	t.Run("MaxFileSize", func(t *testing.T) {
		// big.txt is 10000 bytes; bound it out.
		hits := NewMiner(Limits{MaxFileSize: 100}).MineFiles(context.Background(), dir)
		require.Len(t, hits, 1)
		assert.Equal(t, "small.txt:1", hits[0].Source)
	})
}

func TestMineCommits(t *testing.T) {
	date := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	commits := []types.CommitEntry{
		{Hash: "aaaaaaaaaaaaaaaa", Date: date, Subject: "fix crash on empty manifest"},
		{Hash: "bbbbbbbbbbbbbbbb", Date: date, Subject: "add weekly trend chart"},
		{Hash: "cccccccccccccccc", Date: date, Subject: "document the blocker in sync"},
	}

	hits := NewMiner(Limits{}).MineCommits(commits, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, types.HitTypeCommit, hits[0].Type)
	assert.Equal(t, "aaaaaaaaaaaaaaaa", hits[0].Source)
	assert.Equal(t, "2026-08-20 aaaaaaa", hits[0].Title)
	assert.Equal(t, "cccccccccccccccc", hits[1].Source)
}

func TestModulePath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", ModulePath(dir))

	writeFile(t, dir, "go.mod", "module example.com/demo\n\ngo 1.25\n")
	assert.Equal(t, "example.com/demo", ModulePath(dir))
}
