package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typhfeng/pulse/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "track_config.json", `{
		"owner": "typhfeng",
		"scan_roots": ["/home/t/projects"],
		"track_overrides": {"/home/t/projects/misc": "family"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "typhfeng", cfg.Owner)
	assert.Equal(t, []string{"/home/t/projects"}, cfg.ScanRoots)
	assert.Equal(t, DefaultMaxRepoDepth, cfg.MaxRepoDepth)
	assert.Equal(t, DefaultScanConcurrency, cfg.ScanConcurrency)
	assert.Equal(t, DefaultCacheTTLSeconds, cfg.CacheTTLSeconds)
	// Relative manifest paths resolve against the config directory.
	assert.Equal(t, filepath.Join(dir, DefaultManifestName), cfg.ManifestPath())
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "track_config.json", `{
		"scan_roots": ["/repos"],
		"cache_ttl_seconds": 600,
		"scan_concurrency": 2,
		"repo_manifest_path": "/etc/pulse/manifest.json"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.CacheTTLSeconds)
	assert.Equal(t, 2, cfg.ScanConcurrency)
	assert.Equal(t, "/etc/pulse/manifest.json", cfg.ManifestPath())
}

func TestLoadRejectsInvalidOverrideTrack(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "track_config.json", `{
		"track_overrides": {"/x": "gardening"}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gardening")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestDefaultClassifierTables(t *testing.T) {
	cc := DefaultClassifier()
	require.NoError(t, cc.Validate())
	require.Len(t, cc.Tables, 4)
	assert.Equal(t, types.TrackFinance, cc.Tables[0].Track)
	assert.Equal(t, types.TrackEngineering, cc.DefaultTrack)
}

func TestLoadClassifierYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tracks.yaml", `
tracks:
  - track: finance
    keywords: [ledger, broker]
  - track: family
    keywords: [garden]
default_track: family
`)

	cc, err := LoadClassifier(path)
	require.NoError(t, err)
	require.Len(t, cc.Tables, 2)
	assert.Equal(t, []string{"ledger", "broker"}, cc.Tables[0].Keywords)
	assert.Equal(t, types.TrackFamily, cc.DefaultTrack)
}

func TestLoadClassifierPartialFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tracks.yaml", "default_track: family\n")

	cc, err := LoadClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, types.TrackFamily, cc.DefaultTrack)
	assert.Len(t, cc.Tables, 4)
}

func TestLoadClassifierRejectsUnknownTrack(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tracks.yaml", `
tracks:
  - track: gardening
    keywords: [x]
`)
	_, err := LoadClassifier(path)
	require.Error(t, err)
}

func TestGitHubTokenEnvFallback(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "gh-fallback")
	assert.Equal(t, "gh-fallback", GitHubToken())

	t.Setenv("GITHUB_TOKEN", "primary")
	assert.Equal(t, "primary", GitHubToken())
}
