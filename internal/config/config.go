package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/typhfeng/pulse/internal/types"
)

// Config holds the tracker configuration, loaded from the JSON config
// file (track_config.json by default). Zero values fall back to the
// documented defaults, so a minimal config only needs owner + scan_roots.
type Config struct {
	// Owner is the remote owner repositories must belong to for
	// filesystem discovery to pick them up. Manifest entries bypass
	// this filter.
	Owner string `mapstructure:"owner"`

	// ScanRoots are the directories walked for .git directories.
	ScanRoots []string `mapstructure:"scan_roots"`

	// IncludeRepos are always-tracked repository paths, in addition to
	// the manifest.
	IncludeRepos []string `mapstructure:"include_repos"`

	// MaxRepoDepth bounds the discovery walk below each scan root.
	MaxRepoDepth int `mapstructure:"max_repo_depth"`

	// CacheTTLSeconds bounds how long a dashboard snapshot is served
	// without rescanning.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`

	// ExcludePaths are path prefixes dropped from discovery results.
	ExcludePaths []string `mapstructure:"exclude_paths"`

	// TrackOverrides maps a path prefix to a track, taking precedence
	// over the keyword classifier.
	TrackOverrides map[string]string `mapstructure:"track_overrides"`

	// RepoManifestPath locates the repo manifest, relative to the
	// config file when not absolute.
	RepoManifestPath string `mapstructure:"repo_manifest_path"`

	// TracksFile optionally points at a YAML file overriding the
	// classifier keyword tables.
	TracksFile string `mapstructure:"tracks_file"`

	// ScanConcurrency caps how many repositories are inspected at once.
	ScanConcurrency int `mapstructure:"scan_concurrency"`

	// HistoryDBPath locates the scan history database. Empty disables
	// history recording.
	HistoryDBPath string `mapstructure:"history_db_path"`

	// Miner bounds. Files larger than MaxFileSizeBytes and anything past
	// MaxFilesPerRepo or MaxHitsPerRepo are skipped, not fatal.
	MaxFilesPerRepo  int   `mapstructure:"max_files_per_repo"`
	MaxFileSizeBytes int64 `mapstructure:"max_file_size_bytes"`
	MaxHitsPerRepo   int   `mapstructure:"max_hits_per_repo"`

	// CommitAlertDays is the commit-message mining lookback window.
	CommitAlertDays int `mapstructure:"commit_alert_days"`
	// MaxCommitAlerts bounds commit-alert hits per repository.
	MaxCommitAlerts int `mapstructure:"max_commit_alerts"`

	// path the config was loaded from; used to resolve relative paths.
	path string
}

// Defaults, kept in one place so tests and docs agree with the loader.
const (
	DefaultMaxRepoDepth    = 6
	DefaultCacheTTLSeconds = 120
	DefaultScanConcurrency = 8
	DefaultMaxFilesPerRepo = 4000
	DefaultMaxFileSize     = 1 << 20 // 1 MiB
	DefaultMaxHitsPerRepo  = 120
	DefaultCommitAlertDays = 180
	DefaultMaxCommitAlerts = 80
	DefaultManifestName    = "repo_manifest.json"
)

// Load reads the config file at path. A missing file is an error; use
// Default() for an in-memory config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.path = path
	cfg.applyDefaults()

	for prefix, track := range cfg.TrackOverrides {
		if !types.Track(track).IsValid() {
			return nil, fmt.Errorf("config %s: invalid track %q for override %s", path, track, prefix)
		}
	}

	return cfg, nil
}

// Default returns a config with every knob at its default value.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max_repo_depth", DefaultMaxRepoDepth)
	v.SetDefault("cache_ttl_seconds", DefaultCacheTTLSeconds)
	v.SetDefault("scan_concurrency", DefaultScanConcurrency)
	v.SetDefault("max_files_per_repo", DefaultMaxFilesPerRepo)
	v.SetDefault("max_file_size_bytes", DefaultMaxFileSize)
	v.SetDefault("max_hits_per_repo", DefaultMaxHitsPerRepo)
	v.SetDefault("commit_alert_days", DefaultCommitAlertDays)
	v.SetDefault("max_commit_alerts", DefaultMaxCommitAlerts)
	v.SetDefault("repo_manifest_path", DefaultManifestName)
}

func (c *Config) applyDefaults() {
	if c.MaxRepoDepth <= 0 {
		c.MaxRepoDepth = DefaultMaxRepoDepth
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = DefaultCacheTTLSeconds
	}
	if c.ScanConcurrency <= 0 {
		c.ScanConcurrency = DefaultScanConcurrency
	}
	if c.MaxFilesPerRepo <= 0 {
		c.MaxFilesPerRepo = DefaultMaxFilesPerRepo
	}
	if c.MaxFileSizeBytes <= 0 {
		c.MaxFileSizeBytes = DefaultMaxFileSize
	}
	if c.MaxHitsPerRepo <= 0 {
		c.MaxHitsPerRepo = DefaultMaxHitsPerRepo
	}
	if c.CommitAlertDays <= 0 {
		c.CommitAlertDays = DefaultCommitAlertDays
	}
	if c.MaxCommitAlerts <= 0 {
		c.MaxCommitAlerts = DefaultMaxCommitAlerts
	}
	if c.RepoManifestPath == "" {
		c.RepoManifestPath = DefaultManifestName
	}
}

// CacheTTL returns the snapshot TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ManifestPath resolves the manifest location against the config file's
// directory when the configured path is relative.
func (c *Config) ManifestPath() string {
	p := c.RepoManifestPath
	if filepath.IsAbs(p) || c.path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.path), p)
}

// GitHubToken returns the externally supplied access token, or "" when
// no token is configured. Absence is a non-fatal condition; callers
// degrade the issue panel instead of failing.
func GitHubToken() string {
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok
	}
	return os.Getenv("GH_TOKEN")
}
