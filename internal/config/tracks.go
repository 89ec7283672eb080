package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/typhfeng/pulse/internal/types"
)

// TrackKeywords binds one track to the path/name substrings that map a
// repository onto it.
type TrackKeywords struct {
	Track    types.Track `yaml:"track"`
	Keywords []string    `yaml:"keywords"`
}

// ClassifierConfig is the ordered keyword table driving heuristic track
// classification. Order is the tie-break: the first track whose keyword
// matches wins, so classification is deterministic for a given table.
type ClassifierConfig struct {
	// Tables in priority order.
	Tables []TrackKeywords `yaml:"tracks"`

	// DefaultTrack is assigned when no keyword matches.
	DefaultTrack types.Track `yaml:"default_track"`
}

// DefaultClassifier returns the built-in keyword tables.
func DefaultClassifier() *ClassifierConfig {
	return &ClassifierConfig{
		Tables: []TrackKeywords{
			{Track: types.TrackFinance, Keywords: []string{
				"finance", "stk", "trader", "poly", "trading", "quant", "moomoo", "webull",
			}},
			{Track: types.TrackEngineering, Keywords: []string{
				"daytalk", "npu", "noc", "mec", "rtl", "arm", "chip", "soc",
			}},
			{Track: types.TrackSoCAutoDesign, Keywords: []string{
				"auto-design", "autodesign", "openlane", "eda", "chipgen", "autoflow",
			}},
			{Track: types.TrackFamily, Keywords: []string{
				"family", "home", "ella", "anna",
			}},
		},
		DefaultTrack: types.TrackEngineering,
	}
}

// LoadClassifier loads keyword tables from a YAML file. Missing fields
// fall back to the built-ins, so a file may override just one table.
func LoadClassifier(path string) (*ClassifierConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tracks file: %w", err)
	}

	cfg := &ClassifierConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing tracks file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tracks file %s: %w", path, err)
	}

	defaults := DefaultClassifier()
	if len(cfg.Tables) == 0 {
		cfg.Tables = defaults.Tables
	}
	if cfg.DefaultTrack == "" {
		cfg.DefaultTrack = defaults.DefaultTrack
	}
	return cfg, nil
}

// Validate rejects unknown tracks in the table.
func (c *ClassifierConfig) Validate() error {
	for _, tk := range c.Tables {
		if !tk.Track.IsValid() {
			return fmt.Errorf("unknown track %q", tk.Track)
		}
	}
	if c.DefaultTrack != "" && !c.DefaultTrack.IsValid() {
		return fmt.Errorf("unknown default track %q", c.DefaultTrack)
	}
	return nil
}

// Classifier resolves the classifier tables for this config: the
// configured tracks file when set, built-ins otherwise.
func (c *Config) Classifier() (*ClassifierConfig, error) {
	if c.TracksFile == "" {
		return DefaultClassifier(), nil
	}
	return LoadClassifier(c.TracksFile)
}
