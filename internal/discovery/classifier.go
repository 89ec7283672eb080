package discovery

import (
	"sort"
	"strings"

	"github.com/typhfeng/pulse/internal/config"
	"github.com/typhfeng/pulse/internal/types"
)

type pathOverride struct {
	prefix string
	track  types.Track
}

// Classifier resolves a repository's track. Resolution order: manifest
// override, config path override, the ordered keyword tables, then the
// default track. For identical inputs it always yields the same track:
// overrides are checked longest-prefix first and keyword tables in their
// fixed priority order, so no tie depends on map iteration.
type Classifier struct {
	tables       []config.TrackKeywords
	defaultTrack types.Track
	overrides    []pathOverride
}

// NewClassifier builds a classifier from the keyword tables and the
// config-level path overrides.
func NewClassifier(cc *config.ClassifierConfig, overrides map[string]string) *Classifier {
	c := &Classifier{
		tables:       cc.Tables,
		defaultTrack: cc.DefaultTrack,
	}
	for prefix, track := range overrides {
		c.overrides = append(c.overrides, pathOverride{prefix: prefix, track: types.Track(track)})
	}
	sort.Slice(c.overrides, func(i, j int) bool {
		a, b := c.overrides[i], c.overrides[j]
		if len(a.prefix) != len(b.prefix) {
			return len(a.prefix) > len(b.prefix)
		}
		return a.prefix < b.prefix
	})
	return c
}

// Classify resolves the track for a repository path and name.
// manifestTrack, when valid, wins outright.
func (c *Classifier) Classify(path, name string, manifestTrack types.Track) types.Track {
	if manifestTrack.IsValid() {
		return manifestTrack
	}

	for _, ov := range c.overrides {
		if !ov.track.IsValid() {
			continue
		}
		if path == ov.prefix || strings.HasPrefix(path, ov.prefix+"/") {
			return ov.track
		}
	}

	key := strings.ToLower(path + " " + name)
	for _, table := range c.tables {
		for _, kw := range table.Keywords {
			if strings.Contains(key, kw) {
				return table.Track
			}
		}
	}

	return c.defaultTrack
}
