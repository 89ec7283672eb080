package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/typhfeng/pulse/internal/types"
)

// ManifestEntry is one repository row in the manifest. The manifest is
// authoritative for inclusion: an enabled entry is tracked even when it
// lives outside every scan root, and a disabled entry is excluded even
// when discovery finds it on disk.
type ManifestEntry struct {
	Path string `json:"path"`
	// Track overrides classification when set.
	Track   types.Track `json:"track,omitempty"`
	Enabled bool        `json:"enabled"`
}

// Manifest is the on-disk repo manifest.
type Manifest struct {
	SearchRoot string          `json:"search_root,omitempty"`
	Repos      []ManifestEntry `json:"repos"`
}

// LoadManifest reads the manifest at path. A missing file yields an
// empty manifest, not an error, so first use needs no setup step.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Save writes the manifest atomically: the new content lands in a temp
// file first and replaces the old file with a rename, so the manifest
// stays valid JSON even if we crash mid-write.
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp manifest: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing manifest: %w", err)
	}
	return nil
}

// Entry returns the entry for path, or nil.
func (m *Manifest) Entry(path string) *ManifestEntry {
	for i := range m.Repos {
		if m.Repos[i].Path == path {
			return &m.Repos[i]
		}
	}
	return nil
}

// Upsert adds or updates the entry for path, enabling it. An empty
// track leaves any existing override in place.
func (m *Manifest) Upsert(path string, track types.Track) {
	if entry := m.Entry(path); entry != nil {
		entry.Enabled = true
		if track != "" {
			entry.Track = track
		}
		return
	}
	m.Repos = append(m.Repos, ManifestEntry{Path: path, Track: track, Enabled: true})
}

// Remove deletes the entry for path, reporting whether anything changed.
func (m *Manifest) Remove(path string) bool {
	for i := range m.Repos {
		if m.Repos[i].Path == path {
			m.Repos = append(m.Repos[:i], m.Repos[i+1:]...)
			return true
		}
	}
	return false
}
