package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/typhfeng/pulse/internal/config"
	"github.com/typhfeng/pulse/internal/git"
	"github.com/typhfeng/pulse/internal/types"
)

// ErrInvalidRepoPath rejects add_repo targets that do not exist or are
// not git repositories. No partial mutation happens on this error.
var ErrInvalidRepoPath = errors.New("invalid repository path")

var reOwner = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/.]+)(?:\.git)?$`)

// ParseRemote extracts owner and repo name from a GitHub remote URL,
// accepting both SSH and HTTPS forms.
func ParseRemote(remote string) (owner, name string, ok bool) {
	m := reOwner.FindStringSubmatch(remote)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// TrackedRepo is one entry of the authoritative repo set: a resolved
// path plus its classification.
type TrackedRepo struct {
	Path   string
	Name   string
	Remote string
	Track  types.Track
}

// Discoverer merges filesystem scanning with the manifest to produce
// the authoritative, ordered set of tracked repositories.
type Discoverer struct {
	cfg        *config.Config
	classifier *Classifier
	inspector  *git.Inspector
}

// New creates a Discoverer.
func New(cfg *config.Config, classifier *Classifier, inspector *git.Inspector) *Discoverer {
	return &Discoverer{cfg: cfg, classifier: classifier, inspector: inspector}
}

// FindGitDirs walks root up to maxDepth directory levels and returns the
// parent directories of every .git found. Unreadable directories are
// skipped, not fatal.
func FindGitDirs(root string, maxDepth int) []string {
	var repos []string
	root = filepath.Clean(root)

	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fs.SkipDir
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(rel, string(filepath.Separator)) + 1
		}
		if depth > maxDepth {
			return fs.SkipDir
		}

		if d.Name() == ".git" {
			repos = append(repos, filepath.Dir(path))
			return fs.SkipDir
		}
		return nil
	})

	return repos
}

// FilterCandidates drops candidate paths under any exclude prefix and
// returns the survivors sorted and deduplicated. Pure: no filesystem
// access.
func FilterCandidates(candidates, excludes []string) []string {
	seen := make(map[string]bool, len(candidates))
	var kept []string
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		excluded := false
		for _, ex := range excludes {
			if ex != "" && strings.HasPrefix(c, ex) {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, c)
		}
	}
	sort.Strings(kept)
	return kept
}

// Discover returns the authoritative ordered repo set. Filesystem
// candidates must match the configured owner's remote; manifest entries
// are unioned in regardless of remote (a manual include escapes the
// origin filter) and disabled manifest entries are removed even when
// discovery finds them on disk.
func (d *Discoverer) Discover(ctx context.Context) ([]TrackedRepo, error) {
	manifest, err := LoadManifest(d.cfg.ManifestPath())
	if err != nil {
		return nil, err
	}
	return d.discover(ctx, manifest), nil
}

func (d *Discoverer) discover(ctx context.Context, manifest *Manifest) []TrackedRepo {
	candidates := make([]string, 0, 64)
	for _, inc := range d.cfg.IncludeRepos {
		candidates = append(candidates, filepath.Clean(inc))
	}
	for _, root := range d.cfg.ScanRoots {
		candidates = append(candidates, FindGitDirs(root, d.cfg.MaxRepoDepth)...)
	}
	candidates = FilterCandidates(candidates, d.cfg.ExcludePaths)

	type candidate struct {
		path   string
		remote string
	}

	selected := make(map[string]candidate)
	for _, path := range candidates {
		if !d.inspector.IsRepository(path) {
			continue
		}
		remote := d.inspector.RemoteURL(ctx, path)
		if d.cfg.Owner != "" {
			owner, _, ok := ParseRemote(remote)
			if !ok || !strings.EqualFold(owner, d.cfg.Owner) {
				continue
			}
		}
		selected[path] = candidate{path: path, remote: remote}
	}

	// The manifest has the last word on inclusion.
	for _, entry := range manifest.Repos {
		path := filepath.Clean(entry.Path)
		if !entry.Enabled {
			delete(selected, path)
			continue
		}
		if _, ok := selected[path]; ok {
			continue
		}
		if !d.inspector.IsRepository(path) {
			continue
		}
		selected[path] = candidate{path: path, remote: d.inspector.RemoteURL(ctx, path)}
	}

	paths := make([]string, 0, len(selected))
	for p := range selected {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	repos := make([]TrackedRepo, 0, len(paths))
	for _, path := range paths {
		c := selected[path]
		name := filepath.Base(path)
		if _, remoteName, ok := ParseRemote(c.remote); ok {
			name = remoteName
		}

		var manifestTrack types.Track
		if entry := manifest.Entry(path); entry != nil {
			manifestTrack = entry.Track
		}

		repos = append(repos, TrackedRepo{
			Path:   path,
			Name:   name,
			Remote: c.remote,
			Track:  d.classifier.Classify(path, name, manifestTrack),
		})
	}
	return repos
}

// AddRepo validates the target and enables it in the manifest. The
// caller is responsible for invalidating any snapshot cache.
func (d *Discoverer) AddRepo(path string, track types.Track) error {
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRepoPath, path)
	}
	if _, err := os.Stat(filepath.Join(abs, ".git")); err != nil {
		return fmt.Errorf("%w: not a git repo: %s", ErrInvalidRepoPath, abs)
	}
	if track != "" && !track.IsValid() {
		return fmt.Errorf("%w: unknown track %q", ErrInvalidRepoPath, track)
	}

	manifestPath := d.cfg.ManifestPath()
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	manifest.Upsert(abs, track)
	return manifest.Save(manifestPath)
}

// RemoveRepo disables tracking for path. Removing a path that is not in
// the manifest is a no-op success: removal is idempotent.
func (d *Discoverer) RemoveRepo(path string) (removed bool, err error) {
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidRepoPath, path)
	}

	manifestPath := d.cfg.ManifestPath()
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return false, err
	}
	if !manifest.Remove(abs) {
		return false, nil
	}
	return true, manifest.Save(manifestPath)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
