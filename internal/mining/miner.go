// Package mining extracts issue signals from a repository's text files
// and recent commit messages.
package mining

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/mod/modfile"

	"github.com/typhfeng/pulse/internal/types"
)

var (
	// reMarker matches in-code issue markers at word boundaries,
	// case-insensitively.
	reMarker = regexp.MustCompile(`(?i)\b(TODO|FIXME|BUG|HACK|XXX|BLOCKER|RISK)\b`)

	// reCommitAlert matches risk/fix/problem words in commit subjects.
	reCommitAlert = regexp.MustCompile(`(?i)\b(fix|bug|error|fail|todo|problem|blocker|risk|regress)\b`)
)

// ignoreDirs are dependency and build directories never mined.
var ignoreDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"venv":         true,
	".venv":        true,
	"build":        true,
	"dist":         true,
	"output":       true,
	"target":       true,
}

// Limits bound a single repository's mining pass so scan latency stays
// predictable. Anything over a limit is skipped, never fatal.
type Limits struct {
	MaxFiles    int
	MaxFileSize int64
	MaxHits     int
}

// DefaultLimits mirror the config package defaults.
func DefaultLimits() Limits {
	return Limits{MaxFiles: 4000, MaxFileSize: 1 << 20, MaxHits: 120}
}

// Miner scans repositories for issue markers and commit alerts.
type Miner struct {
	limits Limits
}

// NewMiner creates a Miner with the given bounds; zero fields fall back
// to the defaults.
func NewMiner(limits Limits) *Miner {
	def := DefaultLimits()
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = def.MaxFiles
	}
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = def.MaxFileSize
	}
	if limits.MaxHits <= 0 {
		limits.MaxHits = def.MaxHits
	}
	return &Miner{limits: limits}
}

// MineFiles walks the repository's text files line by line and returns
// one hit per marker match, carrying file, line and the trimmed line
// content. The walk respects the ignore list and the mining bounds.
func (m *Miner) MineFiles(ctx context.Context, repoPath string) []types.IssueHit {
	var hits []types.IssueHit
	filesSeen := 0

	filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return fs.SkipAll
		}
		if d.IsDir() {
			if ignoreDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if filesSeen >= m.limits.MaxFiles || len(hits) >= m.limits.MaxHits {
			return fs.SkipAll
		}

		info, err := d.Info()
		if err != nil || info.Size() > m.limits.MaxFileSize {
			return nil
		}
		filesSeen++

		rel, err := filepath.Rel(repoPath, path)
		if err != nil {
			return nil
		}
		hits = append(hits, m.mineFile(path, rel, m.limits.MaxHits-len(hits))...)
		return nil
	})

	return hits
}

// mineFile scans one file, returning at most budget hits. Binary-looking
// files are skipped after the first unreadable line.
func (m *Miner) mineFile(path, rel string, budget int) []types.IssueHit {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var hits []types.IssueHit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 256*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !utf8.ValidString(line) {
			return hits
		}
		if !reMarker.MatchString(line) {
			continue
		}
		hits = append(hits, types.IssueHit{
			Type:    types.HitTypeCode,
			Title:   fmt.Sprintf("%s:%d", rel, lineNo),
			Content: strings.TrimSpace(line),
			Source:  fmt.Sprintf("%s:%d", rel, lineNo),
		})
		if len(hits) >= budget {
			return hits
		}
	}
	return hits
}

// MineCommits matches the alert keyword set against recent commit
// subjects; each match becomes a hit whose source is the commit hash.
func (m *Miner) MineCommits(commits []types.CommitEntry, maxAlerts int) []types.IssueHit {
	var hits []types.IssueHit
	for _, c := range commits {
		if !reCommitAlert.MatchString(c.Subject) {
			continue
		}
		hits = append(hits, types.IssueHit{
			Type:    types.HitTypeCommit,
			Title:   fmt.Sprintf("%s %s", c.Date.Format("2006-01-02"), shortHash(c.Hash)),
			Content: c.Subject,
			Source:  c.Hash,
		})
		if maxAlerts > 0 && len(hits) >= maxAlerts {
			break
		}
	}
	return hits
}

// ModulePath reads the repository's go.mod, when present, and returns
// its module path. Non-Go repositories return "".
func ModulePath(repoPath string) string {
	data, err := os.ReadFile(filepath.Join(repoPath, "go.mod"))
	if err != nil {
		return ""
	}
	return modfile.ModulePath(data)
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
