// Package report renders a dashboard snapshot as a dated markdown
// baseline, optionally annotated with movement since a prior scan.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/typhfeng/pulse/internal/storage"
	"github.com/typhfeng/pulse/internal/types"
)

// Options carries the optional comparison baseline. Zero value renders
// a plain baseline with no deltas.
type Options struct {
	// Baseline is a previously recorded scan to diff the summary against.
	Baseline *storage.ScanRecord
	// BaselineScores maps repo_id -> score from the baseline scan, used
	// for the per-repo delta column.
	BaselineScores map[string]int
}

// Build renders the snapshot as markdown.
func Build(snap *types.DashboardSnapshot, opts Options) string {
	var b strings.Builder
	stamp := snap.GeneratedAt.Format("2006-01-02")

	fmt.Fprintf(&b, "# Project Track Baseline (%s)\n\n", stamp)
	fmt.Fprintf(&b, "- Generated: %s\n", snap.GeneratedAt.Format(time.RFC3339))
	if snap.Owner != "" {
		fmt.Fprintf(&b, "- Owner: %s\n", snap.Owner)
	}
	fmt.Fprintf(&b, "- Total repos: %d%s\n", snap.Summary.TotalRepos,
		delta(opts.Baseline, snap.Summary.TotalRepos, func(s types.Summary) int { return s.TotalRepos }))
	fmt.Fprintf(&b, "- Active repos (30d): %d%s\n", snap.Summary.ActiveRepos30d,
		delta(opts.Baseline, snap.Summary.ActiveRepos30d, func(s types.Summary) int { return s.ActiveRepos30d }))
	fmt.Fprintf(&b, "- Commits (30d): %d%s\n", snap.Summary.TotalCommits30d,
		delta(opts.Baseline, snap.Summary.TotalCommits30d, func(s types.Summary) int { return s.TotalCommits30d }))
	fmt.Fprintf(&b, "- Issue hits: %d%s\n", snap.Summary.TotalIssueHits,
		delta(opts.Baseline, snap.Summary.TotalIssueHits, func(s types.Summary) int { return s.TotalIssueHits }))
	if opts.Baseline != nil {
		fmt.Fprintf(&b, "- Compared against: %s\n", opts.Baseline.GeneratedAt.Format("2006-01-02"))
	}
	b.WriteString("\n")

	for _, track := range types.AllTracks() {
		ts := snap.Tracks[track]
		if ts == nil {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", track.Label())
		fmt.Fprintf(&b, "- repos: %d | active: %d | commits30d: %d | issues: %d | avg progress: %.1f\n\n",
			ts.Repos, ts.ActiveRepos, ts.Commits30d, ts.Issues, ts.AvgProgress)

		b.WriteString("| Repo | Progress | Stage | Commits30d | Dirty | Last Commit |\n")
		b.WriteString("|---|---:|---|---:|---:|---|\n")
		for _, r := range snap.Repos {
			if r.Track != track {
				continue
			}
			last := "-"
			if r.Git.LastCommit != nil {
				last = r.Git.LastCommit.Date.Format("2006-01-02")
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %s |\n",
				r.Name, scoreCell(r, opts.BaselineScores), r.Progress.Stage,
				r.Git.Commits.Last30d, r.Git.Dirty.Total(), last)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// scoreCell renders the progress score, with its movement since the
// baseline when one is known for the repo.
func scoreCell(r *types.RepoRecord, baseline map[string]int) string {
	score := r.Progress.Score
	prev, ok := baseline[r.ID]
	if !ok || prev == score {
		return fmt.Sprintf("%d", score)
	}
	return fmt.Sprintf("%d (%+d)", score, score-prev)
}

func delta(baseline *storage.ScanRecord, current int, field func(types.Summary) int) string {
	if baseline == nil {
		return ""
	}
	d := current - field(baseline.Summary)
	if d == 0 {
		return ""
	}
	return fmt.Sprintf(" (%+d)", d)
}

// Write renders the snapshot and writes it to dir as
// "YYYY-MM-DD-baseline.md", returning the path.
func Write(dir string, snap *types.DashboardSnapshot, opts Options) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, snap.GeneratedAt.Format("2006-01-02")+"-baseline.md")
	if err := os.WriteFile(path, []byte(Build(snap, opts)), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
