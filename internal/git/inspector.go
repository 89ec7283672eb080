package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/typhfeng/pulse/internal/types"
)

var (
	reAhead  = regexp.MustCompile(`ahead (\d+)`)
	reBehind = regexp.MustCompile(`behind (\d+)`)
)

// Inspector runs local git queries against working copies using the git
// CLI. Read operations are safe to run concurrently; mutating operations
// on the same repository are serialized internally.
type Inspector struct {
	gitPath string
	locks   repoLocks
}

// NewInspector creates an Inspector, verifying that git is available.
func NewInspector(ctx context.Context) (*Inspector, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, gitPath, "version")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git command failed: %w", err)
	}

	return &Inspector{gitPath: gitPath}, nil
}

// run executes a git command in repoPath and returns trimmed stdout.
func (in *Inspector) run(ctx context.Context, repoPath string, args ...string) (string, error) {
	full := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, in.gitPath, full...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// runCombined executes a git command and returns combined output along
// with the error, for mutations where stderr carries the reason.
func (in *Inspector) runCombined(ctx context.Context, repoPath string, args ...string) (string, error) {
	full := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, in.gitPath, full...)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// IsRepository reports whether path is a git working copy.
func (in *Inspector) IsRepository(path string) bool {
	cmd := exec.Command(in.gitPath, "-C", path, "rev-parse", "--git-dir")
	return cmd.Run() == nil
}

// checkRepo validates the path before any inspection.
func (in *Inspector) checkRepo(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrPathUnavailable, path)
	}
	if !in.IsRepository(path) {
		return fmt.Errorf("%w: %s", ErrNotARepository, path)
	}
	return nil
}

// State returns a normalized snapshot of the repository, anchored at now
// for the commit windows and weekly buckets.
func (in *Inspector) State(ctx context.Context, repoPath string, now time.Time) (*types.RepoGitState, error) {
	if err := in.checkRepo(repoPath); err != nil {
		return nil, err
	}

	state := &types.RepoGitState{Branch: "-"}

	if branch, err := in.run(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD"); err == nil && branch != "" {
		state.Branch = branch
	} else if branch, err := in.run(ctx, repoPath, "symbolic-ref", "--short", "HEAD"); err == nil && branch != "" {
		// An unborn branch (no commits yet) has no HEAD to rev-parse.
		state.Branch = branch
	}

	if sb, err := in.run(ctx, repoPath, "status", "-sb"); err == nil && sb != "" {
		first := strings.SplitN(sb, "\n", 2)[0]
		state.StatusLine = strings.TrimSpace(strings.TrimPrefix(first, "## "))
		if m := reAhead.FindStringSubmatch(first); m != nil {
			state.Ahead, _ = strconv.Atoi(m[1])
		}
		if m := reBehind.FindStringSubmatch(first); m != nil {
			state.Behind, _ = strconv.Atoi(m[1])
		}
	}

	porcelain, err := in.run(ctx, repoPath, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git status failed in %s: %w", repoPath, err)
	}
	for _, line := range strings.Split(porcelain, "\n") {
		switch {
		case strings.HasPrefix(line, "??"):
			state.Dirty.Untracked++
		case strings.TrimSpace(line) != "":
			state.Dirty.Modified++
		}
	}

	state.LastCommit = in.lastCommit(ctx, repoPath)
	if state.LastCommit != nil {
		state.Commits = types.CommitWindows{
			Last7d:  in.countSince(ctx, repoPath, 7),
			Last30d: in.countSince(ctx, repoPath, 30),
			Last90d: in.countSince(ctx, repoPath, 90),
		}
		state.ChangedFilesLastCommit = in.changedFiles(ctx, repoPath, state.LastCommit.Hash)
	}
	state.WeeklyCommits = in.weeklyCommits(ctx, repoPath, now)

	return state, nil
}

// lastCommit returns the newest commit, or nil for an empty repository.
func (in *Inspector) lastCommit(ctx context.Context, repoPath string) *types.CommitEntry {
	out, err := in.run(ctx, repoPath, "log", "-1", "--date=iso-strict", "--pretty=format:%H|%an|%ad|%s")
	if err != nil || out == "" {
		return nil
	}
	entry := parseCommitLine(out)
	return entry
}

// parseCommitLine parses "hash|author|iso-date|subject".
func parseCommitLine(line string) *types.CommitEntry {
	parts := strings.SplitN(line, "|", 4)
	if len(parts) != 4 {
		return nil
	}
	entry := &types.CommitEntry{
		Hash:    parts[0],
		Author:  parts[1],
		Subject: parts[3],
	}
	if t, err := time.Parse(time.RFC3339, parts[2]); err == nil {
		entry.Date = t
	}
	return entry
}

func (in *Inspector) countSince(ctx context.Context, repoPath string, days int) int {
	out, err := in.run(ctx, repoPath, "rev-list", "--count", "HEAD", fmt.Sprintf("--since=%d.days", days))
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0
	}
	return n
}

// weeklyCommits buckets the trailing 12 weeks of commits by ISO week,
// aligned to the same week labels for every repository so track series
// sum elementwise.
func (in *Inspector) weeklyCommits(ctx context.Context, repoPath string, now time.Time) []int {
	buckets := make([]int, types.TrendWeeks)
	out, err := in.run(ctx, repoPath, "log",
		fmt.Sprintf("--since=%d.days", types.TrendWeeks*7),
		"--date=format:%G-W%V", "--pretty=format:%ad")
	if err != nil || out == "" {
		return buckets
	}

	index := make(map[string]int, types.TrendWeeks)
	for i, label := range types.WeekLabels(now) {
		index[label] = i
	}
	for _, week := range strings.Split(out, "\n") {
		if i, ok := index[strings.TrimSpace(week)]; ok {
			buckets[i]++
		}
	}
	return buckets
}

func (in *Inspector) changedFiles(ctx context.Context, repoPath, hash string) []string {
	out, err := in.run(ctx, repoPath, "show", "--name-only", "--pretty=format:", hash)
	if err != nil || out == "" {
		return nil
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if f := strings.TrimSpace(line); f != "" {
			files = append(files, f)
		}
	}
	return files
}

// RemoteURL returns the origin remote URL, or "" when the repository has
// no origin remote.
func (in *Inspector) RemoteURL(ctx context.Context, repoPath string) string {
	out, err := in.run(ctx, repoPath, "remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	return out
}

// RecentCommits returns up to limit commits, newest first.
func (in *Inspector) RecentCommits(ctx context.Context, repoPath string, limit int) ([]types.CommitEntry, error) {
	if err := in.checkRepo(repoPath); err != nil {
		return nil, err
	}
	out, err := in.run(ctx, repoPath, "log", fmt.Sprintf("-%d", limit),
		"--date=iso-strict", "--pretty=format:%H|%an|%ad|%s")
	if err != nil || out == "" {
		// An empty repository has no log; that is not an error here.
		return nil, nil
	}
	return parseCommitLines(out), nil
}

// CommitsSince returns commits within the trailing day window, newest
// first. Used by commit-message mining.
func (in *Inspector) CommitsSince(ctx context.Context, repoPath string, days int) ([]types.CommitEntry, error) {
	if err := in.checkRepo(repoPath); err != nil {
		return nil, err
	}
	out, err := in.run(ctx, repoPath, "log", fmt.Sprintf("--since=%d.days", days),
		"--date=iso-strict", "--pretty=format:%H|%an|%ad|%s")
	if err != nil || out == "" {
		return nil, nil
	}
	return parseCommitLines(out), nil
}

func parseCommitLines(out string) []types.CommitEntry {
	var commits []types.CommitEntry
	for _, line := range strings.Split(out, "\n") {
		if entry := parseCommitLine(line); entry != nil {
			commits = append(commits, *entry)
		}
	}
	return commits
}

// ModulePathFile returns the path of the repository's go.mod if present.
func ModulePathFile(repoPath string) (string, bool) {
	p := filepath.Join(repoPath, "go.mod")
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p, true
	}
	return "", false
}
