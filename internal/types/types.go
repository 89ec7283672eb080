package types

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// Track is one of the four fixed life-domain categories used to group
// repositories for reporting.
type Track string

const (
	TrackFinance       Track = "finance"
	TrackEngineering   Track = "engineering"
	TrackSoCAutoDesign Track = "soc_auto_design"
	TrackFamily        Track = "family"
)

// AllTracks returns every track in classifier priority order. The order is
// load-bearing: heuristic classification ties resolve to the first match.
func AllTracks() []Track {
	return []Track{TrackFinance, TrackEngineering, TrackSoCAutoDesign, TrackFamily}
}

// IsValid checks if the track value is one of the four known tracks.
func (t Track) IsValid() bool {
	switch t {
	case TrackFinance, TrackEngineering, TrackSoCAutoDesign, TrackFamily:
		return true
	}
	return false
}

// Label returns the fixed display label for the track.
func (t Track) Label() string {
	switch t {
	case TrackFinance:
		return "Finance"
	case TrackEngineering:
		return "Engineering"
	case TrackSoCAutoDesign:
		return "SoC Auto Design"
	case TrackFamily:
		return "Family"
	}
	return string(t)
}

// Color returns the fixed display color (hex) for the track.
func (t Track) Color() string {
	switch t {
	case TrackFinance:
		return "#f59e0b"
	case TrackEngineering:
		return "#3b82f6"
	case TrackSoCAutoDesign:
		return "#8b5cf6"
	case TrackFamily:
		return "#10b981"
	}
	return "#6b7280"
}

// Stage is the discrete lifecycle label derived from a repository's
// progress score and qualitative signals.
type Stage string

const (
	StageNotStarted   Stage = "Not Started"
	StageAccelerating Stage = "Accelerating"
	StageInProgress   Stage = "In Progress"
	StageMaintaining  Stage = "Maintaining"
	StageAtRisk       Stage = "At Risk"
	StageStalled      Stage = "Stalled"
)

// CommitEntry is one entry from the commit log.
type CommitEntry struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author,omitempty"`
	Date    time.Time `json:"date"`
	Subject string    `json:"subject"`
}

// DirtyCounts breaks the working-tree dirt down by kind.
type DirtyCounts struct {
	Modified  int `json:"modified"`
	Untracked int `json:"untracked"`
}

// Total returns the combined dirty file count.
func (d DirtyCounts) Total() int {
	return d.Modified + d.Untracked
}

// CommitWindows holds commit counts over the standard trailing windows.
type CommitWindows struct {
	Last7d  int `json:"last_7d"`
	Last30d int `json:"last_30d"`
	Last90d int `json:"last_90d"`
}

// TrendWeeks is the number of weekly buckets in the commit trend.
const TrendWeeks = 12

// RepoGitState is a normalized snapshot of one working copy. It is
// produced fresh on every scan and never persisted independently.
type RepoGitState struct {
	Branch     string      `json:"branch"`
	StatusLine string      `json:"status_line"`
	Dirty      DirtyCounts `json:"dirty"`
	Ahead      int         `json:"ahead"`
	Behind     int         `json:"behind"`

	// LastCommit is nil for a repository with no commits yet.
	LastCommit *CommitEntry `json:"last_commit,omitempty"`

	Commits CommitWindows `json:"commits"`

	// WeeklyCommits has TrendWeeks buckets, oldest first, aligned to the
	// ISO week boundaries of the scan's anchor time so every repository's
	// series is directly comparable.
	WeeklyCommits []int `json:"weekly_commits"`

	// ChangedFilesLastCommit lists the files touched by the last commit.
	ChangedFilesLastCommit []string `json:"changed_files_last_commit,omitempty"`
}

// HasCommits reports whether the repository has any commits at all.
func (s *RepoGitState) HasCommits() bool {
	return s.LastCommit != nil
}

// Issue hit provenance types.
const (
	HitTypeCode   = "code_issue"
	HitTypeCommit = "commit_alert"
)

// IssueHit is one provenance-tagged issue found by the miner. The miner
// fills the type/title/content/source fields; the aggregator tags the hit
// with its repository and track before it enters the search pool.
type IssueHit struct {
	RepoID  string `json:"repo_id,omitempty"`
	Repo    string `json:"repo,omitempty"`
	Path    string `json:"path,omitempty"`
	Track   Track  `json:"track,omitempty"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	// Source is "file:line" for code hits and the commit hash for
	// commit alerts.
	Source string `json:"source"`
}

// IssueSummary is the per-repository issue rollup.
type IssueSummary struct {
	Total int        `json:"total"`
	Hits  []IssueHit `json:"hits"`
}

// Progress is a bounded progress score plus its lifecycle stage.
type Progress struct {
	Score int   `json:"score"`
	Stage Stage `json:"stage"`
}

// RepoRecord is the per-repository aggregate exposed externally.
// It is rebuilt on every scan; ID is stable across scans.
type RepoRecord struct {
	ID          string       `json:"id"`
	Path        string       `json:"path"`
	Name        string       `json:"name"`
	DisplayName string       `json:"display_name"`
	Remote      string       `json:"remote,omitempty"`
	Track       Track        `json:"track"`
	Git         RepoGitState `json:"git"`
	Issues      IssueSummary `json:"issues"`
	Progress    Progress     `json:"progress"`
	// Module is the Go module path from the repository's go.mod, when
	// one exists.
	Module string `json:"module,omitempty"`
}

// Summary is the global rollup over every tracked repository.
type Summary struct {
	TotalRepos      int `json:"total_repos"`
	ActiveRepos30d  int `json:"active_repos_30d"`
	TotalCommits30d int `json:"total_commits_30d"`
	TotalCommits90d int `json:"total_commits_90d"`
	DirtyRepos      int `json:"dirty_repos"`
	TotalIssueHits  int `json:"total_issue_hits"`
}

// TrackSummary is the per-track rollup. It is a pure fold over the
// snapshot's repos, never derived independently.
type TrackSummary struct {
	Track       Track   `json:"track"`
	Label       string  `json:"label"`
	Repos       int     `json:"repos"`
	ActiveRepos int     `json:"active_repos"`
	Commits30d  int     `json:"commits_30d"`
	Commits90d  int     `json:"commits_90d"`
	Issues      int     `json:"issues"`
	AvgProgress float64 `json:"avg_progress"`
}

// Trend is the 12-week commit trend. Every track's series is aligned to
// the same week labels, oldest first.
type Trend struct {
	Labels []string        `json:"labels"`
	Series map[Track][]int `json:"series"`
}

// DashboardSnapshot is one immutable, fully-computed dashboard result.
// It is superseded wholesale by the next scan, never patched in place.
type DashboardSnapshot struct {
	ScanID      string                   `json:"scan_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	Owner       string                   `json:"owner"`
	ScanRoots   []string                 `json:"scan_roots"`
	Summary     Summary                  `json:"summary"`
	Tracks      map[Track]*TrackSummary  `json:"track_summary"`
	Trend       Trend                    `json:"trend"`
	Repos       []*RepoRecord            `json:"repos"`
	SearchPool  []IssueHit               `json:"search_pool"`
}

// RepoByID returns the record for the given id, or nil.
func (s *DashboardSnapshot) RepoByID(id string) *RepoRecord {
	for _, r := range s.Repos {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// TodoEntry is one parsed line of a repository's task file. Index is a
// stable ordinal assigned at parse time; it is only valid for the
// lifetime of one read-modify-write cycle.
type TodoEntry struct {
	Index  int    `json:"index"`
	LineNo int    `json:"line_no"`
	Text   string `json:"text"`
	Done   bool   `json:"done"`
}

// RepoID derives a stable repository identifier from its path, so detail
// requests can reference a repo across scans.
func RepoID(path string) string {
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:])[:12]
}

// WeekLabel formats t's ISO week as "2006-W01", the label format used by
// the trend chart.
func WeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeekLabels returns TrendWeeks labels ending at the week containing now,
// oldest first.
func WeekLabels(now time.Time) []string {
	labels := make([]string, 0, TrendWeeks)
	for i := TrendWeeks - 1; i >= 0; i-- {
		labels = append(labels, WeekLabel(now.AddDate(0, 0, -7*i)))
	}
	return labels
}
