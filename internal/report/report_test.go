package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/typhfeng/pulse/internal/storage"
	"github.com/typhfeng/pulse/internal/types"
)

func testSnapshot() *types.DashboardSnapshot {
	at := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	return &types.DashboardSnapshot{
		ScanID:      "scan-1",
		GeneratedAt: at,
		Owner:       "typhfeng",
		Summary: types.Summary{
			TotalRepos: 2, ActiveRepos30d: 1,
			TotalCommits30d: 12, TotalIssueHits: 4,
		},
		Tracks: map[types.Track]*types.TrackSummary{
			types.TrackFinance: {
				Track: types.TrackFinance, Label: "Finance",
				Repos: 1, ActiveRepos: 1, Commits30d: 12, Issues: 4, AvgProgress: 58.0,
			},
			types.TrackFamily: {Track: types.TrackFamily, Label: "Family", Repos: 1},
		},
		Repos: []*types.RepoRecord{
			{
				ID: "aaa111", Name: "trader-bot", Track: types.TrackFinance,
				Git: types.RepoGitState{
					Commits:    types.CommitWindows{Last30d: 12},
					Dirty:      types.DirtyCounts{Modified: 1, Untracked: 2},
					LastCommit: &types.CommitEntry{Hash: "abc", Date: at.Add(-26 * time.Hour)},
				},
				Issues:   types.IssueSummary{Total: 4},
				Progress: types.Progress{Score: 58, Stage: types.StageAccelerating},
			},
			{
				ID: "bbb222", Name: "home-ops", Track: types.TrackFamily,
				Progress: types.Progress{Score: 0, Stage: types.StageNotStarted},
			},
		},
	}
}

func TestBuildBaseline(t *testing.T) {
	out := Build(testSnapshot(), Options{})

	require.Contains(t, out, "# Project Track Baseline (2025-06-02)")
	require.Contains(t, out, "- Owner: typhfeng")
	require.Contains(t, out, "- Total repos: 2\n")
	require.Contains(t, out, "## Finance")
	require.Contains(t, out, "avg progress: 58.0")
	require.Contains(t, out, "| trader-bot | 58 | Accelerating | 12 | 3 | 2025-06-01 |")
	require.Contains(t, out, "| home-ops | 0 | Not Started | 0 | 0 | - |")

	// Tracks render in the fixed priority order.
	require.Less(t, strings.Index(out, "## Finance"), strings.Index(out, "## Family"))
	// Tracks with no repos in this snapshot are omitted entirely.
	require.NotContains(t, out, "## Engineering")
	// No baseline means no delta annotations.
	require.NotContains(t, out, "(+")
}

func TestBuildWithDeltas(t *testing.T) {
	snap := testSnapshot()
	baseline := &storage.ScanRecord{
		ID:          "scan-0",
		GeneratedAt: snap.GeneratedAt.AddDate(0, 0, -7),
		Summary: types.Summary{
			TotalRepos: 2, ActiveRepos30d: 2,
			TotalCommits30d: 5, TotalIssueHits: 4,
		},
	}

	out := Build(snap, Options{
		Baseline:       baseline,
		BaselineScores: map[string]int{"aaa111": 40},
	})

	require.Contains(t, out, "- Commits (30d): 12 (+7)")
	require.Contains(t, out, "- Active repos (30d): 1 (-1)")
	// Unchanged counters carry no annotation.
	require.Contains(t, out, "- Total repos: 2\n")
	require.Contains(t, out, "- Compared against: 2025-05-26")
	require.Contains(t, out, "| trader-bot | 58 (+18) |")
	// Repos absent from the baseline render without a delta.
	require.Contains(t, out, "| home-ops | 0 |")
}

func TestWriteNamesFileByDate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := Write(dir, testSnapshot(), Options{})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "2025-06-02-baseline.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(content), "# Project Track Baseline"))
}
