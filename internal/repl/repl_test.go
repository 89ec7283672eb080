package repl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/typhfeng/pulse/internal/cache"
	"github.com/typhfeng/pulse/internal/types"
)

func newTestREPL(t *testing.T) *REPL {
	t.Helper()
	compute := func(ctx context.Context) (*types.DashboardSnapshot, error) {
		return &types.DashboardSnapshot{
			GeneratedAt: time.Now(),
			Summary:     types.Summary{TotalRepos: 1},
			Tracks: map[types.Track]*types.TrackSummary{
				types.TrackFinance: {Track: types.TrackFinance, Label: "Finance", Repos: 1, AvgProgress: 50},
			},
			Repos: []*types.RepoRecord{
				{ID: "aaa", Name: "trader-bot", Track: types.TrackFinance},
			},
			SearchPool: []types.IssueHit{
				{Repo: "trader-bot", Title: "main.go:3", Content: "TODO: hedge", Type: types.HitTypeCode},
			},
		}, nil
	}
	r, err := New(&Config{Cache: cache.New(compute, time.Hour)})
	require.NoError(t, err)
	r.ctx = context.Background()
	return r
}

func TestNewRequiresCache(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	_, err = New(&Config{})
	require.Error(t, err)
}

func TestProcessInputDispatch(t *testing.T) {
	r := newTestREPL(t)

	// Registered commands dispatch; unknown words fall through to search.
	require.NoError(t, r.processInput("help"))
	require.NoError(t, r.processInput("repos"))
	require.NoError(t, r.processInput("refresh"))
	require.NoError(t, r.processInput("search hedge"))
	require.NoError(t, r.processInput("hedge positions"))

	require.Error(t, r.processInput("track"))
	require.Error(t, r.processInput("track gardening"))
	require.NoError(t, r.processInput("track finance"))
}
