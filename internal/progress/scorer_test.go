package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/typhfeng/pulse/internal/types"
)

func stateWith(lastCommitAgo time.Duration, commits30, modified, untracked int, now time.Time) *types.RepoGitState {
	return &types.RepoGitState{
		Branch:     "main",
		Dirty:      types.DirtyCounts{Modified: modified, Untracked: untracked},
		LastCommit: &types.CommitEntry{Hash: "abc", Date: now.Add(-lastCommitAgo)},
		Commits:    types.CommitWindows{Last30d: commits30, Last90d: commits30},
	}
}

func TestScoreZeroCommitsIsNotStarted(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	now := time.Now()

	p := scorer.Score(&types.RepoGitState{Branch: "main"}, 0, now)
	assert.Equal(t, 0, p.Score)
	assert.Equal(t, types.StageNotStarted, p.Stage)

	p = scorer.Score(nil, 0, now)
	assert.Equal(t, types.StageNotStarted, p.Stage)
}

func TestScoreBounds(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	now := time.Now()

	t.Run("FreshActiveRepoScoresHigh", func(t *testing.T) {
		p := scorer.Score(stateWith(2*time.Hour, 20, 0, 0, now), 0, now)
		// base 20 + recency 30 + activity 35 (saturated).
		assert.Equal(t, 85, p.Score)
	})

	t.Run("NeverBelowZero", func(t *testing.T) {
		p := scorer.Score(stateWith(200*24*time.Hour, 0, 50, 50, now), 10000, now)
		assert.Equal(t, 0, p.Score)
	})

	t.Run("ActivitySaturates", func(t *testing.T) {
		at12 := scorer.Score(stateWith(time.Hour, 12, 0, 0, now), 0, now)
		at200 := scorer.Score(stateWith(time.Hour, 200, 0, 0, now), 0, now)
		assert.Equal(t, at12.Score, at200.Score, "activity credit must saturate")
	})
}

func TestScoreMonotonicInCommits(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	now := time.Now()

	prev := -1
	for commits := 0; commits <= 40; commits++ {
		p := scorer.Score(stateWith(24*time.Hour, commits, 3, 1, now), 60, now)
		assert.GreaterOrEqual(t, p.Score, prev,
			"more 30d commits must never decrease the score (at %d commits)", commits)
		prev = p.Score
	}
}

func TestScoreMonotonicInIssues(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	now := time.Now()

	prev := 101
	for issues := 0; issues <= 600; issues += 15 {
		p := scorer.Score(stateWith(24*time.Hour, 5, 0, 0, now), issues, now)
		assert.LessOrEqual(t, p.Score, prev,
			"more issues must never increase the score (at %d issues)", issues)
		prev = p.Score
	}
}

func TestScoreMonotonicInRecency(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	now := time.Now()

	prev := 101
	for days := 0; days <= 120; days += 5 {
		p := scorer.Score(stateWith(time.Duration(days)*24*time.Hour, 5, 0, 0, now), 0, now)
		assert.LessOrEqual(t, p.Score, prev,
			"an older last commit must never increase the score (at %d days)", days)
		prev = p.Score
	}
}

func TestStages(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	now := time.Now()

	cases := []struct {
		name     string
		ago      time.Duration
		commits  int
		want     types.Stage
	}{
		{"Accelerating", 24 * time.Hour, 15, types.StageAccelerating},
		{"InProgress", 10 * 24 * time.Hour, 6, types.StageInProgress},
		{"Maintaining", 45 * 24 * time.Hour, 1, types.StageMaintaining},
		{"AtRisk", 70 * 24 * time.Hour, 0, types.StageAtRisk},
		{"Stalled", 120 * 24 * time.Hour, 0, types.StageStalled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := scorer.Score(stateWith(tc.ago, tc.commits, 0, 0, now), 0, now)
			assert.Equal(t, tc.want, p.Stage)
		})
	}
}
