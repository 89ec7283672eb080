// Package progress converts a repository's git state and issue density
// into a bounded progress score and a lifecycle stage.
package progress

import (
	"time"

	"github.com/typhfeng/pulse/internal/types"
)

// Weights holds the scoring constants. They are configuration, not
// magic: each one names the signal it shapes and the defaults are
// chosen so a repository touched today with moderate activity and a
// clean tree lands in the 60–85 band.
type Weights struct {
	// Base is the floor every repository with at least one commit gets,
	// so an idle-but-real project does not read as zero.
	Base int

	// RecencyMax is the full recency credit; it decays linearly to zero
	// over RecencyWindowDays since the last commit.
	RecencyMax        int
	RecencyWindowDays int

	// ActivityPerCommit is the credit per commit in the trailing 30
	// days, saturating at ActivityMax so a rebase storm cannot dominate.
	ActivityPerCommit int
	ActivityMax       int

	// DirtyPenaltyPerFile charges each uncommitted file, capped at
	// DirtyPenaltyMax.
	DirtyPenaltyPerFile int
	DirtyPenaltyMax     int

	// IssuePenaltyDivisor converts mined issue hits into penalty points
	// (one point per divisor hits), capped at IssuePenaltyMax.
	IssuePenaltyDivisor int
	IssuePenaltyMax     int
}

// DefaultWeights returns the standard scoring constants.
func DefaultWeights() Weights {
	return Weights{
		Base:                20,
		RecencyMax:          30,
		RecencyWindowDays:   30,
		ActivityPerCommit:   3,
		ActivityMax:         35,
		DirtyPenaltyPerFile: 2,
		DirtyPenaltyMax:     20,
		IssuePenaltyDivisor: 30,
		IssuePenaltyMax:     10,
	}
}

// Stage thresholds, separate from the score: stages follow qualitative
// rules on the raw signals, not score bands.
const (
	stalledIdleDays      = 90
	acceleratingCommits  = 12
	acceleratingIdleDays = 7
	inProgressCommits    = 4
	inProgressIdleDays   = 30
	maintainingIdleDays  = 60
)

// Scorer computes progress scores. The zero value is not usable; create
// one with NewScorer.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer with the given weights.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score is a pure function of the git state and the issue count,
// anchored at now. It is monotonic in each signal holding the others
// fixed: more recent or more frequent commits never lower the score,
// and more issues or more dirty files never raise it.
func (s *Scorer) Score(state *types.RepoGitState, issueCount int, now time.Time) types.Progress {
	if state == nil || !state.HasCommits() {
		return types.Progress{Score: 0, Stage: types.StageNotStarted}
	}

	w := s.weights
	daysSince := daysBetween(state.LastCommit.Date, now)
	commits30 := state.Commits.Last30d
	dirty := state.Dirty.Total()

	recency := w.RecencyMax - min(daysSince, w.RecencyWindowDays)*w.RecencyMax/w.RecencyWindowDays
	activity := min(commits30*w.ActivityPerCommit, w.ActivityMax)
	dirtyPenalty := min(dirty*w.DirtyPenaltyPerFile, w.DirtyPenaltyMax)
	issuePenalty := min(issueCount/w.IssuePenaltyDivisor, w.IssuePenaltyMax)

	score := w.Base + recency + activity - dirtyPenalty - issuePenalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return types.Progress{Score: score, Stage: stage(daysSince, commits30)}
}

// stage applies the qualitative lifecycle rules.
func stage(daysSince, commits30 int) types.Stage {
	switch {
	case commits30 == 0 && daysSince > stalledIdleDays:
		return types.StageStalled
	case commits30 >= acceleratingCommits && daysSince <= acceleratingIdleDays:
		return types.StageAccelerating
	case commits30 >= inProgressCommits && daysSince <= inProgressIdleDays:
		return types.StageInProgress
	case daysSince <= maintainingIdleDays:
		return types.StageMaintaining
	default:
		return types.StageAtRisk
	}
}

func daysBetween(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
