package types

import (
	"testing"
	"time"
)

func TestTrackValidity(t *testing.T) {
	for _, track := range AllTracks() {
		if !track.IsValid() {
			t.Errorf("track %q should be valid", track)
		}
		if track.Label() == string(track) {
			t.Errorf("track %q has no display label", track)
		}
	}
	if Track("gardening").IsValid() {
		t.Error("unknown track reported valid")
	}
}

func TestRepoIDStableAndShort(t *testing.T) {
	a := RepoID("/home/t/projects/trader-bot")
	if len(a) != 12 {
		t.Fatalf("RepoID length = %d, want 12", len(a))
	}
	if a != RepoID("/home/t/projects/trader-bot") {
		t.Error("RepoID is not stable for the same path")
	}
	if a == RepoID("/home/t/projects/chipgen") {
		t.Error("distinct paths collided")
	}
}

func TestWeekLabelISO(t *testing.T) {
	// Jan 1 2025 falls in ISO week 2025-W01; Dec 29 2024 already does too.
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "2025-W01"},
		{time.Date(2024, 12, 29, 0, 0, 0, 0, time.UTC), "2024-W52"},
		{time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), "2025-W01"},
		{time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), "2025-W23"},
	}
	for _, tc := range cases {
		if got := WeekLabel(tc.date); got != tc.want {
			t.Errorf("WeekLabel(%s) = %q, want %q", tc.date.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestWeekLabelsWindow(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	labels := WeekLabels(now)
	if len(labels) != TrendWeeks {
		t.Fatalf("got %d labels, want %d", len(labels), TrendWeeks)
	}
	if labels[TrendWeeks-1] != WeekLabel(now) {
		t.Errorf("newest label = %q, want %q", labels[TrendWeeks-1], WeekLabel(now))
	}
	if labels[0] != WeekLabel(now.AddDate(0, 0, -7*(TrendWeeks-1))) {
		t.Errorf("oldest label = %q", labels[0])
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			t.Errorf("duplicate label %q", l)
		}
		seen[l] = true
	}
}

func TestDirtyCountsTotal(t *testing.T) {
	d := DirtyCounts{Modified: 3, Untracked: 2}
	if d.Total() != 5 {
		t.Errorf("Total() = %d, want 5", d.Total())
	}
}

func TestRepoByID(t *testing.T) {
	snap := &DashboardSnapshot{
		Repos: []*RepoRecord{
			{ID: "aaa", Name: "one"},
			{ID: "bbb", Name: "two"},
		},
	}
	if r := snap.RepoByID("bbb"); r == nil || r.Name != "two" {
		t.Errorf("RepoByID(bbb) = %+v", r)
	}
	if r := snap.RepoByID("zzz"); r != nil {
		t.Errorf("RepoByID(zzz) = %+v, want nil", r)
	}
}

func TestHasCommits(t *testing.T) {
	var s RepoGitState
	if s.HasCommits() {
		t.Error("empty state reports commits")
	}
	s.LastCommit = &CommitEntry{Hash: "abc"}
	if !s.HasCommits() {
		t.Error("state with last commit reports none")
	}
}
