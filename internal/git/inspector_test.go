package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// initTestRepo creates a git repository in a temp dir with user config
// set so commits work.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	for _, args := range [][]string{
		{"init"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if err := cmd.Run(); err != nil {
			t.Fatalf("git %v failed: %v", args, err)
		}
	}
	return dir
}

func commitFile(t *testing.T, dir, name, content, message string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	for _, args := range [][]string{
		{"add", "-A"},
		{"commit", "-m", message},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if err := cmd.Run(); err != nil {
			t.Fatalf("git %v failed: %v", args, err)
		}
	}
}

func newTestInspector(t *testing.T) *Inspector {
	t.Helper()
	in, err := NewInspector(context.Background())
	if err != nil {
		t.Fatalf("NewInspector failed: %v", err)
	}
	return in
}

func TestStateInputErrors(t *testing.T) {
	ctx := context.Background()
	in := newTestInspector(t)

	t.Run("PathUnavailable", func(t *testing.T) {
		_, err := in.State(ctx, "/nonexistent/path/for/sure", time.Now())
		if !errors.Is(err, ErrPathUnavailable) {
			t.Errorf("expected ErrPathUnavailable, got %v", err)
		}
	})

	t.Run("NotARepository", func(t *testing.T) {
		_, err := in.State(ctx, t.TempDir(), time.Now())
		if !errors.Is(err, ErrNotARepository) {
			t.Errorf("expected ErrNotARepository, got %v", err)
		}
	})
}

func TestStateEmptyRepo(t *testing.T) {
	ctx := context.Background()
	in := newTestInspector(t)
	dir := initTestRepo(t)

	state, err := in.State(ctx, dir, time.Now())
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}

	if state.HasCommits() {
		t.Error("expected no commits in fresh repo")
	}
	if state.Commits.Last30d != 0 {
		t.Errorf("expected 0 commits in 30d, got %d", state.Commits.Last30d)
	}
	if len(state.WeeklyCommits) != 12 {
		t.Errorf("expected 12 weekly buckets, got %d", len(state.WeeklyCommits))
	}
}

func TestStateWithCommitsAndDirt(t *testing.T) {
	ctx := context.Background()
	in := newTestInspector(t)
	dir := initTestRepo(t)

	commitFile(t, dir, "a.txt", "hello", "add a")
	commitFile(t, dir, "b.txt", "world", "add b")

	// One modified, one untracked.
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("changed"), 0644); err != nil {
		t.Fatalf("modify a.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("create new.txt: %v", err)
	}

	now := time.Now()
	state, err := in.State(ctx, dir, now)
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}

	if !state.HasCommits() {
		t.Fatal("expected commits")
	}
	if state.LastCommit.Subject != "add b" {
		t.Errorf("expected last commit subject 'add b', got %q", state.LastCommit.Subject)
	}
	if state.LastCommit.Hash == "" {
		t.Error("expected a commit hash")
	}
	if time.Since(state.LastCommit.Date) > time.Hour {
		t.Errorf("last commit date looks wrong: %v", state.LastCommit.Date)
	}
	if state.Dirty.Modified != 1 {
		t.Errorf("expected 1 modified, got %d", state.Dirty.Modified)
	}
	if state.Dirty.Untracked != 1 {
		t.Errorf("expected 1 untracked, got %d", state.Dirty.Untracked)
	}
	if state.Commits.Last7d != 2 || state.Commits.Last30d != 2 || state.Commits.Last90d != 2 {
		t.Errorf("expected 2 commits in every window, got %+v", state.Commits)
	}

	// Both commits land in the current week's bucket (the last one).
	last := state.WeeklyCommits[len(state.WeeklyCommits)-1]
	if last != 2 {
		t.Errorf("expected 2 commits in current week bucket, got %d (%v)", last, state.WeeklyCommits)
	}

	if len(state.ChangedFilesLastCommit) != 1 || state.ChangedFilesLastCommit[0] != "b.txt" {
		t.Errorf("expected changed files [b.txt], got %v", state.ChangedFilesLastCommit)
	}
}

func TestRecentCommits(t *testing.T) {
	ctx := context.Background()
	in := newTestInspector(t)
	dir := initTestRepo(t)

	commitFile(t, dir, "a.txt", "1", "first")
	commitFile(t, dir, "a.txt", "2", "second")
	commitFile(t, dir, "a.txt", "3", "third")

	commits, err := in.RecentCommits(ctx, dir, 2)
	if err != nil {
		t.Fatalf("RecentCommits failed: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}
	if commits[0].Subject != "third" || commits[1].Subject != "second" {
		t.Errorf("unexpected order: %q, %q", commits[0].Subject, commits[1].Subject)
	}
}
