package git

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// repoLocks serializes mutating operations per repository. Mutations on
// different repositories proceed independently; a pull and a commit on
// the same working tree must never race.
type repoLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (r *repoLocks) forRepo(path string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks == nil {
		r.locks = make(map[string]*sync.Mutex)
	}
	if _, ok := r.locks[path]; !ok {
		r.locks[path] = &sync.Mutex{}
	}
	return r.locks[path]
}

// SyncResult reports the outcome of a fast-forward pull.
type SyncResult struct {
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
}

// Sync fast-forwards the repository from its origin. A pull that cannot
// fast-forward (diverged history, or a dirty tree blocking the merge)
// fails with ErrSyncConflict carrying the git output; it is surfaced to
// the caller, never retried.
func (in *Inspector) Sync(ctx context.Context, repoPath string) (*SyncResult, error) {
	if err := in.checkRepo(repoPath); err != nil {
		return nil, err
	}

	lock := in.locks.forRepo(repoPath)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	out, err := in.runCombined(ctx, repoPath, "pull", "--ff-only")
	result := &SyncResult{Output: out, Duration: time.Since(start)}
	if err != nil {
		return result, fmt.Errorf("%w in %s: %s", ErrSyncConflict, repoPath, firstLine(out))
	}
	return result, nil
}

// CommitResult reports a commit and its optional push. Committed and
// Pushed are independent: a commit that landed locally but failed to
// push is a valid, recoverable partial result.
type CommitResult struct {
	Hash      string `json:"hash"`
	Committed bool   `json:"committed"`
	Pushed    bool   `json:"pushed"`
	PushError string `json:"push_error,omitempty"`
}

// ShortHash returns the abbreviated commit hash, or "" when the hash
// could not be read back after the commit.
func (r *CommitResult) ShortHash() string {
	if len(r.Hash) > 12 {
		return r.Hash[:12]
	}
	return r.Hash
}

// Commit stages everything and commits with the given message. A clean
// tree fails with ErrNothingToCommit. When push is true the commit is
// pushed to origin; a push failure is reported in the result, not as an
// error, since the commit itself succeeded.
func (in *Inspector) Commit(ctx context.Context, repoPath, message string, push bool) (*CommitResult, error) {
	if message == "" {
		return nil, fmt.Errorf("%w: commit message is required", ErrCommitFailed)
	}
	if err := in.checkRepo(repoPath); err != nil {
		return nil, err
	}

	lock := in.locks.forRepo(repoPath)
	lock.Lock()
	defer lock.Unlock()

	if out, err := in.runCombined(ctx, repoPath, "add", "-A"); err != nil {
		return nil, fmt.Errorf("%w: git add in %s: %s", ErrCommitFailed, repoPath, firstLine(out))
	}

	out, err := in.runCombined(ctx, repoPath, "commit", "-m", message)
	if err != nil {
		if strings.Contains(strings.ToLower(out), "nothing to commit") {
			return nil, fmt.Errorf("%w in %s", ErrNothingToCommit, repoPath)
		}
		return nil, fmt.Errorf("%w in %s: %s", ErrCommitFailed, repoPath, firstLine(out))
	}

	result := &CommitResult{Committed: true}
	if hash, err := in.run(ctx, repoPath, "rev-parse", "HEAD"); err == nil {
		result.Hash = hash
	}

	if push {
		if pushOut, err := in.runCombined(ctx, repoPath, "push", "origin", "HEAD"); err != nil {
			result.PushError = firstLine(pushOut)
		} else {
			result.Pushed = true
		}
	}

	return result, nil
}

// Push pushes HEAD to origin.
func (in *Inspector) Push(ctx context.Context, repoPath string) error {
	if err := in.checkRepo(repoPath); err != nil {
		return err
	}

	lock := in.locks.forRepo(repoPath)
	lock.Lock()
	defer lock.Unlock()

	if out, err := in.runCombined(ctx, repoPath, "push", "origin", "HEAD"); err != nil {
		return fmt.Errorf("%w in %s: %s", ErrPushFailed, repoPath, firstLine(out))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
