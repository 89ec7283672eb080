package git

import "errors"

// Inspection input errors. A repository failing with one of these is
// dropped from the snapshot with a logged reason; the scan proceeds.
var (
	// ErrPathUnavailable means the repository path does not exist or is
	// not readable.
	ErrPathUnavailable = errors.New("repository path unavailable")

	// ErrNotARepository means the path exists but is not a git working
	// copy.
	ErrNotARepository = errors.New("not a git repository")
)

// Mutation errors. These are reported to the caller verbatim and never
// retried automatically: retrying a conflicted merge or a failed push
// without human judgment risks data loss.
var (
	// ErrSyncConflict means a pull could not fast-forward, usually
	// because the working tree or local history is in the way.
	ErrSyncConflict = errors.New("sync conflict")

	// ErrNothingToCommit means the working tree was clean.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrCommitFailed wraps any other commit failure.
	ErrCommitFailed = errors.New("commit failed")

	// ErrPushFailed wraps a push failure. A commit that landed locally
	// but failed to push is a partial result, not a rollback.
	ErrPushFailed = errors.New("push failed")
)
