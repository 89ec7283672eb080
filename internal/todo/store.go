// Package todo reads and writes per-repository task files.
package todo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/typhfeng/pulse/internal/git"
	"github.com/typhfeng/pulse/internal/types"
)

// ErrStaleIndex rejects an edit whose index no longer exists in the
// freshly re-read file. This defends against concurrent external edits:
// the mutation is refused, the file is untouched.
var ErrStaleIndex = errors.New("stale todo index")

// FileName is the task file name inside each repository.
const FileName = "TODO.md"

var reEntry = regexp.MustCompile(`^- \[( |x|X)\] (.*)$`)

// Store manages task files. Mutations on the same repository are
// serialized, and every mutation re-parses the file from disk right
// before writing; no in-memory copy survives across calls.
type Store struct {
	inspector *git.Inspector
	locks     sync.Map // repo path -> *sync.Mutex
}

// NewStore creates a Store. The inspector is used for the optional
// commit+push after a mutation; it may be nil when persistence to the
// remote is never requested.
func NewStore(inspector *git.Inspector) *Store {
	return &Store{inspector: inspector}
}

func (s *Store) lockFor(repoPath string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(repoPath, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func todoPath(repoPath string) string {
	return filepath.Join(repoPath, FileName)
}

// parse reads the task file and assigns each entry its ordinal index.
// A missing file parses as an empty list.
func parse(repoPath string) ([]types.TodoEntry, []string, error) {
	data, err := os.ReadFile(todoPath(repoPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading %s: %w", todoPath(repoPath), err)
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	var entries []types.TodoEntry
	for lineNo, line := range lines {
		m := reEntry.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, types.TodoEntry{
			Index:  len(entries),
			LineNo: lineNo + 1,
			Done:   strings.EqualFold(m[1], "x"),
			Text:   strings.TrimSpace(m[2]),
		})
	}
	return entries, lines, nil
}

// List returns the repository's entries in file order.
func (s *Store) List(repoPath string) ([]types.TodoEntry, error) {
	entries, _, err := parse(repoPath)
	return entries, err
}

// MutationResult reports a todo mutation and its optional persistence to
// the remote. The text mutation and the commit are independent: a
// mutation that landed on disk but failed to commit or push is a valid
// partial result.
type MutationResult struct {
	Entry  *types.TodoEntry  `json:"entry,omitempty"`
	Commit *git.CommitResult `json:"commit,omitempty"`
	// CommitError carries the commit failure when the mutation itself
	// succeeded.
	CommitError string `json:"commit_error,omitempty"`
}

// CommitOptions controls the optional commit+push after a mutation.
// Push implies Commit.
type CommitOptions struct {
	Commit  bool
	Push    bool
	Message string
}

// Append adds an entry, creating the task file with a header if needed.
func (s *Store) Append(ctx context.Context, repoPath, text string, opts CommitOptions) (*MutationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("todo text is required")
	}

	lock := s.lockFor(repoPath)
	lock.Lock()
	defer lock.Unlock()

	path := todoPath(repoPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("# TODO\n\n"), 0644); err != nil {
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "- [ ] %s\n", text); err != nil {
		f.Close()
		return nil, fmt.Errorf("appending to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", path, err)
	}

	result := &MutationResult{}
	entries, _, err := parse(repoPath)
	if err == nil && len(entries) > 0 {
		last := entries[len(entries)-1]
		result.Entry = &last
	}

	s.maybeCommit(ctx, repoPath, opts, result)
	return result, nil
}

// Patch describes an edit. Nil fields leave the current value in place.
type Patch struct {
	Text *string
	Done *bool
}

// Edit locates the entry by index against the freshly re-read file and
// rewrites it. A stale index fails with ErrStaleIndex before anything
// is written.
func (s *Store) Edit(ctx context.Context, repoPath string, index int, patch Patch, opts CommitOptions) (*MutationResult, error) {
	lock := s.lockFor(repoPath)
	lock.Lock()
	defer lock.Unlock()

	entries, lines, err := parse(repoPath)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(entries) {
		return nil, fmt.Errorf("%w: %d (file has %d entries)", ErrStaleIndex, index, len(entries))
	}

	entry := entries[index]
	if patch.Text != nil {
		entry.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.Done != nil {
		entry.Done = *patch.Done
	}

	mark := " "
	if entry.Done {
		mark = "x"
	}
	lines[entry.LineNo-1] = fmt.Sprintf("- [%s] %s", mark, entry.Text)

	path := todoPath(repoPath)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	result := &MutationResult{Entry: &entry}
	s.maybeCommit(ctx, repoPath, opts, result)
	return result, nil
}

// Toggle flips or sets the done state of an entry.
func (s *Store) Toggle(ctx context.Context, repoPath string, index int, done bool, opts CommitOptions) (*MutationResult, error) {
	return s.Edit(ctx, repoPath, index, Patch{Done: &done}, opts)
}

// maybeCommit runs the optional commit+push. The mutation already
// succeeded; commit failures are recorded on the result, never returned.
func (s *Store) maybeCommit(ctx context.Context, repoPath string, opts CommitOptions, result *MutationResult) {
	if (!opts.Commit && !opts.Push) || s.inspector == nil {
		return
	}
	message := opts.Message
	if message == "" {
		message = "chore(todo): update task list"
	}
	commit, err := s.inspector.Commit(ctx, repoPath, message, opts.Push)
	if err != nil {
		result.CommitError = err.Error()
		return
	}
	result.Commit = commit
}
