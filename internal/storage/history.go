// Package storage persists scan history so reports can show movement
// between scans, not just the current state.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/typhfeng/pulse/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id                TEXT PRIMARY KEY,
	generated_at      TIMESTAMP NOT NULL,
	owner             TEXT NOT NULL DEFAULT '',
	total_repos       INTEGER NOT NULL,
	active_repos_30d  INTEGER NOT NULL,
	total_commits_30d INTEGER NOT NULL,
	total_commits_90d INTEGER NOT NULL,
	dirty_repos       INTEGER NOT NULL,
	total_issue_hits  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_generated_at ON scans(generated_at);

CREATE TABLE IF NOT EXISTS scan_tracks (
	scan_id      TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
	track        TEXT NOT NULL,
	repos        INTEGER NOT NULL,
	active_repos INTEGER NOT NULL,
	commits_30d  INTEGER NOT NULL,
	commits_90d  INTEGER NOT NULL,
	issues       INTEGER NOT NULL,
	avg_progress REAL NOT NULL,
	PRIMARY KEY (scan_id, track)
);

CREATE TABLE IF NOT EXISTS scan_repos (
	scan_id     TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
	repo_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	path        TEXT NOT NULL,
	track       TEXT NOT NULL,
	score       INTEGER NOT NULL,
	stage       TEXT NOT NULL,
	commits_30d INTEGER NOT NULL,
	dirty_files INTEGER NOT NULL,
	issue_hits  INTEGER NOT NULL,
	PRIMARY KEY (scan_id, repo_id)
);
`

// History is the scan-history store, backed by SQLite.
type History struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database at path.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close releases the database handle.
func (h *History) Close() error {
	return h.db.Close()
}

// RecordSnapshot appends one scan's rollups to the history. The full
// search pool and git state are deliberately not persisted; history
// exists for deltas, the snapshot cache serves current detail.
func (h *History) RecordSnapshot(ctx context.Context, snap *types.DashboardSnapshot) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting history transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (id, generated_at, owner, total_repos, active_repos_30d,
			total_commits_30d, total_commits_90d, dirty_repos, total_issue_hits)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ScanID, snap.GeneratedAt.UTC(), snap.Owner,
		snap.Summary.TotalRepos, snap.Summary.ActiveRepos30d,
		snap.Summary.TotalCommits30d, snap.Summary.TotalCommits90d,
		snap.Summary.DirtyRepos, snap.Summary.TotalIssueHits)
	if err != nil {
		return fmt.Errorf("recording scan %s: %w", snap.ScanID, err)
	}

	for track, ts := range snap.Tracks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scan_tracks (scan_id, track, repos, active_repos,
				commits_30d, commits_90d, issues, avg_progress)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ScanID, string(track), ts.Repos, ts.ActiveRepos,
			ts.Commits30d, ts.Commits90d, ts.Issues, ts.AvgProgress)
		if err != nil {
			return fmt.Errorf("recording track %s: %w", track, err)
		}
	}

	for _, r := range snap.Repos {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scan_repos (scan_id, repo_id, name, path, track,
				score, stage, commits_30d, dirty_files, issue_hits)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ScanID, r.ID, r.Name, r.Path, string(r.Track),
			r.Progress.Score, string(r.Progress.Stage),
			r.Git.Commits.Last30d, r.Git.Dirty.Total(), r.Issues.Total)
		if err != nil {
			return fmt.Errorf("recording repo %s: %w", r.Name, err)
		}
	}

	return tx.Commit()
}

// ScanRecord is one persisted scan rollup.
type ScanRecord struct {
	ID          string
	GeneratedAt time.Time
	Owner       string
	Summary     types.Summary
}

func scanRecordFromRow(row *sql.Row) (*ScanRecord, error) {
	var rec ScanRecord
	err := row.Scan(&rec.ID, &rec.GeneratedAt, &rec.Owner,
		&rec.Summary.TotalRepos, &rec.Summary.ActiveRepos30d,
		&rec.Summary.TotalCommits30d, &rec.Summary.TotalCommits90d,
		&rec.Summary.DirtyRepos, &rec.Summary.TotalIssueHits)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading scan record: %w", err)
	}
	return &rec, nil
}

const scanColumns = `id, generated_at, owner, total_repos, active_repos_30d,
	total_commits_30d, total_commits_90d, dirty_repos, total_issue_hits`

// Latest returns the most recent recorded scan, or nil when the history
// is empty.
func (h *History) Latest(ctx context.Context) (*ScanRecord, error) {
	row := h.db.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM scans ORDER BY generated_at DESC LIMIT 1`)
	return scanRecordFromRow(row)
}

// Before returns the newest scan strictly older than cutoff, or nil.
// Reports use it as the comparison baseline ("a week ago").
func (h *History) Before(ctx context.Context, cutoff time.Time) (*ScanRecord, error) {
	row := h.db.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE generated_at < ? ORDER BY generated_at DESC LIMIT 1`,
		cutoff.UTC())
	return scanRecordFromRow(row)
}

// RepoScores returns repo_id -> score for one recorded scan.
func (h *History) RepoScores(ctx context.Context, scanID string) (map[string]int, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT repo_id, score FROM scan_repos WHERE scan_id = ?`, scanID)
	if err != nil {
		return nil, fmt.Errorf("reading repo scores for %s: %w", scanID, err)
	}
	defer rows.Close()

	scores := make(map[string]int)
	for rows.Next() {
		var id string
		var score int
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scanning repo score: %w", err)
		}
		scores[id] = score
	}
	return scores, rows.Err()
}

// TrackHistory returns the per-track rollups for one recorded scan.
func (h *History) TrackHistory(ctx context.Context, scanID string) (map[types.Track]*types.TrackSummary, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT track, repos, active_repos, commits_30d, commits_90d, issues, avg_progress
		FROM scan_tracks WHERE scan_id = ?`, scanID)
	if err != nil {
		return nil, fmt.Errorf("reading track history for %s: %w", scanID, err)
	}
	defer rows.Close()

	tracks := make(map[types.Track]*types.TrackSummary)
	for rows.Next() {
		var ts types.TrackSummary
		var track string
		if err := rows.Scan(&track, &ts.Repos, &ts.ActiveRepos,
			&ts.Commits30d, &ts.Commits90d, &ts.Issues, &ts.AvgProgress); err != nil {
			return nil, fmt.Errorf("scanning track history: %w", err)
		}
		ts.Track = types.Track(track)
		ts.Label = ts.Track.Label()
		tracks[ts.Track] = &ts
	}
	return tracks, rows.Err()
}

// Prune deletes scans recorded before cutoff. Track and repo rows
// cascade.
func (h *History) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM scans WHERE generated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}
