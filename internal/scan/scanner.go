// Package scan runs the full discovery-to-snapshot pipeline and folds
// per-repository results into one dashboard snapshot.
package scan

import (
	"context"
	"log"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/typhfeng/pulse/internal/config"
	"github.com/typhfeng/pulse/internal/discovery"
	"github.com/typhfeng/pulse/internal/git"
	"github.com/typhfeng/pulse/internal/mining"
	"github.com/typhfeng/pulse/internal/progress"
	"github.com/typhfeng/pulse/internal/types"
)

// Scanner composes discovery, git inspection, issue mining and progress
// scoring into full dashboard scans.
type Scanner struct {
	cfg        *config.Config
	discoverer *discovery.Discoverer
	inspector  *git.Inspector
	miner      *mining.Miner
	scorer     *progress.Scorer
	clock      func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock injects the scan anchor time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Scanner) { s.clock = clock }
}

// New creates a Scanner over the given collaborators.
func New(cfg *config.Config, d *discovery.Discoverer, in *git.Inspector, m *mining.Miner, sc *progress.Scorer, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:        cfg,
		discoverer: d,
		inspector:  in,
		miner:      m,
		scorer:     sc,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan discovers every tracked repository, inspects and mines each one
// with bounded parallelism, and folds the results into a snapshot.
// A repository whose inspection fails is dropped from the snapshot with
// a logged reason; it never fails the scan.
func (s *Scanner) Scan(ctx context.Context) (*types.DashboardSnapshot, error) {
	now := s.clock()

	repos, err := s.discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}

	records := s.inspectAll(ctx, repos, now)
	return s.fold(records, now), nil
}

// ScanRepo rebuilds the record for a single repository, for detail
// views that want fresher data than the cached snapshot.
func (s *Scanner) ScanRepo(ctx context.Context, repo discovery.TrackedRepo) (*types.RepoRecord, error) {
	return s.inspectOne(ctx, repo, s.clock())
}

func (s *Scanner) inspectAll(ctx context.Context, repos []discovery.TrackedRepo, now time.Time) []*types.RepoRecord {
	parallelism := s.cfg.ScanConcurrency
	if parallelism < 1 {
		parallelism = config.DefaultScanConcurrency
	}
	sem := semaphore.NewWeighted(int64(parallelism))

	results := make([]*types.RepoRecord, len(repos))
	var wg sync.WaitGroup
	for i, repo := range repos {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, repo discovery.TrackedRepo) {
			defer wg.Done()
			defer sem.Release(1)
			record, err := s.inspectOne(ctx, repo, now)
			if err != nil {
				log.Printf("scan: dropping %s: %v", repo.Path, err)
				return
			}
			results[i] = record
		}(i, repo)
	}
	wg.Wait()

	records := make([]*types.RepoRecord, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, r)
		}
	}
	return records
}

func (s *Scanner) inspectOne(ctx context.Context, repo discovery.TrackedRepo, now time.Time) (*types.RepoRecord, error) {
	state, err := s.inspector.State(ctx, repo.Path, now)
	if err != nil {
		return nil, err
	}

	hits := s.miner.MineFiles(ctx, repo.Path)
	alertDays := s.cfg.CommitAlertDays
	if alertDays > 0 {
		if commits, err := s.inspector.CommitsSince(ctx, repo.Path, alertDays); err == nil {
			hits = append(hits, s.miner.MineCommits(commits, s.cfg.MaxCommitAlerts)...)
		}
	}

	name := repo.Name
	if name == "" {
		name = filepath.Base(repo.Path)
	}

	id := types.RepoID(repo.Path)
	for i := range hits {
		hits[i].RepoID = id
		hits[i].Repo = name
		hits[i].Path = repo.Path
		hits[i].Track = repo.Track
	}

	record := &types.RepoRecord{
		ID:          id,
		Path:        repo.Path,
		Name:        name,
		DisplayName: name,
		Remote:      repo.Remote,
		Track:       repo.Track,
		Git:         *state,
		Issues:      types.IssueSummary{Total: len(hits), Hits: hits},
		Progress:    s.scorer.Score(state, len(hits), now),
		Module:      mining.ModulePath(repo.Path),
	}
	return record, nil
}

// fold builds the snapshot from per-repo records. Repos are ordered by
// (score, 30-day commits) descending so the dashboard leads with the
// healthiest work; the search pool is the flattened tagged hits in that
// same order.
func (s *Scanner) fold(records []*types.RepoRecord, now time.Time) *types.DashboardSnapshot {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Progress.Score != records[j].Progress.Score {
			return records[i].Progress.Score > records[j].Progress.Score
		}
		if records[i].Git.Commits.Last30d != records[j].Git.Commits.Last30d {
			return records[i].Git.Commits.Last30d > records[j].Git.Commits.Last30d
		}
		return records[i].Name < records[j].Name
	})

	snap := &types.DashboardSnapshot{
		ScanID:      uuid.NewString(),
		GeneratedAt: now,
		Owner:       s.cfg.Owner,
		ScanRoots:   s.cfg.ScanRoots,
		Tracks:      make(map[types.Track]*types.TrackSummary),
		Trend: types.Trend{
			Labels: types.WeekLabels(now),
			Series: make(map[types.Track][]int),
		},
		Repos: records,
	}

	for _, track := range types.AllTracks() {
		snap.Tracks[track] = &types.TrackSummary{Track: track, Label: track.Label()}
		snap.Trend.Series[track] = make([]int, types.TrendWeeks)
	}

	scoreSums := make(map[types.Track]int)
	for _, r := range records {
		snap.Summary.TotalRepos++
		snap.Summary.TotalCommits30d += r.Git.Commits.Last30d
		snap.Summary.TotalCommits90d += r.Git.Commits.Last90d
		snap.Summary.TotalIssueHits += r.Issues.Total
		active := r.Git.Commits.Last30d > 0
		if active {
			snap.Summary.ActiveRepos30d++
		}
		if r.Git.Dirty.Total() > 0 {
			snap.Summary.DirtyRepos++
		}

		ts := snap.Tracks[r.Track]
		if ts == nil {
			// A manifest can carry a track value this build no longer
			// knows; fold it rather than dropping the repo.
			ts = &types.TrackSummary{Track: r.Track, Label: r.Track.Label()}
			snap.Tracks[r.Track] = ts
			snap.Trend.Series[r.Track] = make([]int, types.TrendWeeks)
		}
		ts.Repos++
		if active {
			ts.ActiveRepos++
		}
		ts.Commits30d += r.Git.Commits.Last30d
		ts.Commits90d += r.Git.Commits.Last90d
		ts.Issues += r.Issues.Total
		scoreSums[r.Track] += r.Progress.Score

		series := snap.Trend.Series[r.Track]
		for i, n := range r.Git.WeeklyCommits {
			if i < len(series) {
				series[i] += n
			}
		}

		snap.SearchPool = append(snap.SearchPool, r.Issues.Hits...)
	}

	for track, ts := range snap.Tracks {
		if ts.Repos > 0 {
			ts.AvgProgress = math.Round(float64(scoreSums[track])/float64(ts.Repos)*10) / 10
		}
	}
	return snap
}
