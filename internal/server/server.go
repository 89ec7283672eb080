// Package server exposes the dashboard over HTTP. Handlers are thin:
// they validate input, call into the scan cache and the repo-level
// services, and shape JSON. All aggregation lives in the scan package.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/typhfeng/pulse/internal/cache"
	"github.com/typhfeng/pulse/internal/config"
	"github.com/typhfeng/pulse/internal/discovery"
	"github.com/typhfeng/pulse/internal/git"
	"github.com/typhfeng/pulse/internal/github"
	"github.com/typhfeng/pulse/internal/todo"
	"github.com/typhfeng/pulse/internal/types"
)

const searchLimit = 100

// Server wires the HTTP API over the scan cache and the per-repo
// services.
type Server struct {
	cfg        *config.Config
	configPath string
	cache      *cache.Cache
	inspector  *git.Inspector
	discoverer *discovery.Discoverer
	todos      *todo.Store
	github     *github.Client
	mux        *http.ServeMux
}

// New builds a Server. The github client may be token-less; issue
// panels then degrade instead of failing.
func New(cfg *config.Config, configPath string, c *cache.Cache, in *git.Inspector, d *discovery.Discoverer, todos *todo.Store, gh *github.Client) *Server {
	s := &Server{
		cfg:        cfg,
		configPath: configPath,
		cache:      c,
		inspector:  in,
		discoverer: d,
		todos:      todos,
		github:     gh,
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /api/config", s.handleConfig)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/repos", s.handleAddRepo)
	s.mux.HandleFunc("DELETE /api/repos", s.handleRemoveRepo)
	s.mux.HandleFunc("GET /api/group/{track}", s.handleGroup)
	s.mux.HandleFunc("POST /api/group/{track}/sync", s.handleGroupSync)
	s.mux.HandleFunc("GET /api/repo/{id}", s.handleRepo)
	s.mux.HandleFunc("POST /api/repo/{id}/sync", s.handleRepoSync)
	s.mux.HandleFunc("POST /api/repo/{id}/commit", s.handleRepoCommit)
	s.mux.HandleFunc("POST /api/repo/{id}/issue", s.handleRepoIssue)
	s.mux.HandleFunc("POST /api/repo/{id}/todo", s.handleTodoAdd)
	s.mux.HandleFunc("PATCH /api/repo/{id}/todo", s.handleTodoUpdate)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func apiError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"ok":    false,
		"error": fmt.Sprintf(format, args...),
	})
}

// decodeBody tolerates an empty body the way the API always has: every
// field then takes its zero value.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err.Error() != "EOF" {
		return err
	}
	return nil
}

func (s *Server) snapshot(ctx context.Context, force bool) (*types.DashboardSnapshot, error) {
	return s.cache.GetOrCompute(ctx, force)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "1"
	snap, err := s.snapshot(r.Context(), force)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "dashboard scan failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	snap, err := s.snapshot(r.Context(), false)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"query": q, "count": 0, "results": []types.IssueHit{}, "error": err.Error(),
		})
		return
	}
	results := cache.Search(snap, q, searchLimit)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r.Context(), true)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "refresh failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"generated_at": snap.GeneratedAt,
		"total_repos":  snap.Summary.TotalRepos,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	manifest, err := discovery.LoadManifest(s.cfg.ManifestPath())
	if err != nil {
		apiError(w, http.StatusInternalServerError, "reading manifest: %v", err)
		return
	}

	// The effective include list folds enabled manifest entries into the
	// configured one, with manifest tracks surfacing as overrides.
	include := append([]string(nil), s.cfg.IncludeRepos...)
	overrides := make(map[string]string, len(s.cfg.TrackOverrides))
	for k, v := range s.cfg.TrackOverrides {
		overrides[k] = v
	}
	seen := make(map[string]bool, len(include))
	for _, p := range include {
		seen[p] = true
	}
	for _, entry := range manifest.Repos {
		if !entry.Enabled || entry.Path == "" {
			continue
		}
		if !seen[entry.Path] {
			include = append(include, entry.Path)
			seen[entry.Path] = true
		}
		if entry.Track != "" {
			overrides[entry.Path] = string(entry.Track)
		}
	}

	trackOptions := make([]string, 0, 4)
	for _, t := range types.AllTracks() {
		trackOptions = append(trackOptions, string(t))
	}
	sort.Strings(trackOptions)

	writeJSON(w, http.StatusOK, map[string]any{
		"owner":              s.cfg.Owner,
		"scan_roots":         s.cfg.ScanRoots,
		"include_repos":      include,
		"track_overrides":    overrides,
		"repo_manifest_path": s.cfg.ManifestPath(),
		"repo_manifest":      manifest,
		"track_options":      trackOptions,
		"config_path":        s.configPath,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"config_path": s.configPath,
	})
}

func (s *Server) handleAddRepo(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Path  string `json:"path"`
		Track string `json:"track"`
	}
	if err := decodeBody(r, &payload); err != nil {
		apiError(w, http.StatusBadRequest, "invalid body: %v", err)
		return
	}
	path := strings.TrimSpace(payload.Path)
	if path == "" {
		apiError(w, http.StatusBadRequest, "path is required")
		return
	}

	track := types.Track(strings.TrimSpace(payload.Track))
	if err := s.discoverer.AddRepo(path, track); err != nil {
		apiError(w, http.StatusBadRequest, "%v", err)
		return
	}

	s.cache.Invalidate()
	snap, err := s.snapshot(r.Context(), true)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "rescan failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"path":        path,
		"track":       track,
		"total_repos": snap.Summary.TotalRepos,
	})
}

func (s *Server) handleRemoveRepo(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Path string `json:"path"`
	}
	if err := decodeBody(r, &payload); err != nil {
		apiError(w, http.StatusBadRequest, "invalid body: %v", err)
		return
	}
	path := strings.TrimSpace(payload.Path)
	if path == "" {
		apiError(w, http.StatusBadRequest, "path is required")
		return
	}

	removed, err := s.discoverer.RemoveRepo(path)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	if removed {
		s.cache.Invalidate()
	}

	snap, err := s.snapshot(r.Context(), true)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "rescan failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"removed":     removed,
		"path":        path,
		"total_repos": snap.Summary.TotalRepos,
	})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	track := types.Track(r.PathValue("track"))
	if !track.IsValid() {
		apiError(w, http.StatusBadRequest, "invalid track: %s", track)
		return
	}
	snap, err := s.snapshot(r.Context(), false)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "dashboard scan failed: %v", err)
		return
	}

	repos := make([]*types.RepoRecord, 0)
	for _, repo := range snap.Repos {
		if repo.Track == track {
			repos = append(repos, repo)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"track":   track,
		"label":   track.Label(),
		"summary": snap.Tracks[track],
		"repos":   repos,
	})
}

func (s *Server) handleGroupSync(w http.ResponseWriter, r *http.Request) {
	track := types.Track(r.PathValue("track"))
	if !track.IsValid() {
		apiError(w, http.StatusBadRequest, "invalid track: %s", track)
		return
	}
	snap, err := s.snapshot(r.Context(), false)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "dashboard scan failed: %v", err)
		return
	}

	type syncItem struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Path   string `json:"path"`
		OK     bool   `json:"ok"`
		Output string `json:"output,omitempty"`
		Error  string `json:"error,omitempty"`
	}
	results := make([]syncItem, 0)
	for _, repo := range snap.Repos {
		if repo.Track != track {
			continue
		}
		item := syncItem{ID: repo.ID, Name: repo.Name, Path: repo.Path}
		res, err := s.inspector.Sync(r.Context(), repo.Path)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.OK = true
			item.Output = res.Output
		}
		results = append(results, item)
	}

	s.cache.Invalidate()
	updated, err := s.snapshot(r.Context(), true)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "rescan failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"track":       track,
		"results":     results,
		"total_repos": updated.Summary.TotalRepos,
	})
}
