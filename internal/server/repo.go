package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/typhfeng/pulse/internal/discovery"
	"github.com/typhfeng/pulse/internal/git"
	"github.com/typhfeng/pulse/internal/github"
	"github.com/typhfeng/pulse/internal/todo"
	"github.com/typhfeng/pulse/internal/types"
)

const recentCommitLimit = 20

// repoDetail is the expanded per-repo payload: the scan record plus the
// live bits a detail view wants fresher than the cached snapshot.
type repoDetail struct {
	Repo          *types.RepoRecord   `json:"repo"`
	RecentCommits []types.CommitEntry `json:"recent_commits"`
	Todos         []types.TodoEntry   `json:"todos"`
	GitHubIssues  []github.Issue      `json:"github_issues,omitempty"`
	GitHubError   string              `json:"github_error,omitempty"`
}

func (s *Server) repoByID(ctx context.Context, id string, refresh bool) (*types.RepoRecord, error) {
	snap, err := s.snapshot(ctx, refresh)
	if err != nil {
		return nil, err
	}
	return snap.RepoByID(id), nil
}

func (s *Server) repoDetail(ctx context.Context, repo *types.RepoRecord) repoDetail {
	detail := repoDetail{Repo: repo}

	commits, err := s.inspector.RecentCommits(ctx, repo.Path, recentCommitLimit)
	if err != nil {
		log.Printf("server: recent commits for %s: %v", repo.Name, err)
	}
	detail.RecentCommits = commits

	todos, err := s.todos.List(repo.Path)
	if err != nil {
		log.Printf("server: todo list for %s: %v", repo.Name, err)
	}
	detail.Todos = todos

	if owner, name, ok := discovery.ParseRemote(repo.Remote); ok {
		issues, err := s.github.ListOpenIssues(ctx, owner, name, 30)
		switch {
		case errors.Is(err, github.ErrUnavailable):
			detail.GitHubError = "no github token configured"
		case err != nil:
			detail.GitHubError = err.Error()
		default:
			detail.GitHubIssues = issues
		}
	}
	return detail
}

func (s *Server) handleRepo(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoByID(r.Context(), r.PathValue("id"), false)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "dashboard scan failed: %v", err)
		return
	}
	if repo == nil {
		apiError(w, http.StatusNotFound, "repo not found")
		return
	}
	detail := s.repoDetail(r.Context(), repo)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "detail": detail})
}

func (s *Server) handleRepoSync(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoByID(r.Context(), r.PathValue("id"), false)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "dashboard scan failed: %v", err)
		return
	}
	if repo == nil {
		apiError(w, http.StatusNotFound, "repo not found")
		return
	}

	res, syncErr := s.inspector.Sync(r.Context(), repo.Path)
	s.cache.Invalidate()

	fresh, err := s.repoByID(r.Context(), repo.ID, true)
	if err != nil || fresh == nil {
		fresh = repo
	}
	payload := map[string]any{
		"ok":     syncErr == nil,
		"detail": s.repoDetail(r.Context(), fresh),
	}
	if syncErr != nil {
		payload["error"] = syncErr.Error()
	} else {
		payload["sync"] = res
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRepoCommit(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoByID(r.Context(), r.PathValue("id"), false)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "dashboard scan failed: %v", err)
		return
	}
	if repo == nil {
		apiError(w, http.StatusNotFound, "repo not found")
		return
	}

	payload := struct {
		Message string `json:"message"`
		Push    *bool  `json:"push"`
	}{}
	if err := decodeBody(r, &payload); err != nil {
		apiError(w, http.StatusBadRequest, "invalid body: %v", err)
		return
	}
	message := strings.TrimSpace(payload.Message)
	if message == "" {
		apiError(w, http.StatusBadRequest, "message is required")
		return
	}
	push := payload.Push == nil || *payload.Push

	result, commitErr := s.inspector.Commit(r.Context(), repo.Path, message, push)
	s.cache.Invalidate()

	fresh, err := s.repoByID(r.Context(), repo.ID, true)
	if err != nil || fresh == nil {
		fresh = repo
	}
	resp := map[string]any{
		"ok":     commitErr == nil,
		"detail": s.repoDetail(r.Context(), fresh),
	}
	if commitErr != nil {
		resp["error"] = commitErr.Error()
		if errors.Is(commitErr, git.ErrNothingToCommit) {
			writeJSON(w, http.StatusOK, resp)
			return
		}
	} else {
		resp["commit_result"] = result
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRepoIssue(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoByID(r.Context(), r.PathValue("id"), false)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "dashboard scan failed: %v", err)
		return
	}
	if repo == nil {
		apiError(w, http.StatusNotFound, "repo not found")
		return
	}

	var payload struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := decodeBody(r, &payload); err != nil {
		apiError(w, http.StatusBadRequest, "invalid body: %v", err)
		return
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		apiError(w, http.StatusBadRequest, "title is required")
		return
	}
	owner, name, ok := discovery.ParseRemote(repo.Remote)
	if !ok {
		apiError(w, http.StatusBadRequest, "unable to parse owner/repo from remote")
		return
	}

	issue, err := s.github.CreateIssue(r.Context(), owner, name, title, strings.TrimSpace(payload.Body), nil)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, github.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		apiError(w, status, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"issue":  issue,
		"detail": s.repoDetail(r.Context(), repo),
	})
}

func (s *Server) handleTodoAdd(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoByID(r.Context(), r.PathValue("id"), false)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "dashboard scan failed: %v", err)
		return
	}
	if repo == nil {
		apiError(w, http.StatusNotFound, "repo not found")
		return
	}

	var payload struct {
		Text   string `json:"text"`
		Commit bool   `json:"commit"`
		Push   bool   `json:"push"`
	}
	if err := decodeBody(r, &payload); err != nil {
		apiError(w, http.StatusBadRequest, "invalid body: %v", err)
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		apiError(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := s.todos.Append(r.Context(), repo.Path, text, todo.CommitOptions{
		Commit: payload.Commit,
		Push:   payload.Push,
	})
	if err != nil {
		apiError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	s.cache.Invalidate()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"result": result,
		"detail": s.repoDetail(r.Context(), repo),
	})
}

func (s *Server) handleTodoUpdate(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repoByID(r.Context(), r.PathValue("id"), false)
	if err != nil {
		apiError(w, http.StatusInternalServerError, "dashboard scan failed: %v", err)
		return
	}
	if repo == nil {
		apiError(w, http.StatusNotFound, "repo not found")
		return
	}

	var payload struct {
		Index  *int    `json:"index"`
		Text   *string `json:"text"`
		Done   *bool   `json:"done"`
		Commit bool    `json:"commit"`
		Push   bool    `json:"push"`
	}
	if err := decodeBody(r, &payload); err != nil {
		apiError(w, http.StatusBadRequest, "invalid body: %v", err)
		return
	}
	if payload.Index == nil {
		apiError(w, http.StatusBadRequest, "index is required")
		return
	}

	patch := todo.Patch{Done: payload.Done}
	if payload.Text != nil {
		text := strings.TrimSpace(*payload.Text)
		patch.Text = &text
	}
	result, err := s.todos.Edit(r.Context(), repo.Path, *payload.Index, patch, todo.CommitOptions{
		Commit: payload.Commit,
		Push:   payload.Push,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, todo.ErrStaleIndex) {
			status = http.StatusBadRequest
		}
		apiError(w, status, "%v", err)
		return
	}

	s.cache.Invalidate()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"result": result,
		"detail": s.repoDetail(r.Context(), repo),
	})
}
