package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/typhfeng/pulse/internal/cache"
	"github.com/typhfeng/pulse/internal/config"
	"github.com/typhfeng/pulse/internal/discovery"
	"github.com/typhfeng/pulse/internal/git"
	"github.com/typhfeng/pulse/internal/github"
	"github.com/typhfeng/pulse/internal/mining"
	"github.com/typhfeng/pulse/internal/progress"
	"github.com/typhfeng/pulse/internal/scan"
	"github.com/typhfeng/pulse/internal/todo"
	"github.com/typhfeng/pulse/internal/types"
)

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func makeRepo(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	gitRun(t, dir, "init", "-q")
	gitRun(t, dir, "config", "user.email", "dev@example.com")
	gitRun(t, dir, "config", "user.name", "Dev")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	gitRun(t, dir, "add", "-A")
	gitRun(t, dir, "commit", "-q", "-m", "initial import")
	return dir
}

type testEnv struct {
	srv  *httptest.Server
	root string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.ScanRoots = []string{root}
	cfg.RepoManifestPath = filepath.Join(root, "repo_manifest.json")
	cfg.CommitAlertDays = 0

	inspector, err := git.NewInspector(t.Context())
	if err != nil {
		t.Skipf("git unavailable: %v", err)
	}
	classifier := discovery.NewClassifier(config.DefaultClassifier(), nil)
	disc := discovery.New(cfg, classifier, inspector)
	scanner := scan.New(cfg, disc, inspector,
		mining.NewMiner(mining.DefaultLimits()),
		progress.NewScorer(progress.DefaultWeights()))
	c := cache.New(scanner.Scan, time.Hour)

	s := New(cfg, "", c, inspector, disc, todo.NewStore(inspector), github.New(""))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, root: root}
}

func (e *testEnv) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *testEnv) send(t *testing.T, method, path string, payload, out any) int {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(method, e.srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestDashboardAndSearch(t *testing.T) {
	env := newTestEnv(t)
	dir := makeRepo(t, env.root, "trader-bot")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hedge.go"),
		[]byte("package main\n// TODO: hedge open positions\n"), 0o644))
	gitRun(t, dir, "add", "-A")
	gitRun(t, dir, "commit", "-q", "-m", "add hedging")

	var snap types.DashboardSnapshot
	require.Equal(t, http.StatusOK, env.get(t, "/api/dashboard", &snap))
	require.Len(t, snap.Repos, 1)
	require.Equal(t, "trader-bot", snap.Repos[0].Name)
	require.Equal(t, types.TrackFinance, snap.Repos[0].Track)

	var search struct {
		Count   int              `json:"count"`
		Results []types.IssueHit `json:"results"`
	}
	require.Equal(t, http.StatusOK, env.get(t, "/api/search?q=hedge", &search))
	require.Equal(t, 1, search.Count)
	require.Equal(t, "trader-bot", search.Results[0].Repo)

	require.Equal(t, http.StatusOK, env.get(t, "/api/search?q=nothing-matches-this", &search))
	require.Equal(t, 0, search.Count)
}

func TestRefreshPicksUpNewRepos(t *testing.T) {
	env := newTestEnv(t)
	makeRepo(t, env.root, "chip-soc")

	var snap types.DashboardSnapshot
	require.Equal(t, http.StatusOK, env.get(t, "/api/dashboard", &snap))
	require.Equal(t, 1, snap.Summary.TotalRepos)

	// A repo created after the scan is invisible until a refresh.
	makeRepo(t, env.root, "npu-bringup")
	require.Equal(t, http.StatusOK, env.get(t, "/api/dashboard", &snap))
	require.Equal(t, 1, snap.Summary.TotalRepos)

	var refresh struct {
		OK         bool `json:"ok"`
		TotalRepos int  `json:"total_repos"`
	}
	require.Equal(t, http.StatusOK, env.send(t, http.MethodPost, "/api/refresh", struct{}{}, &refresh))
	require.True(t, refresh.OK)
	require.Equal(t, 2, refresh.TotalRepos)
}

func TestAddAndRemoveRepo(t *testing.T) {
	env := newTestEnv(t)
	outside := t.TempDir()
	dir := makeRepo(t, outside, "ella-lessons")

	var resp struct {
		OK         bool   `json:"ok"`
		Path       string `json:"path"`
		TotalRepos int    `json:"total_repos"`
	}
	status := env.send(t, http.MethodPost, "/api/repos",
		map[string]string{"path": dir, "track": "family"}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.True(t, resp.OK)
	require.Equal(t, 1, resp.TotalRepos)

	status = env.send(t, http.MethodPost, "/api/repos", map[string]string{"path": ""}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	var removed struct {
		OK         bool `json:"ok"`
		Removed    bool `json:"removed"`
		TotalRepos int  `json:"total_repos"`
	}
	status = env.send(t, http.MethodDelete, "/api/repos", map[string]string{"path": dir}, &removed)
	require.Equal(t, http.StatusOK, status)
	require.True(t, removed.Removed)
	require.Equal(t, 0, removed.TotalRepos)

	// Removing again is idempotent.
	status = env.send(t, http.MethodDelete, "/api/repos", map[string]string{"path": dir}, &removed)
	require.Equal(t, http.StatusOK, status)
	require.False(t, removed.Removed)
}

func TestGroupEndpoints(t *testing.T) {
	env := newTestEnv(t)
	makeRepo(t, env.root, "trader-bot")
	makeRepo(t, env.root, "family-album")

	var group struct {
		OK    bool                `json:"ok"`
		Label string              `json:"label"`
		Repos []*types.RepoRecord `json:"repos"`
	}
	require.Equal(t, http.StatusOK, env.get(t, "/api/group/finance", &group))
	require.True(t, group.OK)
	require.Equal(t, "Finance", group.Label)
	require.Len(t, group.Repos, 1)

	require.Equal(t, http.StatusBadRequest, env.get(t, "/api/group/gardening", nil))
}

func TestRepoDetailAndTodos(t *testing.T) {
	env := newTestEnv(t)
	dir := makeRepo(t, env.root, "poly-quant")
	id := types.RepoID(dir)

	require.Equal(t, http.StatusNotFound, env.get(t, "/api/repo/ffffffffffff", nil))

	var detail struct {
		OK     bool `json:"ok"`
		Detail struct {
			Repo          *types.RepoRecord   `json:"repo"`
			RecentCommits []types.CommitEntry `json:"recent_commits"`
			Todos         []types.TodoEntry   `json:"todos"`
		} `json:"detail"`
	}
	require.Equal(t, http.StatusOK, env.get(t, "/api/repo/"+id, &detail))
	require.True(t, detail.OK)
	require.Equal(t, id, detail.Detail.Repo.ID)
	require.Len(t, detail.Detail.RecentCommits, 1)
	require.Empty(t, detail.Detail.Todos)

	status := env.send(t, http.MethodPost, "/api/repo/"+id+"/todo",
		map[string]any{"text": "rebalance the portfolio weekly"}, nil)
	require.Equal(t, http.StatusOK, status)

	status = env.send(t, http.MethodPatch, "/api/repo/"+id+"/todo",
		map[string]any{"index": 0, "done": true}, nil)
	require.Equal(t, http.StatusOK, status)

	require.Equal(t, http.StatusOK, env.get(t, "/api/repo/"+id, &detail))
	require.Len(t, detail.Detail.Todos, 1)
	require.True(t, detail.Detail.Todos[0].Done)

	// Missing text and stale index are caller errors.
	status = env.send(t, http.MethodPost, "/api/repo/"+id+"/todo", map[string]any{}, nil)
	require.Equal(t, http.StatusBadRequest, status)
	status = env.send(t, http.MethodPatch, "/api/repo/"+id+"/todo",
		map[string]any{"index": 99, "done": true}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestRepoCommitEndpoint(t *testing.T) {
	env := newTestEnv(t)
	dir := makeRepo(t, env.root, "noc-sim")
	id := types.RepoID(dir)

	status := env.send(t, http.MethodPost, "/api/repo/"+id+"/commit",
		map[string]any{"message": ""}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "latency.txt"), []byte("42\n"), 0o644))
	var resp struct {
		OK           bool              `json:"ok"`
		CommitResult *git.CommitResult `json:"commit_result"`
	}
	status = env.send(t, http.MethodPost, "/api/repo/"+id+"/commit",
		map[string]any{"message": "record latency numbers", "push": false}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.True(t, resp.OK)
	require.True(t, resp.CommitResult.Committed)

	// Clean tree: nothing to commit reports ok=false without failing.
	status = env.send(t, http.MethodPost, "/api/repo/"+id+"/commit",
		map[string]any{"message": "noop", "push": false}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.False(t, resp.OK)
}

func TestIssueEndpointWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	dir := makeRepo(t, env.root, "webull-sync")
	gitRun(t, dir, "remote", "add", "origin", "https://github.com/typhfeng/webull-sync.git")
	id := types.RepoID(dir)

	status := env.send(t, http.MethodPost, "/api/repo/"+id+"/issue",
		map[string]any{"title": "orders stuck in pending"}, nil)
	require.Equal(t, http.StatusServiceUnavailable, status)

	status = env.send(t, http.MethodPost, "/api/repo/"+id+"/issue",
		map[string]any{"title": ""}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestHealthAndConfig(t *testing.T) {
	env := newTestEnv(t)

	var health struct {
		OK bool `json:"ok"`
	}
	require.Equal(t, http.StatusOK, env.get(t, "/api/health", &health))
	require.True(t, health.OK)

	var cfgResp struct {
		ScanRoots    []string `json:"scan_roots"`
		TrackOptions []string `json:"track_options"`
	}
	require.Equal(t, http.StatusOK, env.get(t, "/api/config", &cfgResp))
	require.Equal(t, []string{env.root}, cfgResp.ScanRoots)
	require.Len(t, cfgResp.TrackOptions, 4)
}
