// Package github is a minimal REST client for the handful of GitHub
// operations the dashboard surfaces: open-issue listing, issue filing
// and owner repository enumeration.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable is returned when no access token is configured. The
// dashboard degrades the issue panel on this error instead of failing
// the page.
var ErrUnavailable = errors.New("github: no access token configured")

const defaultBaseURL = "https://api.github.com"

// Client talks to the GitHub REST API v3. All calls share one token
// and a client-side rate limit so a busy dashboard cannot burn through
// the API quota.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root, for tests and
// GitHub Enterprise installs.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit overrides the requests-per-second budget.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// New creates a Client. An empty token is allowed; every call will then
// return ErrUnavailable.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		// Unauthenticated-ish default, well under GitHub's 5000/h.
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether the client has a token.
func (c *Client) Available() bool { return c.token != "" }

// Issue is one GitHub issue, trimmed to the fields the dashboard shows.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	HTMLURL   string    `json:"html_url"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Labels    []Label   `json:"labels,omitempty"`

	// PullRequest is set by the API when the "issue" is actually a PR.
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

// Label is a GitHub issue label.
type Label struct {
	Name string `json:"name"`
}

// Repo is one repository from the authenticated user's listing.
type Repo struct {
	Name     string    `json:"name"`
	FullName string    `json:"full_name"`
	Private  bool      `json:"private"`
	Fork     bool      `json:"fork"`
	CloneURL string    `json:"clone_url"`
	SSHURL   string    `json:"ssh_url"`
	PushedAt time.Time `json:"pushed_at"`
}

// ListOpenIssues returns the open issues for owner/repo, pull requests
// excluded. The issues endpoint interleaves PRs with issues; they are
// filtered out here so callers never see them.
func (c *Client) ListOpenIssues(ctx context.Context, owner, repo string, limit int) ([]Issue, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	path := fmt.Sprintf("/repos/%s/%s/issues?state=open&per_page=%d",
		url.PathEscape(owner), url.PathEscape(repo), limit)

	var raw []Issue
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(raw))
	for _, is := range raw {
		if is.PullRequest != nil {
			continue
		}
		issues = append(issues, is)
	}
	return issues, nil
}

// CreateIssue files a new issue against owner/repo and returns it.
func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (*Issue, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("github: issue title is required")
	}
	payload := map[string]any{"title": title}
	if body != "" {
		payload["body"] = body
	}
	if len(labels) > 0 {
		payload["labels"] = labels
	}

	path := fmt.Sprintf("/repos/%s/%s/issues", url.PathEscape(owner), url.PathEscape(repo))
	var created Issue
	if err := c.do(ctx, http.MethodPost, path, payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListOwnerRepos pages through every repository the token can see for
// its own account, most recently pushed first.
func (c *Client) ListOwnerRepos(ctx context.Context) ([]Repo, error) {
	var all []Repo
	for page := 1; ; page++ {
		path := fmt.Sprintf("/user/repos?per_page=100&sort=pushed&page=%d", page)
		var batch []Repo
		if err := c.do(ctx, http.MethodGet, path, nil, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < 100 {
			return all, nil
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if c.token == "" {
		return ErrUnavailable
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("github: %s %s: %s: %s", method, path, resp.Status, firstLine(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
