package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nutcracker-app/nutcracker/internal/config"
	"github.com/nutcracker-app/nutcracker/internal/support"
)

const defaultBaseURL = "https://api.github.com"

// GitHub implements support.Tracker against the GitHub issues REST API.
type GitHub struct {
	http    *http.Client
	baseURL string
	owner   string
	repo    string
	token   string
}

func NewGitHub(cfg config.SupportConfig) *GitHub {
	return &GitHub{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultBaseURL,
		owner:   cfg.GitHubOwner,
		repo:    cfg.GitHubRepo,
		token:   cfg.GitHubToken,
	}
}

type ghLabel struct {
	Name string `json:"name"`
}

type ghIssue struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Labels      []ghLabel  `json:"labels"`
	State       string     `json:"state"`
	ClosedAt    *time.Time `json:"closed_at"`
	Comments    int        `json:"comments"`
	PullRequest *struct{}  `json:"pull_request,omitempty"`
}

func (i ghIssue) toIssue() support.Issue {
	labels := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		labels = append(labels, l.Name)
	}
	return support.Issue{
		Number:   i.Number,
		Title:    i.Title,
		Body:     i.Body,
		Labels:   labels,
		State:    i.State,
		ClosedAt: i.ClosedAt,
		Comments: i.Comments,
	}
}

// SearchIssues lists recently updated issues and filters them client-side by
// keyword, newest update first. The list endpoint also returns pull requests;
// those are skipped.
func (g *GitHub) SearchIssues(ctx context.Context, keywords []string) ([]support.Issue, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues?state=all&sort=updated&direction=desc&per_page=50", g.owner, g.repo)

	var raw []ghIssue
	if err := g.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	var issues []support.Issue
	for _, i := range raw {
		if i.PullRequest != nil {
			continue
		}
		if matchesAny(i.Title, keywords) {
			issues = append(issues, i.toIssue())
		}
	}
	return issues, nil
}

func matchesAny(title string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (g *GitHub) CreateIssue(ctx context.Context, title, body string, labels []string) (*support.Issue, error) {
	payload := map[string]any{"title": title, "body": body, "labels": labels}

	var created ghIssue
	path := fmt.Sprintf("/repos/%s/%s/issues", g.owner, g.repo)
	if err := g.do(ctx, http.MethodPost, path, payload, &created); err != nil {
		return nil, err
	}
	issue := created.toIssue()
	return &issue, nil
}

func (g *GitHub) AddComment(ctx context.Context, number int, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", g.owner, g.repo, number)
	return g.do(ctx, http.MethodPost, path, map[string]any{"body": body}, nil)
}

func (g *GitHub) SetLabels(ctx context.Context, number int, labels []string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/labels", g.owner, g.repo, number)
	return g.do(ctx, http.MethodPut, path, map[string]any{"labels": labels}, nil)
}

func (g *GitHub) Reopen(ctx context.Context, number int) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d", g.owner, g.repo, number)
	return g.do(ctx, http.MethodPatch, path, map[string]any{"state": "open"}, nil)
}

func (g *GitHub) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+g.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling github %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github %s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding github response: %w", err)
		}
	}
	return nil
}
