package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutcracker-app/nutcracker/internal/config"
)

func newTestGitHub(t *testing.T, handler http.HandlerFunc) *GitHub {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGitHub(config.SupportConfig{
		GitHubToken: "test-token",
		GitHubOwner: "acme",
		GitHubRepo:  "nutcracker",
	})
	g.baseURL = srv.URL
	return g
}

func TestSearchIssues_FiltersByKeywordAndSkipsPRs(t *testing.T) {
	g := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/nutcracker/issues", r.URL.Path)
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode([]map[string]any{
			{"number": 1, "title": "Export feature does not work", "state": "open",
				"labels": []map[string]string{{"name": "type:bug"}}},
			{"number": 2, "title": "Export docs cleanup", "state": "open",
				"pull_request": map[string]any{}},
			{"number": 3, "title": "Dark mode request", "state": "open"},
		})
	})

	issues, err := g.SearchIssues(context.Background(), []string{"export"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, 1, issues[0].Number)
	assert.Equal(t, []string{"type:bug"}, issues[0].Labels)
}

func TestSearchIssues_NoKeywordsMatchesNothing(t *testing.T) {
	g := newTestGitHub(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"number": 1, "title": "anything", "state": "open"},
		})
	})

	issues, err := g.SearchIssues(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCreateIssue(t *testing.T) {
	g := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/nutcracker/issues", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Export broken", payload["title"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"number": 7, "title": "Export broken", "state": "open"})
	})

	issue, err := g.CreateIssue(context.Background(), "Export broken", "body", []string{"type:bug", "P4"})
	require.NoError(t, err)
	assert.Equal(t, 7, issue.Number)
}

func TestReopen(t *testing.T) {
	var gotState string
	g := newTestGitHub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/acme/nutcracker/issues/42", r.URL.Path)
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		gotState = payload["state"]
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, g.Reopen(context.Background(), 42))
	assert.Equal(t, "open", gotState)
}

func TestDo_NonSuccessStatus(t *testing.T) {
	g := newTestGitHub(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})

	err := g.AddComment(context.Background(), 1, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
