package server_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/bounty-portal/internal/config"
	"github.com/sakif/bounty-portal/internal/model"
	"github.com/sakif/bounty-portal/internal/repository"
	"github.com/sakif/bounty-portal/internal/server"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:              "test",
		DBDriver:            config.DriverSQLite,
		DBPath:              ":memory:",
		ReadTimeout:         time.Second,
		WriteTimeout:        time.Second,
		ShutdownTimeout:     time.Second,
		MaxRequestBodySize:  1 << 20,
		AllowedEmailDomains: []string{"qed42.com"},
		DefaultRole:         "authenticated",
		MaxUsernameAttempts: 100,
		TeamVocabulary:      "project_team",
		ProjectType:         "project",
		ExportTempDir:       t.TempDir(),
		ExportURL:           "/admin/projects/export/csv",
	}
}

func newTestServer(t *testing.T) (*httptest.Server, repository.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t)

	store, err := server.OpenStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ts := httptest.NewServer(server.New(cfg, store, logger).Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func postSync(t *testing.T, ts *httptest.Server, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/oauth/sync", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestSyncFlow(t *testing.T) {
	ts, store := newTestServer(t)
	ctx := context.Background()

	status, body := postSync(t, ts, `{"email":"jane@qed42.com","name":"Jane Doe"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "created", body["status"])
	assert.Equal(t, "jane.doe", body["name"])
	assert.Equal(t, false, body["is_in_project_team"])
	uid := body["uid"].(string)

	// Put Jane on a team that a project references.
	team := &model.Team{Vocabulary: "project_team", Name: "Red", MemberIDs: []string{uid}}
	require.NoError(t, store.CreateTeam(ctx, team))
	require.NoError(t, store.CreateProject(ctx, &model.Project{
		Type: "project", Title: "Search", Published: true, TeamIDs: []string{team.ID},
	}))

	status, again := postSync(t, ts, `{"email":"jane@qed42.com","name":"Jane Doe"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "exists", again["status"])
	assert.Equal(t, uid, again["uid"])
	assert.Equal(t, body["uuid"], again["uuid"])
	assert.Equal(t, true, again["is_in_project_team"])

	status, other := postSync(t, ts, `{"email":"jane.d@qed42.com","name":"Jane Doe"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "jane.doe_1", other["name"])
}

func TestSyncErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"missing email", `{"name":"Jane"}`, http.StatusBadRequest, "Email is required"},
		{"malformed body", `not json`, http.StatusBadRequest, "Email is required"},
		{"wrong domain", `{"email":"jane@gmail.com"}`, http.StatusForbidden, "Invalid email domain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := postSync(t, ts, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, map[string]any{"error": tt.wantError}, body)
		})
	}
}

func TestExportFlow(t *testing.T) {
	ts, store := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.CreateProject(ctx, &model.Project{
		Type:      "project",
		Title:     "Alpha",
		Published: true,
		Tracks: []model.Track{
			{Plan: []model.Milestone{{Name: "Design", Details: "<p>Wireframes</p>"}}},
		},
	}))

	resp, err := http.Get(ts.URL + "/admin/projects/export/status")
	require.NoError(t, err)
	var st map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, "success", st["status"])
	assert.Equal(t, float64(1), st["total_projects"])

	resp, err = http.Get(ts.URL + "/admin/projects/export/csv")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "projects_export_")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Title", "Execution Plan 1", "Execution Plan 2", "Execution Plan 3"},
		{"Alpha", "Milestone 1: Design - Wireframes", "", ""},
	}, records)
}

func TestHealthRoutes(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, resp.Header.Get("Content-Type"), path)
	}
}
