package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"codexray-backend/internal/auth"
	"codexray-backend/internal/metrics"
	"codexray-backend/internal/storage"
)

type mockRepo struct {
	mu        sync.Mutex
	samples   []storage.SampleRecord
	alerts    []storage.AlertRecord
	lastLimit int
}

func (m *mockRepo) RecentSamples(ctx context.Context, limit int) ([]storage.SampleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if limit >= 0 && limit < len(m.samples) {
		return m.samples[:limit], nil
	}
	return m.samples, nil
}

func (m *mockRepo) AllAlerts(ctx context.Context) ([]storage.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts, nil
}

func (m *mockRepo) limit() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLimit
}

type stoppedCollector struct{ running bool }

func (c stoppedCollector) Running() bool { return c.running }

func newTestServer(t *testing.T, repo *mockRepo) (*httptest.Server, *Handler) {
	t.Helper()
	h := &Handler{
		Sessions:   auth.NewStore(time.Hour),
		Repo:       repo,
		Thresholds: metrics.NewThresholds(metrics.DefaultLimits()),
		Collector:  stoppedCollector{running: true},
		Timeout:    5 * time.Second,
	}
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, h
}

func doJSON(t *testing.T, method, url, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func loginAs(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	creds := map[string]any{"username": username, "password": password}
	if resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/register", "", creds); resp.StatusCode != http.StatusOK {
		t.Fatalf("register status %d", resp.StatusCode)
	}
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/login", "", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("no token in login response: %v", body)
	}
	return token
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	srv, _ := newTestServer(t, &mockRepo{})
	creds := map[string]any{"username": "alice", "password": "secret"}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/register", "", creds)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("register failed: %d %v", resp.StatusCode, body)
	}
	if id, _ := body["userId"].(string); id == "" {
		t.Fatalf("expected userId in register response, got %v", body)
	}
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/register", "", creds)
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "User already exists" {
		t.Fatalf("expected duplicate rejection, got %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]any{"username": "alice", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Invalid credentials" {
		t.Fatalf("expected invalid credentials, got %d %v", resp.StatusCode, body)
	}
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]any{"username": "nobody", "password": "secret"})
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Invalid credentials" {
		t.Fatalf("expected same error for unknown user, got %d %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/login", "", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d %v", resp.StatusCode, body)
	}
	token := body["token"].(string)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/validate-session", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected valid session, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout failed: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/validate-session", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	srv, _ := newTestServer(t, &mockRepo{})
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/register", "", map[string]any{"username": "alice"})
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "Username and password required" {
		t.Fatalf("expected missing-field rejection, got %d %v", resp.StatusCode, body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t, &mockRepo{})
	for _, path := range []string{"/api/metrics", "/api/alerts", "/api/summary", "/api/thresholds", "/api/validate-session"} {
		resp, body := doJSON(t, http.MethodGet, srv.URL+path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
		if body["error"] != "No token provided" {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
	}
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/metrics", "bogus", nil)
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Invalid or expired token" {
		t.Fatalf("expected invalid token rejection, got %d %v", resp.StatusCode, body)
	}
}

func TestMetricsLimit(t *testing.T) {
	repo := &mockRepo{samples: []storage.SampleRecord{
		{TSUTC: time.Now(), CPU: 1, Memory: 1},
		{TSUTC: time.Now(), CPU: 2, Memory: 2},
	}}
	srv, _ := newTestServer(t, repo)
	token := loginAs(t, srv, "alice", "secret")

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/metrics", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics failed: %d", resp.StatusCode)
	}
	if repo.limit() != 20 {
		t.Fatalf("expected default limit 20, got %d", repo.limit())
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/metrics?limit=5", token, nil)
	if resp.StatusCode != http.StatusOK || repo.limit() != 5 {
		t.Fatalf("expected limit 5, got %d (status %d)", repo.limit(), resp.StatusCode)
	}
}

func TestThresholdsPartialUpdate(t *testing.T) {
	srv, h := newTestServer(t, &mockRepo{})
	token := loginAs(t, srv, "alice", "secret")

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/api/thresholds", token, map[string]any{"cpu": 90})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put thresholds failed: %d %v", resp.StatusCode, body)
	}
	got := h.Thresholds.Get()
	if got.CPU != 90 || got.Memory != 75 {
		t.Fatalf("expected partial update, got %+v", got)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/thresholds", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get thresholds failed: %d", resp.StatusCode)
	}
	data := body["data"].(map[string]any)
	if data["cpu"].(float64) != 90 || data["memory"].(float64) != 75 {
		t.Fatalf("unexpected thresholds payload: %v", data)
	}
}

func TestSummaryEmpty(t *testing.T) {
	srv, _ := newTestServer(t, &mockRepo{})
	token := loginAs(t, srv, "alice", "secret")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/summary", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary failed: %d", resp.StatusCode)
	}
	data := body["data"].(map[string]any)
	averages := data["averages"].(map[string]any)
	if averages["cpu"].(float64) != 0 || averages["memory"].(float64) != 0 {
		t.Fatalf("expected zero averages, got %v", averages)
	}
	if data["totalAlerts"].(float64) != 0 {
		t.Fatalf("expected zero alerts, got %v", data["totalAlerts"])
	}
}

func TestAnalyzeLogs(t *testing.T) {
	srv, _ := newTestServer(t, &mockRepo{})
	token := loginAs(t, srv, "alice", "secret")

	path := filepath.Join(t.TempDir(), "app.log")
	content := "[INFO] started\n[ERROR] db down\n[ERROR] db down\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/analyze-logs", token, map[string]any{"log_file": path})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze failed: %d %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	counts := data["log_level_counts"].(map[string]any)
	if counts["ERROR"].(float64) != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/analyze-logs", token, map[string]any{"log_file": filepath.Join(t.TempDir(), "missing.log")})
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "Could not parse log file" {
		t.Fatalf("expected parse failure, got %d %v", resp.StatusCode, body)
	}
}

func TestHealthNoAuth(t *testing.T) {
	srv, _ := newTestServer(t, &mockRepo{})
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health failed: %d", resp.StatusCode)
	}
	if body["status"] != "healthy" || body["collecting"] != true {
		t.Fatalf("unexpected health payload: %v", body)
	}
}
