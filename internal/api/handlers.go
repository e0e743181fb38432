package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"codexray-backend/internal/auth"
	"codexray-backend/internal/logscan"
	"codexray-backend/internal/metrics"
	"codexray-backend/internal/report"
	"codexray-backend/internal/storage"
)

const defaultMetricsLimit = 20

// MetricsRepo is the read side of the metrics log the handlers need.
type MetricsRepo interface {
	RecentSamples(ctx context.Context, limit int) ([]storage.SampleRecord, error)
	AllAlerts(ctx context.Context) ([]storage.AlertRecord, error)
}

// Sessions is the session store surface the handlers need.
type Sessions interface {
	Register(username, password string) (auth.UserRecord, error)
	Login(username, password string) (auth.Session, error)
	Validate(token string) bool
	Logout(token string)
}

// CollectorStatus reports whether background collection is active.
type CollectorStatus interface {
	Running() bool
}

type Handler struct {
	Sessions   Sessions
	Repo       MetricsRepo
	Thresholds *metrics.Thresholds
	Collector  CollectorStatus
	Timeout    time.Duration
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type thresholdsRequest struct {
	CPU    *float64 `json:"cpu"`
	Memory *float64 `json:"memory"`
}

type analyzeLogsRequest struct {
	LogFile string `json:"log_file"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Get("/health", h.handleHealth)
		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Post("/logout", h.handleLogout)
			r.Get("/validate-session", h.handleValidateSession)
			r.Get("/metrics", h.handleMetrics)
			r.Get("/alerts", h.handleAlerts)
			r.Get("/thresholds", h.handleThresholdsGet)
			r.Put("/thresholds", h.handleThresholdsPut)
			r.Get("/summary", h.handleSummary)
			r.Post("/analyze-logs", h.handleAnalyzeLogs)
		})
	})
}

// requireSession rejects requests without a live bearer token. Validation
// may delete an expired session as a side effect; nothing else is mutated.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "No token provided"})
			return
		}
		if !h.Sessions.Validate(token) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid or expired token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Username and password required"})
		return
	}
	user, err := h.Sessions.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "User already exists"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "registration failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User registered successfully", "userId": user.ID})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Username and password required"})
		return
	}
	session, err := h.Sessions.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "login failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": session.Token, "username": session.Username})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(bearerToken(r))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
}

func (h *Handler) handleValidateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Session is valid"})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	limit := defaultMetricsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	samples, err := h.Repo.RecentSamples(ctx, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to fetch metrics"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": samples})
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	alerts, err := h.Repo.AllAlerts(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to fetch alerts"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": alerts})
}

func (h *Handler) handleThresholdsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": h.Thresholds.Get()})
}

func (h *Handler) handleThresholdsPut(w http.ResponseWriter, r *http.Request) {
	var req thresholdsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	updated := h.Thresholds.Update(req.CPU, req.Memory)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "thresholds": updated})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	alerts, err := h.Repo.AllAlerts(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to fetch alerts"})
		return
	}
	samples, err := h.Repo.RecentSamples(ctx, 10)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to fetch metrics"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": report.Build(alerts, samples)})
}

func (h *Handler) handleAnalyzeLogs(w http.ResponseWriter, r *http.Request) {
	req := analyzeLogsRequest{LogFile: "sample.log"}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	analyzer, err := logscan.ScanFile(req.LogFile)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Could not parse log file"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
		"log_level_counts": analyzer.LevelCounts,
		"top_errors":       analyzer.TopErrors(5),
	}})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"collecting": h.Collector.Running(),
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
