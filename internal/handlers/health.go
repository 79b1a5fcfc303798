package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

type namedCheck struct {
	name    string
	checker HealthChecker
}

// HealthHandler reports on the relational store and Redis, which backs the
// tree store, the identity cache and rate limiting.
type HealthHandler struct {
	checks []namedCheck
}

func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	return &HealthHandler{checks: []namedCheck{
		{name: "postgres", checker: db},
		{name: "redis", checker: redis},
	}}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

func (h *HealthHandler) run(ctx context.Context) (map[string]string, bool) {
	results := make(map[string]string, len(h.checks))
	healthy := true
	for _, c := range h.checks {
		if c.checker == nil {
			results[c.name] = "disabled"
			continue
		}
		if err := c.checker.Health(ctx); err != nil {
			healthy = false
			results[c.name] = "unhealthy: " + err.Error()
			continue
		}
		results[c.name] = "healthy"
	}
	return results, healthy
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy := h.run(ctx)
	response := HealthResponse{
		Status:    "healthy",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		response.Status = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, healthy := h.run(ctx); !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
