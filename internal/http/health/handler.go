// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/hello-world-api/internal/platform/logging"
	"github.com/janisto/hello-world-api/internal/platform/timeutil"
)

const (
	statusHealthy  = "healthy"
	statusReady    = "ready"
	statusNotReady = "not ready"
	checkOK        = "ok"
	checkFail      = "fail"
)

// CheckFunc reports whether a dependency is usable. A nil error means ready.
type CheckFunc func(ctx context.Context) error

// Data is the liveness payload.
type Data struct {
	Status    string `json:"status"    doc:"Liveness status"          example:"healthy"`
	Timestamp string `json:"timestamp" doc:"Server time (RFC 3339 UTC)" example:"2024-01-15T10:30:00.000Z"`
}

// ReadyData is the readiness payload.
type ReadyData struct {
	Status    string            `json:"status"           doc:"Readiness status"           example:"ready" enum:"ready,not ready"`
	Timestamp string            `json:"timestamp"        doc:"Server time (RFC 3339 UTC)" example:"2024-01-15T10:30:00.000Z"`
	Checks    map[string]string `json:"checks,omitempty" doc:"Per-dependency results"`
}

// Output wraps the liveness payload.
type Output struct {
	Body Data
}

// ReadyOutput wraps the readiness payload; Status is 200 or 503.
type ReadyOutput struct {
	Status int
	Body   ReadyData
}

// Handler tracks readiness and the checks consulted by the readiness probe.
type Handler struct {
	mu     sync.RWMutex
	ready  bool
	checks map[string]CheckFunc
	now    func() time.Time
}

// NewHandler returns a handler that starts out ready with no checks.
func NewHandler() *Handler {
	return &Handler{
		ready:  true,
		checks: make(map[string]CheckFunc),
		now:    time.Now,
	}
}

// SetReady flips the readiness flag, e.g. to drain traffic during shutdown.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady reports the readiness flag, ignoring checks.
func (h *Handler) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// AddCheck registers a named readiness check, replacing any check with the same name.
func (h *Handler) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Register wires /health and /ready into api.
func (h *Handler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Liveness probe",
		Tags:        []string{"Health"},
	}, h.health)

	huma.Register(api, huma.Operation{
		OperationID: "get-ready",
		Method:      http.MethodGet,
		Path:        "/ready",
		Summary:     "Readiness probe",
		Tags:        []string{"Health"},
		Responses: map[string]*huma.Response{
			"503": {Description: "Service not ready"},
		},
	}, h.readiness)
}

func (h *Handler) health(_ context.Context, _ *struct{}) (*Output, error) {
	return &Output{Body: Data{
		Status:    statusHealthy,
		Timestamp: timeutil.FormatMillis(h.now()),
	}}, nil
}

func (h *Handler) readiness(ctx context.Context, _ *struct{}) (*ReadyOutput, error) {
	h.mu.RLock()
	ready := h.ready
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	// Checks run outside the lock; they may block on the network.
	names := slices.Sorted(maps.Keys(checks))
	var results map[string]string
	if len(names) > 0 {
		results = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			applog.LogWarn(ctx, "readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = checkFail
			ready = false
			continue
		}
		results[name] = checkOK
	}

	out := &ReadyOutput{
		Status: http.StatusOK,
		Body: ReadyData{
			Status:    statusReady,
			Timestamp: timeutil.FormatMillis(h.now()),
			Checks:    results,
		},
	}
	if !ready {
		out.Status = http.StatusServiceUnavailable
		out.Body.Status = statusNotReady
	}
	return out, nil
}
