// Package app assembles the router, middleware stack and API operations.
package app

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/hello-world-api/internal/http/health"
	"github.com/janisto/hello-world-api/internal/http/root"
	"github.com/janisto/hello-world-api/internal/platform/config"
	applog "github.com/janisto/hello-world-api/internal/platform/logging"
	"github.com/janisto/hello-world-api/internal/platform/metrics"
	appmiddleware "github.com/janisto/hello-world-api/internal/platform/middleware"
	"github.com/janisto/hello-world-api/internal/platform/respond"
)

const (
	docsPath    = "/api-docs"
	metricsPath = "/metrics"
)

// App is the fully wired HTTP application.
type App struct {
	router  chi.Router
	api     huma.API
	health  *health.Handler
	metrics *metrics.Metrics
}

// New builds the application described by cfg.
func New(cfg *config.Config) *App {
	a := &App{
		router:  chi.NewRouter(),
		health:  health.NewHandler(),
		metrics: metrics.New(),
	}

	a.router.NotFound(respond.NotFoundHandler())
	a.router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	a.router.Use(
		appmiddleware.Security(docsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(cfg.CORS.AllowedOrigins...),
		appmiddleware.RequestID(),
		// RealIP trusts X-Real-IP / X-Forwarded-For. Only deploy behind a proxy that sets them.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(cfg.Server.MaxBodyBytes),
		a.metrics.Middleware(),
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	version := cfg.App.Version
	if version == "" {
		version = "dev"
	}
	humaCfg := huma.DefaultConfig(cfg.App.Name, version)
	humaCfg.DocsPath = docsPath
	a.api = humachi.New(a.router, humaCfg)
	a.api.OpenAPI().OnAddOperation = append(a.api.OpenAPI().OnAddOperation, addCBORContent)

	root.Register(a.api)
	a.health.Register(a.api)
	a.router.Method(http.MethodGet, metricsPath, a.metrics.Handler())

	return a
}

// Handler returns the root http.Handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// API exposes the huma API so callers can register extra operations.
func (a *App) API() huma.API {
	return a.api
}

// Health returns the readiness state shared with the /ready probe.
func (a *App) Health() *health.Handler {
	return a.health
}

// addCBORContent documents application/cbor wherever the operation documents
// application/json, since every structured response can be negotiated to CBOR.
func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}
