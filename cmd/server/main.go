package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/janisto/hello-world-api/internal/app"
	"github.com/janisto/hello-world-api/internal/http/health"
	"github.com/janisto/hello-world-api/internal/platform/config"
	applog "github.com/janisto/hello-world-api/internal/platform/logging"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogFatal(context.Background(), "invalid configuration", err)
	}
	if err := applog.SetLevel(cfg.App.LogLevel); err != nil {
		applog.LogWarn(context.Background(), "ignoring log level", zap.Error(err))
	}
	if cfg.App.Version == "" {
		cfg.App.Version = Version
	}

	applog.LogInfo(context.Background(), "configuration loaded",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
		zap.Bool("production", cfg.App.IsProduction()),
		zap.Stringer("level", applog.Level()),
	)

	a := app.New(cfg)
	srv := newServer(cfg, a.Handler())

	ln, err := net.Listen("tcp", cfg.Server.Address())
	if err != nil {
		applog.LogFatal(context.Background(), "listen failed", err, zap.String("addr", cfg.Server.Address()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, srv, ln, a.Health(), cfg.Server.ShutdownTimeout); err != nil {
		applog.LogError(context.Background(), "server error", err)
	}
	applog.LogInfo(context.Background(), "server exited")
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}
}

var errNotServing = errors.New("listener not serving")

// listenerCheck reports ready only while serving is set.
func listenerCheck(serving *atomic.Bool) health.CheckFunc {
	return func(context.Context) error {
		if !serving.Load() {
			return errNotServing
		}
		return nil
	}
}

// serve runs srv on ln until ctx is done, then drains in-flight requests for
// at most shutdownTimeout. Readiness is dropped before the drain starts.
func serve(
	ctx context.Context,
	srv *http.Server,
	ln net.Listener,
	ready *health.Handler,
	shutdownTimeout time.Duration,
) error {
	var serving atomic.Bool
	ready.AddCheck("listener", listenerCheck(&serving))

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening", zap.String("addr", ln.Addr().String()))
		serving.Store(true)
		err := srv.Serve(ln)
		serving.Store(false)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		applog.LogInfo(context.Background(), "shutdown signal received")
	}

	ready.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-listenErr
}
