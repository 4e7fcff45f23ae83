package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/janisto/hello-world-api/internal/app"
	"github.com/janisto/hello-world-api/internal/platform/config"
)

func TestVersionDefault(t *testing.T) {
	if Version != "dev" {
		t.Fatalf("expected default version dev, got %q", Version)
	}
}

func TestNewServerUsesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9090

	srv := newServer(cfg, http.NotFoundHandler())

	if srv.Addr != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr %q", srv.Addr)
	}
	if srv.ReadTimeout != 5*time.Second || srv.ReadHeaderTimeout != 2*time.Second {
		t.Fatalf("unexpected read timeouts %v / %v", srv.ReadTimeout, srv.ReadHeaderTimeout)
	}
	if srv.WriteTimeout != 10*time.Second || srv.IdleTimeout != 60*time.Second {
		t.Fatalf("unexpected write/idle timeouts %v / %v", srv.WriteTimeout, srv.IdleTimeout)
	}
	if srv.MaxHeaderBytes != 64<<10 {
		t.Fatalf("unexpected max header bytes %d", srv.MaxHeaderBytes)
	}
}

func TestServeAndShutdown(t *testing.T) {
	cfg := config.Default()
	a := app.New(cfg)
	srv := newServer(cfg, a.Handler())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, srv, ln, a.Health(), time.Second)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	if string(body) != "Hello World" {
		t.Fatalf("expected body %q got %q", "Hello World", body)
	}
	if resp.ContentLength != int64(len("Hello World")) {
		t.Fatalf("expected content length 11, got %d", resp.ContentLength)
	}

	readyResp, err := http.Get("http://" + ln.Addr().String() + "/ready")
	if err != nil {
		t.Fatalf("GET /ready: %v", err)
	}
	readyBody, err := io.ReadAll(readyResp.Body)
	_ = readyResp.Body.Close()
	if err != nil {
		t.Fatalf("read ready body: %v", err)
	}
	if readyResp.StatusCode != http.StatusOK {
		t.Fatalf("expected ready 200 got %d: %s", readyResp.StatusCode, readyBody)
	}
	if !strings.Contains(string(readyBody), `"listener":"ok"`) {
		t.Fatalf("expected listener check in ready body, got %s", readyBody)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if a.Health().IsReady() {
		t.Fatal("expected readiness to drop during shutdown")
	}
}

func TestServeReturnsListenError(t *testing.T) {
	cfg := config.Default()
	a := app.New(cfg)
	srv := newServer(cfg, a.Handler())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_ = ln.Close()

	select {
	case err := <-serveAsync(srv, ln, a):
		if err == nil {
			t.Fatal("expected error from closed listener")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}

func serveAsync(srv *http.Server, ln net.Listener, a *app.App) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), srv, ln, a.Health(), time.Second)
	}()
	return done
}

func TestListenerCheck(t *testing.T) {
	var serving atomic.Bool
	check := listenerCheck(&serving)

	if err := check(context.Background()); err == nil {
		t.Fatal("expected error before serving starts")
	}
	serving.Store(true)
	if err := check(context.Background()); err != nil {
		t.Fatalf("expected nil while serving, got %v", err)
	}
	serving.Store(false)
	if err := check(context.Background()); err == nil {
		t.Fatal("expected error after serving stops")
	}
}
