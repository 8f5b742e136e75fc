package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gitlab.com/offlinejudge.net/internal/adapter/catalog/builtin"
	"gitlab.com/offlinejudge.net/internal/adapter/logging"
	"gitlab.com/offlinejudge.net/internal/adapter/sandbox"
	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/core/services/catalog"
	"gitlab.com/offlinejudge.net/internal/core/services/judge"
)

func newTestServer(t *testing.T, origins []string) *Server {
	t.Helper()
	logger := logging.NewNopLogger()
	problems, err := builtin.New()
	if err != nil {
		t.Fatalf("builtin: %v", err)
	}
	judgeCfg := &config.JudgeConfig{TestTimeout: time.Second, LoadTimeout: time.Second, MaxSteps: 100_000, Parallelism: 1}
	catalogSvc := catalog.NewCatalogService(problems, logger)
	judgeSvc := judge.NewJudgeService(catalogSvc, sandbox.NewStarlarkLoader(judgeCfg, logger), judgeCfg, logger)

	srv := NewServer(
		&config.HttpConfig{Port: 0, AllowedOrigins: origins},
		judgeCfg,
		"judge-test",
		*NewServiceProvider(catalogSvc, judgeSvc, nil),
		logger,
	)
	if err := srv.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, []string{"*"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["problems"] != float64(4) {
		t.Errorf("body = %v", body)
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, []string{"http://judge.local"})

	req := httptest.NewRequest(http.MethodOptions, "/api/questions/run", nil)
	req.Header.Set("Origin", "http://judge.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://judge.local" {
		t.Errorf("allowed origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/questions", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestStartStop(t *testing.T) {
	srv := newTestServer(t, []string{"*"})
	errCh, err := srv.Start(t.Context())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Stop(t.Context()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err, ok := <-errCh; ok && err != nil {
		t.Errorf("serve error: %v", err)
	}
}
