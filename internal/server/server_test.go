package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/netcmd/netcmd/pkg/plugin"
	"go.uber.org/zap"
)

// mockModuleSource satisfies the ModuleSource interface for testing.
type mockModuleSource struct {
	modules []plugin.Plugin
	routes  map[string][]plugin.Route
}

func (m *mockModuleSource) AllRoutes() map[string][]plugin.Route {
	if m.routes != nil {
		return m.routes
	}
	return map[string][]plugin.Route{}
}

func (m *mockModuleSource) All() []plugin.Plugin {
	return m.modules
}

// stubModule satisfies plugin.Plugin for testing.
type stubModule struct {
	info plugin.PluginInfo
}

func (s *stubModule) Info() plugin.PluginInfo                             { return s.info }
func (s *stubModule) Init(_ context.Context, _ plugin.Dependencies) error { return nil }
func (s *stubModule) Start(_ context.Context) error                       { return nil }
func (s *stubModule) Stop(_ context.Context) error                        { return nil }

func newTestServer(ready ReadinessChecker) *Server {
	logger, _ := zap.NewDevelopment()
	modules := &mockModuleSource{
		modules: []plugin.Plugin{
			&stubModule{info: plugin.PluginInfo{
				Name:        "vault",
				Version:     "1.0.0",
				Description: "Credential vault",
			}},
		},
	}
	return New("127.0.0.1:0", modules, logger, ready, nil)
}

func TestHandleHealthz(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "alive" {
		t.Errorf("status = %q, want %q", body["status"], "alive")
	}
}

func TestHandleReadyz_Unhealthy(t *testing.T) {
	ready := ReadinessChecker(func(_ context.Context) error {
		return errors.New("database unreachable")
	})
	srv := newTestServer(ready)

	req := httptest.NewRequest("GET", "/readyz", http.NoBody)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "not ready" {
		t.Errorf("status = %q, want %q", body["status"], "not ready")
	}
	if !strings.Contains(body["error"], "database unreachable") {
		t.Errorf("error = %q, want it to contain %q", body["error"], "database unreachable")
	}
}

func TestHandleReadyz_NilChecker(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest("GET", "/readyz", http.NoBody)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest("GET", "/api/v1/health", http.NoBody)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body HealthResponse
	json.NewDecoder(w.Body).Decode(&body)
	if body.Service != "netcmd" {
		t.Errorf("service = %q, want %q", body.Service, "netcmd")
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestHandleModules(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest("GET", "/api/v1/modules", http.NoBody)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body []ModuleResponse
	json.NewDecoder(w.Body).Decode(&body)
	if len(body) != 1 || body[0].Name != "vault" {
		t.Errorf("modules = %v, want one entry named vault", body)
	}
}

func TestMountModuleRoutes(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	modules := &mockModuleSource{
		routes: map[string][]plugin.Route{
			"commands": {
				{
					Method: "GET",
					Path:   "/commands",
					Handler: func(w http.ResponseWriter, _ *http.Request) {
						w.WriteHeader(http.StatusOK)
					},
				},
			},
		},
	}
	srv := New("127.0.0.1:0", modules, logger, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/commands/commands", http.NoBody)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
