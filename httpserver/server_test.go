package httpserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/venuedesk/bookingengine/config"
	"github.com/venuedesk/bookingengine/store"
	"github.com/venuedesk/bookingengine/workflow"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	os.Setenv("STORE_DB_PATH", filepath.Join(dir, "events.json"))
	defer os.Unsetenv("STORE_DB_PATH")

	cfgStore := config.NewStore()
	cfg := cfgStore.Current()
	st := store.New(cfg)
	router := workflow.New(st, cfgStore, nil, nil, nil, nil, nil, zerolog.Nop())
	return New(cfg, zerolog.Nop(), router, nil)
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMessagesRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	body := strings.NewReader(`{"msg_id":"m1","from_email":"a@x.com","body":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", body)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth header, got %d", rec.Code)
	}
}

func TestMessagesProcessesWithAuth(t *testing.T) {
	srv := newTestServer(t)
	body := strings.NewReader(`{"msg_id":"m1","from_email":"a@x.com","from_name":"A","body":"We'd like to book an event on 15.04.2026."}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", body)
	req.Header.Set("Authorization", "Bearer test-key")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
