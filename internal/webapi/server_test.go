package webapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hectormr206/orchestra/internal/session"
)

func TestRouter_ListSessionsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := session.NewStore(dir)
	router := NewRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() == "" {
		t.Fatal("expected a JSON body, got empty response")
	}
}

func TestRouter_GetUnknownSessionReturns404(t *testing.T) {
	dir := t.TempDir()
	store := session.NewStore(dir)
	router := NewRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/sessions/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
