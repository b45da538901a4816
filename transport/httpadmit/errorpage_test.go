package httpadmit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wampgo/wampcore/werr"
)

func TestErrorPageTableDefaultsToPlainText(t *testing.T) {
	table := ErrorPageTable{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	table.Render(rec, req, werr.HTTPAdmitNotFound)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestErrorPageTableRendersConfiguredHTML(t *testing.T) {
	table := ErrorPageTable{
		werr.HTTPAdmitBadRequest: {HTML: true, Body: "<h1>bad</h1>"},
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	table.Render(rec, req, werr.HTTPAdmitBadRequest)

	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if rec.Body.String() != "<h1>bad</h1>" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestErrorPageTableFollowsRedirect(t *testing.T) {
	table := ErrorPageTable{
		werr.HTTPAdmitNotFound: {Redirect: "/fallback"},
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	table.Render(rec, req, werr.HTTPAdmitNotFound)

	if rec.Code != http.StatusFound {
		t.Fatalf("code = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/fallback" {
		t.Fatalf("Location = %q", loc)
	}
}

func TestErrorPageTableInvokesGenerator(t *testing.T) {
	called := false
	table := ErrorPageTable{
		werr.HTTPAdmitBadRequest: {Generator: func(w http.ResponseWriter, r *http.Request, errc werr.HTTPAdmitErrc) {
			called = true
			w.WriteHeader(http.StatusTeapot)
		}},
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	table.Render(rec, req, werr.HTTPAdmitBadRequest)

	if !called {
		t.Fatal("expected generator to run")
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("code = %d, want 418", rec.Code)
	}
}
