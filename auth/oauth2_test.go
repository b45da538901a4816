package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wampgo/wampcore/wampmsg"
)

// fakeIntrospectionServer serves a minimal RFC 7662 token introspection
// endpoint for testing [OAuth2Authenticator], the way
// internal/testing's fake authorization server faked an authorization
// endpoint for the client-side flow this router does not perform.
func fakeIntrospectionServer(t *testing.T, active bool, body string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/introspect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("introspection request method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuth2AuthenticatorAcceptsActiveToken(t *testing.T) {
	srv := fakeIntrospectionServer(t, true, `{"active":true,"sub":"alice","authrole":"admin"}`)
	a := &OAuth2Authenticator{IntrospectionURL: srv.URL + "/introspect", HTTPClient: srv.Client()}

	authid, authrole, err := a.Authenticate(context.Background(), "realm", wampmsg.Options{"token": "Bearer abc123"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if authid != "alice" || authrole != "admin" {
		t.Errorf("got authid=%q authrole=%q", authid, authrole)
	}
}

func TestOAuth2AuthenticatorRejectsInactiveToken(t *testing.T) {
	srv := fakeIntrospectionServer(t, false, `{"active":false}`)
	a := &OAuth2Authenticator{IntrospectionURL: srv.URL + "/introspect", HTTPClient: srv.Client()}

	if _, _, err := a.Authenticate(context.Background(), "realm", wampmsg.Options{"token": "abc123"}); err == nil {
		t.Error("expected error for an inactive token")
	}
}

func TestOAuth2AuthenticatorRejectsMissingToken(t *testing.T) {
	a := &OAuth2Authenticator{IntrospectionURL: "http://unused"}
	if _, _, err := a.Authenticate(context.Background(), "realm", wampmsg.Options{}); err == nil {
		t.Error("expected error for missing bearer token")
	}
}

func TestOAuth2AuthenticatorFallsBackToRoleFromScope(t *testing.T) {
	srv := fakeIntrospectionServer(t, true, `{"active":true,"sub":"bob","scope":"read write"}`)
	a := &OAuth2Authenticator{
		IntrospectionURL: srv.URL + "/introspect",
		HTTPClient:       srv.Client(),
		RoleFromScope: func(scope string) string {
			if scope == "read write" {
				return "editor"
			}
			return "viewer"
		},
	}

	_, authrole, err := a.Authenticate(context.Background(), "realm", wampmsg.Options{"token": "abc123"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if authrole != "editor" {
		t.Errorf("authrole = %q, want editor", authrole)
	}
}
