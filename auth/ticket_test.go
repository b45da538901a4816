package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wampgo/wampcore/wampmsg"
)

func signTestTicket(t *testing.T, secret []byte, authid, authrole string) string {
	t.Helper()
	claims := ticketClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		AuthID:   authid,
		AuthRole: authrole,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return signed
}

func TestTicketAuthenticatorAcceptsValidTicket(t *testing.T) {
	secret := []byte("test-secret")
	a := &TicketAuthenticator{
		KeyFunc:      func(*jwt.Token) (any, error) { return secret, nil },
		ValidMethods: []string{"HS256"},
	}
	ticket := signTestTicket(t, secret, "alice", "admin")

	authid, authrole, err := a.Authenticate(context.Background(), "com.example.realm", wampmsg.Options{"ticket": ticket})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if authid != "alice" || authrole != "admin" {
		t.Errorf("got authid=%q authrole=%q", authid, authrole)
	}
}

func TestTicketAuthenticatorRejectsMissingTicket(t *testing.T) {
	a := &TicketAuthenticator{KeyFunc: func(*jwt.Token) (any, error) { return []byte("x"), nil }, ValidMethods: []string{"HS256"}}
	if _, _, err := a.Authenticate(context.Background(), "realm", wampmsg.Options{}); err != ErrMissingTicket {
		t.Errorf("got %v, want ErrMissingTicket", err)
	}
}

func TestTicketAuthenticatorRejectsBadSignature(t *testing.T) {
	secret := []byte("test-secret")
	a := &TicketAuthenticator{
		KeyFunc:      func(*jwt.Token) (any, error) { return secret, nil },
		ValidMethods: []string{"HS256"},
	}
	ticket := signTestTicket(t, []byte("wrong-secret"), "alice", "admin")

	if _, _, err := a.Authenticate(context.Background(), "realm", wampmsg.Options{"ticket": ticket}); err == nil {
		t.Error("expected error for a ticket signed with the wrong secret")
	}
}

func TestRegistryDispatchesByAuthmethod(t *testing.T) {
	secret := []byte("test-secret")
	ticketAuth := &TicketAuthenticator{
		KeyFunc:      func(*jwt.Token) (any, error) { return secret, nil },
		ValidMethods: []string{"HS256"},
	}
	reg := NewRegistry(ticketAuth)
	ticket := signTestTicket(t, secret, "bob", "guest")

	authid, authrole, method, err := reg.Authenticate(context.Background(), "realm", wampmsg.Options{
		"authmethods": []any{"oauth2", "ticket"},
		"ticket":      ticket,
	})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if method != "ticket" || authid != "bob" || authrole != "guest" {
		t.Errorf("got method=%q authid=%q authrole=%q", method, authid, authrole)
	}
}

func TestRegistryFailsWhenNoMethodMatches(t *testing.T) {
	reg := NewRegistry()
	_, _, _, err := reg.Authenticate(context.Background(), "realm", wampmsg.Options{"authmethods": []any{"ticket"}})
	if err == nil {
		t.Error("expected error when no configured authenticator matches")
	}
}
