package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wampgo/wampcore/wampmsg"
)

// ErrMissingTicket is returned when HELLO.Details carries no "ticket"
// field for the ticket authmethod.
var ErrMissingTicket = errors.New("auth: missing ticket in hello details")

// TicketAuthenticator validates a signed JWT carried as the WAMP
// "ticket" authmethod's credential, per SPEC_FULL.md §4.M. The ticket's
// "authid" and "authrole" claims become the session's identity.
type TicketAuthenticator struct {
	// KeyFunc resolves the verification key for a ticket, following
	// jwt.Parser's standard keyfunc contract (inspect token.Method to
	// pick an HMAC secret or an RSA/ECDSA public key).
	KeyFunc jwt.Keyfunc

	// ValidMethods restricts the accepted signing algorithms, e.g.
	// []string{"HS256"} or []string{"RS256"}. Required: an empty list
	// would let a malicious ticket pick its own algorithm.
	ValidMethods []string
}

// AuthMethod implements [Authenticator].
func (a *TicketAuthenticator) AuthMethod() string { return "ticket" }

type ticketClaims struct {
	jwt.RegisteredClaims
	AuthID   string `json:"authid"`
	AuthRole string `json:"authrole"`
}

// Authenticate implements [Authenticator].
func (a *TicketAuthenticator) Authenticate(_ context.Context, realm string, details wampmsg.Options) (string, string, error) {
	ticket, _ := details["ticket"].(string)
	if ticket == "" {
		return "", "", ErrMissingTicket
	}

	var claims ticketClaims
	token, err := jwt.ParseWithClaims(ticket, &claims, a.KeyFunc, jwt.WithValidMethods(a.ValidMethods))
	if err != nil {
		return "", "", fmt.Errorf("auth: invalid ticket: %w", err)
	}
	if !token.Valid {
		return "", "", fmt.Errorf("auth: ticket failed validation")
	}
	if len(claims.Audience) > 0 && !slices.Contains(claims.Audience, realm) {
		return "", "", fmt.Errorf("auth: ticket not valid for realm %q", realm)
	}

	authid := claims.AuthID
	if authid == "" {
		authid = claims.Subject
	}
	return authid, claims.AuthRole, nil
}
