package auth

import (
	"context"

	"github.com/wampgo/wampcore/wampmsg"
)

// Authenticator validates a HELLO's credentials for one realm and
// returns the authid/authrole the router records before sending
// WELCOME, per SPEC_FULL.md §4.I/§4.M. Because the message set this
// module implements has no CHALLENGE/AUTHENTICATE round trip, every
// Authenticator validates whatever credential the client already
// carried in HELLO.Details — a ticket string or a bearer token —
// synchronously, rather than issuing a challenge and waiting for a
// second message.
type Authenticator interface {
	// AuthMethod is the value this authenticator matches against
	// HELLO.Details["authmethods"].
	AuthMethod() string

	// Authenticate validates details (as supplied in HELLO) for realm,
	// returning the authid/authrole to record, or an error describing
	// why authentication failed.
	Authenticate(ctx context.Context, realm string, details wampmsg.Options) (authid, authrole string, err error)
}
