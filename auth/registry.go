package auth

import (
	"context"
	"fmt"

	"github.com/wampgo/wampcore/wampmsg"
)

// Registry dispatches a HELLO's authentication to whichever configured
// [Authenticator] matches the client's offered authmethods.
type Registry struct {
	byMethod map[string]Authenticator
}

// NewRegistry builds a Registry from authenticators, keyed by each
// authenticator's AuthMethod().
func NewRegistry(authenticators ...Authenticator) *Registry {
	r := &Registry{byMethod: make(map[string]Authenticator, len(authenticators))}
	for _, a := range authenticators {
		r.byMethod[a.AuthMethod()] = a
	}
	return r
}

// Authenticate picks the first of details["authmethods"] this registry
// has an authenticator for and delegates to it, per SPEC_FULL.md §4.M.
func (r *Registry) Authenticate(ctx context.Context, realm string, details wampmsg.Options) (authid, authrole, method string, err error) {
	methods, _ := details["authmethods"].([]any)
	for _, m := range methods {
		name, _ := m.(string)
		a, ok := r.byMethod[name]
		if !ok {
			continue
		}
		id, role, err := a.Authenticate(ctx, realm, details)
		if err != nil {
			return "", "", name, err
		}
		return id, role, name, nil
	}
	return "", "", "", fmt.Errorf("auth: no matching authmethod among %v", methods)
}
