package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/segmentio/encoding/json"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/wampgo/wampcore/wampmsg"
)

// IntrospectionResponse is the RFC 7662 token introspection response
// shape this authenticator decodes.
type IntrospectionResponse struct {
	Active   bool   `json:"active"`
	Subject  string `json:"sub"`
	Scope    string `json:"scope"`
	AuthRole string `json:"authrole"`
}

// OAuth2Authenticator validates a bearer token carried as the WAMP
// "oauth2" authmethod's credential by calling an RFC 7662 introspection
// endpoint, per SPEC_FULL.md §4.M. The introspection call itself is
// authenticated with client-credentials, the same grant the teacher
// uses client-side for outbound MCP requests in [auth.OAuthHandler]
// implementations, here turned around to authenticate the router as an
// introspection client.
type OAuth2Authenticator struct {
	// IntrospectionURL is the RFC 7662 token introspection endpoint.
	IntrospectionURL string

	// ClientCredentials authenticates this router to the introspection
	// endpoint.
	ClientCredentials clientcredentials.Config

	// HTTPClient, when non-nil, performs the introspection request in
	// place of the client built from ClientCredentials. When nil, the
	// request goes through the ClientCredentials client.
	HTTPClient *http.Client

	// RoleFromScope maps an introspected scope string to a WAMP
	// authrole when the introspection response carries no explicit
	// "authrole" field. Optional.
	RoleFromScope func(scope string) string
}

// AuthMethod implements [Authenticator].
func (a *OAuth2Authenticator) AuthMethod() string { return "oauth2" }

// Authenticate implements [Authenticator].
func (a *OAuth2Authenticator) Authenticate(ctx context.Context, _ string, details wampmsg.Options) (string, string, error) {
	token, _ := details["token"].(string)
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return "", "", fmt.Errorf("auth: missing bearer token in hello details")
	}

	client := a.ClientCredentials.Client(ctx)
	if a.HTTPClient != nil {
		client = a.HTTPClient
	}

	resp, err := client.PostForm(a.IntrospectionURL, url.Values{"token": {token}})
	if err != nil {
		return "", "", fmt.Errorf("auth: introspection request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("auth: introspection endpoint returned %s", resp.Status)
	}

	var parsed IntrospectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("auth: decoding introspection response: %w", err)
	}
	if !parsed.Active {
		return "", "", fmt.Errorf("auth: token is not active")
	}

	role := parsed.AuthRole
	if role == "" && a.RoleFromScope != nil {
		role = a.RoleFromScope(parsed.Scope)
	}
	return parsed.Subject, role, nil
}
