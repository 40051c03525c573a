// Package auth implements the external identity providers and the session
// gates in front of protected routes.
//
// LOGIN FLOW:
//  1. GET /auth/{provider} redirects the browser to the provider's consent page
//  2. The provider calls back /auth/{provider}/callback with a short-lived code
//  3. The adapter exchanges the code server-to-server for an access token and
//     fetches the provider's profile, normalizing it into a Profile
//  4. The identity resolver maps the Profile to exactly one local User
//  5. A server-side session is created and its opaque token set as a cookie
//
// Providers are an open set behind the Provider interface: the resolver and
// the session layer depend only on the normalized Profile, so adding a
// provider means writing one adapter and registering it — nothing else
// changes.
package auth

import (
	"context"
	"fmt"

	"github.com/sakif/storyhub/internal/apperror"
)

// Profile is the provider-agnostic identity record every adapter returns.
// ProviderID is the provider's own stable user id; together with the
// provider's name it uniquely identifies an external identity.
type Profile struct {
	ProviderID  string
	DisplayName string
	Email       string // empty if the user hid it or the provider doesn't grant it
	AvatarURL   string // empty if the provider exposes none
}

// Provider is one external identity provider.
//
// AuthURL returns where to send the browser for consent; state is an opaque
// CSRF token the callback must echo back. Exchange completes the
// authorization-code flow and normalizes the provider's profile response.
type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// exchangeFailed wraps any failure inside an adapter's Exchange so callers see
// the provider-exchange category while the underlying cause stays in the chain
// for logs.
func exchangeFailed(provider string, err error) error {
	return fmt.Errorf("%w: %w", apperror.ProviderExchange(provider), err)
}
