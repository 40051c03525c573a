package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// googleUser is the portion of Google's userinfo response we care about.
// Google returns a larger object — we only unmarshal the fields we need.
type googleUser struct {
	ID      string `json:"id"`      // Google's stable account id
	Name    string `json:"name"`    // display name
	Email   string `json:"email"`   // granted via the "email" scope
	Picture string `json:"picture"` // avatar URL
}

// GoogleProvider performs the Google Authorization Code flow via
// golang.org/x/oauth2. The code-for-token exchange happens server-to-server
// with our client secret; the access token never reaches the browser.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given OAuth client
// credentials. callbackURL must exactly match the redirect URI registered in
// the Google console, e.g. "http://localhost:3000/auth/google/callback".
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.profile",
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		},
	}
}

func (p *GoogleProvider) Name() string { return "google" }

// AuthURL returns the consent page URL carrying our CSRF state.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a normalized profile:
// code → access token → userinfo API → Profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("exchanging OAuth code: %w", err))
	}

	// oauth2.Config.Client returns an *http.Client that attaches the bearer
	// token to every request.
	client := p.config.Client(ctx, token)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("calling userinfo API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("userinfo API returned status %d", resp.StatusCode))
	}

	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("decoding userinfo response: %w", err))
	}

	if gu.ID == "" {
		return nil, exchangeFailed(p.Name(), errors.New("userinfo response has no id"))
	}

	return &Profile{
		ProviderID:  gu.ID,
		DisplayName: gu.Name,
		Email:       gu.Email,
		AvatarURL:   gu.Picture,
	}, nil
}
