package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// facebookUser mirrors the Graph API /me response for the fields we request.
// The avatar comes back nested under picture.data.url.
type facebookUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"` // only present when the user grants the email permission
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// FacebookProvider performs the Facebook Authorization Code flow.
type FacebookProvider struct {
	config *oauth2.Config
}

// NewFacebookProvider creates a FacebookProvider with the given app
// credentials. callbackURL must match the redirect URI registered with the
// Facebook app.
func NewFacebookProvider(clientID, clientSecret, callbackURL string) *FacebookProvider {
	return &FacebookProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"public_profile", "email"},
			Endpoint:     facebook.Endpoint,
		},
	}
}

func (p *FacebookProvider) Name() string { return "facebook" }

func (p *FacebookProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a normalized profile via the
// Graph API. The fields parameter keeps the response to exactly what we use.
func (p *FacebookProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("exchanging OAuth code: %w", err))
	}

	client := p.config.Client(ctx, token)

	resp, err := client.Get("https://graph.facebook.com/me?fields=id,name,email,picture")
	if err != nil {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("calling Graph API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("Graph API returned status %d", resp.StatusCode))
	}

	var fu facebookUser
	if err := json.NewDecoder(resp.Body).Decode(&fu); err != nil {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("decoding Graph response: %w", err))
	}

	if fu.ID == "" {
		return nil, exchangeFailed(p.Name(), errors.New("Graph response has no id"))
	}

	return &Profile{
		ProviderID:  fu.ID,
		DisplayName: fu.Name,
		Email:       fu.Email,
		AvatarURL:   fu.Picture.Data.URL,
	}, nil
}
