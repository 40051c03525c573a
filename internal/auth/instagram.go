package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/instagram"
)

// instagramUser is the Basic Display API /me response. Instagram grants no
// email and no avatar through this API — those Profile fields stay empty and
// the user fills in an email on their profile page if they want one.
type instagramUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// InstagramProvider performs the Instagram Authorization Code flow.
type InstagramProvider struct {
	config *oauth2.Config
}

// NewInstagramProvider creates an InstagramProvider with the given app
// credentials.
func NewInstagramProvider(clientID, clientSecret, callbackURL string) *InstagramProvider {
	return &InstagramProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"user_profile"},
			Endpoint:     instagram.Endpoint,
		},
	}
}

func (p *InstagramProvider) Name() string { return "instagram" }

func (p *InstagramProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a normalized profile.
func (p *InstagramProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("exchanging OAuth code: %w", err))
	}

	client := p.config.Client(ctx, token)

	resp, err := client.Get("https://graph.instagram.com/me?fields=id,username")
	if err != nil {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("calling profile API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("profile API returned status %d", resp.StatusCode))
	}

	var iu instagramUser
	if err := json.NewDecoder(resp.Body).Decode(&iu); err != nil {
		return nil, exchangeFailed(p.Name(), fmt.Errorf("decoding profile response: %w", err))
	}

	if iu.ID == "" {
		return nil, exchangeFailed(p.Name(), errors.New("profile response has no id"))
	}

	return &Profile{
		ProviderID:  iu.ID,
		DisplayName: iu.Username,
	}, nil
}
