package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"spinwin-backend/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Identity is the stable result of an external sign-in. Credentials never
// reach this service.
type Identity struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

// IdentityProvider abstracts the interactive sign-in flow: hand the browser an
// authorization URL, then resolve the returned code into an identity.
type IdentityProvider interface {
	AuthURL(state string) string
	Resolve(ctx context.Context, code string) (*Identity, error)
}

type GoogleProvider struct {
	cfg *oauth2.Config
}

func NewGoogleProvider(cfg *config.Config) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/auth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (p *GoogleProvider) AuthURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *GoogleProvider) Resolve(ctx context.Context, code string) (*Identity, error) {
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %v", err)
	}

	return fetchGoogleUser(ctx, token)
}

func fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token.AccessToken))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &Identity{
		ID:        payload.ID,
		Name:      payload.Name,
		Email:     payload.Email,
		AvatarURL: payload.Picture,
	}, nil
}
