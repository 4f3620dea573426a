package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/penmark-app/penmark-backend/internal/apperr"
	"github.com/penmark-app/penmark-backend/internal/config"
)

// Google implements Provider against the Google userinfo API.
type Google struct {
	Config *oauth2.Config

	// UserInfoURL defaults to the Google API and can be overridden for
	// testing.
	UserInfoURL string
	Client      *http.Client
}

func NewGoogle(cfg config.OAuthProvider) (*Google, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, apperr.New(apperr.KindInternal, "google oauth client is not configured")
	}
	if err := validateRedirectURL(cfg.RedirectURL); err != nil {
		return nil, err
	}
	return &Google{
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthCodeURL(state, verifier string) string {
	return g.Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (g *Google) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	tok, err := g.Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "google code exchange failed", err)
	}
	return tok, nil
}

type googleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (g *Google) FetchProfile(ctx context.Context, tok *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "google request build failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := httpClient(g.Client).Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "google profile fetch failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "google profile read failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Wrap(apperr.KindUnavailable, "google profile fetch failed",
			fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var user googleUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "google profile parse failed", err)
	}
	if user.Email == "" {
		return nil, apperr.Validation("google account has no usable email address")
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}

	return &Profile{
		ProviderAccountID: user.ID,
		Email:             user.Email,
		Name:              name,
		Image:             user.Picture,
	}, nil
}
