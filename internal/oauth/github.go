package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/penmark-app/penmark-backend/internal/apperr"
	"github.com/penmark-app/penmark-backend/internal/config"
)

// GitHub implements Provider against the GitHub OAuth app API.
type GitHub struct {
	Config *oauth2.Config

	// UserInfoURL and EmailsURL default to the GitHub API and can be
	// overridden for testing.
	UserInfoURL string
	EmailsURL   string
	Client      *http.Client
}

func NewGitHub(cfg config.OAuthProvider) (*GitHub, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, apperr.New(apperr.KindInternal, "github oauth client is not configured")
	}
	if err := validateRedirectURL(cfg.RedirectURL); err != nil {
		return nil, err
	}
	return &GitHub{
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		UserInfoURL: "https://api.github.com/user",
		EmailsURL:   "https://api.github.com/user/emails",
	}, nil
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) AuthCodeURL(state, verifier string) string {
	return g.Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (g *GitHub) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	tok, err := g.Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "github code exchange failed", err)
	}
	return tok, nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) FetchProfile(ctx context.Context, tok *oauth2.Token) (*Profile, error) {
	var user githubUser
	if err := g.getJSON(ctx, g.UserInfoURL, tok, &user); err != nil {
		return nil, err
	}

	email := user.Email
	if email == "" {
		// The profile endpoint omits the email unless it is public;
		// fall back to the email-list endpoint.
		var emails []githubEmail
		if err := g.getJSON(ctx, g.EmailsURL, tok, &emails); err != nil {
			return nil, err
		}
		email = pickGithubEmail(emails)
	}
	if email == "" {
		return nil, apperr.Validation("github account has no usable email address")
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}
	if name == "" {
		name = email
	}

	return &Profile{
		ProviderAccountID: strconv.FormatInt(user.ID, 10),
		Email:             email,
		Name:              name,
		Image:             user.AvatarURL,
	}, nil
}

func pickGithubEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

func (g *GitHub) getJSON(ctx context.Context, url string, tok *oauth2.Token, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "github request build failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient(g.Client).Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "github profile fetch failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "github profile read failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return apperr.Wrap(apperr.KindUnavailable, "github profile fetch failed",
			fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Wrap(apperr.KindInternal, "github profile parse failed", err)
	}
	return nil
}
