package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/penmark-app/penmark-backend/internal/apperr"
)

// Profile is the normalized identity returned by a provider after a
// successful code exchange.
type Profile struct {
	ProviderAccountID string `json:"provider_account_id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Image             string `json:"image"`
}

// Provider is one third-party identity provider. Implementations normalize
// provider-specific profile shapes behind this interface.
type Provider interface {
	Name() string

	// AuthCodeURL builds the provider authorization URL carrying the CSRF
	// state and the S256 challenge for verifier.
	AuthCodeURL(state, verifier string) string

	// Exchange trades the authorization code plus PKCE verifier for
	// provider tokens.
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// FetchProfile resolves the provider profile for tok.
	FetchProfile(ctx context.Context, tok *oauth2.Token) (*Profile, error)
}

// Registry selects a Provider by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apperr.Validation("unknown oauth provider: " + name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// GenerateState returns a random CSRF state value.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "state generation failed", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GenerateVerifier returns a fresh PKCE verifier.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

func validateRedirectURL(raw string) error {
	if raw == "" {
		return apperr.New(apperr.KindInternal, "oauth redirect URL is not configured")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return apperr.Wrap(apperr.KindInternal, "oauth redirect URL is malformed", err)
	}
	return nil
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
