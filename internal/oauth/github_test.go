package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/penmark-app/penmark-backend/internal/apperr"
	"github.com/penmark-app/penmark-backend/internal/config"
)

func testGithubConfig() config.OAuthProvider {
	return config.OAuthProvider{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://penmark.app/auth/github/callback",
	}
}

func TestNewGitHub_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewGitHub(config.OAuthProvider{})
	assert.Error(t, err)

	cfg := testGithubConfig()
	cfg.RedirectURL = "://not-a-url"
	_, err = NewGitHub(cfg)
	assert.Error(t, err)
}

func TestGitHub_AuthCodeURL_CarriesStateAndChallenge(t *testing.T) {
	t.Parallel()

	g, err := NewGitHub(testGithubConfig())
	require.NoError(t, err)

	verifier := GenerateVerifier()
	raw := g.AuthCodeURL("csrf-state", verifier)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "csrf-state", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEqual(t, verifier, q.Get("code_challenge"))
}

func TestGitHub_Exchange(t *testing.T) {
	t.Parallel()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		assert.NotEmpty(t, r.Form.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"gh-token","token_type":"bearer"}`))
	}))
	defer tokenServer.Close()

	g, err := NewGitHub(testGithubConfig())
	require.NoError(t, err)
	g.Config.Endpoint = oauth2.Endpoint{TokenURL: tokenServer.URL}

	tok, err := g.Exchange(context.Background(), "the-code", GenerateVerifier())
	require.NoError(t, err)
	assert.Equal(t, "gh-token", tok.AccessToken)
}

func TestGitHub_Exchange_ProviderDown(t *testing.T) {
	t.Parallel()

	g, err := NewGitHub(testGithubConfig())
	require.NoError(t, err)
	g.Config.Endpoint = oauth2.Endpoint{TokenURL: "http://127.0.0.1:1/token"}

	_, err = g.Exchange(context.Background(), "code", GenerateVerifier())
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestGitHub_FetchProfile_PublicEmail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":42,"login":"alice","name":"Alice","email":"alice@x.com","avatar_url":"https://a/img.png"}`))
	}))
	defer srv.Close()

	g, err := NewGitHub(testGithubConfig())
	require.NoError(t, err)
	g.UserInfoURL = srv.URL

	profile, err := g.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "gh-token"})
	require.NoError(t, err)
	assert.Equal(t, &Profile{
		ProviderAccountID: "42",
		Email:             "alice@x.com",
		Name:              "Alice",
		Image:             "https://a/img.png",
	}, profile)
}

func TestGitHub_FetchProfile_EmailListFallback(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":42,"login":"alice","avatar_url":""}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"email":"old@x.com","primary":false,"verified":true},
			{"email":"alice@x.com","primary":true,"verified":true}
		]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g, err := NewGitHub(testGithubConfig())
	require.NoError(t, err)
	g.UserInfoURL = srv.URL + "/user"
	g.EmailsURL = srv.URL + "/user/emails"

	profile, err := g.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "gh-token"})
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", profile.Email, "verified primary email wins")
	assert.Equal(t, "alice", profile.Name, "login is the name fallback")
}

func TestPickGithubEmail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "p@x.com", pickGithubEmail([]githubEmail{
		{Email: "v@x.com", Verified: true},
		{Email: "p@x.com", Primary: true, Verified: true},
	}))
	assert.Equal(t, "v@x.com", pickGithubEmail([]githubEmail{
		{Email: "u@x.com"},
		{Email: "v@x.com", Verified: true},
	}))
	assert.Equal(t, "u@x.com", pickGithubEmail([]githubEmail{{Email: "u@x.com"}}))
	assert.Equal(t, "", pickGithubEmail(nil))
}

func TestGitHub_FetchProfile_NoEmailAnywhere(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":42,"login":"alice"}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g, err := NewGitHub(testGithubConfig())
	require.NoError(t, err)
	g.UserInfoURL = srv.URL + "/user"
	g.EmailsURL = srv.URL + "/user/emails"

	_, err = g.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "gh-token"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	g, err := NewGitHub(testGithubConfig())
	require.NoError(t, err)

	reg := NewRegistry(g)
	got, err := reg.Get("github")
	require.NoError(t, err)
	assert.Equal(t, "github", got.Name())

	_, err = reg.Get("gitlab")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
