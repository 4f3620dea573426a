package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/penmark-app/penmark-backend/internal/apperr"
	"github.com/penmark-app/penmark-backend/internal/models"
	oauthpkg "github.com/penmark-app/penmark-backend/internal/oauth"
)

type fakeProvider struct {
	name          string
	profile       *oauthpkg.Profile
	accessToken   string
	exchangeCalls int
	exchangeErr   error
	fetchErr      error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthCodeURL(state, verifier string) string {
	return "https://provider.test/authorize?state=" + state
}

func (f *fakeProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{
		AccessToken:  f.accessToken,
		RefreshToken: "provider-refresh",
		TokenType:    "bearer",
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeProvider) FetchProfile(ctx context.Context, tok *oauth2.Token) (*oauthpkg.Profile, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.profile, nil
}

func seedUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()
	user := &models.User{ID: uuid.New(), Username: username, Email: email, Role: "user"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedOAuthAccount(t *testing.T, db *gorm.DB, user *models.User, provider, providerAccountID string) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:                uuid.New(),
		UserID:            user.ID,
		Provider:          provider,
		ProviderAccountID: providerAccountID,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func newOAuthService(t *testing.T, provider *fakeProvider) (*OAuthService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewOAuthService(db, oauthpkg.NewRegistry(provider), newTestIssuer(t)), db
}

func githubFake() *fakeProvider {
	return &fakeProvider{
		name:        "github",
		accessToken: "provider-access",
		profile: &oauthpkg.Profile{
			ProviderAccountID: "gh-42",
			Email:             "alice@x.com",
			Name:              "Alice Smith",
			Image:             "https://a/img.png",
		},
	}
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	svc, _ := newOAuthService(t, githubFake())
	redirect, err := svc.Authorize("github")
	require.NoError(t, err)
	assert.Contains(t, redirect.URL, redirect.State)
	assert.NotEmpty(t, redirect.Verifier)

	again, err := svc.Authorize("github")
	require.NoError(t, err)
	assert.NotEqual(t, redirect.State, again.State, "state must be fresh per attempt")
}

func TestAuthorize_UnknownProvider(t *testing.T) {
	t.Parallel()

	svc, _ := newOAuthService(t, githubFake())
	_, err := svc.Authorize("gitlab")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCallback_StateMismatchRejectedBeforeExchange(t *testing.T) {
	t.Parallel()

	provider := githubFake()
	svc, _ := newOAuthService(t, provider)

	cases := []struct{ state, stored string }{
		{"returned", "stored"},
		{"", "stored"},
		{"returned", ""},
	}
	for _, tc := range cases {
		_, err := svc.Callback(context.Background(), "github", "code", tc.state, tc.stored, "verifier")
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	}
	assert.Zero(t, provider.exchangeCalls, "no provider call may happen before the state check")
}

func TestCallback_FirstLoginCreatesUserAndAccount(t *testing.T) {
	t.Parallel()

	provider := githubFake()
	svc, db := newOAuthService(t, provider)

	resp, err := svc.Callback(context.Background(), "github", "code", "s1", "s1", "verifier")
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.NotEmpty(t, resp.Fingerprint)

	assert.EqualValues(t, 1, countRows(t, db, &models.User{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.Account{}))

	var user models.User
	require.NoError(t, db.First(&user).Error)
	assert.Equal(t, "alice-smith", user.Username)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.NotNil(t, user.EmailVerified)

	var account models.Account
	require.NoError(t, db.First(&account).Error)
	assert.Equal(t, "github", account.Provider)
	assert.Equal(t, "gh-42", account.ProviderAccountID)
	require.NotNil(t, account.AccessToken)
	assert.Equal(t, "provider-access", *account.AccessToken)
	assert.Nil(t, account.PasswordHash)
}

func TestCallback_ReloginUpdatesAccount(t *testing.T) {
	t.Parallel()

	provider := githubFake()
	svc, db := newOAuthService(t, provider)

	_, err := svc.Callback(context.Background(), "github", "code", "s1", "s1", "verifier")
	require.NoError(t, err)

	provider.accessToken = "rotated-access"
	resp, err := svc.Callback(context.Background(), "github", "code", "s2", "s2", "verifier")
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	assert.EqualValues(t, 1, countRows(t, db, &models.User{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.Account{}))

	var account models.Account
	require.NoError(t, db.First(&account).Error)
	require.NotNil(t, account.AccessToken)
	assert.Equal(t, "rotated-access", *account.AccessToken)
}

func TestCallback_DisplayNameCollisionGetsFreshUsername(t *testing.T) {
	t.Parallel()

	provider := githubFake()
	svc, db := newOAuthService(t, provider)

	// A different user already holds the username the display name maps to.
	seedUser(t, db, "alice-smith", "other@x.com")

	_, err := svc.Callback(context.Background(), "github", "code", "s1", "s1", "verifier")
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.Where("email = ?", "alice@x.com").First(&user).Error)
	assert.Equal(t, "alice-smith-2", user.Username)
	assert.EqualValues(t, 2, countRows(t, db, &models.User{}))
}

func TestCallback_SoftDeletedUsernameStaysTaken(t *testing.T) {
	t.Parallel()

	provider := githubFake()
	svc, db := newOAuthService(t, provider)

	occupant := seedUser(t, db, "alice-smith", "other@x.com")
	require.NoError(t, db.Delete(occupant).Error)

	_, err := svc.Callback(context.Background(), "github", "code", "s1", "s1", "verifier")
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.Where("email = ?", "alice@x.com").First(&user).Error)
	assert.Equal(t, "alice-smith-2", user.Username, "the unique index still holds soft-deleted usernames")
}

func TestCallback_EmailCollisionRejected(t *testing.T) {
	t.Parallel()

	provider := githubFake()
	svc, db := newOAuthService(t, provider)

	seedUser(t, db, "alice", "alice@x.com")

	_, err := svc.Callback(context.Background(), "github", "code", "s1", "s1", "verifier")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "another account already exists with this email address", apperr.PublicMessage(err))

	assert.EqualValues(t, 1, countRows(t, db, &models.User{}), "the pre-existing user must not be linked")
	assert.EqualValues(t, 0, countRows(t, db, &models.Account{}))
}

func TestCallback_AtomicUserAndAccountInsert(t *testing.T) {
	t.Parallel()

	provider := githubFake()
	svc, db := newOAuthService(t, provider)

	// Force the account insert to fail after the user insert succeeds.
	require.NoError(t, db.Migrator().DropTable(&models.Account{}))

	_, err := svc.Callback(context.Background(), "github", "code", "s1", "s1", "verifier")
	require.Error(t, err)

	assert.EqualValues(t, 0, countRows(t, db, &models.User{}), "user insert must roll back with the account insert")
}

func TestCallback_ExchangeFailure(t *testing.T) {
	t.Parallel()

	provider := githubFake()
	provider.exchangeErr = apperr.Unavailable(assert.AnError)
	svc, db := newOAuthService(t, provider)

	_, err := svc.Callback(context.Background(), "github", "code", "s1", "s1", "verifier")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.EqualValues(t, 0, countRows(t, db, &models.User{}))
}

func TestCallback_DeletedLinkedUser(t *testing.T) {
	t.Parallel()

	provider := githubFake()
	svc, db := newOAuthService(t, provider)

	user := seedUser(t, db, "alice", "alice@x.com")
	seedOAuthAccount(t, db, user, "github", "gh-42")
	require.NoError(t, db.Delete(user).Error)

	_, err := svc.Callback(context.Background(), "github", "code", "s1", "s1", "verifier")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUsernameFromProfile(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alice-smith", usernameFromProfile(&oauthpkg.Profile{Name: "Alice Smith", Email: "a@x.com"}))
	assert.Equal(t, "alice", usernameFromProfile(&oauthpkg.Profile{Name: "", Email: "alice@x.com"}))
	assert.Equal(t, "bob", usernameFromProfile(&oauthpkg.Profile{Name: "bob@x.com", Email: "bob@x.com"}))
}
