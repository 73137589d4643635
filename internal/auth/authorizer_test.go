package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	store      *memStore
	tokens     *TokenIssuer
	authorizer *Authorizer
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	store := newMemStore()
	tokens, err := NewTokenIssuer("test-secret", "powerx")
	require.NoError(t, err)
	userScopes, err := NewUserAccessScopesHelper(store)
	require.NoError(t, err)
	keyScopes, err := NewAPIKeyAccessScopesHelper(store)
	require.NoError(t, err)
	authorizer, err := NewAuthorizer(tokens, store, userScopes, keyScopes)
	require.NoError(t, err)
	return authFixture{store: store, tokens: tokens, authorizer: authorizer}
}

func (f authFixture) token(t *testing.T, userID string, scopes ...AccessScope) string {
	t.Helper()
	token, _, err := f.tokens.Issue(userID, scopes, time.Hour)
	require.NoError(t, err)
	return token
}

func (f authFixture) apiKey(t *testing.T, scopes ...AccessScope) (string, APIKey) {
	t.Helper()
	raw, hash, prefix, err := GenerateAPIKey()
	require.NoError(t, err)
	key, err := f.store.CreateAPIKey(context.Background(), APIKey{Name: "sensor", KeyHash: hash, Prefix: prefix}, scopes, nil)
	require.NoError(t, err)
	return raw, key
}

func TestVerifyJWTChecksTokenScopes(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	token := f.token(t, "u1", ScopeHVACRead)

	cred, err := f.authorizer.VerifyJWT(ctx, token, ScopeHVACRead)
	require.NoError(t, err)
	assert.Equal(t, "u1", cred.Token.UserID)

	_, err = f.authorizer.VerifyJWT(ctx, token, ScopeHVACRead, ScopeHVACWrite)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.authorizer.VerifyJWT(ctx, "", ScopeHVACRead)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.authorizer.VerifyJWT(ctx, "not-a-jwt")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAdminScopeBypassesRequiredScopes(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.store.userScopes["root"] = []AccessScope{ScopeAdmin}
	token := f.token(t, "root", ScopeAdmin)
	all := NewScopeCatalog().Definitions()
	required := make([]AccessScope, 0, len(all))
	for _, d := range all {
		required = append(required, d.Scope)
	}

	_, err := f.authorizer.VerifyJWT(ctx, token, required...)
	require.NoError(t, err)
	_, _, err = f.authorizer.VerifyAny(ctx, token, "", required...)
	require.NoError(t, err)

	raw, _ := f.apiKey(t, ScopeAdmin)
	_, _, err = f.authorizer.VerifyAny(ctx, "", raw, required...)
	require.NoError(t, err)
}

func TestVerifyAnyResolvesUserScopesFromStorage(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.store.userRoles["u1"] = []string{"viewer"}
	f.store.roleScopes["viewer"] = []AccessScope{ScopeLocationsRead}
	// token scopes are ignored by VerifyAny
	token := f.token(t, "u1", ScopeHVACWrite)

	cred, scopes, err := f.authorizer.VerifyAny(ctx, token, "", ScopeLocationsRead)
	require.NoError(t, err)
	jwtCred, ok := cred.(JWTCredential)
	require.True(t, ok)
	assert.Equal(t, "u1", jwtCred.Token.UserID)
	assert.True(t, scopes.Has(ScopeLocationsRead))

	_, _, err = f.authorizer.VerifyAny(ctx, token, "", ScopeHVACWrite)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestVerifyAnyWithAPIKey(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	raw, key := f.apiKey(t, ScopeHVACRead)

	cred, _, err := f.authorizer.VerifyAny(ctx, "", raw, ScopeHVACRead)
	require.NoError(t, err)
	keyCred, ok := cred.(APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, key.ID, keyCred.Key.ID)

	_, _, err = f.authorizer.VerifyAny(ctx, "", raw, ScopeHVACWrite)
	require.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.authorizer.VerifyAny(ctx, "", "pwx_unknown", ScopeHVACRead)
	require.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, f.store.RevokeAPIKey(ctx, key.ID))
	_, _, err = f.authorizer.VerifyAny(ctx, "", raw, ScopeHVACRead)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyAnyRequiresExactlyOneCredential(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	raw, _ := f.apiKey(t, ScopeHVACRead)
	token := f.token(t, "u1")

	_, _, err := f.authorizer.VerifyAny(ctx, token, raw)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, _, err = f.authorizer.VerifyAny(ctx, "", "")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCredentialContextRoundTrip(t *testing.T) {
	ctx := ContextWithCredential(context.Background(), JWTCredential{Token: AccessTokenData{UserID: "u1"}})
	userID, ok := UserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", userID)

	ctx = ContextWithCredential(context.Background(), APIKeyCredential{Key: APIKey{ID: "k"}})
	_, ok = UserIDFromContext(ctx)
	assert.False(t, ok)

	_, ok = CredentialFromContext(context.Background())
	assert.False(t, ok)
}
