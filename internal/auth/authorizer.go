package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"powerx.io/internal/obs"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (AccessTokenData, error)
}

// APIKeyLookup resolves a stored key from its hash.
type APIKeyLookup interface {
	FindAPIKeyByHash(ctx context.Context, hash string) (APIKey, error)
}

// Authorizer verifies request credentials and checks their scopes.
type Authorizer struct {
	tokens     TokenVerifier
	keys       APIKeyLookup
	userScopes *UserAccessScopesHelper
	keyScopes  *APIKeyAccessScopesHelper
}

func NewAuthorizer(tokens TokenVerifier, keys APIKeyLookup, userScopes *UserAccessScopesHelper, keyScopes *APIKeyAccessScopesHelper) (*Authorizer, error) {
	switch {
	case tokens == nil:
		return nil, errors.New("token verifier is required")
	case keys == nil:
		return nil, errors.New("api key lookup is required")
	case userScopes == nil || keyScopes == nil:
		return nil, errors.New("scope helpers are required")
	}
	return &Authorizer{tokens: tokens, keys: keys, userScopes: userScopes, keyScopes: keyScopes}, nil
}

// VerifyJWT accepts only a bearer token. The token's own scopes are checked against required.
func (a *Authorizer) VerifyJWT(ctx context.Context, bearer string, required ...AccessScope) (JWTCredential, error) {
	data, err := a.tokens.Verify(bearer)
	if err != nil {
		return JWTCredential{}, a.deny("jwt", fmt.Errorf("%w: %v", ErrUnauthenticated, err))
	}
	cred := JWTCredential{Token: data}
	if !data.Scopes().Satisfies(required...) {
		return JWTCredential{}, a.deny(cred.Kind(), forbidden(required))
	}
	obs.ObserveAuthorization(cred.Kind(), "allowed")
	return cred, nil
}

// VerifyAny accepts exactly one of a bearer token or an API key. Scopes are resolved from storage
// for either credential kind.
func (a *Authorizer) VerifyAny(ctx context.Context, bearer, apiKey string, required ...AccessScope) (Credential, ScopeSet, error) {
	bearer = strings.TrimSpace(bearer)
	apiKey = strings.TrimSpace(apiKey)
	switch {
	case bearer != "" && apiKey != "":
		return nil, nil, a.deny("ambiguous", fmt.Errorf("%w: provide either a bearer token or an api key, not both", ErrUnauthenticated))
	case bearer == "" && apiKey == "":
		return nil, nil, a.deny("none", fmt.Errorf("%w: credentials are required", ErrUnauthenticated))
	}

	cred, scopes, err := a.resolve(ctx, bearer, apiKey)
	if err != nil {
		kind := "jwt"
		if apiKey != "" {
			kind = "api_key"
		}
		if errors.Is(err, ErrUnauthenticated) {
			return nil, nil, a.deny(kind, err)
		}
		obs.ObserveAuthorization(kind, "error")
		return nil, nil, err
	}
	if !scopes.Satisfies(required...) {
		return nil, nil, a.deny(cred.Kind(), forbidden(required))
	}
	obs.ObserveAuthorization(cred.Kind(), "allowed")
	return cred, scopes, nil
}

func (a *Authorizer) resolve(ctx context.Context, bearer, apiKey string) (Credential, ScopeSet, error) {
	if bearer != "" {
		data, err := a.tokens.Verify(bearer)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		scopes, err := a.userScopes.AllAccessScopesForUser(ctx, data.UserID)
		if err != nil {
			return nil, nil, err
		}
		return JWTCredential{Token: data}, scopes, nil
	}

	key, err := a.keys.FindAPIKeyByHash(ctx, HashAPIKey(apiKey))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: unknown api key", ErrUnauthenticated)
		}
		return nil, nil, fmt.Errorf("lookup api key: %w", err)
	}
	if key.Revoked() {
		return nil, nil, fmt.Errorf("%w: api key revoked", ErrUnauthenticated)
	}
	scopes, err := a.keyScopes.AllAccessScopesForAPIKey(ctx, key.ID)
	if err != nil {
		return nil, nil, err
	}
	return APIKeyCredential{Key: key}, scopes, nil
}

func (a *Authorizer) deny(kind string, err error) error {
	outcome := "forbidden"
	if errors.Is(err, ErrUnauthenticated) {
		outcome = "unauthenticated"
	}
	obs.ObserveAuthorization(kind, outcome)
	obs.Logger().WithFields(logrus.Fields{"credential": kind, "outcome": outcome}).Debug(err.Error())
	return err
}

func forbidden(required []AccessScope) error {
	names := make([]string, 0, len(required))
	for _, r := range required {
		names = append(names, string(r))
	}
	return fmt.Errorf("%w: missing access scopes %s", ErrForbidden, strings.Join(names, ", "))
}
