package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Allowed skew when validating issued-at.
const clockSkew = 5 * time.Second

// Claims represents the JWT claims carried by access tokens.
type Claims struct {
	AccessScopes []AccessScope `json:"access_scopes"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// TokenOption customises a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenIssuer builds an issuer for the given secret and issuer claim.
func NewTokenIssuer(secret, issuer string, opts ...TokenOption) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: jwt secret is required", ErrInvalidInput)
	}
	t := &TokenIssuer{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs a token for userID carrying scopes, valid for ttl.
func (t *TokenIssuer) Issue(userID string, scopes []AccessScope, ttl time.Duration) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("%w: ttl must be greater than zero", ErrInvalidInput)
	}

	now := t.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		AccessScopes: NewScopeSet(scopes...).Sorted(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, issuer and timestamps and returns the token data.
func (t *TokenIssuer) Verify(token string) (AccessTokenData, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return AccessTokenData{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessTokenData{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return AccessTokenData{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return AccessTokenData{}, ErrInvalidToken
	}
	if err := t.validateClaims(claims); err != nil {
		return AccessTokenData{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return AccessTokenData{
		UserID:       claims.Subject,
		AccessScopes: claims.AccessScopes,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

func (t *TokenIssuer) validateClaims(claims *Claims) error {
	if t.issuer != "" && claims.Issuer != t.issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	if claims.IssuedAt.Time.After(t.now().Add(clockSkew)) {
		return errors.New("token issued in the future")
	}
	return nil
}
