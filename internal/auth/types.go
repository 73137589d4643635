package auth

import (
	"fmt"
	"strings"
	"time"
)

// GrantLevel is the kind of access a per-resource grant confers.
type GrantLevel string

const (
	GrantRead   GrantLevel = "read"
	GrantWrite  GrantLevel = "write"  // create child resources
	GrantUpdate GrantLevel = "update" // modify the existing resource
)

// ParseGrantLevel normalises raw into a GrantLevel.
func ParseGrantLevel(raw string) (GrantLevel, error) {
	switch lvl := GrantLevel(strings.TrimSpace(strings.ToLower(raw))); lvl {
	case GrantRead, GrantWrite, GrantUpdate:
		return lvl, nil
	default:
		return "", fmt.Errorf("%w: unknown grant level %q", ErrInvalidInput, raw)
	}
}

// UserLocationAccessGrant lets a user act on one location.
type UserLocationAccessGrant struct {
	UserID     string     `json:"user_id"`
	LocationID string     `json:"location_id"`
	Level      GrantLevel `json:"access_grant"`
	CreatedAt  time.Time  `json:"created_at"`
}

// UserOrganizationAccessGrant lets a user act on every location of an organization.
type UserOrganizationAccessGrant struct {
	UserID         string     `json:"user_id"`
	OrganizationID string     `json:"organization_id"`
	Level          GrantLevel `json:"access_grant"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AccessRole is a named bundle of scopes assignable to users and API keys.
type AccessRole struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Scopes      []AccessScope `json:"access_scopes,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// APIKey is a stored machine credential. The raw key is never persisted.
type APIKey struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	KeyHash   string     `json:"-"`
	Prefix    string     `json:"prefix"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Revoked reports whether the key can no longer authenticate.
func (k APIKey) Revoked() bool {
	return k.RevokedAt != nil
}

// AccessTokenData is the verified content of a bearer JWT.
type AccessTokenData struct {
	UserID       string
	AccessScopes []AccessScope
	ExpiresAt    time.Time
}

// Scopes returns the token scopes as a set.
func (t AccessTokenData) Scopes() ScopeSet {
	return NewScopeSet(t.AccessScopes...)
}

// Credential is the identity presented by a request: a JWTCredential or an APIKeyCredential.
type Credential interface {
	credential()
	// Kind labels the credential for logs and metrics.
	Kind() string
}

// JWTCredential identifies a user through a verified bearer token.
type JWTCredential struct {
	Token AccessTokenData
}

// APIKeyCredential identifies a machine client through an API key.
type APIKeyCredential struct {
	Key APIKey
}

func (JWTCredential) credential()    {}
func (APIKeyCredential) credential() {}

func (JWTCredential) Kind() string    { return "jwt" }
func (APIKeyCredential) Kind() string { return "api_key" }
