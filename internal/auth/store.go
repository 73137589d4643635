package auth

import "context"

// LocationGrantFilter narrows location grant queries. Empty fields match everything.
type LocationGrantFilter struct {
	UserID     string
	LocationID string
	Level      GrantLevel
}

// OrganizationGrantFilter narrows organization grant queries. Empty fields match everything.
type OrganizationGrantFilter struct {
	UserID         string
	OrganizationID string
	Level          GrantLevel
}

// LocationGrantStore persists user_location_access_grants.
type LocationGrantStore interface {
	CreateLocationGrant(ctx context.Context, grant UserLocationAccessGrant) (UserLocationAccessGrant, error)
	FilterLocationGrants(ctx context.Context, filter LocationGrantFilter) ([]UserLocationAccessGrant, error)
	DeleteLocationGrant(ctx context.Context, grant UserLocationAccessGrant) error
}

// OrganizationGrantStore persists user_organization_access_grants.
type OrganizationGrantStore interface {
	CreateOrganizationGrant(ctx context.Context, grant UserOrganizationAccessGrant) (UserOrganizationAccessGrant, error)
	FilterOrganizationGrants(ctx context.Context, filter OrganizationGrantFilter) ([]UserOrganizationAccessGrant, error)
	DeleteOrganizationGrant(ctx context.Context, grant UserOrganizationAccessGrant) error
}

// UserScopeStore reads scopes assigned directly to users.
type UserScopeStore interface {
	UserAccessScopes(ctx context.Context, userID string) ([]AccessScope, error)
}

// UserRoleStore reads role assignments of users.
type UserRoleStore interface {
	UserAccessRoleIDs(ctx context.Context, userID string) ([]string, error)
}

// RoleScopeStore reads the scopes bundled in a role.
type RoleScopeStore interface {
	AccessRoleScopes(ctx context.Context, roleID string) ([]AccessScope, error)
}

// APIKeyScopeStore reads scopes assigned directly to API keys.
type APIKeyScopeStore interface {
	APIKeyAccessScopes(ctx context.Context, apiKeyID string) ([]AccessScope, error)
}

// APIKeyRoleStore reads role assignments of API keys.
type APIKeyRoleStore interface {
	APIKeyAccessRoleIDs(ctx context.Context, apiKeyID string) ([]string, error)
}

// APIKeyStore persists API keys and looks them up by hash.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key APIKey, scopes []AccessScope, roleIDs []string) (APIKey, error)
	FindAPIKeyByHash(ctx context.Context, hash string) (APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// RoleStore manages access roles and their assignment to users.
type RoleStore interface {
	CreateAccessRole(ctx context.Context, role AccessRole) (AccessRole, error)
	AssignUserAccessRole(ctx context.Context, userID, roleID string) error
	AddUserAccessScopes(ctx context.Context, userID string, scopes []AccessScope) error
}
