package auth

import (
	"context"
	"errors"
	"fmt"
)

// UserScopeSource is the storage needed to resolve a user's effective scopes.
type UserScopeSource interface {
	UserScopeStore
	UserRoleStore
	RoleScopeStore
}

// UserAccessScopesHelper computes the effective scopes of a user.
type UserAccessScopesHelper struct {
	store UserScopeSource
}

func NewUserAccessScopesHelper(store UserScopeSource) (*UserAccessScopesHelper, error) {
	if store == nil {
		return nil, errors.New("user scope store is required")
	}
	return &UserAccessScopesHelper{store: store}, nil
}

// AllAccessScopesForUser returns the union of the user's direct scopes and the scopes of every
// role assigned to the user. Unknown users resolve to an empty set.
func (h *UserAccessScopesHelper) AllAccessScopesForUser(ctx context.Context, userID string) (ScopeSet, error) {
	direct, err := h.store.UserAccessScopes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user scopes: %w", err)
	}
	roleIDs, err := h.store.UserAccessRoleIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	return collectScopes(ctx, h.store, direct, roleIDs)
}

// APIKeyScopeSource is the storage needed to resolve an API key's effective scopes.
type APIKeyScopeSource interface {
	APIKeyScopeStore
	APIKeyRoleStore
	RoleScopeStore
}

// APIKeyAccessScopesHelper computes the effective scopes of an API key.
type APIKeyAccessScopesHelper struct {
	store APIKeyScopeSource
}

func NewAPIKeyAccessScopesHelper(store APIKeyScopeSource) (*APIKeyAccessScopesHelper, error) {
	if store == nil {
		return nil, errors.New("api key scope store is required")
	}
	return &APIKeyAccessScopesHelper{store: store}, nil
}

// AllAccessScopesForAPIKey returns the key's direct scopes plus the scopes of its roles.
func (h *APIKeyAccessScopesHelper) AllAccessScopesForAPIKey(ctx context.Context, apiKeyID string) (ScopeSet, error) {
	direct, err := h.store.APIKeyAccessScopes(ctx, apiKeyID)
	if err != nil {
		return nil, fmt.Errorf("load api key scopes: %w", err)
	}
	roleIDs, err := h.store.APIKeyAccessRoleIDs(ctx, apiKeyID)
	if err != nil {
		return nil, fmt.Errorf("load api key roles: %w", err)
	}
	return collectScopes(ctx, h.store, direct, roleIDs)
}

func collectScopes(ctx context.Context, roles RoleScopeStore, direct []AccessScope, roleIDs []string) (ScopeSet, error) {
	set := NewScopeSet(direct...)
	for _, roleID := range roleIDs {
		scopes, err := roles.AccessRoleScopes(ctx, roleID)
		if err != nil {
			return nil, fmt.Errorf("load role %s scopes: %w", roleID, err)
		}
		set.Add(scopes...)
	}
	return set, nil
}
