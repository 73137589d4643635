package auth

import (
	"context"
	"fmt"
	"time"
)

// memStore is an in-memory implementation of every auth store used by the tests.
type memStore struct {
	userScopes   map[string][]AccessScope
	userRoles    map[string][]string
	roleScopes   map[string][]AccessScope
	keyScopes    map[string][]AccessScope
	keyRoles     map[string][]string
	keys         map[string]APIKey // by hash
	locGrants    []UserLocationAccessGrant
	orgGrants    []UserOrganizationAccessGrant
	roles        []AccessRole
	failScopes   error
	nextKeyIndex int
}

func newMemStore() *memStore {
	return &memStore{
		userScopes: map[string][]AccessScope{},
		userRoles:  map[string][]string{},
		roleScopes: map[string][]AccessScope{},
		keyScopes:  map[string][]AccessScope{},
		keyRoles:   map[string][]string{},
		keys:       map[string]APIKey{},
	}
}

func (m *memStore) UserAccessScopes(_ context.Context, userID string) ([]AccessScope, error) {
	if m.failScopes != nil {
		return nil, m.failScopes
	}
	return m.userScopes[userID], nil
}

func (m *memStore) UserAccessRoleIDs(_ context.Context, userID string) ([]string, error) {
	return m.userRoles[userID], nil
}

func (m *memStore) AccessRoleScopes(_ context.Context, roleID string) ([]AccessScope, error) {
	return m.roleScopes[roleID], nil
}

func (m *memStore) APIKeyAccessScopes(_ context.Context, id string) ([]AccessScope, error) {
	return m.keyScopes[id], nil
}

func (m *memStore) APIKeyAccessRoleIDs(_ context.Context, id string) ([]string, error) {
	return m.keyRoles[id], nil
}

func (m *memStore) CreateAPIKey(_ context.Context, key APIKey, scopes []AccessScope, roleIDs []string) (APIKey, error) {
	m.nextKeyIndex++
	key.ID = fmt.Sprintf("key-%d", m.nextKeyIndex)
	key.CreatedAt = time.Now().UTC()
	m.keys[key.KeyHash] = key
	m.keyScopes[key.ID] = scopes
	m.keyRoles[key.ID] = roleIDs
	return key, nil
}

func (m *memStore) FindAPIKeyByHash(_ context.Context, hash string) (APIKey, error) {
	key, ok := m.keys[hash]
	if !ok {
		return APIKey{}, ErrNotFound
	}
	return key, nil
}

func (m *memStore) RevokeAPIKey(_ context.Context, id string) error {
	for hash, key := range m.keys {
		if key.ID == id {
			now := time.Now().UTC()
			key.RevokedAt = &now
			m.keys[hash] = key
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) CreateLocationGrant(_ context.Context, g UserLocationAccessGrant) (UserLocationAccessGrant, error) {
	for _, existing := range m.locGrants {
		if existing.UserID == g.UserID && existing.LocationID == g.LocationID && existing.Level == g.Level {
			return UserLocationAccessGrant{}, ErrConflict
		}
	}
	g.CreatedAt = time.Now().UTC()
	m.locGrants = append(m.locGrants, g)
	return g, nil
}

func (m *memStore) FilterLocationGrants(_ context.Context, f LocationGrantFilter) ([]UserLocationAccessGrant, error) {
	var out []UserLocationAccessGrant
	for _, g := range m.locGrants {
		if (f.UserID == "" || g.UserID == f.UserID) &&
			(f.LocationID == "" || g.LocationID == f.LocationID) &&
			(f.Level == "" || g.Level == f.Level) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memStore) DeleteLocationGrant(_ context.Context, g UserLocationAccessGrant) error {
	for i, existing := range m.locGrants {
		if existing.UserID == g.UserID && existing.LocationID == g.LocationID && existing.Level == g.Level {
			m.locGrants = append(m.locGrants[:i], m.locGrants[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) CreateOrganizationGrant(_ context.Context, g UserOrganizationAccessGrant) (UserOrganizationAccessGrant, error) {
	for _, existing := range m.orgGrants {
		if existing.UserID == g.UserID && existing.OrganizationID == g.OrganizationID && existing.Level == g.Level {
			return UserOrganizationAccessGrant{}, ErrConflict
		}
	}
	g.CreatedAt = time.Now().UTC()
	m.orgGrants = append(m.orgGrants, g)
	return g, nil
}

func (m *memStore) FilterOrganizationGrants(_ context.Context, f OrganizationGrantFilter) ([]UserOrganizationAccessGrant, error) {
	var out []UserOrganizationAccessGrant
	for _, g := range m.orgGrants {
		if (f.UserID == "" || g.UserID == f.UserID) &&
			(f.OrganizationID == "" || g.OrganizationID == f.OrganizationID) &&
			(f.Level == "" || g.Level == f.Level) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memStore) DeleteOrganizationGrant(_ context.Context, g UserOrganizationAccessGrant) error {
	for i, existing := range m.orgGrants {
		if existing.UserID == g.UserID && existing.OrganizationID == g.OrganizationID && existing.Level == g.Level {
			m.orgGrants = append(m.orgGrants[:i], m.orgGrants[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) CreateAccessRole(_ context.Context, role AccessRole) (AccessRole, error) {
	role.ID = "role-" + role.Name
	m.roles = append(m.roles, role)
	m.roleScopes[role.ID] = role.Scopes
	return role, nil
}

func (m *memStore) AssignUserAccessRole(_ context.Context, userID, roleID string) error {
	m.userRoles[userID] = append(m.userRoles[userID], roleID)
	return nil
}

func (m *memStore) AddUserAccessScopes(_ context.Context, userID string, scopes []AccessScope) error {
	m.userScopes[userID] = append(m.userScopes[userID], scopes...)
	return nil
}
