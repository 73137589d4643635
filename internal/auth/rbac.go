package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// AdminStore is the persistence needed to manage grants, roles and API keys.
type AdminStore interface {
	LocationGrantStore
	OrganizationGrantStore
	APIKeyStore
	RoleStore
}

// IssuedAPIKey is returned once on creation; Raw is never stored.
type IssuedAPIKey struct {
	APIKey
	Raw    string        `json:"api_key"`
	Scopes []AccessScope `json:"access_scopes"`
}

// AdminService manages access grants, roles and API keys.
type AdminService struct {
	store   AdminStore
	catalog ScopeCatalog
}

func NewAdminService(store AdminStore, catalog ScopeCatalog) (*AdminService, error) {
	if store == nil {
		return nil, errors.New("admin store is required")
	}
	return &AdminService{store: store, catalog: catalog}, nil
}

func (s *AdminService) GrantLocationAccess(ctx context.Context, userID, locationID string, level GrantLevel) (UserLocationAccessGrant, error) {
	userID = strings.TrimSpace(userID)
	locationID = strings.TrimSpace(locationID)
	if userID == "" || locationID == "" {
		return UserLocationAccessGrant{}, fmt.Errorf("%w: user_id and location_id are required", ErrInvalidInput)
	}
	lvl, err := ParseGrantLevel(string(level))
	if err != nil {
		return UserLocationAccessGrant{}, err
	}
	return s.store.CreateLocationGrant(ctx, UserLocationAccessGrant{UserID: userID, LocationID: locationID, Level: lvl})
}

func (s *AdminService) RevokeLocationAccess(ctx context.Context, userID, locationID string, level GrantLevel) error {
	userID = strings.TrimSpace(userID)
	locationID = strings.TrimSpace(locationID)
	if userID == "" || locationID == "" {
		return fmt.Errorf("%w: user_id and location_id are required", ErrInvalidInput)
	}
	lvl, err := ParseGrantLevel(string(level))
	if err != nil {
		return err
	}
	return s.store.DeleteLocationGrant(ctx, UserLocationAccessGrant{UserID: userID, LocationID: locationID, Level: lvl})
}

func (s *AdminService) ListLocationGrants(ctx context.Context, userID string) ([]UserLocationAccessGrant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.FilterLocationGrants(ctx, LocationGrantFilter{UserID: userID})
}

func (s *AdminService) GrantOrganizationAccess(ctx context.Context, userID, organizationID string, level GrantLevel) (UserOrganizationAccessGrant, error) {
	userID = strings.TrimSpace(userID)
	organizationID = strings.TrimSpace(organizationID)
	if userID == "" || organizationID == "" {
		return UserOrganizationAccessGrant{}, fmt.Errorf("%w: user_id and organization_id are required", ErrInvalidInput)
	}
	lvl, err := ParseGrantLevel(string(level))
	if err != nil {
		return UserOrganizationAccessGrant{}, err
	}
	return s.store.CreateOrganizationGrant(ctx, UserOrganizationAccessGrant{UserID: userID, OrganizationID: organizationID, Level: lvl})
}

func (s *AdminService) RevokeOrganizationAccess(ctx context.Context, userID, organizationID string, level GrantLevel) error {
	userID = strings.TrimSpace(userID)
	organizationID = strings.TrimSpace(organizationID)
	if userID == "" || organizationID == "" {
		return fmt.Errorf("%w: user_id and organization_id are required", ErrInvalidInput)
	}
	lvl, err := ParseGrantLevel(string(level))
	if err != nil {
		return err
	}
	return s.store.DeleteOrganizationGrant(ctx, UserOrganizationAccessGrant{UserID: userID, OrganizationID: organizationID, Level: lvl})
}

func (s *AdminService) ListOrganizationGrants(ctx context.Context, userID string) ([]UserOrganizationAccessGrant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.FilterOrganizationGrants(ctx, OrganizationGrantFilter{UserID: userID})
}

// CreateAPIKey mints a key with the given scopes and roles. The raw key is only in the result.
func (s *AdminService) CreateAPIKey(ctx context.Context, name string, rawScopes, roleIDs []string) (IssuedAPIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return IssuedAPIKey{}, fmt.Errorf("%w: api key name is required", ErrInvalidInput)
	}
	scopes, err := s.catalog.ParseAll(rawScopes)
	if err != nil {
		return IssuedAPIKey{}, err
	}
	roles := dedupeStrings(roleIDs)
	if len(scopes) == 0 && len(roles) == 0 {
		return IssuedAPIKey{}, fmt.Errorf("%w: api key needs at least one scope or role", ErrInvalidInput)
	}
	raw, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		return IssuedAPIKey{}, err
	}
	key, err := s.store.CreateAPIKey(ctx, APIKey{Name: name, KeyHash: hash, Prefix: prefix}, scopes, roles)
	if err != nil {
		return IssuedAPIKey{}, err
	}
	return IssuedAPIKey{APIKey: key, Raw: raw, Scopes: scopes}, nil
}

func (s *AdminService) RevokeAPIKey(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: api_key_id is required", ErrInvalidInput)
	}
	return s.store.RevokeAPIKey(ctx, id)
}

// CreateAccessRole stores a named scope bundle.
func (s *AdminService) CreateAccessRole(ctx context.Context, name, description string, rawScopes []string) (AccessRole, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return AccessRole{}, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	scopes, err := s.catalog.ParseAll(rawScopes)
	if err != nil {
		return AccessRole{}, err
	}
	return s.store.CreateAccessRole(ctx, AccessRole{Name: name, Description: strings.TrimSpace(description), Scopes: scopes})
}

func (s *AdminService) AssignAccessRole(ctx context.Context, userID, roleID string) error {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return fmt.Errorf("%w: user_id and role_id are required", ErrInvalidInput)
	}
	return s.store.AssignUserAccessRole(ctx, userID, roleID)
}

func (s *AdminService) AddUserAccessScopes(ctx context.Context, userID string, rawScopes []string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	scopes, err := s.catalog.ParseAll(rawScopes)
	if err != nil {
		return err
	}
	if len(scopes) == 0 {
		return fmt.Errorf("%w: at least one access scope is required", ErrInvalidInput)
	}
	return s.store.AddUserAccessScopes(ctx, userID, scopes)
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
