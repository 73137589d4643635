package auth

import (
	"context"
	"errors"
	"fmt"

	"powerx.io/internal/locations"
)

// GrantSource is the storage needed to evaluate per-resource grants.
type GrantSource interface {
	LocationGrantStore
	OrganizationGrantStore
}

// UserAccessGrantsHelper answers whether a user holds a grant on a location. Callers apply the
// admin bypass before asking.
type UserAccessGrantsHelper struct {
	store GrantSource
}

func NewUserAccessGrantsHelper(store GrantSource) (*UserAccessGrantsHelper, error) {
	if store == nil {
		return nil, errors.New("grant store is required")
	}
	return &UserAccessGrantsHelper{store: store}, nil
}

func (h *UserAccessGrantsHelper) IsUserAuthorizedForLocationRead(ctx context.Context, userID string, location locations.Location) (bool, error) {
	return h.authorizedForLocation(ctx, userID, location, GrantRead)
}

// IsUserAuthorizedForLocationWrite reports whether the user may create locations in the
// organization. Only organization grants confer write.
func (h *UserAccessGrantsHelper) IsUserAuthorizedForLocationWrite(ctx context.Context, userID, organizationID string) (bool, error) {
	return h.hasOrganizationGrant(ctx, userID, organizationID, GrantWrite)
}

func (h *UserAccessGrantsHelper) IsUserAuthorizedForLocationUpdate(ctx context.Context, userID string, location locations.Location) (bool, error) {
	return h.authorizedForLocation(ctx, userID, location, GrantUpdate)
}

// An organization grant covers every location in it; a location grant covers only that location.
func (h *UserAccessGrantsHelper) authorizedForLocation(ctx context.Context, userID string, location locations.Location, level GrantLevel) (bool, error) {
	ok, err := h.hasOrganizationGrant(ctx, userID, location.OrganizationID, level)
	if err != nil || ok {
		return ok, err
	}
	grants, err := h.store.FilterLocationGrants(ctx, LocationGrantFilter{
		UserID:     userID,
		LocationID: location.ID,
		Level:      level,
	})
	if err != nil {
		return false, fmt.Errorf("load location grants: %w", err)
	}
	return len(grants) > 0, nil
}

func (h *UserAccessGrantsHelper) hasOrganizationGrant(ctx context.Context, userID, organizationID string, level GrantLevel) (bool, error) {
	grants, err := h.store.FilterOrganizationGrants(ctx, OrganizationGrantFilter{
		UserID:         userID,
		OrganizationID: organizationID,
		Level:          level,
	})
	if err != nil {
		return false, fmt.Errorf("load organization grants: %w", err)
	}
	return len(grants) > 0, nil
}
