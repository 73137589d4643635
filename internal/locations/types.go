package locations

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("locations: not found")
	ErrInvalidInput = errors.New("locations: invalid input")
	ErrConflict     = errors.New("locations: conflict")
)

// Organization owns locations and is the broadest unit of access grants.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Location is a physical site. It belongs to exactly one organization.
type Location struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Timezone       string    `json:"timezone,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LocationFilter narrows ListLocations. Empty fields are ignored.
type LocationFilter struct {
	OrganizationID string
	IDs            []string
}

// LocationUpdate carries optional changes; nil fields are left untouched.
type LocationUpdate struct {
	Name        *string
	Description *string
	Timezone    *string
}

// Store persists organizations and locations.
type Store interface {
	CreateOrganization(ctx context.Context, org Organization) (Organization, error)
	GetOrganization(ctx context.Context, id string) (Organization, error)

	CreateLocation(ctx context.Context, loc Location) (Location, error)
	GetLocation(ctx context.Context, id string) (Location, error)
	ListLocations(ctx context.Context, filter LocationFilter) ([]Location, error)
	UpdateLocation(ctx context.Context, id string, upd LocationUpdate) (Location, error)
}
