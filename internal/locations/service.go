package locations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service validates input and fronts the location store.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("locations store is required")
	}
	return &Service{store: store}, nil
}

func (s *Service) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	return s.store.CreateOrganization(ctx, Organization{Name: name})
}

// GetOrganization returns nil without error when the organization does not exist.
func (s *Service) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	org, err := s.store.GetOrganization(ctx, strings.TrimSpace(id))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *Service) CreateLocation(ctx context.Context, loc Location) (Location, error) {
	loc.OrganizationID = strings.TrimSpace(loc.OrganizationID)
	loc.Name = strings.TrimSpace(loc.Name)
	loc.Timezone = strings.TrimSpace(loc.Timezone)
	if loc.OrganizationID == "" {
		return Location{}, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	if loc.Name == "" {
		return Location{}, fmt.Errorf("%w: location name is required", ErrInvalidInput)
	}
	if err := validateTimezone(loc.Timezone); err != nil {
		return Location{}, err
	}
	return s.store.CreateLocation(ctx, loc)
}

// GetLocation returns nil without error when the location does not exist.
func (s *Service) GetLocation(ctx context.Context, id string) (*Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	loc, err := s.store.GetLocation(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (s *Service) ListLocations(ctx context.Context, filter LocationFilter) ([]Location, error) {
	return s.store.ListLocations(ctx, filter)
}

func (s *Service) UpdateLocation(ctx context.Context, id string, upd LocationUpdate) (Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Location{}, fmt.Errorf("%w: location id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Location{}, fmt.Errorf("%w: location name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Timezone != nil {
		tz := strings.TrimSpace(*upd.Timezone)
		if err := validateTimezone(tz); err != nil {
			return Location{}, err
		}
		upd.Timezone = &tz
	}
	return s.store.UpdateLocation(ctx, id, upd)
}

func validateTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, tz)
	}
	return nil
}
