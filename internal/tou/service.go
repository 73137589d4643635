package tou

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"powerx.io/internal/obs"
)

// Service manages time-of-use rates and keeps active rates of a location from overlapping.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("tou store is required")
	}
	return &Service{store: store}, nil
}

// CreateRate validates rate and stores it. An active rate must not intersect another active
// rate of the same location.
func (s *Service) CreateRate(ctx context.Context, rate Rate) (Rate, error) {
	rate = normalize(rate)
	if err := validate(rate); err != nil {
		return Rate{}, err
	}
	if rate.IsActive {
		if err := s.checkConflicts(ctx, rate); err != nil {
			return Rate{}, err
		}
	}
	return s.store.CreateRate(ctx, rate)
}

// UpdateRate applies upd. Conflicts are re-checked when the rate becomes active or when an
// active rate changes its windows. Deactivation never conflicts.
func (s *Service) UpdateRate(ctx context.Context, id string, upd RateUpdate) (Rate, error) {
	current, err := s.store.GetRate(ctx, strings.TrimSpace(id))
	if err != nil {
		return Rate{}, err
	}
	next := normalize(apply(current, upd))
	if err := validate(next); err != nil {
		return Rate{}, err
	}
	activating := next.IsActive && !current.IsActive
	if activating || (next.IsActive && windowsChanged(current, next)) {
		if err := s.checkConflicts(ctx, next); err != nil {
			return Rate{}, err
		}
	}
	return s.store.UpdateRate(ctx, next)
}

func (s *Service) ListRates(ctx context.Context, locationID string, activeOnly bool) ([]Rate, error) {
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return nil, fmt.Errorf("%w: location_id is required", ErrInvalidInput)
	}
	return s.store.ListRates(ctx, RateFilter{LocationID: locationID, ActiveOnly: activeOnly})
}

// GetRate returns nil without error when the rate does not exist.
func (s *Service) GetRate(ctx context.Context, id string) (*Rate, error) {
	rate, err := s.store.GetRate(ctx, strings.TrimSpace(id))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (s *Service) DeleteRate(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: rate id is required", ErrInvalidInput)
	}
	return s.store.DeleteRate(ctx, id)
}

func (s *Service) checkConflicts(ctx context.Context, rate Rate) error {
	existing, err := s.store.ListRates(ctx, RateFilter{LocationID: rate.LocationID, ActiveOnly: true})
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == rate.ID || !other.IsActive {
			continue
		}
		if Intersect(rate, other) {
			obs.ObserveTOUConflict()
			obs.Logger().WithFields(logrus.Fields{
				"location_id": rate.LocationID,
				"rate_id":     other.ID,
			}).Info("time-of-use rate overlaps an active rate")
			return fmt.Errorf("%w: intersects rate %q (%s)", ErrConflict, other.Name, other.ID)
		}
	}
	return nil
}

func apply(r Rate, upd RateUpdate) Rate {
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.PricePerKWh != nil {
		r.PricePerKWh = *upd.PricePerKWh
	}
	if upd.StartAt != nil {
		r.StartAt = *upd.StartAt
	}
	if upd.EndAt != nil {
		r.EndAt = *upd.EndAt
	}
	if upd.DayStartedAtSeconds != nil {
		r.DayStartedAtSeconds = *upd.DayStartedAtSeconds
	}
	if upd.DayEndedAtSeconds != nil {
		r.DayEndedAtSeconds = *upd.DayEndedAtSeconds
	}
	if upd.DaysOfWeek != nil {
		r.DaysOfWeek = slices.Clone(*upd.DaysOfWeek)
	}
	if upd.RecursYearly != nil {
		r.RecursYearly = *upd.RecursYearly
	}
	if upd.IsActive != nil {
		r.IsActive = *upd.IsActive
	}
	return r
}

func normalize(r Rate) Rate {
	r.LocationID = strings.TrimSpace(r.LocationID)
	r.Name = strings.TrimSpace(r.Name)
	days := slices.Clone(r.DaysOfWeek)
	slices.Sort(days)
	r.DaysOfWeek = slices.Compact(days)
	return r
}

func validate(r Rate) error {
	switch {
	case r.LocationID == "":
		return fmt.Errorf("%w: location_id is required", ErrInvalidInput)
	case r.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case r.PricePerKWh < 0 || math.IsNaN(r.PricePerKWh) || math.IsInf(r.PricePerKWh, 0):
		return fmt.Errorf("%w: price_per_kwh must be a non-negative number", ErrInvalidInput)
	case r.StartAt.IsZero() || r.EndAt.IsZero():
		return fmt.Errorf("%w: start_at and end_at are required", ErrInvalidInput)
	case r.EndAt.Before(r.StartAt):
		return fmt.Errorf("%w: end_at precedes start_at", ErrInvalidInput)
	case r.DayStartedAtSeconds < 0 || r.DayEndedAtSeconds > secondsPerDay || r.DayStartedAtSeconds >= r.DayEndedAtSeconds:
		return fmt.Errorf("%w: day window must satisfy 0 <= started < ended <= %d", ErrInvalidInput, secondsPerDay)
	case len(r.DaysOfWeek) == 0:
		return fmt.Errorf("%w: at least one day of week is required", ErrInvalidInput)
	}
	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: day of week %d out of range 0..6", ErrInvalidInput, d)
		}
	}
	return nil
}

func windowsChanged(a, b Rate) bool {
	return a.StartAt != b.StartAt || a.EndAt != b.EndAt ||
		a.DayStartedAtSeconds != b.DayStartedAtSeconds || a.DayEndedAtSeconds != b.DayEndedAtSeconds ||
		a.RecursYearly != b.RecursYearly || !slices.Equal(a.DaysOfWeek, b.DaysOfWeek)
}
