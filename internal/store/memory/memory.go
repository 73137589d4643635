// Package memory is a process-local implementation of every PowerX store. It backs the API when no
// database is configured and the HTTP tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"powerx.io/internal/auth"
	"powerx.io/internal/hvac"
	"powerx.io/internal/ids"
	"powerx.io/internal/locations"
	"powerx.io/internal/tou"
)

var (
	_ locations.Store        = (*Store)(nil)
	_ auth.AdminStore        = (*Store)(nil)
	_ auth.UserScopeSource   = (*Store)(nil)
	_ auth.APIKeyScopeSource = (*Store)(nil)
	_ auth.GrantSource       = (*Store)(nil)
	_ hvac.Store             = (*Store)(nil)
	_ tou.Store              = (*Store)(nil)
)

type apiKeyRecord struct {
	key     auth.APIKey
	scopes  []auth.AccessScope
	roleIDs []string
}

// Store keeps all records in maps guarded by one lock.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	orgs      map[string]locations.Organization
	locations map[string]locations.Location

	locationGrants []auth.UserLocationAccessGrant
	orgGrants      []auth.UserOrganizationAccessGrant

	roles      map[string]auth.AccessRole
	userRoles  map[string][]string
	userScopes map[string][]auth.AccessScope
	apiKeys    map[string]*apiKeyRecord

	schedules map[string]hvac.Schedule
	widgets   map[string]hvac.ControlZoneWidget

	rates map[string]tou.Rate
}

func New() *Store {
	return &Store{
		now:        func() time.Time { return time.Now().UTC() },
		orgs:       make(map[string]locations.Organization),
		locations:  make(map[string]locations.Location),
		roles:      make(map[string]auth.AccessRole),
		userRoles:  make(map[string][]string),
		userScopes: make(map[string][]auth.AccessScope),
		apiKeys:    make(map[string]*apiKeyRecord),
		schedules:  make(map[string]hvac.Schedule),
		widgets:    make(map[string]hvac.ControlZoneWidget),
		rates:      make(map[string]tou.Rate),
	}
}

// --- locations ---

func (s *Store) CreateOrganization(_ context.Context, org locations.Organization) (locations.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org.ID = ids.New()
	org.CreatedAt = s.now()
	org.UpdatedAt = org.CreatedAt
	s.orgs[org.ID] = org
	return org, nil
}

func (s *Store) GetOrganization(_ context.Context, id string) (locations.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return locations.Organization{}, locations.ErrNotFound
	}
	return org, nil
}

func (s *Store) CreateLocation(_ context.Context, loc locations.Location) (locations.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[loc.OrganizationID]; !ok {
		return locations.Location{}, locations.ErrNotFound
	}
	loc.ID = ids.New()
	loc.CreatedAt = s.now()
	loc.UpdatedAt = loc.CreatedAt
	s.locations[loc.ID] = loc
	return loc, nil
}

func (s *Store) GetLocation(_ context.Context, id string) (locations.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[id]
	if !ok {
		return locations.Location{}, locations.ErrNotFound
	}
	return loc, nil
}

func (s *Store) ListLocations(_ context.Context, filter locations.LocationFilter) ([]locations.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []locations.Location
	for _, loc := range s.locations {
		if filter.OrganizationID != "" && loc.OrganizationID != filter.OrganizationID {
			continue
		}
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, loc.ID) {
			continue
		}
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateLocation(_ context.Context, id string, upd locations.LocationUpdate) (locations.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.locations[id]
	if !ok {
		return locations.Location{}, locations.ErrNotFound
	}
	if upd.Name != nil {
		loc.Name = *upd.Name
	}
	if upd.Description != nil {
		loc.Description = *upd.Description
	}
	if upd.Timezone != nil {
		loc.Timezone = *upd.Timezone
	}
	loc.UpdatedAt = s.now()
	s.locations[id] = loc
	return loc, nil
}

// --- access grants ---

func (s *Store) CreateLocationGrant(_ context.Context, grant auth.UserLocationAccessGrant) (auth.UserLocationAccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[grant.LocationID]; !ok {
		return auth.UserLocationAccessGrant{}, auth.ErrNotFound
	}
	for _, g := range s.locationGrants {
		if g.UserID == grant.UserID && g.LocationID == grant.LocationID && g.Level == grant.Level {
			return auth.UserLocationAccessGrant{}, auth.ErrConflict
		}
	}
	grant.CreatedAt = s.now()
	s.locationGrants = append(s.locationGrants, grant)
	return grant, nil
}

func (s *Store) FilterLocationGrants(_ context.Context, filter auth.LocationGrantFilter) ([]auth.UserLocationAccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []auth.UserLocationAccessGrant
	for _, g := range s.locationGrants {
		if matches(filter.UserID, g.UserID) && matches(filter.LocationID, g.LocationID) && matches(string(filter.Level), string(g.Level)) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) DeleteLocationGrant(_ context.Context, grant auth.UserLocationAccessGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.locationGrants {
		if g.UserID == grant.UserID && g.LocationID == grant.LocationID && g.Level == grant.Level {
			s.locationGrants = slices.Delete(s.locationGrants, i, i+1)
			return nil
		}
	}
	return auth.ErrNotFound
}

func (s *Store) CreateOrganizationGrant(_ context.Context, grant auth.UserOrganizationAccessGrant) (auth.UserOrganizationAccessGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[grant.OrganizationID]; !ok {
		return auth.UserOrganizationAccessGrant{}, auth.ErrNotFound
	}
	for _, g := range s.orgGrants {
		if g.UserID == grant.UserID && g.OrganizationID == grant.OrganizationID && g.Level == grant.Level {
			return auth.UserOrganizationAccessGrant{}, auth.ErrConflict
		}
	}
	grant.CreatedAt = s.now()
	s.orgGrants = append(s.orgGrants, grant)
	return grant, nil
}

func (s *Store) FilterOrganizationGrants(_ context.Context, filter auth.OrganizationGrantFilter) ([]auth.UserOrganizationAccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []auth.UserOrganizationAccessGrant
	for _, g := range s.orgGrants {
		if matches(filter.UserID, g.UserID) && matches(filter.OrganizationID, g.OrganizationID) && matches(string(filter.Level), string(g.Level)) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) DeleteOrganizationGrant(_ context.Context, grant auth.UserOrganizationAccessGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.orgGrants {
		if g.UserID == grant.UserID && g.OrganizationID == grant.OrganizationID && g.Level == grant.Level {
			s.orgGrants = slices.Delete(s.orgGrants, i, i+1)
			return nil
		}
	}
	return auth.ErrNotFound
}

// matches treats an empty filter value as a wildcard.
func matches(filter, value string) bool {
	return filter == "" || filter == value
}

// --- scopes, roles and api keys ---

func (s *Store) UserAccessScopes(_ context.Context, userID string) ([]auth.AccessScope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.userScopes[userID]), nil
}

func (s *Store) UserAccessRoleIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.userRoles[userID]), nil
}

func (s *Store) AccessRoleScopes(_ context.Context, roleID string) ([]auth.AccessScope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roles[roleID].Scopes), nil
}

func (s *Store) APIKeyAccessScopes(_ context.Context, apiKeyID string) ([]auth.AccessScope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.apiKeys[apiKeyID]; ok {
		return slices.Clone(rec.scopes), nil
	}
	return nil, nil
}

func (s *Store) APIKeyAccessRoleIDs(_ context.Context, apiKeyID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.apiKeys[apiKeyID]; ok {
		return slices.Clone(rec.roleIDs), nil
	}
	return nil, nil
}

func (s *Store) CreateAPIKey(_ context.Context, key auth.APIKey, scopes []auth.AccessScope, roleIDs []string) (auth.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.apiKeys {
		if rec.key.KeyHash == key.KeyHash {
			return auth.APIKey{}, auth.ErrConflict
		}
	}
	for _, id := range roleIDs {
		if _, ok := s.roles[id]; !ok {
			return auth.APIKey{}, auth.ErrNotFound
		}
	}
	key.ID = ids.New()
	key.CreatedAt = s.now()
	s.apiKeys[key.ID] = &apiKeyRecord{key: key, scopes: slices.Clone(scopes), roleIDs: slices.Clone(roleIDs)}
	return key, nil
}

func (s *Store) FindAPIKeyByHash(_ context.Context, hash string) (auth.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.apiKeys {
		if rec.key.KeyHash == hash {
			return rec.key, nil
		}
	}
	return auth.APIKey{}, auth.ErrNotFound
}

func (s *Store) RevokeAPIKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.apiKeys[id]
	if !ok || rec.key.Revoked() {
		return auth.ErrNotFound
	}
	now := s.now()
	rec.key.RevokedAt = &now
	return nil
}

func (s *Store) CreateAccessRole(_ context.Context, role auth.AccessRole) (auth.AccessRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.Name == role.Name {
			return auth.AccessRole{}, auth.ErrConflict
		}
	}
	if role.ID == "" {
		role.ID = ids.New()
	}
	role.CreatedAt = s.now()
	role.Scopes = slices.Clone(role.Scopes)
	s.roles[role.ID] = role
	return role, nil
}

func (s *Store) AssignUserAccessRole(_ context.Context, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return auth.ErrNotFound
	}
	if !slices.Contains(s.userRoles[userID], roleID) {
		s.userRoles[userID] = append(s.userRoles[userID], roleID)
	}
	return nil
}

func (s *Store) AddUserAccessScopes(_ context.Context, userID string, scopes []auth.AccessScope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, scope := range scopes {
		if !slices.Contains(s.userScopes[userID], scope) {
			s.userScopes[userID] = append(s.userScopes[userID], scope)
		}
	}
	return nil
}

// --- hvac ---

func (s *Store) CreateSchedule(_ context.Context, schedule hvac.Schedule) (hvac.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[schedule.LocationID]; !ok {
		return hvac.Schedule{}, hvac.ErrNotFound
	}
	schedule.ID = ids.New()
	schedule.CreatedAt = s.now()
	schedule.Events = slices.Clone(schedule.Events)
	s.schedules[schedule.ID] = schedule
	return schedule, nil
}

func (s *Store) GetSchedule(_ context.Context, id string) (hvac.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schedule, ok := s.schedules[id]
	if !ok {
		return hvac.Schedule{}, hvac.ErrNotFound
	}
	return schedule, nil
}

func (s *Store) ListSchedules(_ context.Context, scheduleIDs []string) ([]hvac.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []hvac.Schedule
	for _, id := range scheduleIDs {
		if schedule, ok := s.schedules[id]; ok {
			out = append(out, schedule)
		}
	}
	return out, nil
}

func (s *Store) CreateWidget(_ context.Context, widget hvac.ControlZoneWidget) (hvac.ControlZoneWidget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[widget.LocationID]; !ok {
		return hvac.ControlZoneWidget{}, hvac.ErrNotFound
	}
	for _, id := range widget.ScheduleIDs() {
		if id == nil {
			continue
		}
		if _, ok := s.schedules[*id]; !ok {
			return hvac.ControlZoneWidget{}, hvac.ErrNotFound
		}
	}
	widget.ID = ids.New()
	widget.CreatedAt = s.now()
	s.widgets[widget.ID] = widget
	return widget, nil
}

func (s *Store) GetWidget(_ context.Context, id string) (hvac.ControlZoneWidget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	widget, ok := s.widgets[id]
	if !ok {
		return hvac.ControlZoneWidget{}, hvac.ErrNotFound
	}
	return widget, nil
}

// --- time-of-use rates ---

func (s *Store) CreateRate(_ context.Context, rate tou.Rate) (tou.Rate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[rate.LocationID]; !ok {
		return tou.Rate{}, tou.ErrNotFound
	}
	rate.ID = ids.New()
	rate.CreatedAt = s.now()
	rate.UpdatedAt = rate.CreatedAt
	rate.DaysOfWeek = slices.Clone(rate.DaysOfWeek)
	s.rates[rate.ID] = rate
	return rate, nil
}

func (s *Store) GetRate(_ context.Context, id string) (tou.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.rates[id]
	if !ok {
		return tou.Rate{}, tou.ErrNotFound
	}
	return rate, nil
}

func (s *Store) ListRates(_ context.Context, filter tou.RateFilter) ([]tou.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []tou.Rate
	for _, r := range s.rates {
		if !matches(filter.LocationID, r.LocationID) || (filter.ActiveOnly && !r.IsActive) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StartAt != b.StartAt {
			return a.StartAt.Before(b.StartAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) UpdateRate(_ context.Context, rate tou.Rate) (tou.Rate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.rates[rate.ID]
	if !ok {
		return tou.Rate{}, tou.ErrNotFound
	}
	rate.LocationID = prev.LocationID
	rate.CreatedAt = prev.CreatedAt
	rate.UpdatedAt = s.now()
	rate.DaysOfWeek = slices.Clone(rate.DaysOfWeek)
	s.rates[rate.ID] = rate
	return rate, nil
}

func (s *Store) DeleteRate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rates[id]; !ok {
		return tou.ErrNotFound
	}
	delete(s.rates, id)
	return nil
}
