package auth

import (
	"fmt"
	"sort"
	"strings"
)

// AccessScope is the atomic permission unit carried by tokens, users, roles and API keys.
type AccessScope string

const (
	ScopeAdmin AccessScope = "admin:admin"

	ScopeAccessGrantsRead  AccessScope = "access_grants:read"
	ScopeAccessGrantsWrite AccessScope = "access_grants:write"
	ScopeAccessRolesRead   AccessScope = "access_roles:read"
	ScopeAccessRolesWrite  AccessScope = "access_roles:write"
	ScopeAPIKeysRead       AccessScope = "api_keys:read"
	ScopeAPIKeysWrite      AccessScope = "api_keys:write"
	ScopeAuditLogsRead     AccessScope = "audit_logs:read"

	ScopeUsersRead          AccessScope = "users:read"
	ScopeUsersWrite         AccessScope = "users:write"
	ScopeOrganizationsRead  AccessScope = "organizations:read"
	ScopeOrganizationsWrite AccessScope = "organizations:write"
	ScopeLocationsRead      AccessScope = "locations:read"
	ScopeLocationsWrite     AccessScope = "locations:write"

	ScopeDashboardsRead  AccessScope = "dashboards:read"
	ScopeDashboardsWrite AccessScope = "dashboards:write"
	ScopeDevicesRead     AccessScope = "devices:read"
	ScopeDevicesWrite    AccessScope = "devices:write"

	ScopeElectricityRead  AccessScope = "electricity:read"
	ScopeElectricityWrite AccessScope = "electricity:write"
	ScopeCircuitsRead     AccessScope = "circuits:read"
	ScopeCircuitsWrite    AccessScope = "circuits:write"
	ScopeHVACRead         AccessScope = "hvac:read"
	ScopeHVACWrite        AccessScope = "hvac:write"
	ScopeThermostatsRead  AccessScope = "thermostats:read"
	ScopeThermostatsWrite AccessScope = "thermostats:write"
	ScopeTemperatureRead  AccessScope = "temperature:read"
	ScopeTemperatureWrite AccessScope = "temperature:write"
)

// ScopeDefinition pairs a scope with its human readable description.
type ScopeDefinition struct {
	Scope      AccessScope `json:"access_scope"`
	Definition string      `json:"definition"`
}

// ScopeCatalog is the immutable table of known scopes. Build it once with NewScopeCatalog
// and share the value; it has no mutating methods.
type ScopeCatalog struct {
	defs  map[AccessScope]string
	order []AccessScope
}

func NewScopeCatalog() ScopeCatalog {
	entries := []ScopeDefinition{
		{ScopeAdmin, "Full administrative access, bypasses every scope and grant check"},
		{ScopeAccessGrantsRead, "View location and organization access grants"},
		{ScopeAccessGrantsWrite, "Create and delete location and organization access grants"},
		{ScopeAccessRolesRead, "View access roles and their scopes"},
		{ScopeAccessRolesWrite, "Create access roles and assign them"},
		{ScopeAPIKeysRead, "View API keys"},
		{ScopeAPIKeysWrite, "Create and revoke API keys"},
		{ScopeAuditLogsRead, "View audit logs"},
		{ScopeUsersRead, "View users"},
		{ScopeUsersWrite, "Create and modify users"},
		{ScopeOrganizationsRead, "View organizations"},
		{ScopeOrganizationsWrite, "Create and modify organizations"},
		{ScopeLocationsRead, "View locations"},
		{ScopeLocationsWrite, "Create and modify locations"},
		{ScopeDashboardsRead, "View dashboards and widgets"},
		{ScopeDashboardsWrite, "Create and modify dashboards and widgets"},
		{ScopeDevicesRead, "View devices and their status"},
		{ScopeDevicesWrite, "Register and modify devices"},
		{ScopeElectricityRead, "View electricity data and time-of-use rates"},
		{ScopeElectricityWrite, "Modify electricity configuration and time-of-use rates"},
		{ScopeCircuitsRead, "View electrical circuits"},
		{ScopeCircuitsWrite, "Create and modify electrical circuits"},
		{ScopeHVACRead, "View HVAC schedules and control zones"},
		{ScopeHVACWrite, "Create and modify HVAC schedules and control zones"},
		{ScopeThermostatsRead, "View thermostats"},
		{ScopeThermostatsWrite, "Control thermostats"},
		{ScopeTemperatureRead, "View temperature sensors and readings"},
		{ScopeTemperatureWrite, "Create and modify temperature sensors"},
	}
	c := ScopeCatalog{
		defs:  make(map[AccessScope]string, len(entries)),
		order: make([]AccessScope, 0, len(entries)),
	}
	for _, e := range entries {
		c.defs[e.Scope] = e.Definition
		c.order = append(c.order, e.Scope)
	}
	return c
}

// Definition returns the description of scope.
func (c ScopeCatalog) Definition(scope AccessScope) (string, bool) {
	d, ok := c.defs[scope]
	return d, ok
}

// Definitions lists every known scope in declaration order.
func (c ScopeCatalog) Definitions() []ScopeDefinition {
	out := make([]ScopeDefinition, 0, len(c.order))
	for _, s := range c.order {
		out = append(out, ScopeDefinition{Scope: s, Definition: c.defs[s]})
	}
	return out
}

// Parse validates raw against the catalog.
func (c ScopeCatalog) Parse(raw string) (AccessScope, error) {
	scope := AccessScope(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := c.defs[scope]; !ok {
		return "", fmt.Errorf("%w: unknown access scope %q", ErrInvalidInput, raw)
	}
	return scope, nil
}

// ParseAll validates and deduplicates raw scopes.
func (c ScopeCatalog) ParseAll(raw []string) ([]AccessScope, error) {
	set := NewScopeSet()
	for _, r := range raw {
		s, err := c.Parse(r)
		if err != nil {
			return nil, err
		}
		set.Add(s)
	}
	return set.Sorted(), nil
}

// ScopeSet is an unordered collection of scopes.
type ScopeSet map[AccessScope]struct{}

func NewScopeSet(scopes ...AccessScope) ScopeSet {
	s := make(ScopeSet, len(scopes))
	s.Add(scopes...)
	return s
}

func (s ScopeSet) Add(scopes ...AccessScope) {
	for _, scope := range scopes {
		s[scope] = struct{}{}
	}
}

func (s ScopeSet) Has(scope AccessScope) bool {
	_, ok := s[scope]
	return ok
}

// IsAdmin reports whether the set holds the admin super-scope.
func (s ScopeSet) IsAdmin() bool {
	return s.Has(ScopeAdmin)
}

// Satisfies reports whether the set is allowed to act with the required scopes: either it holds
// the admin scope or it contains every required scope.
func (s ScopeSet) Satisfies(required ...AccessScope) bool {
	if s.IsAdmin() {
		return true
	}
	for _, r := range required {
		if !s.Has(r) {
			return false
		}
	}
	return true
}

// Sorted returns the scopes in lexical order.
func (s ScopeSet) Sorted() []AccessScope {
	out := make([]AccessScope, 0, len(s))
	for scope := range s {
		out = append(out, scope)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
