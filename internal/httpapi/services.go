package httpapi

import (
	"powerx.io/internal/auth"
	"powerx.io/internal/hvac"
	"powerx.io/internal/locations"
	"powerx.io/internal/tou"
)

// Backend is the union of store interfaces the services need. Both the
// Postgres and the in-memory store satisfy it.
type Backend interface {
	locations.Store
	auth.AdminStore
	auth.UserScopeSource
	auth.APIKeyScopeSource
	auth.GrantSource
	hvac.Store
	tou.Store
}

// NewServices wires every domain service on top of one backend.
func NewServices(store Backend, tokens *auth.TokenIssuer, hvacOpts ...hvac.Option) (Services, error) {
	catalog := auth.NewScopeCatalog()
	userScopes, err := auth.NewUserAccessScopesHelper(store)
	if err != nil {
		return Services{}, err
	}
	keyScopes, err := auth.NewAPIKeyAccessScopesHelper(store)
	if err != nil {
		return Services{}, err
	}
	authorizer, err := auth.NewAuthorizer(tokens, store, userScopes, keyScopes)
	if err != nil {
		return Services{}, err
	}
	grants, err := auth.NewUserAccessGrantsHelper(store)
	if err != nil {
		return Services{}, err
	}
	admin, err := auth.NewAdminService(store, catalog)
	if err != nil {
		return Services{}, err
	}
	locs, err := locations.NewService(store)
	if err != nil {
		return Services{}, err
	}
	schedules, err := hvac.NewSchedulesService(store, locs, hvacOpts...)
	if err != nil {
		return Services{}, err
	}
	rates, err := tou.NewService(store)
	if err != nil {
		return Services{}, err
	}
	return Services{
		Locations:  locs,
		Schedules:  schedules,
		Rates:      rates,
		Admin:      admin,
		Authorizer: authorizer,
		Grants:     grants,
		Catalog:    catalog,
	}, nil
}
