package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"powerx.io/internal/auth"
	"powerx.io/internal/locations"
)

type createOrganizationRequest struct {
	Name string `json:"name"`
}

type createLocationRequest struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Timezone       string `json:"timezone"`
}

type updateLocationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Timezone    *string `json:"timezone"`
}

func (a *API) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeOrganizationsWrite)
	if !ok {
		return
	}
	var req createOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, err := a.svc.Locations.CreateOrganization(r.Context(), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "organization.create", "organization", org.ID, map[string]any{"name": org.Name})
	w.Header().Set("Location", fmt.Sprintf("/v1/organizations/%s", org.ID))
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAny(w, r, auth.ScopeOrganizationsRead); !ok {
		return
	}
	id := mux.Vars(r)["id"]
	org, err := a.svc.Locations.GetOrganization(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if org == nil {
		writeError(w, r, http.StatusNotFound, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeLocationsWrite)
	if !ok {
		return
	}
	var req createLocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		writeError(w, r, http.StatusBadRequest, "organization_id is required")
		return
	}
	org, err := a.svc.Locations.GetOrganization(r.Context(), req.OrganizationID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if org == nil {
		writeError(w, r, http.StatusNotFound, "organization not found")
		return
	}
	if err := a.authorizeLocation(r.Context(), p, locations.Location{OrganizationID: org.ID}, auth.GrantWrite); err != nil {
		handleError(w, r, err)
		return
	}
	loc, err := a.svc.Locations.CreateLocation(r.Context(), locations.Location{
		OrganizationID: org.ID,
		Name:           req.Name,
		Description:    req.Description,
		Timezone:       req.Timezone,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "location.create", "location", loc.ID, map[string]any{
		"organization_id": loc.OrganizationID,
		"name":            loc.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/locations/%s", loc.ID))
	writeJSON(w, http.StatusCreated, loc)
}

func (a *API) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeLocationsRead)
	if !ok {
		return
	}
	loc, ok := a.locationFor(w, r, p, mux.Vars(r)["id"], auth.GrantRead)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (a *API) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeLocationsWrite)
	if !ok {
		return
	}
	loc, ok := a.locationFor(w, r, p, mux.Vars(r)["id"], auth.GrantUpdate)
	if !ok {
		return
	}
	var req updateLocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.svc.Locations.UpdateLocation(r.Context(), loc.ID, locations.LocationUpdate{
		Name:        req.Name,
		Description: req.Description,
		Timezone:    req.Timezone,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "location.update", "location", updated.ID, nil)
	writeJSON(w, http.StatusOK, updated)
}
