package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"powerx.io/internal/auth"
)

type locationGrantRequest struct {
	UserID     string          `json:"user_id"`
	LocationID string          `json:"location_id"`
	Level      auth.GrantLevel `json:"access_grant"`
}

type organizationGrantRequest struct {
	UserID         string          `json:"user_id"`
	OrganizationID string          `json:"organization_id"`
	Level          auth.GrantLevel `json:"access_grant"`
}

type createAccessRoleRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	AccessScopes []string `json:"access_scopes"`
}

type assignAccessRoleRequest struct {
	AccessRoleID string `json:"access_role_id"`
}

type accessScopesRequest struct {
	AccessScopes []string `json:"access_scopes"`
}

type createAPIKeyRequest struct {
	Name          string   `json:"name"`
	AccessScopes  []string `json:"access_scopes"`
	AccessRoleIDs []string `json:"access_role_ids"`
}

func (a *API) handleListAccessScopes(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAny(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"access_scopes": a.svc.Catalog.Definitions()})
}

func (a *API) handleMyAccessScopes(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r)
	if !ok {
		return
	}
	resp := map[string]any{
		"credential":    p.cred.Kind(),
		"access_scopes": p.scopes.Sorted(),
	}
	switch c := p.cred.(type) {
	case auth.JWTCredential:
		resp["user_id"] = c.Token.UserID
	case auth.APIKeyCredential:
		resp["api_key_id"] = c.Key.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCreateLocationGrant(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeAccessGrantsWrite)
	if !ok {
		return
	}
	var req locationGrantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	grant, err := a.svc.Admin.GrantLocationAccess(r.Context(), req.UserID, req.LocationID, req.Level)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "access_grant.location.create", "location", grant.LocationID, map[string]any{
		"user_id":      grant.UserID,
		"access_grant": string(grant.Level),
	})
	writeJSON(w, http.StatusCreated, grant)
}

func (a *API) handleDeleteLocationGrant(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeAccessGrantsWrite)
	if !ok {
		return
	}
	var req locationGrantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.Admin.RevokeLocationAccess(r.Context(), req.UserID, req.LocationID, req.Level); err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "access_grant.location.delete", "location", req.LocationID, map[string]any{
		"user_id":      req.UserID,
		"access_grant": string(req.Level),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListLocationGrants(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireJWT(w, r, auth.ScopeAccessGrantsRead); !ok {
		return
	}
	grants, err := a.svc.Admin.ListLocationGrants(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if grants == nil {
		grants = []auth.UserLocationAccessGrant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": grants})
}

func (a *API) handleCreateOrganizationGrant(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeAccessGrantsWrite)
	if !ok {
		return
	}
	var req organizationGrantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	grant, err := a.svc.Admin.GrantOrganizationAccess(r.Context(), req.UserID, req.OrganizationID, req.Level)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "access_grant.organization.create", "organization", grant.OrganizationID, map[string]any{
		"user_id":      grant.UserID,
		"access_grant": string(grant.Level),
	})
	writeJSON(w, http.StatusCreated, grant)
}

func (a *API) handleDeleteOrganizationGrant(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeAccessGrantsWrite)
	if !ok {
		return
	}
	var req organizationGrantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.Admin.RevokeOrganizationAccess(r.Context(), req.UserID, req.OrganizationID, req.Level); err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "access_grant.organization.delete", "organization", req.OrganizationID, map[string]any{
		"user_id":      req.UserID,
		"access_grant": string(req.Level),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListOrganizationGrants(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireJWT(w, r, auth.ScopeAccessGrantsRead); !ok {
		return
	}
	grants, err := a.svc.Admin.ListOrganizationGrants(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if grants == nil {
		grants = []auth.UserOrganizationAccessGrant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": grants})
}

func (a *API) handleCreateAccessRole(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeAccessRolesWrite)
	if !ok {
		return
	}
	var req createAccessRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := a.svc.Admin.CreateAccessRole(r.Context(), req.Name, req.Description, req.AccessScopes)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "access_role.create", "access_role", role.ID, map[string]any{
		"name":          role.Name,
		"access_scopes": role.Scopes,
	})
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleAssignAccessRole(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeAccessRolesWrite)
	if !ok {
		return
	}
	userID := mux.Vars(r)["id"]
	var req assignAccessRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.Admin.AssignAccessRole(r.Context(), userID, req.AccessRoleID); err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "user.access_role.assign", "user", userID, map[string]any{
		"access_role_id": req.AccessRoleID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddUserAccessScopes(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeAccessRolesWrite)
	if !ok {
		return
	}
	userID := mux.Vars(r)["id"]
	var req accessScopesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.Admin.AddUserAccessScopes(r.Context(), userID, req.AccessScopes); err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "user.access_scopes.add", "user", userID, map[string]any{
		"access_scopes": req.AccessScopes,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeAPIKeysWrite)
	if !ok {
		return
	}
	var req createAPIKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	issued, err := a.svc.Admin.CreateAPIKey(r.Context(), req.Name, req.AccessScopes, req.AccessRoleIDs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "api_key.create", "api_key", issued.ID, map[string]any{
		"name":            issued.Name,
		"prefix":          issued.Prefix,
		"access_scopes":   issued.Scopes,
		"access_role_ids": req.AccessRoleIDs,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/api-keys/%s", issued.ID))
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, issued)
}

func (a *API) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireJWT(w, r, auth.ScopeAPIKeysWrite)
	if !ok {
		return
	}
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if err := a.svc.Admin.RevokeAPIKey(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "api_key.revoke", "api_key", id, nil)
	w.WriteHeader(http.StatusNoContent)
}
