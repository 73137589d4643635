package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"powerx.io/internal/auth"
	"powerx.io/internal/tou"
)

type createRateRequest struct {
	Name                string   `json:"name"`
	PricePerKWh         float64  `json:"price_per_kwh"`
	StartAt             tou.Date `json:"start_at"`
	EndAt               tou.Date `json:"end_at"`
	DayStartedAtSeconds int      `json:"day_started_at_seconds"`
	DayEndedAtSeconds   int      `json:"day_ended_at_seconds"`
	DaysOfWeek          []int    `json:"days_of_week"`
	RecursYearly        bool     `json:"recurs_yearly"`
	IsActive            *bool    `json:"is_active"`
}

func (a *API) handleCreateRate(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeElectricityWrite)
	if !ok {
		return
	}
	loc, ok := a.locationFor(w, r, p, mux.Vars(r)["id"], auth.GrantUpdate)
	if !ok {
		return
	}
	var req createRateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	rate, err := a.svc.Rates.CreateRate(r.Context(), tou.Rate{
		LocationID:          loc.ID,
		Name:                req.Name,
		PricePerKWh:         req.PricePerKWh,
		StartAt:             req.StartAt,
		EndAt:               req.EndAt,
		DayStartedAtSeconds: req.DayStartedAtSeconds,
		DayEndedAtSeconds:   req.DayEndedAtSeconds,
		DaysOfWeek:          req.DaysOfWeek,
		RecursYearly:        req.RecursYearly,
		IsActive:            active,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "time_of_use_rate.create", "time_of_use_rate", rate.ID, map[string]any{
		"location_id": rate.LocationID,
		"is_active":   rate.IsActive,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/time-of-use-rates/%s", rate.ID))
	writeJSON(w, http.StatusCreated, rate)
}

func (a *API) handleListRates(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeElectricityRead)
	if !ok {
		return
	}
	loc, ok := a.locationFor(w, r, p, mux.Vars(r)["id"], auth.GrantRead)
	if !ok {
		return
	}
	activeOnly := false
	if raw := r.URL.Query().Get("active_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "active_only must be a boolean")
			return
		}
		activeOnly = v
	}
	rates, err := a.svc.Rates.ListRates(r.Context(), loc.ID, activeOnly)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if rates == nil {
		rates = []tou.Rate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rates})
}

func (a *API) handleGetRate(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeElectricityRead)
	if !ok {
		return
	}
	rate, ok := a.rateFor(w, r, p, auth.GrantRead)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (a *API) handleUpdateRate(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeElectricityWrite)
	if !ok {
		return
	}
	rate, ok := a.rateFor(w, r, p, auth.GrantUpdate)
	if !ok {
		return
	}
	var upd tou.RateUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.svc.Rates.UpdateRate(r.Context(), rate.ID, upd)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "time_of_use_rate.update", "time_of_use_rate", updated.ID, map[string]any{
		"location_id": updated.LocationID,
		"is_active":   updated.IsActive,
	})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteRate(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeElectricityWrite)
	if !ok {
		return
	}
	rate, ok := a.rateFor(w, r, p, auth.GrantUpdate)
	if !ok {
		return
	}
	if err := a.svc.Rates.DeleteRate(r.Context(), rate.ID); err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), p, "time_of_use_rate.delete", "time_of_use_rate", rate.ID, map[string]any{
		"location_id": rate.LocationID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// rateFor loads the rate named in the path and checks the caller's grant on its location.
func (a *API) rateFor(w http.ResponseWriter, r *http.Request, p principal, level auth.GrantLevel) (tou.Rate, bool) {
	rate, err := a.svc.Rates.GetRate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return tou.Rate{}, false
	}
	if rate == nil {
		writeError(w, r, http.StatusNotFound, "time-of-use rate not found")
		return tou.Rate{}, false
	}
	if _, ok := a.locationFor(w, r, p, rate.LocationID, level); !ok {
		return tou.Rate{}, false
	}
	return *rate, true
}
