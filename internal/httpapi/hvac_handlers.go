package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"powerx.io/internal/auth"
	"powerx.io/internal/hvac"
)

type createScheduleRequest struct {
	LocationID string               `json:"location_id"`
	Name       string               `json:"name"`
	Events     []hvac.ScheduleEvent `json:"events"`
}

type createWidgetRequest struct {
	LocationID          string  `json:"location_id"`
	Name                string  `json:"name"`
	MondayScheduleID    *string `json:"monday_schedule_id"`
	TuesdayScheduleID   *string `json:"tuesday_schedule_id"`
	WednesdayScheduleID *string `json:"wednesday_schedule_id"`
	ThursdayScheduleID  *string `json:"thursday_schedule_id"`
	FridayScheduleID    *string `json:"friday_schedule_id"`
	SaturdayScheduleID  *string `json:"saturday_schedule_id"`
	SundayScheduleID    *string `json:"sunday_schedule_id"`
}

type currentEventResponse struct {
	WidgetID string              `json:"widget_id"`
	Event    *hvac.ScheduleEvent `json:"event"`
}

type nextEventResponse struct {
	WidgetID string              `json:"widget_id"`
	Event    *hvac.ScheduleEvent `json:"event"`
	At       *string             `json:"at"`
}

func (a *API) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeHVACWrite)
	if !ok {
		return
	}
	var req createScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.LocationID) == "" {
		writeError(w, r, http.StatusBadRequest, "location_id is required")
		return
	}
	if _, ok := a.locationFor(w, r, p, req.LocationID, auth.GrantUpdate); !ok {
		return
	}
	schedule, err := a.svc.Schedules.CreateSchedule(r.Context(), hvac.Schedule{
		LocationID: req.LocationID,
		Name:       req.Name,
		Events:     req.Events,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/hvac-schedules/%s", schedule.ID))
	writeJSON(w, http.StatusCreated, schedule)
}

func (a *API) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeHVACRead)
	if !ok {
		return
	}
	schedule, err := a.svc.Schedules.GetSchedule(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return
	}
	if schedule == nil {
		writeError(w, r, http.StatusNotFound, "hvac schedule not found")
		return
	}
	if _, ok := a.locationFor(w, r, p, schedule.LocationID, auth.GrantRead); !ok {
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (a *API) handleCreateWidget(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeHVACWrite)
	if !ok {
		return
	}
	var req createWidgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.LocationID) == "" {
		writeError(w, r, http.StatusBadRequest, "location_id is required")
		return
	}
	if _, ok := a.locationFor(w, r, p, req.LocationID, auth.GrantUpdate); !ok {
		return
	}
	widget, err := a.svc.Schedules.CreateWidget(r.Context(), hvac.ControlZoneWidget{
		LocationID:          req.LocationID,
		Name:                req.Name,
		MondayScheduleID:    req.MondayScheduleID,
		TuesdayScheduleID:   req.TuesdayScheduleID,
		WednesdayScheduleID: req.WednesdayScheduleID,
		ThursdayScheduleID:  req.ThursdayScheduleID,
		FridayScheduleID:    req.FridayScheduleID,
		SaturdayScheduleID:  req.SaturdayScheduleID,
		SundayScheduleID:    req.SundayScheduleID,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/control-zone-hvac-widgets/%s", widget.ID))
	writeJSON(w, http.StatusCreated, widget)
}

func (a *API) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeHVACRead)
	if !ok {
		return
	}
	widget, ok := a.widgetFor(w, r, p)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, widget)
}

func (a *API) handleCurrentEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeHVACRead)
	if !ok {
		return
	}
	widget, ok := a.widgetFor(w, r, p)
	if !ok {
		return
	}
	ev, found, err := a.svc.Schedules.CurrentEventForWidget(r.Context(), widget.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	resp := currentEventResponse{WidgetID: widget.ID}
	if found {
		resp.Event = &ev
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleNextEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireAny(w, r, auth.ScopeHVACRead)
	if !ok {
		return
	}
	widget, ok := a.widgetFor(w, r, p)
	if !ok {
		return
	}
	next, found, err := a.svc.Schedules.NextEventForWidget(r.Context(), widget.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	resp := nextEventResponse{WidgetID: widget.ID}
	if found {
		at := next.At.Format("2006-01-02T15:04:05Z07:00")
		resp.Event = &next.Event
		resp.At = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

// widgetFor loads the widget named in the path and checks read access to its location.
func (a *API) widgetFor(w http.ResponseWriter, r *http.Request, p principal) (hvac.ControlZoneWidget, bool) {
	widget, err := a.svc.Schedules.GetWidget(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return hvac.ControlZoneWidget{}, false
	}
	if widget == nil {
		writeError(w, r, http.StatusNotFound, "control zone widget not found")
		return hvac.ControlZoneWidget{}, false
	}
	if _, ok := a.locationFor(w, r, p, widget.LocationID, auth.GrantRead); !ok {
		return hvac.ControlZoneWidget{}, false
	}
	return *widget, true
}
