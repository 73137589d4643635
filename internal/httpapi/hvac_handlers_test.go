package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerx.io/internal/auth"
	"powerx.io/internal/hvac"
)

func TestWidgetScheduleEventsOverAPIKey(t *testing.T) {
	c := newTestAPI(t)
	loc := c.seedLocation("Europe/Berlin")
	admin := c.user("admin", auth.ScopeAdmin)

	issued := expect[struct {
		APIKey string `json:"api_key"`
	}](t, c.post("/v1/api-keys", map[string]any{
		"name":          "thermostat-bridge",
		"access_scopes": []string{"hvac:read", "hvac:write"},
	}, admin), http.StatusCreated)
	key := map[string]string{apiKeyHeader: issued.APIKey}

	schedule := expect[hvac.Schedule](t, c.post("/v1/hvac-schedules", map[string]any{
		"location_id": loc.ID,
		"name":        "weekday",
		"events": []map[string]any{
			{"time": "06:00", "mode": "Heating", "set_point_c": 21},
			{"time": "22:00", "mode": "Off", "set_point_c": 16},
		},
	}, key), http.StatusCreated)
	require.Len(t, schedule.Events, 2)

	widget := expect[hvac.ControlZoneWidget](t, c.post("/v1/control-zone-hvac-widgets", map[string]any{
		"location_id":        loc.ID,
		"name":               "lobby",
		"monday_schedule_id": schedule.ID,
	}, key), http.StatusCreated)

	// 08:30 local on Monday.
	current := expect[currentEventResponse](t, c.get("/v1/control-zone-hvac-widgets/"+widget.ID+"/schedule-events/current", key), http.StatusOK)
	require.NotNil(t, current.Event)
	assert.Equal(t, hvac.ModeHeating, current.Event.Mode)
	assert.Equal(t, hvac.NewTimeOfDay(6, 0, 0), current.Event.Time)

	next := expect[nextEventResponse](t, c.get("/v1/control-zone-hvac-widgets/"+widget.ID+"/schedule-events/next", key), http.StatusOK)
	require.NotNil(t, next.Event)
	require.NotNil(t, next.At)
	assert.Equal(t, hvac.ModeOff, next.Event.Mode)
	assert.Equal(t, "2024-03-04T22:00:00+01:00", *next.At)

	got := expect[hvac.ControlZoneWidget](t, c.get("/v1/control-zone-hvac-widgets/"+widget.ID, key), http.StatusOK)
	require.NotNil(t, got.MondayScheduleID)
	assert.Equal(t, schedule.ID, *got.MondayScheduleID)
	assert.Nil(t, got.TuesdayScheduleID)
}

func TestWidgetWithoutSchedulesHasNoEvents(t *testing.T) {
	c := newTestAPI(t)
	loc := c.seedLocation("")
	admin := c.user("admin", auth.ScopeAdmin)

	widget := expect[hvac.ControlZoneWidget](t, c.post("/v1/control-zone-hvac-widgets", map[string]any{
		"location_id": loc.ID,
		"name":        "empty",
	}, admin), http.StatusCreated)

	current := expect[currentEventResponse](t, c.get("/v1/control-zone-hvac-widgets/"+widget.ID+"/schedule-events/current", admin), http.StatusOK)
	assert.Nil(t, current.Event)
	next := expect[nextEventResponse](t, c.get("/v1/control-zone-hvac-widgets/"+widget.ID+"/schedule-events/next", admin), http.StatusOK)
	assert.Nil(t, next.Event)
	assert.Nil(t, next.At)
}

func TestScheduleValidationAndGrants(t *testing.T) {
	c := newTestAPI(t)
	loc := c.seedLocation("")
	admin := c.user("admin", auth.ScopeAdmin)
	operator := c.user("operator", auth.ScopeHVACRead, auth.ScopeHVACWrite)

	expectStatus(t, c.post("/v1/hvac-schedules", map[string]any{
		"location_id": loc.ID,
		"name":        "bad",
		"events":      []map[string]any{{"time": "07:00", "mode": "Auto", "set_point_heating_c": 24, "set_point_cooling_c": 20}},
	}, admin), http.StatusBadRequest)

	expectStatus(t, c.post("/v1/hvac-schedules", map[string]any{
		"location_id": loc.ID,
		"name":        "bad-time",
		"events":      []map[string]any{{"time": "25:00", "mode": "Off"}},
	}, admin), http.StatusBadRequest)

	body := map[string]any{"location_id": loc.ID, "name": "ok", "events": []map[string]any{}}
	expectStatus(t, c.post("/v1/hvac-schedules", body, operator), http.StatusForbidden)
	expectStatus(t, c.post("/v1/access-grants/locations", map[string]any{
		"user_id": "operator", "location_id": loc.ID, "access_grant": "update",
	}, admin), http.StatusCreated)
	schedule := expect[hvac.Schedule](t, c.post("/v1/hvac-schedules", body, operator), http.StatusCreated)

	// Reading needs a read grant, which update does not imply.
	expectStatus(t, c.get("/v1/hvac-schedules/"+schedule.ID, operator), http.StatusForbidden)
	expectStatus(t, c.get("/v1/hvac-schedules/"+schedule.ID, admin), http.StatusOK)
	expectStatus(t, c.get("/v1/hvac-schedules/missing", operator), http.StatusNotFound)
	expectStatus(t, c.get("/v1/control-zone-hvac-widgets/missing/schedule-events/current", operator), http.StatusNotFound)
}

func TestCreateWithoutLocationIsInvalid(t *testing.T) {
	c := newTestAPI(t)
	admin := c.user("admin", auth.ScopeAdmin)

	body := expect[map[string]any](t, c.post("/v1/hvac-schedules", map[string]any{
		"location_id": "  ",
		"name":        "weekday",
		"events":      []map[string]any{},
	}, admin), http.StatusBadRequest)
	assert.Equal(t, "location_id is required", body["detail"])

	expectStatus(t, c.post("/v1/control-zone-hvac-widgets", map[string]any{"name": "lobby"}, admin), http.StatusBadRequest)
	expectStatus(t, c.post("/v1/locations", map[string]any{"name": "HQ"}, admin), http.StatusBadRequest)
}
