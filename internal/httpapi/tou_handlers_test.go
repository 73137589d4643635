package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerx.io/internal/auth"
	"powerx.io/internal/tou"
)

func peakRate(name string, start, end int) map[string]any {
	return map[string]any{
		"name":                   name,
		"price_per_kwh":          0.31,
		"start_at":               "2024-01-01",
		"end_at":                 "2024-12-31",
		"day_started_at_seconds": start,
		"day_ended_at_seconds":   end,
		"days_of_week":           []int{0, 1, 2, 3, 4},
	}
}

func TestRateConflictsAreRejected(t *testing.T) {
	c := newTestAPI(t)
	loc := c.seedLocation("")
	admin := c.user("admin", auth.ScopeAdmin)
	path := "/v1/locations/" + loc.ID + "/time-of-use-rates"

	evening := expect[tou.Rate](t, c.post(path, peakRate("evening", 17*3600, 21*3600), admin), http.StatusCreated)
	assert.True(t, evening.IsActive)

	body := expect[map[string]any](t, c.post(path, peakRate("overlap", 20*3600, 22*3600), admin), http.StatusBadRequest)
	assert.Contains(t, body["detail"], evening.ID)

	// Touching windows are half-open and do not overlap.
	expectStatus(t, c.post(path, peakRate("late", 21*3600, 23*3600), admin), http.StatusCreated)

	inactive := peakRate("draft", 20*3600, 22*3600)
	inactive["is_active"] = false
	draft := expect[tou.Rate](t, c.post(path, inactive, admin), http.StatusCreated)
	assert.False(t, draft.IsActive)

	expectStatus(t, c.do(http.MethodPatch, "/v1/time-of-use-rates/"+draft.ID, map[string]any{"is_active": true}, admin), http.StatusBadRequest)

	list := expect[struct {
		Items []tou.Rate `json:"items"`
	}](t, c.get(path+"?active_only=true", admin), http.StatusOK)
	assert.Len(t, list.Items, 2)

	all := expect[struct {
		Items []tou.Rate `json:"items"`
	}](t, c.get(path, admin), http.StatusOK)
	assert.Len(t, all.Items, 3)
}

func TestRateUpdateAndDelete(t *testing.T) {
	c := newTestAPI(t)
	loc := c.seedLocation("")
	admin := c.user("admin", auth.ScopeAdmin)

	rate := expect[tou.Rate](t, c.post("/v1/locations/"+loc.ID+"/time-of-use-rates", peakRate("evening", 17*3600, 21*3600), admin), http.StatusCreated)

	updated := expect[tou.Rate](t, c.do(http.MethodPatch, "/v1/time-of-use-rates/"+rate.ID, map[string]any{
		"price_per_kwh": 0.42,
		"days_of_week":  []int{6, 5, 5},
	}, admin), http.StatusOK)
	assert.InDelta(t, 0.42, updated.PricePerKWh, 1e-9)
	assert.Equal(t, []int{5, 6}, updated.DaysOfWeek)

	expectStatus(t, c.do(http.MethodPatch, "/v1/time-of-use-rates/"+rate.ID, map[string]any{"location_id": "elsewhere"}, admin), http.StatusBadRequest)

	got := expect[tou.Rate](t, c.get("/v1/time-of-use-rates/"+rate.ID, admin), http.StatusOK)
	assert.Equal(t, rate.ID, got.ID)

	expectStatus(t, c.do(http.MethodDelete, "/v1/time-of-use-rates/"+rate.ID, nil, admin), http.StatusNoContent)
	expectStatus(t, c.get("/v1/time-of-use-rates/"+rate.ID, admin), http.StatusNotFound)
}

func TestRateEndpointsCheckScopesAndGrants(t *testing.T) {
	c := newTestAPI(t)
	loc := c.seedLocation("")
	admin := c.user("admin", auth.ScopeAdmin)
	reader := c.user("reader", auth.ScopeElectricityRead)
	path := "/v1/locations/" + loc.ID + "/time-of-use-rates"

	expectStatus(t, c.post(path, peakRate("evening", 0, 3600), reader), http.StatusForbidden)
	expectStatus(t, c.get(path, reader), http.StatusForbidden)
	expectStatus(t, c.get("/v1/locations/missing/time-of-use-rates", reader), http.StatusNotFound)

	expectStatus(t, c.post("/v1/access-grants/locations", map[string]any{
		"user_id": "reader", "location_id": loc.ID, "access_grant": "read",
	}, admin), http.StatusCreated)
	expectStatus(t, c.get(path, reader), http.StatusOK)
	expectStatus(t, c.get(path+"?active_only=maybe", reader), http.StatusBadRequest)

	invalid := peakRate("backwards", 3600, 0)
	body := expect[map[string]any](t, c.post(path, invalid, admin), http.StatusBadRequest)
	require.NotEmpty(t, body["detail"])
}
