package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerx.io/internal/auth"
	"powerx.io/internal/httpapi"
	"powerx.io/internal/hvac"
	"powerx.io/internal/locations"
	"powerx.io/internal/store/memory"
	"powerx.io/internal/tou"
)

func TestAPIErrorMatchesStatusSentinel(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthenticated},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusBadRequest, ErrInvalidInput},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tc := range cases {
		err := error(&APIError{Status: tc.status, Detail: "x"})
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}

	internal := error(&APIError{Status: http.StatusInternalServerError, Detail: "internal error"})
	for _, tc := range cases {
		assert.False(t, errors.Is(internal, tc.want))
	}
}

func TestDecodesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get("X-API-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"grant exists","request_id":"req-9"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	_, err = c.WithBearer("token").WithAPIKey("key-1").CreateOrganization(context.Background(), "Acme")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "grant exists", apiErr.Detail)
	assert.Equal(t, "req-9", apiErr.RequestID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080")
	assert.Error(t, err)
}

func TestRoundTripAgainstAPI(t *testing.T) {
	store := memory.New()
	tokens, err := auth.NewTokenIssuer("test-secret", "powerx")
	require.NoError(t, err)
	// Monday 07:30 UTC.
	now := time.Date(2024, time.March, 4, 7, 30, 0, 0, time.UTC)
	svc, err := httpapi.NewServices(store, tokens, hvac.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	api, err := httpapi.New(svc, httpapi.ReadyProbe{}, httpapi.Options{Version: "test"})
	require.NoError(t, err)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(func() {
		srv.Close()
		api.Close()
	})

	ctx := context.Background()
	base, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	require.NoError(t, base.Health(ctx))

	token, _, err := tokens.Issue("ops", []auth.AccessScope{auth.ScopeAdmin}, time.Hour)
	require.NoError(t, err)
	admin := base.WithBearer(token)

	// Admin scope on the token covers JWT-only routes until it is stored.
	_, err = admin.CreateLocation(ctx, locations.Location{OrganizationID: "x", Name: "n"})
	require.ErrorIs(t, err, ErrForbidden)
	require.NoError(t, admin.AddUserAccessScopes(ctx, "ops", auth.ScopeAdmin))

	scopes, err := admin.MyAccessScopes(ctx)
	require.NoError(t, err)
	assert.Contains(t, scopes, auth.ScopeAdmin)

	org, err := admin.CreateOrganization(ctx, "Acme")
	require.NoError(t, err)
	loc, err := admin.CreateLocation(ctx, locations.Location{OrganizationID: org.ID, Name: "HQ"})
	require.NoError(t, err)

	setPoint := 21.0
	schedule, err := admin.CreateSchedule(ctx, hvac.Schedule{
		LocationID: loc.ID,
		Name:       "weekday",
		Events: []hvac.ScheduleEvent{
			{Time: hvac.NewTimeOfDay(6, 0, 0), Mode: hvac.ModeHeating, SetPointC: &setPoint},
			{Time: hvac.NewTimeOfDay(20, 0, 0), Mode: hvac.ModeOff, SetPointC: &setPoint},
		},
	})
	require.NoError(t, err)
	widget, err := admin.CreateWidget(ctx, hvac.ControlZoneWidget{LocationID: loc.ID, Name: "lobby", MondayScheduleID: &schedule.ID})
	require.NoError(t, err)

	issued, err := admin.CreateAPIKey(ctx, "reader", auth.ScopeHVACRead)
	require.NoError(t, err)
	reader := base.WithAPIKey(issued.Raw)

	current, err := reader.CurrentEvent(ctx, widget.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, hvac.ModeHeating, current.Mode)

	next, err := reader.NextEvent(ctx, widget.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, hvac.ModeOff, next.Event.Mode)
	assert.True(t, next.At.Equal(time.Date(2024, time.March, 4, 20, 0, 0, 0, time.UTC)))

	_, err = reader.CurrentEvent(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	rate := tou.Rate{
		LocationID:          loc.ID,
		Name:                "peak",
		PricePerKWh:         0.3,
		StartAt:             tou.Date{Year: 2024, Month: time.January, Day: 1},
		EndAt:               tou.Date{Year: 2024, Month: time.December, Day: 31},
		DayStartedAtSeconds: 17 * 3600,
		DayEndedAtSeconds:   21 * 3600,
		DaysOfWeek:          []int{0, 1, 2, 3, 4},
		IsActive:            true,
	}
	_, err = admin.CreateRate(ctx, rate)
	require.NoError(t, err)
	rate.Name = "overlap"
	_, err = admin.CreateRate(ctx, rate)
	assert.ErrorIs(t, err, ErrInvalidInput)

	rates, err := admin.ListRates(ctx, loc.ID, true)
	require.NoError(t, err)
	assert.Len(t, rates, 1)
}
