// Command smoke drives a running powerx-api through a full provisioning flow
// and checks schedule resolution and rate conflict rejection.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"powerx.io/internal/auth"
	"powerx.io/internal/client"
	"powerx.io/internal/config"
	"powerx.io/internal/hvac"
	"powerx.io/internal/locations"
	"powerx.io/internal/obs"
	"powerx.io/internal/tou"
)

func main() {
	log := obs.InitLogger(obs.LogOptions{Level: "info"})

	addr := os.Getenv("POWERX_API_URL")
	if addr == "" {
		addr = "http://localhost:8080"
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	userID := fmt.Sprintf("smoke-%d", time.Now().UnixNano())
	token, _, err := tokens.Issue(userID, []auth.AccessScope{auth.ScopeAdmin}, 5*time.Minute)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	base, err := client.New(addr)
	if err != nil {
		log.Fatalf("client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := base.Health(ctx); err != nil {
		log.Fatalf("health at %s: %v", addr, err)
	}
	admin := base.WithBearer(token)
	if err := admin.AddUserAccessScopes(ctx, userID, auth.ScopeAdmin); err != nil {
		log.Fatalf("bootstrap scopes: %v", err)
	}

	org, err := admin.CreateOrganization(ctx, "smoke-org")
	if err != nil {
		log.Fatalf("create organization: %v", err)
	}
	loc, err := admin.CreateLocation(ctx, locations.Location{OrganizationID: org.ID, Name: "smoke-site", Timezone: "UTC"})
	if err != nil {
		log.Fatalf("create location: %v", err)
	}

	// One event per hour keeps both current and next defined at any time of day.
	events := make([]hvac.ScheduleEvent, 0, 24)
	for h := 0; h < 24; h++ {
		mode, sp := hvac.ModeOff, 16.0
		if h%2 == 0 {
			mode, sp = hvac.ModeHeating, 20.5
		}
		events = append(events, hvac.ScheduleEvent{Time: hvac.NewTimeOfDay(h, 0, 0), Mode: mode, SetPointC: &sp})
	}
	schedule, err := admin.CreateSchedule(ctx, hvac.Schedule{LocationID: loc.ID, Name: "hourly", Events: events})
	if err != nil {
		log.Fatalf("create schedule: %v", err)
	}
	id := schedule.ID
	widget, err := admin.CreateWidget(ctx, hvac.ControlZoneWidget{
		LocationID:          loc.ID,
		Name:                "smoke-zone",
		MondayScheduleID:    &id,
		TuesdayScheduleID:   &id,
		WednesdayScheduleID: &id,
		ThursdayScheduleID:  &id,
		FridayScheduleID:    &id,
		SaturdayScheduleID:  &id,
		SundayScheduleID:    &id,
	})
	if err != nil {
		log.Fatalf("create widget: %v", err)
	}

	key, err := admin.CreateAPIKey(ctx, "smoke-reader", auth.ScopeHVACRead, auth.ScopeElectricityRead)
	if err != nil {
		log.Fatalf("create api key: %v", err)
	}
	reader := base.WithAPIKey(key.Raw)

	var (
		current *hvac.ScheduleEvent
		next    *hvac.NextEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = reader.CurrentEvent(gctx, widget.ID)
		return err
	})
	g.Go(func() error {
		var err error
		next, err = reader.NextEvent(gctx, widget.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("schedule events: %v", err)
	}
	if current == nil || next == nil {
		log.Fatalf("expected current and next events, got current=%v next=%v", current, next)
	}
	if !next.At.After(time.Now().Add(-time.Minute)) {
		log.Fatalf("next event %s is in the past", next.At)
	}

	year := time.Now().UTC().Year()
	rate := tou.Rate{
		LocationID:          loc.ID,
		Name:                "peak",
		PricePerKWh:         0.32,
		StartAt:             tou.Date{Year: year, Month: time.January, Day: 1},
		EndAt:               tou.Date{Year: year, Month: time.December, Day: 31},
		DayStartedAtSeconds: 17 * 3600,
		DayEndedAtSeconds:   21 * 3600,
		DaysOfWeek:          []int{0, 1, 2, 3, 4},
		IsActive:            true,
	}
	if _, err := admin.CreateRate(ctx, rate); err != nil {
		log.Fatalf("create rate: %v", err)
	}
	rate.Name = "overlapping-peak"
	rate.DayStartedAtSeconds = 20 * 3600
	rate.DayEndedAtSeconds = 22 * 3600
	if _, err := admin.CreateRate(ctx, rate); !errors.Is(err, client.ErrInvalidInput) {
		log.Fatalf("overlapping rate: want invalid input, got %v", err)
	}
	rates, err := reader.ListRates(ctx, loc.ID, true)
	if err != nil {
		log.Fatalf("list rates: %v", err)
	}
	if len(rates) != 1 {
		log.Fatalf("expected 1 active rate, got %d", len(rates))
	}

	fmt.Printf("powerx smoke test passed: location=%s widget=%s current=%s next=%s@%s\n",
		loc.ID, widget.ID, current.Mode, next.Event.Mode, next.At.Format(time.RFC3339))
}
