package hvac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"powerx.io/internal/locations"
	"powerx.io/internal/obs"
)

const defaultTimezoneCacheSize = 128

// LocationReader resolves the location a schedule or widget belongs to.
type LocationReader interface {
	GetLocation(ctx context.Context, id string) (*locations.Location, error)
}

// SchedulesService resolves current and next schedule events for control zone widgets.
type SchedulesService struct {
	store     Store
	locations LocationReader
	zones     *lru.Cache[string, *time.Location]
	now       func() time.Time
}

// Option customises a SchedulesService.
type Option func(*serviceOptions)

type serviceOptions struct {
	cacheSize int
	now       func() time.Time
}

// WithTimezoneCacheSize bounds the number of cached time zones.
func WithTimezoneCacheSize(n int) Option {
	return func(o *serviceOptions) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func NewSchedulesService(store Store, locs LocationReader, opts ...Option) (*SchedulesService, error) {
	if store == nil {
		return nil, errors.New("hvac store is required")
	}
	if locs == nil {
		return nil, errors.New("location reader is required")
	}
	o := serviceOptions{cacheSize: defaultTimezoneCacheSize, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	zones, err := lru.New[string, *time.Location](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("timezone cache: %w", err)
	}
	return &SchedulesService{store: store, locations: locs, zones: zones, now: o.now}, nil
}

// CurrentEvent returns the event in effect now in the given IANA zone.
func (s *SchedulesService) CurrentEvent(week Week, timezone string) (ScheduleEvent, bool) {
	return CurrentEventAt(week, s.now().In(s.location(timezone)))
}

// NextEvent returns the next event to fire in the given IANA zone.
func (s *SchedulesService) NextEvent(week Week, timezone string) (NextEvent, bool) {
	return NextEventAt(week, s.now().In(s.location(timezone)))
}

// CurrentEventForWidget loads the widget with its location zone and resolves the current event.
func (s *SchedulesService) CurrentEventForWidget(ctx context.Context, widgetID string) (ScheduleEvent, bool, error) {
	week, tz, err := s.loadWidget(ctx, widgetID)
	if err != nil {
		return ScheduleEvent{}, false, err
	}
	ev, ok := s.CurrentEvent(week, tz)
	return ev, ok, nil
}

// NextEventForWidget loads the widget with its location zone and resolves the next event.
func (s *SchedulesService) NextEventForWidget(ctx context.Context, widgetID string) (NextEvent, bool, error) {
	week, tz, err := s.loadWidget(ctx, widgetID)
	if err != nil {
		return NextEvent{}, false, err
	}
	next, ok := s.NextEvent(week, tz)
	return next, ok, nil
}

func (s *SchedulesService) CreateSchedule(ctx context.Context, schedule Schedule) (Schedule, error) {
	schedule.LocationID = strings.TrimSpace(schedule.LocationID)
	schedule.Name = strings.TrimSpace(schedule.Name)
	if schedule.LocationID == "" {
		return Schedule{}, fmt.Errorf("%w: location_id is required", ErrInvalidInput)
	}
	if schedule.Name == "" {
		return Schedule{}, fmt.Errorf("%w: schedule name is required", ErrInvalidInput)
	}
	for i, ev := range schedule.Events {
		if err := validateEvent(ev); err != nil {
			return Schedule{}, fmt.Errorf("event %d: %w", i, err)
		}
	}
	if _, err := s.requireLocation(ctx, schedule.LocationID); err != nil {
		return Schedule{}, err
	}
	return s.store.CreateSchedule(ctx, schedule)
}

// GetSchedule returns nil without error when the schedule does not exist.
func (s *SchedulesService) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	schedule, err := s.store.GetSchedule(ctx, strings.TrimSpace(id))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// CreateWidget stores a widget. Every referenced schedule must belong to the widget's location.
func (s *SchedulesService) CreateWidget(ctx context.Context, widget ControlZoneWidget) (ControlZoneWidget, error) {
	widget.LocationID = strings.TrimSpace(widget.LocationID)
	widget.Name = strings.TrimSpace(widget.Name)
	if widget.LocationID == "" {
		return ControlZoneWidget{}, fmt.Errorf("%w: location_id is required", ErrInvalidInput)
	}
	if widget.Name == "" {
		return ControlZoneWidget{}, fmt.Errorf("%w: widget name is required", ErrInvalidInput)
	}
	if _, err := s.requireLocation(ctx, widget.LocationID); err != nil {
		return ControlZoneWidget{}, err
	}
	ids := referencedSchedules(widget)
	schedules, err := s.store.ListSchedules(ctx, ids)
	if err != nil {
		return ControlZoneWidget{}, err
	}
	byID := make(map[string]Schedule, len(schedules))
	for _, sc := range schedules {
		byID[sc.ID] = sc
	}
	for _, id := range ids {
		sc, ok := byID[id]
		if !ok {
			return ControlZoneWidget{}, fmt.Errorf("%w: schedule %s does not exist", ErrInvalidInput, id)
		}
		if sc.LocationID != widget.LocationID {
			return ControlZoneWidget{}, fmt.Errorf("%w: schedule %s belongs to another location", ErrInvalidInput, id)
		}
	}
	return s.store.CreateWidget(ctx, widget)
}

// GetWidget returns nil without error when the widget does not exist.
func (s *SchedulesService) GetWidget(ctx context.Context, id string) (*ControlZoneWidget, error) {
	widget, err := s.store.GetWidget(ctx, strings.TrimSpace(id))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &widget, nil
}

func (s *SchedulesService) loadWidget(ctx context.Context, widgetID string) (Week, string, error) {
	widget, err := s.store.GetWidget(ctx, strings.TrimSpace(widgetID))
	if err != nil {
		return Week{}, "", err
	}
	loc, err := s.locations.GetLocation(ctx, widget.LocationID)
	if err != nil {
		return Week{}, "", err
	}
	var tz string
	if loc != nil {
		tz = loc.Timezone
	}
	schedules, err := s.store.ListSchedules(ctx, referencedSchedules(widget))
	if err != nil {
		return Week{}, "", err
	}
	byID := make(map[string]*Schedule, len(schedules))
	for i := range schedules {
		byID[schedules[i].ID] = &schedules[i]
	}
	var week Week
	for day, id := range widget.ScheduleIDs() {
		if id != nil {
			week[day] = byID[*id]
		}
	}
	return week, tz, nil
}

func (s *SchedulesService) requireLocation(ctx context.Context, id string) (*locations.Location, error) {
	loc, err := s.locations.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: location %s", ErrNotFound, id)
	}
	return loc, nil
}

// location resolves an IANA name, falling back to UTC for empty or unknown zones.
func (s *SchedulesService) location(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	if loc, ok := s.zones.Get(name); ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		obs.Logger().WithFields(logrus.Fields{"timezone": name, "error": err}).Warn("unknown location timezone, using UTC")
		loc = time.UTC
	}
	s.zones.Add(name, loc)
	return loc
}

func referencedSchedules(widget ControlZoneWidget) []string {
	seen := make(map[string]struct{}, 7)
	var ids []string
	for _, id := range widget.ScheduleIDs() {
		if id == nil || *id == "" {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	return ids
}

func validateEvent(ev ScheduleEvent) error {
	if !ev.Mode.valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, ev.Mode)
	}
	if ev.Time < 0 || ev.Time >= secondsPerDay {
		return fmt.Errorf("%w: time out of range", ErrInvalidInput)
	}
	switch ev.Mode {
	case ModeAuto:
		if ev.SetPointHeatingC == nil || ev.SetPointCoolingC == nil {
			return fmt.Errorf("%w: auto mode requires set_point_heating_c and set_point_cooling_c", ErrInvalidInput)
		}
		if *ev.SetPointHeatingC > *ev.SetPointCoolingC {
			return fmt.Errorf("%w: heating set point exceeds cooling set point", ErrInvalidInput)
		}
	default:
		if ev.SetPointC == nil {
			return fmt.Errorf("%w: %s mode requires set_point_c", ErrInvalidInput, ev.Mode)
		}
	}
	return nil
}
