package hvac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("hvac: not found")
	ErrInvalidInput = errors.New("hvac: invalid input")
)

// Mode is the thermostat mode an event switches to.
type Mode string

const (
	ModeHeating Mode = "Heating"
	ModeCooling Mode = "Cooling"
	ModeOff     Mode = "Off"
	ModeAuto    Mode = "Auto"
)

func (m Mode) valid() bool {
	switch m {
	case ModeHeating, ModeCooling, ModeOff, ModeAuto:
		return true
	}
	return false
}

// TimeOfDay is a wall-clock time without date, in whole seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// NewTimeOfDay builds a TimeOfDay from clock components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ClockOf returns the time-of-day of t in t's location, truncated to seconds.
func ClockOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return NewTimeOfDay(h, m, s)
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: time %q must be HH:MM or HH:MM:SS", ErrInvalidInput, raw)
	}
	limits := []int{23, 59, 59}
	var vals [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: time %q is out of range", ErrInvalidInput, raw)
		}
		vals[i] = n
	}
	return NewTimeOfDay(vals[0], vals[1], vals[2]), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: time must be a string", ErrInvalidInput)
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ScheduleEvent switches the zone to Mode at Time. Auto events carry a heating and a cooling
// set point; other modes carry SetPointC.
type ScheduleEvent struct {
	Time             TimeOfDay `json:"time"`
	Mode             Mode      `json:"mode"`
	SetPointC        *float64  `json:"set_point_c,omitempty"`
	SetPointHeatingC *float64  `json:"set_point_heating_c,omitempty"`
	SetPointCoolingC *float64  `json:"set_point_cooling_c,omitempty"`
}

// Schedule is a named list of daily events for one location.
type Schedule struct {
	ID         string          `json:"id"`
	LocationID string          `json:"location_id"`
	Name       string          `json:"name"`
	Events     []ScheduleEvent `json:"events"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ControlZoneWidget binds up to one schedule to each weekday.
type ControlZoneWidget struct {
	ID                  string    `json:"id"`
	LocationID          string    `json:"location_id"`
	Name                string    `json:"name"`
	MondayScheduleID    *string   `json:"monday_schedule_id"`
	TuesdayScheduleID   *string   `json:"tuesday_schedule_id"`
	WednesdayScheduleID *string   `json:"wednesday_schedule_id"`
	ThursdayScheduleID  *string   `json:"thursday_schedule_id"`
	FridayScheduleID    *string   `json:"friday_schedule_id"`
	SaturdayScheduleID  *string   `json:"saturday_schedule_id"`
	SundayScheduleID    *string   `json:"sunday_schedule_id"`
	CreatedAt           time.Time `json:"created_at"`
}

// ScheduleIDs returns the per-weekday schedule references, Monday first.
func (w ControlZoneWidget) ScheduleIDs() [7]*string {
	return [7]*string{
		w.MondayScheduleID, w.TuesdayScheduleID, w.WednesdayScheduleID, w.ThursdayScheduleID,
		w.FridayScheduleID, w.SaturdayScheduleID, w.SundayScheduleID,
	}
}

// Week holds the resolved schedule of each weekday, Monday first. Nil days have no events.
type Week [7]*Schedule

// NextEvent is an upcoming event and the instant it fires.
type NextEvent struct {
	Event ScheduleEvent `json:"event"`
	At    time.Time     `json:"at"`
}

// Store persists schedules and widgets.
type Store interface {
	CreateSchedule(ctx context.Context, schedule Schedule) (Schedule, error)
	GetSchedule(ctx context.Context, id string) (Schedule, error)
	ListSchedules(ctx context.Context, ids []string) ([]Schedule, error)

	CreateWidget(ctx context.Context, widget ControlZoneWidget) (ControlZoneWidget, error)
	GetWidget(ctx context.Context, id string) (ControlZoneWidget, error)
}

// Weekday maps time.Weekday to the Monday=0 index used by widgets.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
