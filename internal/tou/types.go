package tou

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("tou: not found")
	ErrInvalidInput = errors.New("tou: invalid input")
	// ErrConflict reports an overlap with another active rate of the same location.
	ErrConflict = errors.New("tou: overlapping active rate")
)

const (
	dateLayout    = "2006-01-02"
	secondsPerDay = 86400
)

// Date is a calendar day without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate accepts YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, raw)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: date must be a string", ErrInvalidInput)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Rate is a time-of-use electricity price for one location. It applies on DaysOfWeek
// (0=Monday..6=Sunday) between StartAt and EndAt inclusive, within
// [DayStartedAtSeconds, DayEndedAtSeconds) of each day.
type Rate struct {
	ID                  string    `json:"id"`
	LocationID          string    `json:"location_id"`
	Name                string    `json:"name"`
	PricePerKWh         float64   `json:"price_per_kwh"`
	StartAt             Date      `json:"start_at"`
	EndAt               Date      `json:"end_at"`
	DayStartedAtSeconds int       `json:"day_started_at_seconds"`
	DayEndedAtSeconds   int       `json:"day_ended_at_seconds"`
	DaysOfWeek          []int     `json:"days_of_week"`
	RecursYearly        bool      `json:"recurs_yearly"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// RateUpdate carries optional changes; nil fields are left untouched.
type RateUpdate struct {
	Name                *string  `json:"name"`
	PricePerKWh         *float64 `json:"price_per_kwh"`
	StartAt             *Date    `json:"start_at"`
	EndAt               *Date    `json:"end_at"`
	DayStartedAtSeconds *int     `json:"day_started_at_seconds"`
	DayEndedAtSeconds   *int     `json:"day_ended_at_seconds"`
	DaysOfWeek          *[]int   `json:"days_of_week"`
	RecursYearly        *bool    `json:"recurs_yearly"`
	IsActive            *bool    `json:"is_active"`
}

// RateFilter narrows ListRates.
type RateFilter struct {
	LocationID string
	ActiveOnly bool
}

// Store persists rates.
type Store interface {
	CreateRate(ctx context.Context, rate Rate) (Rate, error)
	GetRate(ctx context.Context, id string) (Rate, error)
	ListRates(ctx context.Context, filter RateFilter) ([]Rate, error)
	UpdateRate(ctx context.Context, rate Rate) (Rate, error)
	DeleteRate(ctx context.Context, id string) error
}
