// Package client is a typed HTTP client for the PowerX API used by operational tools.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"powerx.io/internal/auth"
	"powerx.io/internal/hvac"
	"powerx.io/internal/locations"
	"powerx.io/internal/tou"
)

var (
	ErrUnauthenticated = errors.New("client: unauthenticated")
	ErrForbidden       = errors.New("client: forbidden")
	ErrNotFound        = errors.New("client: not found")
	ErrConflict        = errors.New("client: conflict")
	ErrInvalidInput    = errors.New("client: invalid input")
	ErrRateLimited     = errors.New("client: rate limited")
)

// APIError is a non-2xx response. errors.Is matches it against the sentinel of its status.
type APIError struct {
	Status    int
	Detail    string
	RequestID string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("powerx api: %d %s (request %s)", e.Status, e.Detail, e.RequestID)
	}
	return fmt.Sprintf("powerx api: %d %s", e.Status, e.Detail)
}

func (e *APIError) Is(target error) bool {
	return statusSentinel(e.Status) == target
}

func statusSentinel(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest:
		return ErrInvalidInput
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// Client calls one PowerX deployment with one credential.
type Client struct {
	baseURL string
	http    *http.Client
	bearer  string
	apiKey  string
}

type Option func(*Client)

// WithHTTPClient replaces the default client with a 10s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	c := &Client{baseURL: u.String(), http: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithBearer returns a copy of c that authenticates with a JWT.
func (c *Client) WithBearer(token string) *Client {
	cp := *c
	cp.bearer, cp.apiKey = token, ""
	return &cp
}

// WithAPIKey returns a copy of c that authenticates with an API key.
func (c *Client) WithAPIKey(key string) *Client {
	cp := *c
	cp.bearer, cp.apiKey = "", key
	return &cp
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) MyAccessScopes(ctx context.Context) ([]auth.AccessScope, error) {
	var out struct {
		AccessScopes []auth.AccessScope `json:"access_scopes"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/me/access-scopes", nil, &out)
	return out.AccessScopes, err
}

func (c *Client) AddUserAccessScopes(ctx context.Context, userID string, scopes ...auth.AccessScope) error {
	return c.do(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(userID)+"/access-scopes",
		map[string]any{"access_scopes": scopes}, nil)
}

func (c *Client) CreateAPIKey(ctx context.Context, name string, scopes ...auth.AccessScope) (auth.IssuedAPIKey, error) {
	var out auth.IssuedAPIKey
	err := c.do(ctx, http.MethodPost, "/v1/api-keys", map[string]any{"name": name, "access_scopes": scopes}, &out)
	return out, err
}

func (c *Client) CreateOrganization(ctx context.Context, name string) (locations.Organization, error) {
	var out locations.Organization
	err := c.do(ctx, http.MethodPost, "/v1/organizations", map[string]any{"name": name}, &out)
	return out, err
}

func (c *Client) CreateLocation(ctx context.Context, loc locations.Location) (locations.Location, error) {
	var out locations.Location
	err := c.do(ctx, http.MethodPost, "/v1/locations", map[string]any{
		"organization_id": loc.OrganizationID,
		"name":            loc.Name,
		"description":     loc.Description,
		"timezone":        loc.Timezone,
	}, &out)
	return out, err
}

func (c *Client) CreateSchedule(ctx context.Context, schedule hvac.Schedule) (hvac.Schedule, error) {
	var out hvac.Schedule
	err := c.do(ctx, http.MethodPost, "/v1/hvac-schedules", map[string]any{
		"location_id": schedule.LocationID,
		"name":        schedule.Name,
		"events":      schedule.Events,
	}, &out)
	return out, err
}

func (c *Client) CreateWidget(ctx context.Context, widget hvac.ControlZoneWidget) (hvac.ControlZoneWidget, error) {
	var out hvac.ControlZoneWidget
	body := map[string]any{"location_id": widget.LocationID, "name": widget.Name}
	days := [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	for i, id := range widget.ScheduleIDs() {
		if id != nil {
			body[days[i]+"_schedule_id"] = *id
		}
	}
	err := c.do(ctx, http.MethodPost, "/v1/control-zone-hvac-widgets", body, &out)
	return out, err
}

// CurrentEvent returns nil when no schedule event is in effect.
func (c *Client) CurrentEvent(ctx context.Context, widgetID string) (*hvac.ScheduleEvent, error) {
	var out struct {
		Event *hvac.ScheduleEvent `json:"event"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/control-zone-hvac-widgets/"+url.PathEscape(widgetID)+"/schedule-events/current", nil, &out)
	return out.Event, err
}

// NextEvent returns nil when the widget has no upcoming event.
func (c *Client) NextEvent(ctx context.Context, widgetID string) (*hvac.NextEvent, error) {
	var out struct {
		Event *hvac.ScheduleEvent `json:"event"`
		At    *time.Time          `json:"at"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/control-zone-hvac-widgets/"+url.PathEscape(widgetID)+"/schedule-events/next", nil, &out); err != nil {
		return nil, err
	}
	if out.Event == nil || out.At == nil {
		return nil, nil
	}
	return &hvac.NextEvent{Event: *out.Event, At: *out.At}, nil
}

func (c *Client) CreateRate(ctx context.Context, rate tou.Rate) (tou.Rate, error) {
	var out tou.Rate
	err := c.do(ctx, http.MethodPost, "/v1/locations/"+url.PathEscape(rate.LocationID)+"/time-of-use-rates", map[string]any{
		"name":                   rate.Name,
		"price_per_kwh":          rate.PricePerKWh,
		"start_at":               rate.StartAt,
		"end_at":                 rate.EndAt,
		"day_started_at_seconds": rate.DayStartedAtSeconds,
		"day_ended_at_seconds":   rate.DayEndedAtSeconds,
		"days_of_week":           rate.DaysOfWeek,
		"recurs_yearly":          rate.RecursYearly,
		"is_active":              rate.IsActive,
	}, &out)
	return out, err
}

func (c *Client) ListRates(ctx context.Context, locationID string, activeOnly bool) ([]tou.Rate, error) {
	var out struct {
		Items []tou.Rate `json:"items"`
	}
	path := "/v1/locations/" + url.PathEscape(locationID) + "/time-of-use-rates"
	if activeOnly {
		path += "?active_only=true"
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Items, err
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
		var payload struct {
			Detail    string `json:"detail"`
			RequestID string `json:"request_id"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil {
			apiErr.Detail = payload.Detail
			if payload.RequestID != "" {
				apiErr.RequestID = payload.RequestID
			}
		}
		if apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if dst == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
