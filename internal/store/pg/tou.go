package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"powerx.io/internal/ids"
	"powerx.io/internal/tou"
)

const rateColumns = `id, location_id, name, price_per_kwh, start_at, end_at, day_started_at_seconds,
	day_ended_at_seconds, days_of_week, recurs_yearly, is_active, created_at, updated_at`

func (s *Store) CreateRate(ctx context.Context, rate tou.Rate) (tou.Rate, error) {
	if s.db == nil {
		return tou.Rate{}, errNoDB
	}
	days, err := json.Marshal(rate.DaysOfWeek)
	if err != nil {
		return tou.Rate{}, fmt.Errorf("marshal days_of_week: %w", err)
	}
	out, err := scanRate(s.db.QueryRowContext(ctx, `
		insert into location_time_of_use_rates (id, location_id, name, price_per_kwh, start_at, end_at,
			day_started_at_seconds, day_ended_at_seconds, days_of_week, recurs_yearly, is_active)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning `+rateColumns,
		ids.New(), rate.LocationID, rate.Name, rate.PricePerKWh, rate.StartAt.Time(), rate.EndAt.Time(),
		rate.DayStartedAtSeconds, rate.DayEndedAtSeconds, days, rate.RecursYearly, rate.IsActive))
	if err != nil {
		return tou.Rate{}, mapPgError(err, tou.ErrConflict, tou.ErrNotFound)
	}
	return out, nil
}

func (s *Store) GetRate(ctx context.Context, id string) (tou.Rate, error) {
	if s.db == nil {
		return tou.Rate{}, errNoDB
	}
	out, err := scanRate(s.db.QueryRowContext(ctx, `select `+rateColumns+` from location_time_of_use_rates where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return tou.Rate{}, tou.ErrNotFound
	}
	return out, err
}

func (s *Store) ListRates(ctx context.Context, filter tou.RateFilter) ([]tou.Rate, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var where whereClause
	where.eq("location_id", filter.LocationID)
	if filter.ActiveOnly {
		where.raw("is_active")
	}
	rows, err := s.db.QueryContext(ctx, `select `+rateColumns+` from location_time_of_use_rates`+where.String()+` order by start_at, id`, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tou.Rate
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) UpdateRate(ctx context.Context, rate tou.Rate) (tou.Rate, error) {
	if s.db == nil {
		return tou.Rate{}, errNoDB
	}
	days, err := json.Marshal(rate.DaysOfWeek)
	if err != nil {
		return tou.Rate{}, fmt.Errorf("marshal days_of_week: %w", err)
	}
	out, err := scanRate(s.db.QueryRowContext(ctx, `
		update location_time_of_use_rates
		set name = $2, price_per_kwh = $3, start_at = $4, end_at = $5, day_started_at_seconds = $6,
			day_ended_at_seconds = $7, days_of_week = $8, recurs_yearly = $9, is_active = $10, updated_at = now()
		where id = $1
		returning `+rateColumns,
		rate.ID, rate.Name, rate.PricePerKWh, rate.StartAt.Time(), rate.EndAt.Time(),
		rate.DayStartedAtSeconds, rate.DayEndedAtSeconds, days, rate.RecursYearly, rate.IsActive))
	if errors.Is(err, sql.ErrNoRows) {
		return tou.Rate{}, tou.ErrNotFound
	}
	return out, err
}

func (s *Store) DeleteRate(ctx context.Context, id string) error {
	if s.db == nil {
		return errNoDB
	}
	return execAffected(ctx, s.db, tou.ErrNotFound, `delete from location_time_of_use_rates where id = $1`, id)
}

func scanRate(row rowScanner) (tou.Rate, error) {
	var (
		r          tou.Rate
		start, end sql.NullTime
		days       []byte
	)
	err := row.Scan(&r.ID, &r.LocationID, &r.Name, &r.PricePerKWh, &start, &end,
		&r.DayStartedAtSeconds, &r.DayEndedAtSeconds, &days, &r.RecursYearly, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return tou.Rate{}, err
	}
	r.StartAt = tou.DateOf(start.Time)
	r.EndAt = tou.DateOf(end.Time)
	if len(days) > 0 {
		if err := json.Unmarshal(days, &r.DaysOfWeek); err != nil {
			return tou.Rate{}, fmt.Errorf("decode rate %s days_of_week: %w", r.ID, err)
		}
	}
	return r, nil
}
