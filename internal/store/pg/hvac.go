package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"powerx.io/internal/hvac"
	"powerx.io/internal/ids"
)

const widgetColumns = `id, location_id, name, monday_schedule_id, tuesday_schedule_id, wednesday_schedule_id,
	thursday_schedule_id, friday_schedule_id, saturday_schedule_id, sunday_schedule_id, created_at`

// Events are stored as a jsonb array in insertion order.
func (s *Store) CreateSchedule(ctx context.Context, schedule hvac.Schedule) (hvac.Schedule, error) {
	if s.db == nil {
		return hvac.Schedule{}, errNoDB
	}
	if schedule.Events == nil {
		schedule.Events = []hvac.ScheduleEvent{}
	}
	events, err := json.Marshal(schedule.Events)
	if err != nil {
		return hvac.Schedule{}, fmt.Errorf("marshal events: %w", err)
	}
	schedule.ID = ids.New()
	err = s.db.QueryRowContext(ctx, `
		insert into hvac_schedules (id, location_id, name, events)
		values ($1, $2, $3, $4)
		returning created_at
	`, schedule.ID, schedule.LocationID, schedule.Name, events).Scan(&schedule.CreatedAt)
	if err != nil {
		return hvac.Schedule{}, mapPgError(err, hvac.ErrInvalidInput, hvac.ErrNotFound)
	}
	return schedule, nil
}

func (s *Store) GetSchedule(ctx context.Context, id string) (hvac.Schedule, error) {
	if s.db == nil {
		return hvac.Schedule{}, errNoDB
	}
	out, err := scanSchedule(s.db.QueryRowContext(ctx, `
		select id, location_id, name, events, created_at
		from hvac_schedules
		where id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return hvac.Schedule{}, hvac.ErrNotFound
	}
	return out, err
}

func (s *Store) ListSchedules(ctx context.Context, scheduleIDs []string) ([]hvac.Schedule, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}
	if s.db == nil {
		return nil, errNoDB
	}
	var where whereClause
	where.in("id", scheduleIDs)
	rows, err := s.db.QueryContext(ctx, `
		select id, location_id, name, events, created_at
		from hvac_schedules`+where.String(), where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []hvac.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (s *Store) CreateWidget(ctx context.Context, widget hvac.ControlZoneWidget) (hvac.ControlZoneWidget, error) {
	if s.db == nil {
		return hvac.ControlZoneWidget{}, errNoDB
	}
	args := []any{ids.New(), widget.LocationID, widget.Name}
	for _, id := range widget.ScheduleIDs() {
		args = append(args, nullableID(id))
	}
	out, err := scanWidget(s.db.QueryRowContext(ctx, `
		insert into control_zone_hvac_widgets (id, location_id, name, monday_schedule_id, tuesday_schedule_id,
			wednesday_schedule_id, thursday_schedule_id, friday_schedule_id, saturday_schedule_id, sunday_schedule_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning `+widgetColumns, args...))
	if err != nil {
		return hvac.ControlZoneWidget{}, mapPgError(err, hvac.ErrInvalidInput, hvac.ErrNotFound)
	}
	return out, nil
}

func (s *Store) GetWidget(ctx context.Context, id string) (hvac.ControlZoneWidget, error) {
	if s.db == nil {
		return hvac.ControlZoneWidget{}, errNoDB
	}
	out, err := scanWidget(s.db.QueryRowContext(ctx, `select `+widgetColumns+` from control_zone_hvac_widgets where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return hvac.ControlZoneWidget{}, hvac.ErrNotFound
	}
	return out, err
}

func scanSchedule(row rowScanner) (hvac.Schedule, error) {
	var (
		sc     hvac.Schedule
		events []byte
	)
	if err := row.Scan(&sc.ID, &sc.LocationID, &sc.Name, &events, &sc.CreatedAt); err != nil {
		return hvac.Schedule{}, err
	}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &sc.Events); err != nil {
			return hvac.Schedule{}, fmt.Errorf("decode schedule %s events: %w", sc.ID, err)
		}
	}
	return sc, nil
}

func scanWidget(row rowScanner) (hvac.ControlZoneWidget, error) {
	var (
		w    hvac.ControlZoneWidget
		days [7]sql.NullString
	)
	err := row.Scan(&w.ID, &w.LocationID, &w.Name,
		&days[0], &days[1], &days[2], &days[3], &days[4], &days[5], &days[6], &w.CreatedAt)
	if err != nil {
		return hvac.ControlZoneWidget{}, err
	}
	refs := []**string{
		&w.MondayScheduleID, &w.TuesdayScheduleID, &w.WednesdayScheduleID, &w.ThursdayScheduleID,
		&w.FridayScheduleID, &w.SaturdayScheduleID, &w.SundayScheduleID,
	}
	for i, d := range days {
		if d.Valid {
			v := d.String
			*refs[i] = &v
		}
	}
	return w, nil
}

func nullableID(id *string) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return nullIfEmpty(*id)
}
