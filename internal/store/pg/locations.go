package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"powerx.io/internal/ids"
	"powerx.io/internal/locations"
)

const locationColumns = `id, organization_id, name, coalesce(description, ''), coalesce(timezone, ''), created_at, updated_at`

func (s *Store) CreateOrganization(ctx context.Context, org locations.Organization) (locations.Organization, error) {
	if s.db == nil {
		return locations.Organization{}, errNoDB
	}
	row := s.db.QueryRowContext(ctx, `
		insert into organizations (id, name)
		values ($1, $2)
		returning id, name, created_at, updated_at
	`, ids.New(), org.Name)
	var out locations.Organization
	if err := row.Scan(&out.ID, &out.Name, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return locations.Organization{}, mapPgError(err, locations.ErrConflict, locations.ErrNotFound)
	}
	return out, nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (locations.Organization, error) {
	if s.db == nil {
		return locations.Organization{}, errNoDB
	}
	var out locations.Organization
	err := s.db.QueryRowContext(ctx, `
		select id, name, created_at, updated_at
		from organizations
		where id = $1
	`, id).Scan(&out.ID, &out.Name, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return locations.Organization{}, locations.ErrNotFound
	}
	if err != nil {
		return locations.Organization{}, err
	}
	return out, nil
}

func (s *Store) CreateLocation(ctx context.Context, loc locations.Location) (locations.Location, error) {
	if s.db == nil {
		return locations.Location{}, errNoDB
	}
	row := s.db.QueryRowContext(ctx, `
		insert into locations (id, organization_id, name, description, timezone)
		values ($1, $2, $3, $4, $5)
		returning `+locationColumns,
		ids.New(), loc.OrganizationID, loc.Name, nullIfEmpty(loc.Description), nullIfEmpty(loc.Timezone))
	out, err := scanLocation(row)
	if err != nil {
		return locations.Location{}, mapPgError(err, locations.ErrConflict, locations.ErrNotFound)
	}
	return out, nil
}

func (s *Store) GetLocation(ctx context.Context, id string) (locations.Location, error) {
	if s.db == nil {
		return locations.Location{}, errNoDB
	}
	out, err := scanLocation(s.db.QueryRowContext(ctx, `select `+locationColumns+` from locations where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return locations.Location{}, locations.ErrNotFound
	}
	return out, err
}

func (s *Store) ListLocations(ctx context.Context, filter locations.LocationFilter) ([]locations.Location, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var where whereClause
	where.eq("organization_id", filter.OrganizationID)
	where.in("id", filter.IDs)
	rows, err := s.db.QueryContext(ctx, `select `+locationColumns+` from locations`+where.String()+` order by name, id`, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []locations.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateLocation(ctx context.Context, id string, upd locations.LocationUpdate) (locations.Location, error) {
	if s.db == nil {
		return locations.Location{}, errNoDB
	}
	var (
		setClauses []string
		args       []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Description != nil {
		set("description", nullIfEmpty(*upd.Description))
	}
	if upd.Timezone != nil {
		set("timezone", nullIfEmpty(*upd.Timezone))
	}
	if len(setClauses) == 0 {
		return s.GetLocation(ctx, id)
	}
	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(`update locations set %s where id = $%d returning %s`, strings.Join(setClauses, ", "), len(args), locationColumns)
	out, err := scanLocation(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return locations.Location{}, locations.ErrNotFound
	}
	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (locations.Location, error) {
	var loc locations.Location
	err := row.Scan(&loc.ID, &loc.OrganizationID, &loc.Name, &loc.Description, &loc.Timezone, &loc.CreatedAt, &loc.UpdatedAt)
	return loc, err
}
