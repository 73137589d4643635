package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"powerx.io/internal/auth"
	"powerx.io/internal/ids"
)

func (s *Store) CreateLocationGrant(ctx context.Context, grant auth.UserLocationAccessGrant) (auth.UserLocationAccessGrant, error) {
	if s.db == nil {
		return auth.UserLocationAccessGrant{}, errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into user_location_access_grants (user_id, location_id, access_grant)
		values ($1, $2, $3)
		returning created_at
	`, grant.UserID, grant.LocationID, string(grant.Level)).Scan(&grant.CreatedAt)
	if err != nil {
		return auth.UserLocationAccessGrant{}, mapPgError(err, auth.ErrConflict, auth.ErrNotFound)
	}
	return grant, nil
}

func (s *Store) FilterLocationGrants(ctx context.Context, filter auth.LocationGrantFilter) ([]auth.UserLocationAccessGrant, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var where whereClause
	where.eq("user_id", filter.UserID)
	where.eq("location_id", filter.LocationID)
	where.eq("access_grant", string(filter.Level))
	rows, err := s.db.QueryContext(ctx, `
		select user_id, location_id, access_grant, created_at
		from user_location_access_grants`+where.String()+`
		order by created_at`, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.UserLocationAccessGrant
	for rows.Next() {
		var (
			g     auth.UserLocationAccessGrant
			level string
		)
		if err := rows.Scan(&g.UserID, &g.LocationID, &level, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Level = auth.GrantLevel(level)
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *Store) DeleteLocationGrant(ctx context.Context, grant auth.UserLocationAccessGrant) error {
	if s.db == nil {
		return errNoDB
	}
	return execAffected(ctx, s.db, auth.ErrNotFound, `
		delete from user_location_access_grants
		where user_id = $1 and location_id = $2 and access_grant = $3
	`, grant.UserID, grant.LocationID, string(grant.Level))
}

func (s *Store) CreateOrganizationGrant(ctx context.Context, grant auth.UserOrganizationAccessGrant) (auth.UserOrganizationAccessGrant, error) {
	if s.db == nil {
		return auth.UserOrganizationAccessGrant{}, errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into user_organization_access_grants (user_id, organization_id, access_grant)
		values ($1, $2, $3)
		returning created_at
	`, grant.UserID, grant.OrganizationID, string(grant.Level)).Scan(&grant.CreatedAt)
	if err != nil {
		return auth.UserOrganizationAccessGrant{}, mapPgError(err, auth.ErrConflict, auth.ErrNotFound)
	}
	return grant, nil
}

func (s *Store) FilterOrganizationGrants(ctx context.Context, filter auth.OrganizationGrantFilter) ([]auth.UserOrganizationAccessGrant, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var where whereClause
	where.eq("user_id", filter.UserID)
	where.eq("organization_id", filter.OrganizationID)
	where.eq("access_grant", string(filter.Level))
	rows, err := s.db.QueryContext(ctx, `
		select user_id, organization_id, access_grant, created_at
		from user_organization_access_grants`+where.String()+`
		order by created_at`, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.UserOrganizationAccessGrant
	for rows.Next() {
		var (
			g     auth.UserOrganizationAccessGrant
			level string
		)
		if err := rows.Scan(&g.UserID, &g.OrganizationID, &level, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.Level = auth.GrantLevel(level)
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *Store) DeleteOrganizationGrant(ctx context.Context, grant auth.UserOrganizationAccessGrant) error {
	if s.db == nil {
		return errNoDB
	}
	return execAffected(ctx, s.db, auth.ErrNotFound, `
		delete from user_organization_access_grants
		where user_id = $1 and organization_id = $2 and access_grant = $3
	`, grant.UserID, grant.OrganizationID, string(grant.Level))
}

func (s *Store) UserAccessScopes(ctx context.Context, userID string) ([]auth.AccessScope, error) {
	return s.scopes(ctx, `select access_scope from user_access_scopes where user_id = $1 order by access_scope`, userID)
}

func (s *Store) UserAccessRoleIDs(ctx context.Context, userID string) ([]string, error) {
	return s.column(ctx, `select access_role_id from user_access_roles where user_id = $1 order by access_role_id`, userID)
}

func (s *Store) AccessRoleScopes(ctx context.Context, roleID string) ([]auth.AccessScope, error) {
	return s.scopes(ctx, `select access_scope from access_role_access_scopes where access_role_id = $1 order by access_scope`, roleID)
}

func (s *Store) APIKeyAccessScopes(ctx context.Context, apiKeyID string) ([]auth.AccessScope, error) {
	return s.scopes(ctx, `select access_scope from api_key_access_scopes where api_key_id = $1 order by access_scope`, apiKeyID)
}

func (s *Store) APIKeyAccessRoleIDs(ctx context.Context, apiKeyID string) ([]string, error) {
	return s.column(ctx, `select access_role_id from api_key_access_roles where api_key_id = $1 order by access_role_id`, apiKeyID)
}

// CreateAPIKey stores the key with its scopes and roles in one transaction.
func (s *Store) CreateAPIKey(ctx context.Context, key auth.APIKey, scopes []auth.AccessScope, roleIDs []string) (auth.APIKey, error) {
	if s.db == nil {
		return auth.APIKey{}, errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.APIKey{}, err
	}
	defer func() { _ = tx.Rollback() }()

	key.ID = ids.New()
	if err := tx.QueryRowContext(ctx, `
		insert into api_keys (id, name, key_hash, prefix)
		values ($1, $2, $3, $4)
		returning created_at
	`, key.ID, key.Name, key.KeyHash, key.Prefix).Scan(&key.CreatedAt); err != nil {
		return auth.APIKey{}, mapPgError(err, auth.ErrConflict, auth.ErrNotFound)
	}
	for _, scope := range scopes {
		if _, err := tx.ExecContext(ctx, `
			insert into api_key_access_scopes (api_key_id, access_scope) values ($1, $2)
		`, key.ID, string(scope)); err != nil {
			return auth.APIKey{}, mapPgError(err, auth.ErrConflict, auth.ErrNotFound)
		}
	}
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx, `
			insert into api_key_access_roles (api_key_id, access_role_id) values ($1, $2)
		`, key.ID, roleID); err != nil {
			return auth.APIKey{}, mapPgError(err, auth.ErrConflict, auth.ErrNotFound)
		}
	}
	if err := tx.Commit(); err != nil {
		return auth.APIKey{}, err
	}
	return key, nil
}

func (s *Store) FindAPIKeyByHash(ctx context.Context, hash string) (auth.APIKey, error) {
	if s.db == nil {
		return auth.APIKey{}, errNoDB
	}
	var (
		key     auth.APIKey
		revoked sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, name, key_hash, prefix, created_at, revoked_at
		from api_keys
		where key_hash = $1
	`, hash).Scan(&key.ID, &key.Name, &key.KeyHash, &key.Prefix, &key.CreatedAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.APIKey{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.APIKey{}, err
	}
	if revoked.Valid {
		key.RevokedAt = &revoked.Time
	}
	return key, nil
}

func (s *Store) RevokeAPIKey(ctx context.Context, id string) error {
	if s.db == nil {
		return errNoDB
	}
	return execAffected(ctx, s.db, auth.ErrNotFound, `
		update api_keys set revoked_at = now()
		where id = $1 and revoked_at is null
	`, id)
}

func (s *Store) CreateAccessRole(ctx context.Context, role auth.AccessRole) (auth.AccessRole, error) {
	if s.db == nil {
		return auth.AccessRole{}, errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.AccessRole{}, err
	}
	defer func() { _ = tx.Rollback() }()

	role.ID = ids.New()
	if err := tx.QueryRowContext(ctx, `
		insert into access_roles (id, name, description)
		values ($1, $2, $3)
		returning created_at
	`, role.ID, role.Name, nullIfEmpty(role.Description)).Scan(&role.CreatedAt); err != nil {
		return auth.AccessRole{}, mapPgError(err, auth.ErrConflict, auth.ErrNotFound)
	}
	for _, scope := range role.Scopes {
		if _, err := tx.ExecContext(ctx, `
			insert into access_role_access_scopes (access_role_id, access_scope) values ($1, $2)
		`, role.ID, string(scope)); err != nil {
			return auth.AccessRole{}, mapPgError(err, auth.ErrConflict, auth.ErrNotFound)
		}
	}
	if err := tx.Commit(); err != nil {
		return auth.AccessRole{}, err
	}
	return role, nil
}

func (s *Store) AssignUserAccessRole(ctx context.Context, userID, roleID string) error {
	if s.db == nil {
		return errNoDB
	}
	_, err := s.db.ExecContext(ctx, `
		insert into user_access_roles (user_id, access_role_id)
		values ($1, $2)
		on conflict do nothing
	`, userID, roleID)
	return mapPgError(err, auth.ErrConflict, auth.ErrNotFound)
}

func (s *Store) AddUserAccessScopes(ctx context.Context, userID string, scopes []auth.AccessScope) error {
	if s.db == nil {
		return errNoDB
	}
	for _, scope := range scopes {
		if _, err := s.db.ExecContext(ctx, `
			insert into user_access_scopes (user_id, access_scope)
			values ($1, $2)
			on conflict do nothing
		`, userID, string(scope)); err != nil {
			return fmt.Errorf("add scope %s: %w", scope, err)
		}
	}
	return nil
}

func (s *Store) scopes(ctx context.Context, query string, arg string) ([]auth.AccessScope, error) {
	raw, err := s.column(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	out := make([]auth.AccessScope, len(raw))
	for i, r := range raw {
		out[i] = auth.AccessScope(r)
	}
	return out, nil
}

func (s *Store) column(ctx context.Context, query string, arg string) ([]string, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
