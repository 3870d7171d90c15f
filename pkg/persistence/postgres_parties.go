package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
)

// --- Organizations ---

const organizationColumns = `organization_id, name, type, city, street, building, phone_number, email, password_hash, edrpou, status`

func scanOrganization(scanner pgx.Row) (*model.Organization, error) {
	o := &model.Organization{}
	err := scanner.Scan(
		&o.ID, &o.Name, &o.Type, &o.City, &o.Street, &o.Building,
		&o.PhoneNumber, &o.Email, &o.PasswordHash, &o.EDRPOU, &o.Active,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PostgresStore) ListOrganizations(ctx context.Context) ([]*model.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organization ORDER BY organization_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	orgs := []*model.Organization{}
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization row: %w", err)
		}
		orgs = append(orgs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}
	return orgs, nil
}

func (s *PostgresStore) FindOrganizationByID(ctx context.Context, id int64) (*model.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organization WHERE organization_id = $1`

	o, err := scanOrganization(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: organization %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find organization by ID: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) UpdateOrganization(ctx context.Context, id int64, patch model.OrganizationPatch) (*model.Organization, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin organization update: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := scanOrganization(tx.QueryRow(ctx,
		`SELECT `+organizationColumns+` FROM organization WHERE organization_id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: organization %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to lock organization for update: %w", err)
	}

	patch.Apply(o)

	_, err = tx.Exec(ctx, `
        UPDATE organization
        SET name = $2, type = $3, city = $4, street = $5, building = $6, phone_number = $7, email = $8
        WHERE organization_id = $1`,
		o.ID, o.Name, o.Type, o.City, o.Street, o.Building, o.PhoneNumber, o.Email)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, fmt.Errorf("%w: organization with email %q already exists", ErrConflict, o.Email)
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit organization update: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) SetOrganizationStatus(ctx context.Context, id int64, active bool) error {
	cmdTag, err := s.pool.Exec(ctx, `UPDATE organization SET status = $2 WHERE organization_id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set organization status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: organization %d not found", ErrNotFound, id)
	}
	return nil
}

// --- Users ---

const userColumns = `user_id, first_name, last_name, patronymic, email, phone_number, city, password_hash, status`

func scanUser(scanner pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := scanner.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Patronymic, &u.Email,
		&u.PhoneNumber, &u.City, &u.PasswordHash, &u.Active,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (first_name, last_name, patronymic, email, phone_number, city, password_hash, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING user_id`

	err := s.pool.QueryRow(ctx, query,
		u.FirstName, u.LastName, u.Patronymic, u.Email, u.PhoneNumber, u.City, u.PasswordHash, u.Active,
	).Scan(&u.ID)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return fmt.Errorf("%w: user with email %q already exists", ErrConflict, u.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id ASC`)
}

func (s *PostgresStore) ListUsersByCity(ctx context.Context, city string) ([]*model.User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE city ILIKE $1 ORDER BY user_id ASC`, city)
}

func (s *PostgresStore) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*model.User, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin user update: %w", err)
	}
	defer tx.Rollback(ctx)

	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to lock user for update: %w", err)
	}

	patch.Apply(u)

	_, err = tx.Exec(ctx, `
        UPDATE users
        SET first_name = $2, last_name = $3, patronymic = $4, email = $5, phone_number = $6, city = $7
        WHERE user_id = $1`,
		u.ID, u.FirstName, u.LastName, u.Patronymic, u.Email, u.PhoneNumber, u.City)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, fmt.Errorf("%w: user with email %q already exists", ErrConflict, u.Email)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit user update: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) SetUserStatus(ctx context.Context, id int64, active bool) error {
	cmdTag, err := s.pool.Exec(ctx, `UPDATE users SET status = $2 WHERE user_id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set user status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d not found", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d not found", ErrNotFound, id)
	}
	return nil
}

// --- Client companies ---

const clientColumns = `client_id, name, type, city, street, building, phone_number, email, password_hash, edrpou, status`

func scanClientCompany(scanner pgx.Row) (*model.ClientCompany, error) {
	c := &model.ClientCompany{}
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Type, &c.City, &c.Street, &c.Building,
		&c.PhoneNumber, &c.Email, &c.PasswordHash, &c.EDRPOU, &c.Active,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) ListClientCompanies(ctx context.Context) ([]*model.ClientCompany, error) {
	query := `SELECT ` + clientColumns + ` FROM clientcompanies ORDER BY client_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query client companies: %w", err)
	}
	defer rows.Close()

	companies := []*model.ClientCompany{}
	for rows.Next() {
		c, err := scanClientCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client company row: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client company rows: %w", err)
	}
	return companies, nil
}

func (s *PostgresStore) FindClientCompanyByID(ctx context.Context, id int64) (*model.ClientCompany, error) {
	query := `SELECT ` + clientColumns + ` FROM clientcompanies WHERE client_id = $1`

	c, err := scanClientCompany(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: client company %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find client company by ID: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) SetClientCompanyStatus(ctx context.Context, id int64, active bool) error {
	cmdTag, err := s.pool.Exec(ctx, `UPDATE clientcompanies SET status = $2 WHERE client_id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set client company status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: client company %d not found", ErrNotFound, id)
	}
	return nil
}

// --- Disposal requests ---

const requestColumns = `request_id, waste_type, waste_description, amount_kg, created_at, updated_at, status, organization_id, client_id`

func scanDisposalRequest(scanner pgx.Row) (*model.DisposalRequest, error) {
	r := &model.DisposalRequest{}
	err := scanner.Scan(
		&r.ID, &r.WasteType, &r.WasteDescription, &r.AmountKg,
		&r.CreatedAt, &r.UpdatedAt, &r.Status, &r.OrganizationID, &r.ClientID,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) CreateDisposalRequest(ctx context.Context, r *model.DisposalRequest) error {
	query := `
        INSERT INTO disposal_requests (waste_type, waste_description, amount_kg, created_at, updated_at, status, organization_id, client_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING request_id`

	err := s.pool.QueryRow(ctx, query,
		r.WasteType, r.WasteDescription, r.AmountKg, r.CreatedAt, r.UpdatedAt, r.Status, r.OrganizationID, r.ClientID,
	).Scan(&r.ID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return fmt.Errorf("%w: organization %d or client %d not found", ErrNotFound, r.OrganizationID, r.ClientID)
		}
		return fmt.Errorf("failed to insert disposal request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDisposalRequestByID(ctx context.Context, id int64) (*model.DisposalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM disposal_requests WHERE request_id = $1`

	r, err := scanDisposalRequest(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: disposal request %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find disposal request by ID: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListDisposalRequests(ctx context.Context, orgID, clientID *int64) ([]*model.DisposalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM disposal_requests`
	args := []interface{}{}
	switch {
	case orgID != nil:
		query += ` WHERE organization_id = $1`
		args = append(args, *orgID)
	case clientID != nil:
		query += ` WHERE client_id = $1`
		args = append(args, *clientID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query disposal requests: %w", err)
	}
	defer rows.Close()

	requests := []*model.DisposalRequest{}
	for rows.Next() {
		r, err := scanDisposalRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan disposal request row: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating disposal request rows: %w", err)
	}
	return requests, nil
}

func (s *PostgresStore) UpdateDisposalRequestStatus(ctx context.Context, id int64, status string, updatedAt time.Time) (*model.DisposalRequest, error) {
	query := `
        UPDATE disposal_requests SET status = $2, updated_at = $3
        WHERE request_id = $1
        RETURNING ` + requestColumns

	r, err := scanDisposalRequest(s.pool.QueryRow(ctx, query, id, status, updatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: disposal request %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to update disposal request status: %w", err)
	}
	return r, nil
}

// --- API tokens ---

func (s *PostgresStore) ResolveToken(ctx context.Context, token string) (auth.Principal, error) {
	var p auth.Principal
	err := s.pool.QueryRow(ctx,
		`SELECT role, entity_id FROM api_tokens WHERE token = $1`, token,
	).Scan(&p.Role, &p.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Principal{}, fmt.Errorf("%w: unknown token", ErrNotFound)
		}
		return auth.Principal{}, fmt.Errorf("failed to resolve token: %w", err)
	}
	return p, nil
}

// --- Analytics ---

func (s *PostgresStore) ClientCompanyActivity(ctx context.Context) ([]*model.ClientCompanyActivity, error) {
	query := `
        SELECT c.client_id, c.name,
               COUNT(r.request_id),
               COUNT(r.request_id) FILTER (WHERE r.status = 'completed'),
               COUNT(r.request_id) FILTER (WHERE r.status <> 'completed'),
               MAX(r.created_at)
        FROM clientcompanies c
        LEFT JOIN disposal_requests r ON r.client_id = c.client_id
        GROUP BY c.client_id, c.name
        ORDER BY c.client_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query client company activity: %w", err)
	}
	defer rows.Close()

	stats := []*model.ClientCompanyActivity{}
	for rows.Next() {
		st := &model.ClientCompanyActivity{}
		var last pgtype.Timestamptz
		err := rows.Scan(&st.ClientID, &st.Name, &st.TotalRequests, &st.CompletedRequests, &st.ActiveRequests, &last)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client activity row: %w", err)
		}
		if last.Valid {
			st.LastActivity = &last.Time
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client activity rows: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) OrganizationActivity(ctx context.Context) ([]*model.OrganizationActivity, error) {
	query := `
        SELECT o.organization_id, o.name,
               COUNT(DISTINCT r.request_id),
               COUNT(DISTINCT r.request_id) FILTER (WHERE r.status = 'completed'),
               COUNT(DISTINCT s.container_site_id),
               COUNT(DISTINCT c.container_id),
               MAX(r.updated_at)
        FROM organization o
        LEFT JOIN disposal_requests r ON r.organization_id = o.organization_id
        LEFT JOIN containersite s ON s.organization_id = o.organization_id
        LEFT JOIN containers c ON c.container_site_id = s.container_site_id
        GROUP BY o.organization_id, o.name
        ORDER BY o.organization_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query organization activity: %w", err)
	}
	defer rows.Close()

	stats := []*model.OrganizationActivity{}
	for rows.Next() {
		st := &model.OrganizationActivity{}
		var last pgtype.Timestamptz
		err := rows.Scan(&st.OrganizationID, &st.Name, &st.TotalRequests, &st.CompletedRequests, &st.ContainerSites, &st.Containers, &last)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization activity row: %w", err)
		}
		if last.Valid {
			st.LastActivity = &last.Time
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization activity rows: %w", err)
	}
	return stats, nil
}
