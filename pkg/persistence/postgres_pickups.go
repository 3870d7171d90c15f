package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ecofy/backend/pkg/model"
)

const pickupColumns = `pickup_id, scheduled_time, completed_time, container_site_id, vehicle_id`

func scanPickup(scanner pgx.Row) (*model.Pickup, error) {
	p := &model.Pickup{}
	var completed pgtype.Timestamptz
	var vehicleID pgtype.Int8
	err := scanner.Scan(
		&p.ID,
		&p.ScheduledTime,
		&completed,
		&p.SiteID,
		&vehicleID,
	)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		p.CompletedTime = &completed.Time
	}
	if vehicleID.Valid {
		p.VehicleID = &vehicleID.Int64
	}
	return p, nil
}

func (s *PostgresStore) CreatePickup(ctx context.Context, p *model.Pickup) error {
	query := `
        INSERT INTO pickups (scheduled_time, container_site_id, vehicle_id)
        VALUES ($1, $2, $3)
        RETURNING pickup_id`

	err := s.pool.QueryRow(ctx, query, p.ScheduledTime, p.SiteID, p.VehicleID).Scan(&p.ID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return fmt.Errorf("%w: container site %d or vehicle not found", ErrNotFound, p.SiteID)
		}
		return fmt.Errorf("failed to insert pickup: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindPickupByID(ctx context.Context, id int64) (*model.Pickup, error) {
	query := `SELECT ` + pickupColumns + ` FROM pickups WHERE pickup_id = $1`

	p, err := scanPickup(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: pickup %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find pickup by ID: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPickups(ctx context.Context, orgID *int64) ([]*model.Pickup, error) {
	query := `SELECT ` + pickupColumns + ` FROM pickups ORDER BY scheduled_time ASC`
	args := []interface{}{}
	if orgID != nil {
		query = `
            SELECT p.pickup_id, p.scheduled_time, p.completed_time, p.container_site_id, p.vehicle_id
            FROM pickups p
            JOIN containersite s ON s.container_site_id = p.container_site_id
            WHERE s.organization_id = $1
            ORDER BY p.scheduled_time ASC`
		args = append(args, *orgID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pickups: %w", err)
	}
	defer rows.Close()

	pickups := []*model.Pickup{}
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pickup row: %w", err)
		}
		pickups = append(pickups, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pickup rows: %w", err)
	}
	return pickups, nil
}

func (s *PostgresStore) AssignVehicle(ctx context.Context, pickupID, vehicleID int64) error {
	cmdTag, err := s.pool.Exec(ctx,
		`UPDATE pickups SET vehicle_id = $2 WHERE pickup_id = $1`, pickupID, vehicleID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return fmt.Errorf("%w: vehicle %d not found", ErrNotFound, vehicleID)
		}
		return fmt.Errorf("failed to assign vehicle: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pickup %d not found", ErrNotFound, pickupID)
	}
	return nil
}

// CompletePickup stamps the completion time and resets every container
// at the pickup's site in the same transaction. The container rows are
// locked so a concurrent telemetry write cannot interleave.
func (s *PostgresStore) CompletePickup(ctx context.Context, pickupID int64, completedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin pickup completion: %w", err)
	}
	defer tx.Rollback(ctx)

	var siteID int64
	err = tx.QueryRow(ctx, `
        UPDATE pickups SET completed_time = $2
        WHERE pickup_id = $1
        RETURNING container_site_id`, pickupID, completedAt,
	).Scan(&siteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: pickup %d not found", ErrNotFound, pickupID)
		}
		return fmt.Errorf("failed to complete pickup: %w", err)
	}

	_, err = tx.Exec(ctx, `
        UPDATE containers
        SET fill_level = 0, status = 'empty', last_update = $2
        WHERE container_id IN (
            SELECT container_id FROM containers
            WHERE container_site_id = $1
            FOR UPDATE
        )`, siteID, completedAt)
	if err != nil {
		return fmt.Errorf("failed to reset containers after pickup: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit pickup completion: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePickup(ctx context.Context, id int64) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM pickups WHERE pickup_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pickup: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pickup %d not found", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) PickupStatistics(ctx context.Context, orgID *int64, from, to *time.Time) (model.PickupStatistics, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
        SELECT COUNT(p.pickup_id), COUNT(p.completed_time)
        FROM pickups p`)

	args := []interface{}{}
	conditions := []string{}
	if orgID != nil {
		queryBuilder.WriteString(`
        JOIN containersite s ON s.container_site_id = p.container_site_id`)
		args = append(args, *orgID)
		conditions = append(conditions, fmt.Sprintf("s.organization_id = $%d", len(args)))
	}
	if from != nil {
		args = append(args, *from)
		conditions = append(conditions, fmt.Sprintf("p.scheduled_time >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conditions = append(conditions, fmt.Sprintf("p.scheduled_time <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	var stats model.PickupStatistics
	err := s.pool.QueryRow(ctx, queryBuilder.String(), args...).Scan(&stats.TotalPickups, &stats.CompletedPickups)
	if err != nil {
		return model.PickupStatistics{}, fmt.Errorf("failed to query pickup statistics: %w", err)
	}
	return stats, nil
}

// --- Vehicles ---

const vehicleColumns = `vehicle_id, vehicle_name, number_plate, organization_id`

func scanVehicle(scanner pgx.Row) (*model.Vehicle, error) {
	v := &model.Vehicle{}
	err := scanner.Scan(&v.ID, &v.Name, &v.NumberPlate, &v.OrganizationID)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *PostgresStore) CreateVehicle(ctx context.Context, v *model.Vehicle) error {
	query := `
        INSERT INTO vehicles (vehicle_name, number_plate, organization_id)
        VALUES ($1, $2, $3)
        RETURNING vehicle_id`

	err := s.pool.QueryRow(ctx, query, v.Name, v.NumberPlate, v.OrganizationID).Scan(&v.ID)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return fmt.Errorf("%w: vehicle with plate %q already exists", ErrConflict, v.NumberPlate)
		}
		if isPgError(err, pgForeignKeyViolation) {
			return fmt.Errorf("%w: organization %d not found", ErrNotFound, v.OrganizationID)
		}
		return fmt.Errorf("failed to insert vehicle: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindVehicleByID(ctx context.Context, id int64) (*model.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE vehicle_id = $1`

	v, err := scanVehicle(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: vehicle %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find vehicle by ID: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) ListVehicles(ctx context.Context, orgID *int64) ([]*model.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles ORDER BY vehicle_id ASC`
	args := []interface{}{}
	if orgID != nil {
		query = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE organization_id = $1 ORDER BY vehicle_id ASC`
		args = append(args, *orgID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := []*model.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle row: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vehicle rows: %w", err)
	}
	return vehicles, nil
}

func (s *PostgresStore) DeleteVehicle(ctx context.Context, id int64) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM vehicles WHERE vehicle_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: vehicle %d not found", ErrNotFound, id)
	}
	return nil
}
