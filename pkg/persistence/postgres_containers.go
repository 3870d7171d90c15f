package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ecofy/backend/pkg/model"
)

const containerColumns = `container_id, type, capacity, fill_level, temperature, tilted, status, last_update, container_site_id`

func scanContainer(scanner pgx.Row) (*model.Container, error) {
	c := &model.Container{}
	err := scanner.Scan(
		&c.ID,
		&c.Type,
		&c.Capacity,
		&c.FillLevel,
		&c.Temperature,
		&c.Tilted,
		&c.Status,
		&c.LastUpdate,
		&c.SiteID,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) CreateContainer(ctx context.Context, c *model.Container) error {
	query := `
        INSERT INTO containers (type, capacity, fill_level, temperature, tilted, status, last_update, container_site_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING container_id`

	err := s.pool.QueryRow(ctx, query,
		c.Type, c.Capacity, c.FillLevel, c.Temperature, c.Tilted, c.Status, c.LastUpdate, c.SiteID,
	).Scan(&c.ID)

	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return fmt.Errorf("%w: container site %d not found", ErrNotFound, c.SiteID)
		}
		return fmt.Errorf("failed to insert container: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindContainerByID(ctx context.Context, id int64) (*model.Container, error) {
	query := `SELECT ` + containerColumns + ` FROM containers WHERE container_id = $1`

	c, err := scanContainer(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: container %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find container by ID: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListContainers(ctx context.Context, orgID *int64) ([]*model.Container, error) {
	query := `SELECT ` + containerColumns + ` FROM containers ORDER BY container_id ASC`
	args := []interface{}{}
	if orgID != nil {
		query = `
            SELECT c.container_id, c.type, c.capacity, c.fill_level, c.temperature, c.tilted, c.status, c.last_update, c.container_site_id
            FROM containers c
            JOIN containersite s ON s.container_site_id = c.container_site_id
            WHERE s.organization_id = $1
            ORDER BY c.container_id ASC`
		args = append(args, *orgID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query containers: %w", err)
	}
	defer rows.Close()

	containers := []*model.Container{}
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan container row: %w", err)
		}
		containers = append(containers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating container rows: %w", err)
	}
	return containers, nil
}

func (s *PostgresStore) ListContainersBySite(ctx context.Context, siteID int64) ([]*model.Container, error) {
	query := `SELECT ` + containerColumns + ` FROM containers WHERE container_site_id = $1 ORDER BY container_id ASC`

	rows, err := s.pool.Query(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query containers by site: %w", err)
	}
	defer rows.Close()

	containers := []*model.Container{}
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan container row: %w", err)
		}
		containers = append(containers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating container rows: %w", err)
	}
	return containers, nil
}

func (s *PostgresStore) UpdateContainer(ctx context.Context, id int64, patch model.ContainerPatch) (*model.Container, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin container update: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := scanContainer(tx.QueryRow(ctx, `SELECT `+containerColumns+` FROM containers WHERE container_id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: container %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to lock container for update: %w", err)
	}

	patch.Apply(c)

	_, err = tx.Exec(ctx, `
        UPDATE containers
        SET type = $2, capacity = $3, fill_level = $4, status = $5, container_site_id = $6
        WHERE container_id = $1`,
		c.ID, c.Type, c.Capacity, c.FillLevel, c.Status, c.SiteID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, fmt.Errorf("%w: container site %d not found", ErrNotFound, c.SiteID)
		}
		return nil, fmt.Errorf("failed to update container: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit container update: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) DeleteContainer(ctx context.Context, id int64) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM containers WHERE container_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete container: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: container %d not found", ErrNotFound, id)
	}
	return nil
}

// --- Container sites ---

const siteColumns = `container_site_id, location_lat, location_lng, city, street, building, entrance, description, organization_id`

func scanSite(scanner pgx.Row) (*model.ContainerSite, error) {
	s := &model.ContainerSite{}
	err := scanner.Scan(
		&s.ID,
		&s.LocationLat,
		&s.LocationLng,
		&s.City,
		&s.Street,
		&s.Building,
		&s.Entrance,
		&s.Description,
		&s.OrganizationID,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) CreateSite(ctx context.Context, site *model.ContainerSite) error {
	query := `
        INSERT INTO containersite (location_lat, location_lng, city, street, building, entrance, description, organization_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING container_site_id`

	err := s.pool.QueryRow(ctx, query,
		site.LocationLat, site.LocationLng, site.City, site.Street, site.Building,
		site.Entrance, site.Description, site.OrganizationID,
	).Scan(&site.ID)

	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return fmt.Errorf("%w: organization %d not found", ErrNotFound, site.OrganizationID)
		}
		return fmt.Errorf("failed to insert container site: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindSiteByID(ctx context.Context, id int64) (*model.ContainerSite, error) {
	query := `SELECT ` + siteColumns + ` FROM containersite WHERE container_site_id = $1`

	site, err := scanSite(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: container site %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find container site by ID: %w", err)
	}
	return site, nil
}

func (s *PostgresStore) ListSites(ctx context.Context, orgID *int64) ([]*model.ContainerSite, error) {
	query := `SELECT ` + siteColumns + ` FROM containersite ORDER BY container_site_id ASC`
	args := []interface{}{}
	if orgID != nil {
		query = `SELECT ` + siteColumns + ` FROM containersite WHERE organization_id = $1 ORDER BY container_site_id ASC`
		args = append(args, *orgID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query container sites: %w", err)
	}
	defer rows.Close()

	sites := []*model.ContainerSite{}
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan container site row: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating container site rows: %w", err)
	}
	return sites, nil
}

func (s *PostgresStore) UpdateSite(ctx context.Context, id int64, patch model.ContainerSitePatch) (*model.ContainerSite, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin site update: %w", err)
	}
	defer tx.Rollback(ctx)

	site, err := scanSite(tx.QueryRow(ctx, `SELECT `+siteColumns+` FROM containersite WHERE container_site_id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: container site %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to lock container site for update: %w", err)
	}

	patch.Apply(site)

	_, err = tx.Exec(ctx, `
        UPDATE containersite
        SET location_lat = $2, location_lng = $3, city = $4, street = $5, building = $6, entrance = $7, description = $8
        WHERE container_site_id = $1`,
		site.ID, site.LocationLat, site.LocationLng, site.City, site.Street,
		site.Building, site.Entrance, site.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to update container site: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit site update: %w", err)
	}
	return site, nil
}

// DeleteSite removes a site unless containers or pickups still
// reference it.
func (s *PostgresStore) DeleteSite(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin site delete: %w", err)
	}
	defer tx.Rollback(ctx)

	var hasContainers, hasPickups bool
	err = tx.QueryRow(ctx, `
        SELECT
            EXISTS (SELECT 1 FROM containers WHERE container_site_id = $1),
            EXISTS (SELECT 1 FROM pickups WHERE container_site_id = $1)`, id,
	).Scan(&hasContainers, &hasPickups)
	if err != nil {
		return fmt.Errorf("failed to check site references: %w", err)
	}
	if hasContainers {
		return fmt.Errorf("%w: cannot delete container site %d, containers are attached", ErrConflict, id)
	}
	if hasPickups {
		return fmt.Errorf("%w: cannot delete container site %d, pickups are attached", ErrConflict, id)
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM containersite WHERE container_site_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete container site: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: container site %d not found", ErrNotFound, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit site delete: %w", err)
	}
	return nil
}
