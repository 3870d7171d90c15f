package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ecofy/backend/pkg/model"
)

const deviceColumns = `device_id, device_name, serial_number, device_type, battery_level, status, last_signal, container_id`

func scanDevice(scanner pgx.Row) (*model.Device, error) {
	d := &model.Device{}
	var containerID pgtype.Int8
	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&d.SerialNumber,
		&d.Type,
		&d.BatteryLevel,
		&d.Status,
		&d.LastSignal,
		&containerID,
	)
	if err != nil {
		return nil, err
	}
	if containerID.Valid {
		d.ContainerID = &containerID.Int64
	}
	return d, nil
}

// CreateDevice inserts a new device and fills in its generated ID.
func (s *PostgresStore) CreateDevice(ctx context.Context, d *model.Device) error {
	query := `
        INSERT INTO devices (device_name, serial_number, device_type, battery_level, status, last_signal, container_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING device_id`

	err := s.pool.QueryRow(ctx, query,
		d.Name, d.SerialNumber, d.Type, d.BatteryLevel, d.Status, d.LastSignal, d.ContainerID,
	).Scan(&d.ID)

	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return fmt.Errorf("%w: device with serial %q already exists", ErrConflict, d.SerialNumber)
		}
		if isPgError(err, pgForeignKeyViolation) {
			return fmt.Errorf("%w: container %v not found", ErrNotFound, d.ContainerID)
		}
		return fmt.Errorf("failed to insert device: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDeviceByID(ctx context.Context, id int64) (*model.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE device_id = $1`

	d, err := scanDevice(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: device %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find device by ID: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) FindDeviceBySerial(ctx context.Context, serial string) (*model.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE serial_number = $1`

	d, err := scanDevice(s.pool.QueryRow(ctx, query, serial))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: device with serial %q not registered", ErrNotFound, serial)
		}
		return nil, fmt.Errorf("failed to find device by serial: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListDevices(ctx context.Context) ([]*model.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY device_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []*model.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device rows: %w", err)
	}
	return devices, nil
}

// UpdateDevice applies the patch inside a transaction so a concurrent
// telemetry write cannot interleave between read and write.
func (s *PostgresStore) UpdateDevice(ctx context.Context, id int64, patch model.DevicePatch) (*model.Device, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin device update: %w", err)
	}
	defer tx.Rollback(ctx)

	d, err := scanDevice(tx.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: device %d not found", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to lock device for update: %w", err)
	}

	patch.Apply(d)

	_, err = tx.Exec(ctx, `
        UPDATE devices
        SET device_name = $2, device_type = $3, battery_level = $4, status = $5, container_id = $6
        WHERE device_id = $1`,
		d.ID, d.Name, d.Type, d.BatteryLevel, d.Status, d.ContainerID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, fmt.Errorf("%w: container %v not found", ErrNotFound, d.ContainerID)
		}
		return nil, fmt.Errorf("failed to update device: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit device update: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) DeleteDevice(ctx context.Context, id int64) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM devices WHERE device_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: device %d not found", ErrNotFound, id)
	}
	return nil
}

// ApplyReading runs one telemetry ingestion as a single transaction.
// The device row and its bound container row are locked FOR UPDATE, so
// concurrent ingestions for the same device, and pickup completions
// touching the same container, serialize on the row locks.
func (s *PostgresStore) ApplyReading(ctx context.Context, serial string, apply ApplyFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin telemetry transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	dev, err := scanDevice(tx.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE serial_number = $1 FOR UPDATE`, serial))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: device with serial %q not registered", ErrNotFound, serial)
		}
		return fmt.Errorf("failed to lock device for reading: %w", err)
	}

	var cont *model.Container
	if dev.ContainerID != nil {
		cont, err = scanContainer(tx.QueryRow(ctx,
			`SELECT `+containerColumns+` FROM containers WHERE container_id = $1 FOR UPDATE`, *dev.ContainerID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// The binding exists but the container does not: store
				// corruption, deliberately not ErrNotFound.
				return fmt.Errorf("device %d bound to missing container %d", dev.ID, *dev.ContainerID)
			}
			return fmt.Errorf("failed to lock container for reading: %w", err)
		}
	}

	notifications, err := apply(dev, cont)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
        UPDATE devices
        SET battery_level = $2, status = $3, last_signal = $4
        WHERE device_id = $1`,
		dev.ID, dev.BatteryLevel, dev.Status, dev.LastSignal)
	if err != nil {
		return fmt.Errorf("failed to write device state: %w", err)
	}

	if cont != nil {
		_, err = tx.Exec(ctx, `
            UPDATE containers
            SET fill_level = $2, temperature = $3, tilted = $4, status = $5, last_update = $6
            WHERE container_id = $1`,
			cont.ID, cont.FillLevel, cont.Temperature, cont.Tilted, cont.Status, cont.LastUpdate)
		if err != nil {
			return fmt.Errorf("failed to write container state: %w", err)
		}
	}

	for _, n := range notifications {
		_, err = tx.Exec(ctx, `
            INSERT INTO notifications (message, message_type, created_at, user_id, container_id, container_site_id)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			n.Message, n.MessageType, n.CreatedAt, n.UserID, n.ContainerID, n.SiteID)
		if err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit telemetry transaction: %w", err)
	}
	return nil
}
