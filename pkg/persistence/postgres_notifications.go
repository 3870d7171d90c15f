package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ecofy/backend/pkg/model"
)

const notificationColumns = `notification_id, message, message_type, created_at, user_id, container_id, container_site_id`

func scanNotification(scanner pgx.Row) (*model.Notification, error) {
	n := &model.Notification{}
	var userID, containerID, siteID pgtype.Int8
	err := scanner.Scan(
		&n.ID,
		&n.Message,
		&n.MessageType,
		&n.CreatedAt,
		&userID,
		&containerID,
		&siteID,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		n.UserID = &userID.Int64
	}
	if containerID.Valid {
		n.ContainerID = &containerID.Int64
	}
	if siteID.Valid {
		n.SiteID = &siteID.Int64
	}
	return n, nil
}

// InsertNotifications batch-inserts feed entries (site-opening and
// pickup broadcasts). Telemetry notifications take the transactional
// path through ApplyReading instead.
func (s *PostgresStore) InsertNotifications(ctx context.Context, ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(`
            INSERT INTO notifications (message, message_type, created_at, user_id, container_id, container_site_id)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			n.Message, n.MessageType, n.CreatedAt, n.UserID, n.ContainerID, n.SiteID)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range ns {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert notification batch: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListAllNotifications(ctx context.Context) ([]*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY created_at DESC`
	return s.queryNotifications(ctx, query)
}

func (s *PostgresStore) ListNotificationsForOrganization(ctx context.Context, orgID int64) ([]*model.Notification, error) {
	query := `
        SELECT n.notification_id, n.message, n.message_type, n.created_at, n.user_id, n.container_id, n.container_site_id
        FROM notifications n
        JOIN containersite s ON s.container_site_id = n.container_site_id
        WHERE s.organization_id = $1
        ORDER BY n.created_at DESC`
	return s.queryNotifications(ctx, query, orgID)
}

func (s *PostgresStore) ListUserNotifications(ctx context.Context, userID int64, messageType string) ([]*model.Notification, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM notifications
        WHERE user_id = $1 AND message_type = $2
        ORDER BY created_at DESC`
	return s.queryNotifications(ctx, query, userID, messageType)
}

func (s *PostgresStore) queryNotifications(ctx context.Context, query string, args ...interface{}) ([]*model.Notification, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}

func (s *PostgresStore) DeleteNotification(ctx context.Context, id int64) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE notification_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %d not found", ErrNotFound, id)
	}
	return nil
}
