package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"attendly/internal/model"
)

// AppendNotificationLog writes one row per send attempt. Rows are never
// updated; a resend appends a fresh row.
func (r *repository) AppendNotificationLog(ctx context.Context, l *model.NotificationLog) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notification_logs (user_id, event_id, type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, sent_at
	`, l.UserID, l.EventID, l.Type, l.Status).Scan(&l.ID, &l.SentAt)
	if err != nil {
		return fmt.Errorf("failed to append notification log: %w", err)
	}
	return nil
}

// GetNotificationWithOwner returns a log row together with the owning
// admin id of its event, for authorization on resend.
func (r *repository) GetNotificationWithOwner(ctx context.Context, id int64) (*model.NotificationLog, int64, error) {
	var (
		l       model.NotificationLog
		ownerID int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT nl.id, nl.user_id, nl.event_id, nl.type, nl.status, nl.sent_at, e.admin_id
		FROM notification_logs nl
		JOIN events e ON nl.event_id = e.id
		WHERE nl.id = $1
	`, id).Scan(&l.ID, &l.UserID, &l.EventID, &l.Type, &l.Status, &l.SentAt, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotificationNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get notification log: %w", err)
	}
	return &l, ownerID, nil
}

func (r *repository) ListNotificationsForAdmin(ctx context.Context, adminID int64, all bool) ([]model.NotificationLogView, error) {
	query := `
		SELECT nl.id, nl.user_id, nl.event_id, nl.type, nl.status, nl.sent_at,
		       u.name AS user_name, e.purpose AS event_name
		FROM notification_logs nl
		JOIN users u ON nl.user_id = u.id
		JOIN events e ON nl.event_id = e.id
	`
	var args []any
	if !all {
		query += ` WHERE e.admin_id = $1`
		args = append(args, adminID)
	}
	query += ` ORDER BY nl.sent_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification logs: %w", err)
	}
	defer rows.Close()

	var logs []model.NotificationLogView
	for rows.Next() {
		var v model.NotificationLogView
		if err := rows.Scan(&v.ID, &v.UserID, &v.EventID, &v.Type, &v.Status, &v.SentAt, &v.UserName, &v.EventName); err != nil {
			return nil, fmt.Errorf("failed to scan notification log: %w", err)
		}
		logs = append(logs, v)
	}
	return logs, rows.Err()
}
