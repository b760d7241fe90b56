package repo

import (
	"context"
	"fmt"

	"attendly/internal/model"
)

func (r *repository) HasRegistration(ctx context.Context, userID, eventID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM registrations WHERE user_id = $1 AND event_id = $2)
	`, userID, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return exists, nil
}

// RecordAttendanceTx inserts the single attendance row for a (user, event)
// pair. The unique (user_id, event_id) constraint makes repeated scans a
// conflict, not a second row.
func (r *repository) RecordAttendanceTx(ctx context.Context, userID, eventID int64) (*model.Attendance, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	att := model.Attendance{UserID: userID, EventID: eventID}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO attendance (user_id, event_id, time)
		VALUES ($1, $2, NOW())
		RETURNING id, time
	`, userID, eventID).Scan(&att.ID, &att.Time)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err, "attendance_user_id_event_id_key") {
			return nil, ErrDuplicateAttendance
		}
		return nil, fmt.Errorf("failed to insert attendance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &att, nil
}

func (r *repository) ListAttendanceForAdmin(ctx context.Context, adminID int64, all bool) ([]model.AttendanceView, error) {
	query := `
		SELECT u.name AS user_name, e.purpose AS event_name, a.time
		FROM attendance a
		JOIN users u ON a.user_id = u.id
		JOIN events e ON a.event_id = e.id
	`
	var args []any
	if !all {
		query += ` WHERE e.admin_id = $1`
		args = append(args, adminID)
	}
	query += ` ORDER BY a.time DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var records []model.AttendanceView
	for rows.Next() {
		var v model.AttendanceView
		if err := rows.Scan(&v.UserName, &v.EventName, &v.Time); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, v)
	}
	return records, rows.Err()
}
