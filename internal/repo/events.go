package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"attendly/internal/model"
	"attendly/pkg/eventcode"
)

// Upper bound on code allocation retries. With ~31 bits of entropy per
// code a single retry is already rare.
const maxCodeAttempts = 5

func (r *repository) CreateEventTx(ctx context.Context, e *model.Event, build LinkBuilder) (*model.Event, *model.RegistrationLink, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := eventcode.Generate()
		if err != nil {
			return nil, nil, err
		}

		// Link and QR are derived before the transaction opens.
		link, qrImage, err := build(code)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build registration link: %w", err)
		}

		created, regLink, err := r.insertEventWithLink(ctx, e, code, link, qrImage)
		if err == nil {
			return created, regLink, nil
		}
		if isUniqueViolation(err, "events_event_code_key") {
			r.log.Warn().Str("event_code", code).Msg("event code collision, retrying")
			continue
		}
		return nil, nil, err
	}
	return nil, nil, ErrCodeExhausted
}

func (r *repository) insertEventWithLink(ctx context.Context, e *model.Event, code, link, qrImage string) (*model.Event, *model.RegistrationLink, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	created := *e
	created.EventCode = code
	err = tx.QueryRowContext(ctx, `
		INSERT INTO events (purpose, start_date, end_date, start_time, end_time, location, admin_id, event_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, e.Purpose, e.StartDate, e.EndDate, e.StartTime, e.EndTime, e.Location, e.AdminID, code,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		return nil, nil, err
	}

	regLink := &model.RegistrationLink{
		EventID:          created.ID,
		RegistrationLink: link,
		QRCode:           qrImage,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO event_registration_links (event_id, registration_link, qr_code)
		VALUES ($1, $2, $3)
	`, regLink.EventID, regLink.RegistrationLink, regLink.QRCode); err != nil {
		_ = tx.Rollback()
		return nil, nil, fmt.Errorf("failed to insert registration link: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &created, regLink, nil
}

const eventColumns = `id, purpose, start_date, end_date, start_time, end_time, location, admin_id, event_code, created_at`

// Qualified variant for joined queries.
const eventColumnsQualified = `e.id, e.purpose, e.start_date, e.end_date, e.start_time, e.end_time, e.location, e.admin_id, e.event_code, e.created_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Purpose, &e.StartDate, &e.EndDate, &e.StartTime, &e.EndTime,
		&e.Location, &e.AdminID, &e.EventCode, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *repository) GetEventByCode(ctx context.Context, code string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE event_code = $1`, code)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by code: %w", err)
	}
	return e, nil
}

func (r *repository) GetRegistrationLink(ctx context.Context, eventID int64) (*model.RegistrationLink, error) {
	var l model.RegistrationLink
	err := r.db.QueryRowContext(ctx, `
		SELECT event_id, registration_link, qr_code
		FROM event_registration_links WHERE event_id = $1
	`, eventID).Scan(&l.EventID, &l.RegistrationLink, &l.QRCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration link: %w", err)
	}
	return &l, nil
}

func (r *repository) ListEventsForAdmin(ctx context.Context, adminID int64, all bool) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []any
	if !all {
		query += ` WHERE admin_id = $1`
		args = append(args, adminID)
	}
	query += ` ORDER BY start_date DESC NULLS LAST, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *repository) UpdateEvent(ctx context.Context, e *model.Event) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET purpose = $1, start_date = $2, end_date = $3, start_time = $4, end_time = $5, location = $6
		WHERE id = $7
	`, e.Purpose, e.StartDate, e.EndDate, e.StartTime, e.EndTime, e.Location, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *repository) DeleteEvent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ReplaceRegistrationLinkTx atomically overwrites the stored link and QR
// image for an event. The event code itself is never reassigned.
func (r *repository) ReplaceRegistrationLinkTx(ctx context.Context, eventID int64, link, qrImage string) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE event_registration_links
		SET registration_link = $1, qr_code = $2
		WHERE event_id = $3
	`, link, qrImage, eventID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to replace registration link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return ErrEventNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
