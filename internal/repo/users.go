package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"attendly/internal/model"
)

func (r *repository) CreateAdmin(ctx context.Context, a *model.Admin) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO admins (name, email, password, institution, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.Name, a.Email, a.Password, a.Institution, a.Role).Scan(&id)
	if isUniqueViolation(err, "admins_email_key") {
		return 0, ErrDuplicateEmail
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert admin: %w", err)
	}
	return id, nil
}

func (r *repository) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, institution, role, created_at
		FROM admins WHERE email = $1
	`, email).Scan(&a.ID, &a.Name, &a.Email, &a.Password, &a.Institution, &a.Role, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &a, nil
}

func (r *repository) GetAdminByID(ctx context.Context, id int64) (*model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, institution, role, created_at
		FROM admins WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Email, &a.Password, &a.Institution, &a.Role, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &a, nil
}

// ListAdmins is the super-admin overview of every admin account.
func (r *repository) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, institution, role, created_at
		FROM admins ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var admins []model.Admin
	for rows.Next() {
		var a model.Admin
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Institution, &a.Role, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (r *repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, created_at FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// RegisterUserTx performs the whole self-registration sequence in one
// transaction: resolve the event by code, find or create the user, then
// insert the registration. The unique (user_id, event_id) constraint is
// the final word on duplicates.
func (r *repository) RegisterUserTx(ctx context.Context, p RegisterUserParams) (*model.Registration, bool, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if pnc := recover(); pnc != nil {
			_ = tx.Rollback()
			panic(pnc)
		}
	}()

	var reg model.Registration
	err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE event_code = $1`, p.EventCode).Scan(&reg.EventID)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return nil, false, ErrEventNotFound
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, false, fmt.Errorf("failed to resolve event code: %w", err)
	}

	var (
		storedHash string
		created    bool
	)
	err = tx.QueryRowContext(ctx, `SELECT id, password FROM users WHERE email = $1`, p.Email).Scan(&reg.UserID, &storedHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (name, email, password) VALUES ($1, $2, $3) RETURNING id
		`, p.Name, p.Email, p.PasswordHash).Scan(&reg.UserID)
		if isUniqueViolation(err, "users_email_key") {
			// Lost a race with a concurrent registration for the same email.
			_ = tx.Rollback()
			return nil, false, ErrDuplicateEmail
		}
		if err != nil {
			_ = tx.Rollback()
			return nil, false, fmt.Errorf("failed to insert user: %w", err)
		}
		created = true
	case err != nil:
		_ = tx.Rollback()
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	default:
		if !p.VerifyPassword(storedHash) {
			_ = tx.Rollback()
			return nil, false, ErrWrongPassword
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (user_id, event_id) VALUES ($1, $2)
		RETURNING id, created_at
	`, reg.UserID, reg.EventID).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err, "registrations_user_id_event_id_key") {
			return nil, false, ErrDuplicateRegistration
		}
		return nil, false, fmt.Errorf("failed to insert registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &reg, created, nil
}

// AddRegistration links an existing user to an event, used by bulk import.
func (r *repository) AddRegistration(ctx context.Context, userID, eventID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO registrations (user_id, event_id) VALUES ($1, $2)
	`, userID, eventID)
	if isUniqueViolation(err, "registrations_user_id_event_id_key") {
		return ErrDuplicateRegistration
	}
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

func (r *repository) ListRegisteredUsers(ctx context.Context, eventID int64) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM users u
		JOIN registrations reg ON u.id = reg.user_id
		WHERE reg.event_id = $1
		ORDER BY u.name ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListUnattendedUsers returns registered users with no attendance row for
// the event, the audience of a reminder run.
func (r *repository) ListUnattendedUsers(ctx context.Context, eventID int64) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM users u
		JOIN registrations reg ON u.id = reg.user_id
		WHERE reg.event_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM attendance a
			WHERE a.event_id = reg.event_id AND a.user_id = u.id
		  )
		ORDER BY u.name ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unattended users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *repository) ListEventsForUser(ctx context.Context, userID int64) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumnsQualified+`
		FROM events e
		JOIN registrations reg ON e.id = reg.event_id
		WHERE reg.user_id = $1
		ORDER BY e.start_date DESC NULLS LAST, e.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user events: %w", err)
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
