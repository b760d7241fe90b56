package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"attendly/internal/model"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrAdminNotFound         = errors.New("admin not found")
	ErrNotificationNotFound  = errors.New("notification log not found")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrDuplicateAttendance   = errors.New("duplicate attendance")
	ErrDuplicateEmail        = errors.New("duplicate email")
	ErrWrongPassword         = errors.New("wrong password for existing account")
	ErrNotRegistered         = errors.New("user is not registered for this event")
	ErrCodeExhausted         = errors.New("could not allocate a unique event code")
)

type RegisterUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	// VerifyPassword is called with the stored hash when the email already
	// belongs to an account; returning false aborts with ErrWrongPassword.
	VerifyPassword func(storedHash string) bool
	EventCode      string
}

// LinkBuilder derives the registration link and QR image for a candidate
// event code. It runs before the insert transaction opens so that image
// rendering never happens while a transaction is held.
type LinkBuilder func(code string) (link, qrImage string, err error)

type Repository interface {
	CreateEventTx(ctx context.Context, e *model.Event, build LinkBuilder) (*model.Event, *model.RegistrationLink, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	GetEventByCode(ctx context.Context, code string) (*model.Event, error)
	GetRegistrationLink(ctx context.Context, eventID int64) (*model.RegistrationLink, error)
	ListEventsForAdmin(ctx context.Context, adminID int64, all bool) ([]model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	ReplaceRegistrationLinkTx(ctx context.Context, eventID int64, link, qrImage string) error

	CreateAdmin(ctx context.Context, a *model.Admin) (int64, error)
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	GetAdminByID(ctx context.Context, id int64) (*model.Admin, error)
	ListAdmins(ctx context.Context) ([]model.Admin, error)

	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	RegisterUserTx(ctx context.Context, p RegisterUserParams) (reg *model.Registration, created bool, err error)
	AddRegistration(ctx context.Context, userID, eventID int64) error
	ListRegisteredUsers(ctx context.Context, eventID int64) ([]model.User, error)
	ListUnattendedUsers(ctx context.Context, eventID int64) ([]model.User, error)
	ListEventsForUser(ctx context.Context, userID int64) ([]model.Event, error)

	HasRegistration(ctx context.Context, userID, eventID int64) (bool, error)
	RecordAttendanceTx(ctx context.Context, userID, eventID int64) (*model.Attendance, error)
	ListAttendanceForAdmin(ctx context.Context, adminID int64, all bool) ([]model.AttendanceView, error)

	AppendNotificationLog(ctx context.Context, l *model.NotificationLog) error
	GetNotificationWithOwner(ctx context.Context, id int64) (*model.NotificationLog, int64, error)
	ListNotificationsForAdmin(ctx context.Context, adminID int64, all bool) ([]model.NotificationLogView, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally on a specific constraint name.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
