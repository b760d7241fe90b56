package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"attendly/internal/dto"
	"attendly/internal/model"
	"attendly/internal/notifier"
	"attendly/internal/rabbit"
	"attendly/internal/repo"
	"attendly/pkg/checkin"
)

type Service interface {
	RegisterAdmin(ctx *ginext.Context)
	LoginAdmin(ctx *ginext.Context)
	GetAdminProfile(ctx *ginext.Context)
	ListAdmins(ctx *ginext.Context)

	CreateEvent(ctx *ginext.Context)
	ListEvents(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)
	GetEventByCode(ctx *ginext.Context)
	UpdateEvent(ctx *ginext.Context)
	DeleteEvent(ctx *ginext.Context)
	RegenerateQR(ctx *ginext.Context)

	RegisterUser(ctx *ginext.Context)
	LoginUser(ctx *ginext.Context)
	ImportRegistrations(ctx *ginext.Context)

	Scan(ctx *ginext.Context)
	ListAttendance(ctx *ginext.Context)

	ListNotifications(ctx *ginext.Context)
	ResendNotification(ctx *ginext.Context)
	RemindUnattended(ctx *ginext.Context)
}

type Config struct {
	FrontendURL string
	JWTSecret   string
	JWTTTL      time.Duration
}

type service struct {
	repo       repo.Repository
	log        *zerolog.Logger
	rbt        rabbit.Publisher
	dispatcher *notifier.Dispatcher
	cfg        Config
}

func NewService(repo repo.Repository, logger *zerolog.Logger, rbt rabbit.Publisher, dispatcher *notifier.Dispatcher, cfg Config) Service {
	return &service{
		repo:       repo,
		log:        logger,
		rbt:        rbt,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

var errForbidden = errors.New("forbidden")

// publishNotification queues a notification message for the consumer
// worker. Publish failures are logged and swallowed; the primary
// operation has already committed.
func (s *service) publishNotification(kind model.NotificationKind, userID, eventID int64) {
	msg := dto.NotificationMessage{
		Kind:    string(kind),
		UserID:  userID,
		EventID: eventID,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal notification message")
		return
	}
	if err := s.rbt.Publish(payload); err != nil {
		s.log.Error().Err(err).
			Str("kind", string(kind)).
			Int64("user_id", userID).
			Int64("event_id", eventID).
			Msg("failed to publish notification message")
	}
}

// respondError maps domain errors to the HTTP envelope. Unrecognized
// errors are logged and reported generically.
func (s *service) respondError(c *ginext.Context, err error) {
	switch {
	case errors.Is(err, checkin.ErrInvalidToken):
		dto.BadResponseError(c, dto.InvalidToken, "Malformed check-in token")
	case errors.Is(err, repo.ErrEventNotFound):
		dto.NotFoundError(c, dto.EventNotFound, "Event not found")
	case errors.Is(err, repo.ErrUserNotFound):
		dto.NotFoundError(c, dto.UserNotFound, "User not found")
	case errors.Is(err, repo.ErrAdminNotFound):
		dto.NotFoundError(c, dto.UserNotFound, "Admin not found")
	case errors.Is(err, repo.ErrNotificationNotFound):
		dto.NotFoundError(c, dto.NotificationNotFound, "Notification log not found")
	case errors.Is(err, repo.ErrNotRegistered):
		dto.NotFoundError(c, dto.RegistrationNotFound, "User is not registered for this event")
	case errors.Is(err, repo.ErrDuplicateRegistration):
		dto.ConflictError(c, dto.RegistrationDuplicate, "You are already registered for this event")
	case errors.Is(err, repo.ErrDuplicateEmail):
		dto.ConflictError(c, dto.EmailDuplicate, "An account with this email already exists")
	case errors.Is(err, repo.ErrWrongPassword):
		dto.ConflictError(c, dto.EmailDuplicate, "An account with this email already exists, but the password was incorrect")
	case errors.Is(err, errForbidden):
		dto.ForbiddenError(c)
	default:
		s.log.Error().Err(err).Msg("unexpected error")
		dto.InternalServerError(c)
	}
}

func eventResponse(e *model.Event) dto.EventResponse {
	return dto.EventResponse{
		ID:        e.ID,
		Purpose:   e.Purpose,
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Location:  e.Location,
		EventCode: e.EventCode,
		CreatedAt: e.CreatedAt,
	}
}
