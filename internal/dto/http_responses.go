package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	Unauthenticated       = "UNAUTHENTICATED"
	Forbidden             = "FORBIDDEN"
	EventNotFound         = "EVENT_NOT_FOUND"
	UserNotFound          = "USER_NOT_FOUND"
	NotificationNotFound  = "NOTIFICATION_NOT_FOUND"
	RegistrationNotFound  = "REGISTRATION_NOT_FOUND"
	RegistrationDuplicate = "REGISTRATION_DUPLICATE"
	AttendanceDuplicate   = "ATTENDANCE_DUPLICATE"
	EmailDuplicate        = "EMAIL_DUPLICATE"
	InvalidToken          = "INVALID_TOKEN"
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error:  &Error{Code: code, Desc: desc},
	})
}

func UnauthenticatedError(c *ginext.Context, desc string) {
	c.JSON(401, Response{
		Status: "error",
		Error:  &Error{Code: Unauthenticated, Desc: desc},
	})
}

func ForbiddenError(c *ginext.Context) {
	c.JSON(403, Response{
		Status: "error",
		Error:  &Error{Code: Forbidden, Desc: "You are not allowed to perform this action"},
	})
}

func NotFoundError(c *ginext.Context, code, desc string) {
	c.JSON(404, Response{
		Status: "error",
		Error:  &Error{Code: code, Desc: desc},
	})
}

func ConflictError(c *ginext.Context, code, desc string) {
	c.JSON(409, Response{
		Status: "error",
		Error:  &Error{Code: code, Desc: desc},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error:  &Error{Code: ServiceUnavailable, Desc: InternalError},
	})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{Status: "ok", Data: data})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{Status: "ok", Data: data})
}

type CreateEventRequest struct {
	Purpose   string     `json:"purpose" validate:"required,max=255"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	StartTime *string    `json:"start_time"`
	EndTime   *string    `json:"end_time"`
	Location  *string    `json:"location"`
}

type EventResponse struct {
	ID               int64      `json:"id"`
	Purpose          string     `json:"purpose"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	StartTime        *string    `json:"start_time,omitempty"`
	EndTime          *string    `json:"end_time,omitempty"`
	Location         *string    `json:"location,omitempty"`
	EventCode        string     `json:"event_code"`
	RegistrationLink string     `json:"registration_link,omitempty"`
	QRCode           string     `json:"qr_code,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EventDetailResponse is the admin view of one event with its registrants.
type EventDetailResponse struct {
	EventResponse
	Users []UserResponse `json:"users"`
}

type AdminResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Institution string `json:"institution,omitempty"`
	Role        string `json:"role"`
}

// PublicEventResponse is the projection shown on the self-registration form.
type PublicEventResponse struct {
	Purpose   string     `json:"purpose"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Location  *string    `json:"location,omitempty"`
}

type RegisterUserRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=255"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	EventCode string `json:"event_code" validate:"required,eventcode"`
}

type RegisterUserResponse struct {
	UserID  int64  `json:"user_id"`
	EventID int64  `json:"event_id"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token  string          `json:"token"`
	Role   string          `json:"role,omitempty"`
	Events []EventResponse `json:"events,omitempty"`
}

type RegisterAdminRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	Institution string `json:"institution"`
	Role        string `json:"role"`
}

type ScanRequest struct {
	QRData string `json:"qr_data" validate:"required"`
}

type ScanResponse struct {
	UserName string `json:"user_name"`
	Message  string `json:"message"`
}

type ImportRow struct {
	Email     string `json:"email"`
	EventCode string `json:"event_code"`
}

type ImportRequest struct {
	Rows []ImportRow `json:"rows" validate:"required,min=1"`
}

type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportResponse struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

type RemindResponse struct {
	Queued int `json:"queued"`
}

// NotificationMessage is the payload handed to RabbitMQ after a primary
// transaction commits; the consumer worker turns it into an email and a
// notification_logs row.
type NotificationMessage struct {
	Kind    string `json:"kind"`
	UserID  int64  `json:"user_id"`
	EventID int64  `json:"event_id"`
}
