package model

import "time"

type Admin struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	Password    string    `db:"password" json:"-"`
	Institution string    `db:"institution,omitempty" json:"institution,omitempty"`
	Role        string    `db:"role" json:"role"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Event struct {
	ID        int64      `db:"id" json:"id"`
	Purpose   string     `db:"purpose" json:"purpose"`
	StartDate *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
	StartTime *string    `db:"start_time" json:"start_time,omitempty"`
	EndTime   *string    `db:"end_time" json:"end_time,omitempty"`
	Location  *string    `db:"location" json:"location,omitempty"`
	AdminID   int64      `db:"admin_id" json:"admin_id"`
	EventCode string     `db:"event_code" json:"event_code"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// RegistrationLink is the one-to-one derived artifact for an event: the
// public self-registration URL and its rendered QR image (base64 data URI).
type RegistrationLink struct {
	EventID          int64  `db:"event_id" json:"event_id"`
	RegistrationLink string `db:"registration_link" json:"registration_link"`
	QRCode           string `db:"qr_code" json:"qr_code"`
}

type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Registration struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Attendance struct {
	ID      int64     `db:"id" json:"id"`
	UserID  int64     `db:"user_id" json:"user_id"`
	EventID int64     `db:"event_id" json:"event_id"`
	Time    time.Time `db:"time" json:"time"`
}

type NotificationKind string

const (
	NotificationRegistration NotificationKind = "registration"
	NotificationAttendance   NotificationKind = "attendance"
	NotificationReminder     NotificationKind = "reminder"
)

type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// NotificationLog is one append-only row per send attempt.
type NotificationLog struct {
	ID      int64              `db:"id" json:"id"`
	UserID  int64              `db:"user_id" json:"user_id"`
	EventID int64              `db:"event_id" json:"event_id"`
	Type    NotificationKind   `db:"type" json:"type"`
	Status  NotificationStatus `db:"status" json:"status"`
	SentAt  time.Time          `db:"sent_at" json:"sent_at"`
}

// NotificationLogView joins a log row with display names for admin review.
type NotificationLogView struct {
	NotificationLog
	UserName  string `db:"user_name" json:"user_name"`
	EventName string `db:"event_name" json:"event_name"`
}

// AttendanceView joins an attendance row with display names.
type AttendanceView struct {
	UserName  string    `db:"user_name" json:"user_name"`
	EventName string    `db:"event_name" json:"event_name"`
	Time      time.Time `db:"time" json:"time"`
}
