package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"attendly/internal/auth"
	"attendly/internal/dto"
	"attendly/internal/model"
	"attendly/internal/notifier"
	"attendly/internal/repo"
	"attendly/pkg/checkin"
)

// fakeRepo satisfies repo.Repository with function fields for the methods a
// test customizes. Uncustomized methods report not-found or zero values.
type fakeRepo struct {
	getEventByID       func(ctx context.Context, id int64) (*model.Event, error)
	getEventByCode     func(ctx context.Context, code string) (*model.Event, error)
	getUserByID        func(ctx context.Context, id int64) (*model.User, error)
	getUserByEmail     func(ctx context.Context, email string) (*model.User, error)
	hasRegistration    func(ctx context.Context, userID, eventID int64) (bool, error)
	recordAttendance   func(ctx context.Context, userID, eventID int64) (*model.Attendance, error)
	registerUser       func(ctx context.Context, p repo.RegisterUserParams) (*model.Registration, bool, error)
	addRegistration    func(ctx context.Context, userID, eventID int64) error
	listUnattended     func(ctx context.Context, eventID int64) ([]model.User, error)
	listAdmins         func(ctx context.Context) ([]model.Admin, error)
	getNotification    func(ctx context.Context, id int64) (*model.NotificationLog, int64, error)
	appendNotification func(ctx context.Context, l *model.NotificationLog) error
}

func (f *fakeRepo) CreateEventTx(ctx context.Context, e *model.Event, build repo.LinkBuilder) (*model.Event, *model.RegistrationLink, error) {
	return nil, nil, errors.New("not implemented")
}

func (f *fakeRepo) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	if f.getEventByID != nil {
		return f.getEventByID(ctx, id)
	}
	return nil, repo.ErrEventNotFound
}

func (f *fakeRepo) GetEventByCode(ctx context.Context, code string) (*model.Event, error) {
	if f.getEventByCode != nil {
		return f.getEventByCode(ctx, code)
	}
	return nil, repo.ErrEventNotFound
}

func (f *fakeRepo) GetRegistrationLink(ctx context.Context, eventID int64) (*model.RegistrationLink, error) {
	return nil, repo.ErrEventNotFound
}

func (f *fakeRepo) ListEventsForAdmin(ctx context.Context, adminID int64, all bool) ([]model.Event, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateEvent(ctx context.Context, e *model.Event) error { return nil }
func (f *fakeRepo) DeleteEvent(ctx context.Context, id int64) error       { return nil }

func (f *fakeRepo) ReplaceRegistrationLinkTx(ctx context.Context, eventID int64, link, qrImage string) error {
	return nil
}

func (f *fakeRepo) CreateAdmin(ctx context.Context, a *model.Admin) (int64, error) { return 0, nil }

func (f *fakeRepo) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return nil, repo.ErrAdminNotFound
}

func (f *fakeRepo) GetAdminByID(ctx context.Context, id int64) (*model.Admin, error) {
	return nil, repo.ErrAdminNotFound
}

func (f *fakeRepo) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	if f.listAdmins != nil {
		return f.listAdmins(ctx)
	}
	return nil, nil
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if f.getUserByID != nil {
		return f.getUserByID(ctx, id)
	}
	return nil, repo.ErrUserNotFound
}

func (f *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.getUserByEmail != nil {
		return f.getUserByEmail(ctx, email)
	}
	return nil, repo.ErrUserNotFound
}

func (f *fakeRepo) RegisterUserTx(ctx context.Context, p repo.RegisterUserParams) (*model.Registration, bool, error) {
	if f.registerUser != nil {
		return f.registerUser(ctx, p)
	}
	return nil, false, repo.ErrEventNotFound
}

func (f *fakeRepo) AddRegistration(ctx context.Context, userID, eventID int64) error {
	if f.addRegistration != nil {
		return f.addRegistration(ctx, userID, eventID)
	}
	return nil
}

func (f *fakeRepo) ListRegisteredUsers(ctx context.Context, eventID int64) ([]model.User, error) {
	return nil, nil
}

func (f *fakeRepo) ListUnattendedUsers(ctx context.Context, eventID int64) ([]model.User, error) {
	if f.listUnattended != nil {
		return f.listUnattended(ctx, eventID)
	}
	return nil, nil
}

func (f *fakeRepo) ListEventsForUser(ctx context.Context, userID int64) ([]model.Event, error) {
	return nil, nil
}

func (f *fakeRepo) HasRegistration(ctx context.Context, userID, eventID int64) (bool, error) {
	if f.hasRegistration != nil {
		return f.hasRegistration(ctx, userID, eventID)
	}
	return false, nil
}

func (f *fakeRepo) RecordAttendanceTx(ctx context.Context, userID, eventID int64) (*model.Attendance, error) {
	if f.recordAttendance != nil {
		return f.recordAttendance(ctx, userID, eventID)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) ListAttendanceForAdmin(ctx context.Context, adminID int64, all bool) ([]model.AttendanceView, error) {
	return nil, nil
}

func (f *fakeRepo) AppendNotificationLog(ctx context.Context, l *model.NotificationLog) error {
	if f.appendNotification != nil {
		return f.appendNotification(ctx, l)
	}
	return nil
}

func (f *fakeRepo) GetNotificationWithOwner(ctx context.Context, id int64) (*model.NotificationLog, int64, error) {
	if f.getNotification != nil {
		return f.getNotification(ctx, id)
	}
	return nil, 0, repo.ErrNotificationNotFound
}

func (f *fakeRepo) ListNotificationsForAdmin(ctx context.Context, adminID int64, all bool) ([]model.NotificationLogView, error) {
	return nil, nil
}

func (f *fakeRepo) MigrateUp(migrationsDir string) error   { return nil }
func (f *fakeRepo) MigrateDown(migrationsDir string) error { return nil }

type fakePublisher struct {
	err      error
	messages []dto.NotificationMessage
}

func (f *fakePublisher) Publish(body []byte) error {
	var msg dto.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}
	f.messages = append(f.messages, msg)
	return f.err
}

type fakeSender struct{ err error }

func (f *fakeSender) Send(to, subject, htmlBody, textBody string) error { return f.err }

func newTestService(r repo.Repository, pub *fakePublisher) *service {
	nop := zerolog.Nop()
	dispatcher := notifier.New(&fakeSender{}, r, &nop)
	return &service{
		repo:       r,
		log:        &nop,
		rbt:        pub,
		dispatcher: dispatcher,
		cfg:        Config{FrontendURL: "http://localhost:3002", JWTSecret: "secret", JWTTTL: time.Hour},
	}
}

func attendanceFixture() *fakeRepo {
	return &fakeRepo{
		getEventByID: func(_ context.Context, id int64) (*model.Event, error) {
			if id != 7 {
				return nil, repo.ErrEventNotFound
			}
			return &model.Event{ID: 7, Purpose: "Go Meetup", AdminID: 2, EventCode: "AB12CD"}, nil
		},
		getUserByID: func(_ context.Context, id int64) (*model.User, error) {
			if id != 3 {
				return nil, repo.ErrUserNotFound
			}
			return &model.User{ID: 3, Name: "Alice", Email: "alice@example.com"}, nil
		},
		hasRegistration: func(_ context.Context, userID, eventID int64) (bool, error) {
			return userID == 3 && eventID == 7, nil
		},
		recordAttendance: func(_ context.Context, userID, eventID int64) (*model.Attendance, error) {
			return &model.Attendance{ID: 1, UserID: userID, EventID: eventID, Time: time.Now()}, nil
		},
	}
}

const validToken = "userId:3,eventId:7"

func TestRecordAttendance(t *testing.T) {
	owner := auth.Principal{ID: 2, Role: auth.RoleEventAdmin}

	t.Run("owner records and queues notification", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := newTestService(attendanceFixture(), pub)

		user, err := svc.recordAttendance(context.Background(), validToken, owner)
		if err != nil {
			t.Fatalf("recordAttendance failed: %v", err)
		}
		if user.Name != "Alice" {
			t.Errorf("wrong user %+v", user)
		}
		if len(pub.messages) != 1 {
			t.Fatalf("published %d messages, want 1", len(pub.messages))
		}
		msg := pub.messages[0]
		if msg.Kind != string(model.NotificationAttendance) || msg.UserID != 3 || msg.EventID != 7 {
			t.Errorf("unexpected message %+v", msg)
		}
	})

	t.Run("malformed token touches nothing", func(t *testing.T) {
		pub := &fakePublisher{}
		r := attendanceFixture()
		recorded := false
		r.recordAttendance = func(_ context.Context, userID, eventID int64) (*model.Attendance, error) {
			recorded = true
			return &model.Attendance{UserID: userID, EventID: eventID, Time: time.Now()}, nil
		}
		svc := newTestService(r, pub)

		if _, err := svc.recordAttendance(context.Background(), "userId:abc,eventId:7", owner); !errors.Is(err, checkin.ErrInvalidToken) {
			t.Fatalf("got %v, want ErrInvalidToken", err)
		}
		if recorded || len(pub.messages) != 0 {
			t.Error("malformed token must not write or notify")
		}
	})

	t.Run("foreign event admin is denied", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := newTestService(attendanceFixture(), pub)

		stranger := auth.Principal{ID: 99, Role: auth.RoleEventAdmin}
		if _, err := svc.recordAttendance(context.Background(), validToken, stranger); !errors.Is(err, errForbidden) {
			t.Fatalf("got %v, want errForbidden", err)
		}
		if len(pub.messages) != 0 {
			t.Error("denied scan must not notify")
		}
	})

	t.Run("super admin bypasses ownership", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := newTestService(attendanceFixture(), pub)

		root := auth.Principal{ID: 99, Role: auth.RoleSuperAdmin}
		if _, err := svc.recordAttendance(context.Background(), validToken, root); err != nil {
			t.Fatalf("super admin denied: %v", err)
		}
	})

	t.Run("unregistered user is rejected", func(t *testing.T) {
		pub := &fakePublisher{}
		r := attendanceFixture()
		r.hasRegistration = func(_ context.Context, _, _ int64) (bool, error) { return false, nil }
		svc := newTestService(r, pub)

		if _, err := svc.recordAttendance(context.Background(), validToken, owner); !errors.Is(err, repo.ErrNotRegistered) {
			t.Fatalf("got %v, want ErrNotRegistered", err)
		}
	})

	t.Run("duplicate scan returns the user for the conflict message", func(t *testing.T) {
		pub := &fakePublisher{}
		r := attendanceFixture()
		r.recordAttendance = func(_ context.Context, _, _ int64) (*model.Attendance, error) {
			return nil, repo.ErrDuplicateAttendance
		}
		svc := newTestService(r, pub)

		user, err := svc.recordAttendance(context.Background(), validToken, owner)
		if !errors.Is(err, repo.ErrDuplicateAttendance) {
			t.Fatalf("got %v, want ErrDuplicateAttendance", err)
		}
		if user == nil || user.Name != "Alice" {
			t.Errorf("duplicate must still name the user, got %+v", user)
		}
		if len(pub.messages) != 0 {
			t.Error("duplicate scan must not notify again")
		}
	})

	t.Run("unknown event rejected", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := newTestService(attendanceFixture(), pub)

		if _, err := svc.recordAttendance(context.Background(), "userId:3,eventId:404", owner); !errors.Is(err, repo.ErrEventNotFound) {
			t.Fatalf("got %v, want ErrEventNotFound", err)
		}
	})
}

func TestRegisterUser(t *testing.T) {
	t.Run("success queues registration notification", func(t *testing.T) {
		pub := &fakePublisher{}
		r := &fakeRepo{
			registerUser: func(_ context.Context, p repo.RegisterUserParams) (*model.Registration, bool, error) {
				if p.EventCode != "AB12CD" || p.Email != "alice@example.com" {
					t.Errorf("unexpected params %+v", p)
				}
				// The stored hash a transaction would see must verify
				// against the submitted password.
				if !p.VerifyPassword(p.PasswordHash) {
					t.Error("VerifyPassword rejected the freshly hashed password")
				}
				return &model.Registration{ID: 1, UserID: 3, EventID: 7}, true, nil
			},
		}
		svc := newTestService(r, pub)

		userID, eventID, err := svc.registerUser(context.Background(), "Alice", "alice@example.com", "s3cretpw", "AB12CD")
		if err != nil {
			t.Fatalf("registerUser failed: %v", err)
		}
		if userID != 3 || eventID != 7 {
			t.Errorf("got ids (%d,%d)", userID, eventID)
		}
		if len(pub.messages) != 1 || pub.messages[0].Kind != string(model.NotificationRegistration) {
			t.Errorf("expected one registration message, got %+v", pub.messages)
		}
	})

	t.Run("existing account with other password", func(t *testing.T) {
		pub := &fakePublisher{}
		stored, err := bcrypt.GenerateFromPassword([]byte("different"), bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		r := &fakeRepo{
			registerUser: func(_ context.Context, p repo.RegisterUserParams) (*model.Registration, bool, error) {
				if p.VerifyPassword(string(stored)) {
					t.Error("VerifyPassword accepted a mismatched hash")
				}
				return nil, false, repo.ErrWrongPassword
			},
		}
		svc := newTestService(r, pub)

		if _, _, err := svc.registerUser(context.Background(), "Alice", "alice@example.com", "s3cretpw", "AB12CD"); !errors.Is(err, repo.ErrWrongPassword) {
			t.Fatalf("got %v, want ErrWrongPassword", err)
		}
		if len(pub.messages) != 0 {
			t.Error("failed registration must not notify")
		}
	})

	t.Run("duplicate registration does not notify", func(t *testing.T) {
		pub := &fakePublisher{}
		r := &fakeRepo{
			registerUser: func(_ context.Context, _ repo.RegisterUserParams) (*model.Registration, bool, error) {
				return nil, false, repo.ErrDuplicateRegistration
			},
		}
		svc := newTestService(r, pub)

		if _, _, err := svc.registerUser(context.Background(), "Alice", "alice@example.com", "s3cretpw", "AB12CD"); !errors.Is(err, repo.ErrDuplicateRegistration) {
			t.Fatalf("got %v, want ErrDuplicateRegistration", err)
		}
		if len(pub.messages) != 0 {
			t.Error("failed registration must not notify")
		}
	})
}

func TestRemindUnattended(t *testing.T) {
	event := &model.Event{ID: 7, Purpose: "Go Meetup", AdminID: 2}
	unattended := []model.User{
		{ID: 3, Name: "Alice", Email: "alice@example.com"},
		{ID: 4, Name: "Bob", Email: "bob@example.com"},
	}
	r := &fakeRepo{
		getEventByID: func(_ context.Context, id int64) (*model.Event, error) {
			if id != 7 {
				return nil, repo.ErrEventNotFound
			}
			return event, nil
		},
		listUnattended: func(_ context.Context, eventID int64) ([]model.User, error) {
			return unattended, nil
		},
	}

	t.Run("owner queues one reminder per unattended user", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := newTestService(r, pub)

		queued, err := svc.remindUnattended(context.Background(), 7, auth.Principal{ID: 2, Role: auth.RoleEventAdmin})
		if err != nil {
			t.Fatalf("remindUnattended failed: %v", err)
		}
		if queued != 2 {
			t.Errorf("queued = %d, want 2", queued)
		}
		if len(pub.messages) != 2 {
			t.Fatalf("published %d messages, want 2", len(pub.messages))
		}
		seen := map[int64]bool{}
		for _, msg := range pub.messages {
			if msg.Kind != string(model.NotificationReminder) || msg.EventID != 7 {
				t.Errorf("unexpected message %+v", msg)
			}
			seen[msg.UserID] = true
		}
		if !seen[3] || !seen[4] {
			t.Errorf("reminders missed a user: %+v", pub.messages)
		}
	})

	t.Run("foreign admin denied", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := newTestService(r, pub)

		if _, err := svc.remindUnattended(context.Background(), 7, auth.Principal{ID: 5, Role: auth.RoleEventAdmin}); !errors.Is(err, errForbidden) {
			t.Fatalf("got %v, want errForbidden", err)
		}
		if len(pub.messages) != 0 {
			t.Error("denied remind must not publish")
		}
	})
}

func TestResendNotification(t *testing.T) {
	logRow := &model.NotificationLog{ID: 11, UserID: 3, EventID: 7, Type: model.NotificationAttendance, Status: model.NotificationFailed}
	mkRepo := func() *fakeRepo {
		r := attendanceFixture()
		r.getNotification = func(_ context.Context, id int64) (*model.NotificationLog, int64, error) {
			if id != 11 {
				return nil, 0, repo.ErrNotificationNotFound
			}
			return logRow, 2, nil
		}
		return r
	}

	t.Run("owner resend appends a fresh row", func(t *testing.T) {
		r := mkRepo()
		var appended []model.NotificationLog
		r.appendNotification = func(_ context.Context, l *model.NotificationLog) error {
			appended = append(appended, *l)
			return nil
		}
		svc := newTestService(r, &fakePublisher{})

		status, err := svc.resendNotification(context.Background(), 11, auth.Principal{ID: 2, Role: auth.RoleEventAdmin})
		if err != nil {
			t.Fatalf("resendNotification failed: %v", err)
		}
		if status != model.NotificationSent {
			t.Errorf("status = %q, want sent", status)
		}
		if len(appended) != 1 {
			t.Fatalf("appended %d rows, want 1", len(appended))
		}
		row := appended[0]
		if row.ID != 0 || row.Type != model.NotificationAttendance || row.Status != model.NotificationSent {
			t.Errorf("resend must append a new row, got %+v", row)
		}
	})

	t.Run("foreign admin denied", func(t *testing.T) {
		svc := newTestService(mkRepo(), &fakePublisher{})

		if _, err := svc.resendNotification(context.Background(), 11, auth.Principal{ID: 5, Role: auth.RoleEventAdmin}); !errors.Is(err, errForbidden) {
			t.Fatalf("got %v, want errForbidden", err)
		}
	})

	t.Run("unknown log row", func(t *testing.T) {
		svc := newTestService(mkRepo(), &fakePublisher{})

		if _, err := svc.resendNotification(context.Background(), 404, auth.Principal{ID: 2, Role: auth.RoleEventAdmin}); !errors.Is(err, repo.ErrNotificationNotFound) {
			t.Fatalf("got %v, want ErrNotificationNotFound", err)
		}
	})
}

func TestImportRows(t *testing.T) {
	known := map[string]int64{
		"alice@example.com": 3,
		"bob@example.com":   4,
	}
	r := &fakeRepo{
		getUserByEmail: func(_ context.Context, email string) (*model.User, error) {
			id, ok := known[email]
			if !ok {
				return nil, repo.ErrUserNotFound
			}
			return &model.User{ID: id, Email: email}, nil
		},
		getEventByCode: func(_ context.Context, code string) (*model.Event, error) {
			if code != "AB12CD" {
				return nil, repo.ErrEventNotFound
			}
			return &model.Event{ID: 7, Purpose: "Go Meetup", EventCode: code}, nil
		},
		addRegistration: func(_ context.Context, userID, eventID int64) error {
			if userID == 4 {
				return repo.ErrDuplicateRegistration
			}
			return nil
		},
	}
	pub := &fakePublisher{}
	svc := newTestService(r, pub)

	resp := svc.importRows(context.Background(), []dto.ImportRow{
		{Email: "alice@example.com", EventCode: "AB12CD"},
		{Email: "nobody@example.com", EventCode: "AB12CD"},
		{Email: "bob@example.com", EventCode: "AB12CD"},
		{Email: "alice@example.com", EventCode: "ZZ99ZZ"},
		{Email: "", EventCode: "AB12CD"},
	})

	if resp.Imported != 1 {
		t.Errorf("imported = %d, want 1", resp.Imported)
	}
	if resp.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", resp.Skipped)
	}
	if len(resp.Errors) != 3 {
		t.Fatalf("got %d row errors, want 3: %+v", len(resp.Errors), resp.Errors)
	}
	// Each failure names the row it came from and the batch kept going.
	wantRows := []int{2, 4, 5}
	for i, re := range resp.Errors {
		if re.Row != wantRows[i] {
			t.Errorf("error %d reported row %d, want %d", i, re.Row, wantRows[i])
		}
	}
	if len(pub.messages) != 0 {
		t.Error("import must not publish notifications")
	}
}

func TestListAdmins(t *testing.T) {
	r := &fakeRepo{
		listAdmins: func(_ context.Context) ([]model.Admin, error) {
			return []model.Admin{
				{ID: 1, Name: "Root", Email: "root@attendly.io", Role: "super_admin"},
				{ID: 2, Name: "Eve", Email: "eve@attendly.io", Role: "event_admin"},
			}, nil
		},
	}
	svc := newTestService(r, &fakePublisher{})

	t.Run("super admin sees everyone", func(t *testing.T) {
		admins, err := svc.listAdmins(context.Background(), auth.Principal{ID: 1, Role: auth.RoleSuperAdmin})
		if err != nil {
			t.Fatalf("listAdmins failed: %v", err)
		}
		if len(admins) != 2 || admins[1].Email != "eve@attendly.io" {
			t.Errorf("unexpected listing %+v", admins)
		}
	})

	t.Run("event admin denied", func(t *testing.T) {
		if _, err := svc.listAdmins(context.Background(), auth.Principal{ID: 2, Role: auth.RoleEventAdmin}); !errors.Is(err, errForbidden) {
			t.Fatalf("got %v, want errForbidden", err)
		}
	})
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(attendanceFixture(), pub)

	// The scan already committed; a dead broker must not turn it into an error.
	if _, err := svc.recordAttendance(context.Background(), validToken, auth.Principal{ID: 2, Role: auth.RoleEventAdmin}); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
}
