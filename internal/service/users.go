package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/ginext"
	"golang.org/x/crypto/bcrypt"

	"attendly/internal/auth"
	"attendly/internal/dto"
	"attendly/internal/model"
	"attendly/internal/repo"
	"attendly/pkg/validator"
)

// registerUser runs one self-registration: hash the password, execute the
// lookup-or-create + registration transaction, then queue the confirmation
// email. The notification is queued only after the transaction committed.
func (s *service) registerUser(ctx context.Context, name, email, password, code string) (int64, int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to hash password: %w", err)
	}

	reg, created, err := s.repo.RegisterUserTx(ctx, repo.RegisterUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		VerifyPassword: func(storedHash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
		},
		EventCode: code,
	})
	if err != nil {
		return 0, 0, err
	}

	s.log.Info().
		Int64("user_id", reg.UserID).
		Int64("event_id", reg.EventID).
		Bool("new_user", created).
		Msg("user registered for event")

	s.publishNotification(model.NotificationRegistration, reg.UserID, reg.EventID)
	return reg.UserID, reg.EventID, nil
}

func (s *service) RegisterUser(ctx *ginext.Context) {
	var req dto.RegisterUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	userID, eventID, err := s.registerUser(ctx.Request.Context(), req.Name, req.Email, req.Password, req.EventCode)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	dto.SuccessCreatedResponse(ctx, dto.RegisterUserResponse{
		UserID:  userID,
		EventID: eventID,
		Message: "Registration successful! You can now log in.",
	})
}

func (s *service) LoginUser(ctx *ginext.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	user, err := s.repo.GetUserByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		// Generic message: no account enumeration.
		dto.UnauthenticatedError(ctx, "Invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		dto.UnauthenticatedError(ctx, "Invalid credentials")
		return
	}

	token, err := auth.IssueToken(s.cfg.JWTSecret, s.cfg.JWTTTL, auth.Principal{ID: user.ID, Role: auth.RoleUser})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue user token")
		dto.InternalServerError(ctx)
		return
	}

	events, err := s.repo.ListEventsForUser(ctx.Request.Context(), user.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list user events")
		dto.InternalServerError(ctx)
		return
	}
	resp := dto.LoginResponse{Token: token, Role: auth.RoleUser.String()}
	for i := range events {
		resp.Events = append(resp.Events, eventResponse(&events[i]))
	}
	dto.SuccessResponse(ctx, resp)
}

// importRows links already-registered users to events, one row per
// (email, event code) pair. Users are never created here and no
// confirmation emails are sent; rows fail independently and a failed row
// never aborts the rest of the batch.
func (s *service) importRows(ctx context.Context, rows []dto.ImportRow) dto.ImportResponse {
	resp := dto.ImportResponse{}
	for i, row := range rows {
		rowNum := i + 1
		if row.Email == "" || row.EventCode == "" {
			resp.Errors = append(resp.Errors, dto.ImportRowError{Row: rowNum, Error: "email and event_code are required"})
			continue
		}

		user, err := s.repo.GetUserByEmail(ctx, row.Email)
		if err != nil {
			resp.Errors = append(resp.Errors, dto.ImportRowError{
				Row:   rowNum,
				Error: fmt.Sprintf("user with email %q not found, ask the user to register first", row.Email),
			})
			continue
		}
		event, err := s.repo.GetEventByCode(ctx, row.EventCode)
		if err != nil {
			resp.Errors = append(resp.Errors, dto.ImportRowError{
				Row:   rowNum,
				Error: fmt.Sprintf("event with code %q not found", row.EventCode),
			})
			continue
		}

		switch err := s.repo.AddRegistration(ctx, user.ID, event.ID); {
		case err == nil:
			resp.Imported++
		case errors.Is(err, repo.ErrDuplicateRegistration):
			resp.Skipped++
		default:
			resp.Errors = append(resp.Errors, dto.ImportRowError{Row: rowNum, Error: err.Error()})
		}
	}
	return resp
}

func (s *service) ImportRegistrations(ctx *ginext.Context) {
	var req dto.ImportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if len(req.Rows) == 0 {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "No rows to import")
		return
	}

	resp := s.importRows(ctx.Request.Context(), req.Rows)

	s.log.Info().
		Int("imported", resp.Imported).
		Int("skipped", resp.Skipped).
		Int("failed", len(resp.Errors)).
		Msg("import finished")
	dto.SuccessResponse(ctx, resp)
}
