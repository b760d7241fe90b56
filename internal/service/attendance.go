package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/ginext"

	"attendly/internal/auth"
	"attendly/internal/dto"
	"attendly/internal/model"
	"attendly/internal/repo"
	"attendly/pkg/checkin"
	"attendly/pkg/validator"
)

// recordAttendance is the check-in state transition: decode the scanned
// token, validate event and user, enforce ownership, require a prior
// registration, then record exactly one attendance row. The confirmation
// email is queued only after the insert committed.
//
// On ErrDuplicateAttendance the user is still returned so the caller can
// name who was already checked in.
func (s *service) recordAttendance(ctx context.Context, qrData string, p auth.Principal) (*model.User, error) {
	token, err := checkin.Parse(qrData)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetEventByID(ctx, token.EventID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUserByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}

	if !p.CanManageEvent(event.AdminID) {
		return nil, errForbidden
	}

	registered, err := s.repo.HasRegistration(ctx, token.UserID, token.EventID)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, repo.ErrNotRegistered
	}

	att, err := s.repo.RecordAttendanceTx(ctx, token.UserID, token.EventID)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateAttendance) {
			return user, err
		}
		return nil, err
	}

	s.log.Info().
		Int64("user_id", att.UserID).
		Int64("event_id", att.EventID).
		Time("recorded_at", att.Time).
		Msg("attendance recorded")

	s.publishNotification(model.NotificationAttendance, token.UserID, token.EventID)
	return user, nil
}

func (s *service) Scan(ctx *ginext.Context) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		dto.ForbiddenError(ctx)
		return
	}

	var req dto.ScanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	user, err := s.recordAttendance(ctx.Request.Context(), req.QRData, p)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateAttendance) && user != nil {
			dto.ConflictError(ctx, dto.AttendanceDuplicate,
				fmt.Sprintf("Attendance already recorded for %s.", user.Name))
			return
		}
		s.respondError(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, dto.ScanResponse{
		UserName: user.Name,
		Message:  fmt.Sprintf("Attendance recorded for %s", user.Name),
	})
}

func (s *service) ListAttendance(ctx *ginext.Context) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		dto.ForbiddenError(ctx)
		return
	}

	records, err := s.repo.ListAttendanceForAdmin(ctx.Request.Context(), p.ID, p.Role == auth.RoleSuperAdmin)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list attendance")
		dto.InternalServerError(ctx)
		return
	}
	if records == nil {
		records = []model.AttendanceView{}
	}
	dto.SuccessResponse(ctx, records)
}
