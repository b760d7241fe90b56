package service

import (
	"context"
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"attendly/internal/auth"
	"attendly/internal/dto"
	"attendly/internal/model"
)

func (s *service) ListNotifications(ctx *ginext.Context) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		dto.ForbiddenError(ctx)
		return
	}

	logs, err := s.repo.ListNotificationsForAdmin(ctx.Request.Context(), p.ID, p.Role == auth.RoleSuperAdmin)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list notification logs")
		dto.InternalServerError(ctx)
		return
	}
	if logs == nil {
		logs = []model.NotificationLogView{}
	}
	dto.SuccessResponse(ctx, logs)
}

// resendNotification re-derives the mail content from the logged type and
// the current user/event records, sends synchronously, and appends a
// fresh log row. The original row is never mutated.
func (s *service) resendNotification(ctx context.Context, logID int64, p auth.Principal) (model.NotificationStatus, error) {
	logRow, ownerID, err := s.repo.GetNotificationWithOwner(ctx, logID)
	if err != nil {
		return "", err
	}
	if !p.CanManageEvent(ownerID) {
		return "", errForbidden
	}

	user, err := s.repo.GetUserByID(ctx, logRow.UserID)
	if err != nil {
		return "", err
	}
	event, err := s.repo.GetEventByID(ctx, logRow.EventID)
	if err != nil {
		return "", err
	}

	return s.dispatcher.Dispatch(ctx, logRow.Type, user, event), nil
}

func (s *service) ResendNotification(ctx *ginext.Context) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		dto.ForbiddenError(ctx)
		return
	}

	logID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid notification ID")
		return
	}

	status, err := s.resendNotification(ctx.Request.Context(), logID, p)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, map[string]string{"status": string(status)})
}

// remindUnattended queues one reminder per registered user without an
// attendance row. Sends run concurrently in the worker with no ordering
// guarantee; individual failures surface only in the notification log.
func (s *service) remindUnattended(ctx context.Context, eventID int64, p auth.Principal) (int, error) {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if !p.CanManageEvent(event.AdminID) {
		return 0, errForbidden
	}

	users, err := s.repo.ListUnattendedUsers(ctx, eventID)
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		s.publishNotification(model.NotificationReminder, u.ID, eventID)
	}
	return len(users), nil
}

func (s *service) RemindUnattended(ctx *ginext.Context) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		dto.ForbiddenError(ctx)
		return
	}

	eventID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	queued, err := s.remindUnattended(ctx.Request.Context(), eventID, p)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	s.log.Info().Int64("event_id", eventID).Int("queued", queued).Msg("reminders queued")
	dto.SuccessResponse(ctx, dto.RemindResponse{Queued: queued})
}
