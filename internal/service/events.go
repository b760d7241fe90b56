package service

import (
	"fmt"
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"attendly/internal/auth"
	"attendly/internal/dto"
	"attendly/internal/model"
	"attendly/pkg/eventcode"
	"attendly/pkg/qr"
	"attendly/pkg/validator"
)

func (s *service) CreateEvent(ctx *ginext.Context) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		dto.ForbiddenError(ctx)
		return
	}

	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create event request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event := &model.Event{
		Purpose:   req.Purpose,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Location:  req.Location,
		AdminID:   p.ID,
	}

	created, link, err := s.repo.CreateEventTx(ctx.Request.Context(), event, func(code string) (string, string, error) {
		regLink := eventcode.BuildRegistrationLink(s.cfg.FrontendURL, code)
		qrImage, err := qr.DataURI(regLink)
		if err != nil {
			return "", "", err
		}
		return regLink, qrImage, nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create event")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().
		Int64("event_id", created.ID).
		Str("event_code", created.EventCode).
		Msg("event created successfully")

	resp := eventResponse(created)
	resp.RegistrationLink = link.RegistrationLink
	resp.QRCode = link.QRCode
	dto.SuccessCreatedResponse(ctx, resp)
}

func (s *service) ListEvents(ctx *ginext.Context) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		dto.ForbiddenError(ctx)
		return
	}

	events, err := s.repo.ListEventsForAdmin(ctx.Request.Context(), p.ID, p.Role == auth.RoleSuperAdmin)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list events")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, eventResponse(&events[i]))
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetEvent(ctx *ginext.Context) {
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

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		s.respondError(ctx, err)
		return
	}
	if !p.CanManageEvent(event.AdminID) {
		dto.ForbiddenError(ctx)
		return
	}

	users, err := s.repo.ListRegisteredUsers(ctx.Request.Context(), eventID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list registered users")
		dto.InternalServerError(ctx)
		return
	}

	resp := dto.EventDetailResponse{
		EventResponse: eventResponse(event),
		Users:         make([]dto.UserResponse, 0, len(users)),
	}
	if link, err := s.repo.GetRegistrationLink(ctx.Request.Context(), eventID); err == nil {
		resp.RegistrationLink = link.RegistrationLink
		resp.QRCode = link.QRCode
	}
	for _, u := range users {
		resp.Users = append(resp.Users, dto.UserResponse{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	dto.SuccessResponse(ctx, resp)
}

// GetEventByCode is the unauthenticated projection backing the
// self-registration form.
func (s *service) GetEventByCode(ctx *ginext.Context) {
	code := ctx.Param("eventCode")
	if !eventcode.Valid(code) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event code")
		return
	}

	event, err := s.repo.GetEventByCode(ctx.Request.Context(), code)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, dto.PublicEventResponse{
		Purpose:   event.Purpose,
		StartDate: event.StartDate,
		EndDate:   event.EndDate,
		Location:  event.Location,
	})
}

func (s *service) UpdateEvent(ctx *ginext.Context) {
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

	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		s.respondError(ctx, err)
		return
	}
	if !p.CanManageEvent(event.AdminID) {
		dto.ForbiddenError(ctx)
		return
	}

	event.Purpose = req.Purpose
	event.StartDate = req.StartDate
	event.EndDate = req.EndDate
	event.StartTime = req.StartTime
	event.EndTime = req.EndTime
	event.Location = req.Location

	if err := s.repo.UpdateEvent(ctx.Request.Context(), event); err != nil {
		s.respondError(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, eventResponse(event))
}

func (s *service) DeleteEvent(ctx *ginext.Context) {
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

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		s.respondError(ctx, err)
		return
	}
	if !p.CanManageEvent(event.AdminID) {
		dto.ForbiddenError(ctx)
		return
	}

	if err := s.repo.DeleteEvent(ctx.Request.Context(), eventID); err != nil {
		s.respondError(ctx, err)
		return
	}

	s.log.Info().Int64("event_id", eventID).Msg("event deleted")
	dto.SuccessResponse(ctx, nil)
}

// RegenerateQR re-renders the registration link artifact for an event.
// The event code is immutable; only the stored link and image change.
func (s *service) RegenerateQR(ctx *ginext.Context) {
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

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		s.respondError(ctx, err)
		return
	}
	if !p.CanManageEvent(event.AdminID) {
		dto.ForbiddenError(ctx)
		return
	}

	regLink := eventcode.BuildRegistrationLink(s.cfg.FrontendURL, event.EventCode)
	qrImage, err := qr.DataURI(regLink)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to render QR code")
		dto.InternalServerError(ctx)
		return
	}

	if err := s.repo.ReplaceRegistrationLinkTx(ctx.Request.Context(), eventID, regLink, qrImage); err != nil {
		s.respondError(ctx, err)
		return
	}

	resp := eventResponse(event)
	resp.RegistrationLink = regLink
	resp.QRCode = qrImage
	dto.SuccessResponse(ctx, resp)
}
