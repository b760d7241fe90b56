package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/wb-go/wbf/ginext"
	"golang.org/x/crypto/bcrypt"

	"attendly/internal/auth"
	"attendly/internal/dto"
	"attendly/internal/model"
	"attendly/pkg/validator"
)

// passwordProblems lists why a password fails the admin strength policy.
// Empty result means the password is acceptable.
func passwordProblems(pw string) []string {
	var problems []string
	if len(pw) < 8 {
		problems = append(problems, "be at least 8 characters long")
	}
	if !strings.ContainsFunc(pw, unicode.IsUpper) {
		problems = append(problems, "contain an uppercase letter")
	}
	if !strings.ContainsFunc(pw, unicode.IsLower) {
		problems = append(problems, "contain a lowercase letter")
	}
	if !strings.ContainsFunc(pw, unicode.IsDigit) {
		problems = append(problems, "contain at least one number")
	}
	if strings.ContainsFunc(pw, unicode.IsSpace) {
		problems = append(problems, "not contain spaces")
	}
	return problems
}

func (s *service) RegisterAdmin(ctx *ginext.Context) {
	var req dto.RegisterAdminRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	if problems := passwordProblems(req.Password); len(problems) > 0 {
		dto.BadResponseError(ctx, dto.FieldIncorrect,
			"Password is not strong enough. It must: "+strings.Join(problems, ", "))
		return
	}

	role := auth.RoleEventAdmin
	if req.Role != "" {
		parsed, err := auth.ParseRole(req.Role)
		if err != nil || parsed == auth.RoleUser {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid admin role")
			return
		}
		role = parsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to hash admin password")
		dto.InternalServerError(ctx)
		return
	}

	admin := &model.Admin{
		Name:        req.Name,
		Email:       req.Email,
		Password:    string(hash),
		Institution: req.Institution,
		Role:        role.String(),
	}
	id, err := s.repo.CreateAdmin(ctx.Request.Context(), admin)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	s.log.Info().Int64("admin_id", id).Str("role", admin.Role).Msg("admin registered")
	dto.SuccessCreatedResponse(ctx, dto.AdminResponse{
		ID:          id,
		Name:        admin.Name,
		Email:       admin.Email,
		Institution: admin.Institution,
		Role:        admin.Role,
	})
}

func (s *service) LoginAdmin(ctx *ginext.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	admin, err := s.repo.GetAdminByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		// Generic message: no account enumeration.
		dto.UnauthenticatedError(ctx, "Invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)) != nil {
		dto.UnauthenticatedError(ctx, "Invalid credentials")
		return
	}

	role, err := auth.ParseRole(admin.Role)
	if err != nil {
		s.log.Error().Str("role", admin.Role).Msg("admin has unknown role")
		dto.InternalServerError(ctx)
		return
	}

	token, err := auth.IssueToken(s.cfg.JWTSecret, s.cfg.JWTTTL, auth.Principal{ID: admin.ID, Role: role})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue admin token")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, dto.LoginResponse{Token: token, Role: role.String()})
}

// listAdmins is the account overview; only a super admin may see it.
func (s *service) listAdmins(ctx context.Context, p auth.Principal) ([]dto.AdminResponse, error) {
	if p.Role != auth.RoleSuperAdmin {
		return nil, errForbidden
	}

	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.AdminResponse, 0, len(admins))
	for _, a := range admins {
		resp = append(resp, dto.AdminResponse{
			ID:          a.ID,
			Name:        a.Name,
			Email:       a.Email,
			Institution: a.Institution,
			Role:        a.Role,
		})
	}
	return resp, nil
}

func (s *service) ListAdmins(ctx *ginext.Context) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		dto.ForbiddenError(ctx)
		return
	}

	admins, err := s.listAdmins(ctx.Request.Context(), p)
	if err != nil {
		s.respondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, admins)
}

func (s *service) GetAdminProfile(ctx *ginext.Context) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		dto.ForbiddenError(ctx)
		return
	}

	admin, err := s.repo.GetAdminByID(ctx.Request.Context(), p.ID)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, dto.AdminResponse{
		ID:          admin.ID,
		Name:        admin.Name,
		Email:       admin.Email,
		Institution: admin.Institution,
		Role:        admin.Role,
	})
}
