package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/diet-tracker/internal/api/dto"
	"github.com/spec-kit/diet-tracker/internal/auth"
	"github.com/spec-kit/diet-tracker/internal/domain"
	"github.com/spec-kit/diet-tracker/internal/service"
	apperrors "github.com/spec-kit/diet-tracker/pkg/util"
)

// UsersHandler exposes the session lifecycle and account endpoints.
type UsersHandler struct {
	auth     *service.AuthService
	cookies  *auth.CookieWriter
	validate *dto.Validator
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, cookies *auth.CookieWriter, validate *dto.Validator) *UsersHandler {
	return &UsersHandler{auth: authService, cookies: cookies, validate: validate}
}

// Login handles POST /login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	grant, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.cookies.SetTokens(c, grant.Tokens)
	return c.JSON(fiber.Map{"data": sessionResponse(grant)})
}

// RefreshToken handles GET /refresh-token. Terminal failures also clear the
// token cookies.
func (h *UsersHandler) RefreshToken(c *fiber.Ctx) error {
	grant, err := h.auth.Refresh(c.UserContext(), c.Cookies(auth.RefreshTokenCookie))
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeRefreshFailed) {
			h.cookies.Clear(c)
		}
		return err
	}
	h.cookies.SetTokens(c, grant.Tokens)
	return c.JSON(fiber.Map{"data": sessionResponse(grant)})
}

// Logout handles GET /logout. It always succeeds.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	h.cookies.Clear(c)
	h.auth.Logout(c.UserContext(), auth.AccessTokenFromRequest(c), c.Cookies(auth.RefreshTokenCookie))
	return c.JSON(fiber.Map{"data": dto.MessageResponse{Message: "logged out successfully"}})
}

// GetUser handles GET /get-user and returns the cached snapshot.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	snapshot, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("no session on request")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": snapshot}})
}

// Register handles POST /register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	reg, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		Gender:      domain.Gender(req.Gender),
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.ActivationResponse{ActivationToken: reg.ActivationToken, ExpiresAt: reg.ExpiresAt},
	})
}

// ResendActivation handles POST /resend-activation.
func (h *UsersHandler) ResendActivation(c *fiber.Ctx) error {
	var req dto.ResendActivationRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	reg, err := h.auth.ResendActivation(c.UserContext(), req.ActivationToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.ActivationResponse{ActivationToken: reg.ActivationToken, ExpiresAt: reg.ExpiresAt},
	})
}

// Activate handles POST /account-activate.
func (h *UsersHandler) Activate(c *fiber.Ctx) error {
	var req dto.ActivateRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	if _, err := h.auth.Activate(c.UserContext(), req.ActivationToken, req.ActivationCode); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MessageResponse{Message: "account activated successfully"}})
}

// ForgotPassword handles POST /forgot-password.
func (h *UsersHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	token, err := h.auth.ForgotPassword(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ResetTokenResponse{ResetToken: token}})
}

// ResetPassword handles POST /reset-password.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.ResetPassword(c.UserContext(), req.ResetToken, req.Code, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MessageResponse{Message: "password has been reset successfully"}})
}

// UpdateProfile handles PUT /update-profile.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	current, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("no session on request")
	}

	var req dto.UpdateProfileRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	patch := service.ProfileUpdate{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PhoneNumber:    req.PhoneNumber,
		Health:         req.Health,
		Diet:           req.Diet,
		Customizations: req.Customizations,
		OldPassword:    req.OldPassword,
		NewPassword:    req.NewPassword,
	}
	if req.Gender != nil {
		g := domain.Gender(*req.Gender)
		patch.Gender = &g
	}

	snapshot, err := h.auth.UpdateProfile(c.UserContext(), current.ID, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": snapshot}})
}

func (h *UsersHandler) bind(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.validate.Struct(req)
}

func sessionResponse(grant *service.SessionGrant) dto.SessionResponse {
	return dto.SessionResponse{
		User:                  grant.Session,
		AccessToken:           grant.Tokens.AccessToken,
		AccessTokenExpiresAt:  grant.Tokens.AccessExpiresAt,
		RefreshTokenExpiresAt: grant.Tokens.RefreshExpiresAt,
	}
}
