package dto

import (
	"time"

	"github.com/spec-kit/diet-tracker/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest payload for new users.
type RegisterRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=50"`
	LastName    string `json:"last_name" validate:"omitempty,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,password"`
	Gender      string `json:"gender" validate:"omitempty,gender"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=20"`
}

// ActivateRequest confirms an account with the mailed code.
type ActivateRequest struct {
	ActivationToken string `json:"activation_token" validate:"required"`
	ActivationCode  string `json:"activation_code" validate:"required,len=4,numeric"`
}

// ResendActivationRequest asks for a new activation code.
type ResendActivationRequest struct {
	ActivationToken string `json:"activation_token" validate:"required"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token" validate:"required"`
	Code        string `json:"code" validate:"required,len=4,numeric"`
	NewPassword string `json:"new_password" validate:"required,password"`
}

// UpdateProfileRequest is a partial profile patch. Absent fields stay as stored.
type UpdateProfileRequest struct {
	FirstName      *string                    `json:"first_name" validate:"omitnil,min=1,max=50"`
	LastName       *string                    `json:"last_name" validate:"omitempty,max=50"`
	PhoneNumber    *string                    `json:"phone_number" validate:"omitempty,max=20"`
	Gender         *string                    `json:"gender" validate:"omitempty,gender"`
	Health         *domain.HealthDetails      `json:"health_details"`
	Diet           *domain.DietaryPreferences `json:"dietary_preferences"`
	Customizations *domain.Customizations     `json:"customizations"`
	OldPassword    string                     `json:"old_password" validate:"required_with=NewPassword"`
	NewPassword    string                     `json:"new_password" validate:"omitempty,password"`
}

// SessionResponse is returned by login and refresh. Tokens also travel as cookies.
type SessionResponse struct {
	User                  *domain.Session `json:"user"`
	AccessToken           string          `json:"access_token"`
	AccessTokenExpiresAt  time.Time       `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time       `json:"refresh_token_expires_at"`
}

// ActivationResponse carries the token the activation code is bound to.
type ActivationResponse struct {
	ActivationToken string    `json:"activation_token"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// ResetTokenResponse carries the token the reset code is bound to.
type ResetTokenResponse struct {
	ResetToken string `json:"reset_token"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
