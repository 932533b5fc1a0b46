package domain

import (
	"errors"
	"time"
)

// Identity is the opaque user identifier used as token subject and cache key.
type Identity string

func (i Identity) String() string {
	return string(i)
}

// Session is the authoritative user snapshot stored in the session cache.
// It is always written whole.
type Session struct {
	ID             Identity           `json:"id"`
	FirstName      string             `json:"first_name"`
	LastName       string             `json:"last_name"`
	Email          string             `json:"email"`
	Gender         Gender             `json:"gender,omitempty"`
	PhoneNumber    string             `json:"phone_number,omitempty"`
	IsVerified     bool               `json:"is_verified"`
	Health         HealthDetails      `json:"health_details"`
	Diet           DietaryPreferences `json:"dietary_preferences"`
	Customizations Customizations     `json:"customizations"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Validate enforces the fields every cache entry must carry.
func (s *Session) Validate() error {
	if s == nil {
		return errors.New("session snapshot is nil")
	}
	if s.ID == "" {
		return errors.New("session snapshot has no identity")
	}
	if s.Email == "" {
		return errors.New("session snapshot has no email")
	}
	return nil
}

// TokenPair is what login and refresh hand back to the caller.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
