package events

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/diet-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionLogin           EventType = "session.login"
	EventSessionRefresh         EventType = "session.refresh"
	EventSessionLogout          EventType = "session.logout"
	EventSessionRevoked         EventType = "session.revoked"
	EventAccountRegistered      EventType = "account.registered"
	EventPasswordResetRequested EventType = "password.reset_requested"
)

// SessionEventTypes lists the session lifecycle events.
var SessionEventTypes = []EventType{
	EventSessionLogin,
	EventSessionRefresh,
	EventSessionLogout,
	EventSessionRevoked,
}

// IsSession reports whether the event belongs to the session lifecycle.
func (t EventType) IsSession() bool {
	return strings.HasPrefix(string(t), "session.")
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Identity  domain.Identity `json:"identity"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, id domain.Identity, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Identity:  id,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// SessionPayload accompanies session.* events.
type SessionPayload struct {
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// AccountRegisteredPayload carries what the activation mail needs.
type AccountRegisteredPayload struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	ActivationCode string `json:"-"`
}

// PasswordResetRequestedPayload carries what the reset mail needs.
type PasswordResetRequestedPayload struct {
	Email string `json:"email"`
	Code  string `json:"-"`
}
