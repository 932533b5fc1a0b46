package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/diet-tracker/internal/events"
)

// NotificationService stands in for mail delivery of account events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	logCodes   bool
}

// NotificationOption customizes a NotificationService.
type NotificationOption func(*NotificationService)

// WithCodeLogging writes activation and reset codes into the mail stub log
// line. Only for non-production deployments, where no mail is delivered.
func WithCodeLogging(enabled bool) NotificationOption {
	return func(n *NotificationService) { n.logCodes = enabled }
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, opts ...NotificationOption) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("component", "notifications")),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccountRegistered, n.handleAccountRegistered)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventSessionRevoked, n.handleSessionRevoked)
}

func (n *NotificationService) handleAccountRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountRegisteredPayload)
	if !ok {
		return nil
	}
	n.sendEmailNotificationStub(ctx, event, payload.Email, "activation-mail", payload.ActivationCode)
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return nil
	}
	n.sendEmailNotificationStub(ctx, event, payload.Email, "forgot-password", payload.Code)
	return nil
}

func (n *NotificationService) handleSessionRevoked(ctx context.Context, event events.Event) error {
	n.logger.Info("SessionRevoked", zap.String("identity", event.Identity.String()), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event, to, template, code string) {
	fields := []zap.Field{
		zap.String("to", to),
		zap.String("template", template),
		zap.String("identity", event.Identity.String()),
		zap.String("event_type", string(event.Type)),
	}
	if n.logCodes {
		fields = append(fields, zap.String("code", code))
	}
	n.logger.Info("sendEmailNotificationStub", fields...)
}
