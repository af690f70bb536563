package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/migratemate/cancellation-flow/internal/config"
	"github.com/migratemate/cancellation-flow/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCancellationStarted, n.handleCancellationStarted)
	n.dispatcher.Subscribe(events.EventCancellationUpdated, n.handleCancellationUpdated)
	n.dispatcher.Subscribe(events.EventDownsellResponded, n.handleDownsellResponded)
	n.dispatcher.Subscribe(events.EventSubscriptionStatusChanged, n.handleSubscriptionStatusChanged)
}

func (n *NotificationService) handleCancellationStarted(ctx context.Context, event events.Event) error {
	n.logger.Info("CancellationStarted", eventFields(event)...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCancellationUpdated(ctx context.Context, event events.Event) error {
	n.logger.Debug("CancellationUpdated", eventFields(event)...)
	return nil
}

func (n *NotificationService) handleDownsellResponded(ctx context.Context, event events.Event) error {
	n.logger.Info("DownsellResponded", eventFields(event)...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// Pending cancellation is the one event the account holder hears about.
func (n *NotificationService) handleSubscriptionStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("SubscriptionStatusChanged", eventFields(event)...)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("user_id", event.UserID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("cancellation_id", event.CancellationID),
		zap.String("event_type", string(event.Type)))
}

func eventFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.String("cancellation_id", event.CancellationID),
		zap.String("subscription_id", event.SubscriptionID),
		zap.Any("payload", event.Payload),
	}
}
