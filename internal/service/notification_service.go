package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/cs-ops-service/internal/config"
	"github.com/spec-kit/cs-ops-service/internal/events"
)

// NotificationService turns domain events into outbound notifications. The
// grace-period handler sends only the lightweight notice; the full downgrade
// playbook is reserved for segment changes with no active grace window.
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
	n.dispatcher.Subscribe(events.EventSegmentChanged, n.handleSegmentChanged)
	n.dispatcher.Subscribe(events.EventGracePeriodStarted, n.handleGracePeriodStarted)
	n.dispatcher.Subscribe(events.EventCycleAssigned, n.handleCycleAssigned)
	n.dispatcher.Subscribe(events.EventCycleCompleted, n.handleCycleCompleted)
	n.dispatcher.Subscribe(events.EventCycleCancelled, n.handleCycleCancelled)
}

func (n *NotificationService) handleSegmentChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SegmentChangedPayload)
	if ok && payload.GraceActive {
		// Downgrade inside an active grace window: the playbook waits.
		n.logger.Info("SegmentChanged (grace active, playbook deferred)",
			zap.String("customer_id", event.CustomerID), zap.Any("payload", event.Payload))
		return nil
	}
	n.logger.Info("SegmentChanged", zap.String("customer_id", event.CustomerID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleGracePeriodStarted(ctx context.Context, event events.Event) error {
	n.logger.Info("GracePeriodStarted", zap.String("customer_id", event.CustomerID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCycleAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("CycleAssigned", zap.String("customer_id", event.CustomerID), zap.String("cycle_id", event.CycleID))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCycleCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("CycleCompleted", zap.String("customer_id", event.CustomerID), zap.String("cycle_id", event.CycleID))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCycleCancelled(ctx context.Context, event events.Event) error {
	n.logger.Info("CycleCancelled", zap.String("customer_id", event.CustomerID), zap.String("cycle_id", event.CycleID))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("customer_id", event.CustomerID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("customer_id", event.CustomerID),
		zap.String("event_type", string(event.Type)))
}
