package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mediserve/internal/entities"
	"mediserve/internal/events"
	"mediserve/internal/repositories"
	"mediserve/pkg/eventbus"
)

// NotificationService listens on the event bus and persists one
// notification row per interested organization. Delivery to email or
// messaging channels is a separate consumer of that table.
type NotificationService struct {
	repo   repositories.NotificationRepositoryInterface
	logger *zap.Logger
}

func NewNotificationService(repo repositories.NotificationRepositoryInterface, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

func (s *NotificationService) SubscribeTo(bus *eventbus.Bus) {
	bus.Subscribe(events.RequestStatusChangedName, s.onRequestStatusChanged)
	bus.Subscribe(events.QuoteAcceptedName, s.onQuoteAccepted)
}

func (s *NotificationService) onRequestStatusChanged(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.RequestStatusChanged)
	if !ok {
		return fmt.Errorf("unexpected payload for %s: %T", event.Name(), event)
	}

	recipients := []int64{e.OrganizationID}
	if e.ProviderID != nil && *e.ProviderID != e.OrganizationID {
		recipients = append(recipients, *e.ProviderID)
	}
	for _, orgID := range recipients {
		n := &entities.Notification{
			OrganizationID: orgID,
			ResourceType:   entities.ResourceServiceRequest,
			ResourceID:     idString(e.RequestID),
			Action:         event.Name(),
			MessageVI:      fmt.Sprintf("Yêu cầu dịch vụ #%d chuyển từ %s sang %s", e.RequestID, e.From, e.To),
			MessageEN:      fmt.Sprintf("Service request #%d moved from %s to %s", e.RequestID, e.From, e.To),
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return fmt.Errorf("persisting status notification for org %d: %w", orgID, err)
		}
	}
	return nil
}

func (s *NotificationService) onQuoteAccepted(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.QuoteAccepted)
	if !ok {
		return fmt.Errorf("unexpected payload for %s: %T", event.Name(), event)
	}

	winner := &entities.Notification{
		OrganizationID: e.WinningProvider,
		ResourceType:   entities.ResourceQuote,
		ResourceID:     idString(e.QuoteID),
		Action:         event.Name(),
		MessageVI:      fmt.Sprintf("Báo giá #%d cho yêu cầu #%d đã được chấp nhận", e.QuoteID, e.ServiceRequestID),
		MessageEN:      fmt.Sprintf("Quote #%d for request #%d was accepted", e.QuoteID, e.ServiceRequestID),
	}
	if err := s.repo.Create(ctx, winner); err != nil {
		return fmt.Errorf("persisting acceptance notification: %w", err)
	}

	for _, providerID := range e.RejectedProviders {
		loser := &entities.Notification{
			OrganizationID: providerID,
			ResourceType:   entities.ResourceServiceRequest,
			ResourceID:     idString(e.ServiceRequestID),
			Action:         event.Name(),
			MessageVI:      fmt.Sprintf("Báo giá của bạn cho yêu cầu #%d không được chọn", e.ServiceRequestID),
			MessageEN:      fmt.Sprintf("Your quote for request #%d was not selected", e.ServiceRequestID),
		}
		if err := s.repo.Create(ctx, loser); err != nil {
			s.logger.Error("rejected-provider notification failed",
				zap.Int64("providerID", providerID),
				zap.Int64("serviceRequestID", e.ServiceRequestID),
				zap.Error(err),
			)
		}
	}
	return nil
}
