package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediserve/internal/entities"
)

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n *entities.Notification) error
}

type NotificationRepository struct {
	storage *pgxpool.Pool
}

func NewNotificationRepository(storage *pgxpool.Pool) NotificationRepositoryInterface {
	return &NotificationRepository{storage: storage}
}

func (r *NotificationRepository) Create(ctx context.Context, n *entities.Notification) error {
	query := `
		INSERT INTO notifications
			(organization_id, resource_type, resource_id, action, message_vi, message_en, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	_, err := r.storage.Exec(ctx, query,
		n.OrganizationID, n.ResourceType, n.ResourceID, n.Action, n.MessageVI, n.MessageEN)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}
