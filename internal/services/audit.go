package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mediserve/internal/entities"
	"mediserve/internal/repositories"
)

// AuditRecorderInterface is called once per logical state change by
// every mutating workflow operation.
type AuditRecorderInterface interface {
	Record(ctx context.Context, organizationID, actorID int64, action, resourceType, resourceID string, previous, new map[string]interface{})
}

type AuditRecorder struct {
	repo   repositories.AuditRepositoryInterface
	logger *zap.Logger
}

func NewAuditRecorder(repo repositories.AuditRepositoryInterface, logger *zap.Logger) AuditRecorderInterface {
	return &AuditRecorder{repo: repo, logger: logger}
}

// Record appends one audit entry. The business mutation has already
// committed when this runs, so a failed write must not propagate; it is
// logged loudly instead, as the gap is an operational incident.
func (r *AuditRecorder) Record(ctx context.Context, organizationID, actorID int64, action, resourceType, resourceID string, previous, new map[string]interface{}) {
	entry := &entities.AuditEntry{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		PreviousValues: previous,
		NewValues:      new,
	}

	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Error("AUDIT GAP: failed to write audit entry",
			zap.String("action", action),
			zap.String("resourceType", resourceType),
			zap.String("resourceID", resourceID),
			zap.Int64("organizationID", organizationID),
			zap.Int64("actorID", actorID),
			zap.Error(err),
		)
	}
}
