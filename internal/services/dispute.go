package services

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mediserve/internal/authz"
	"mediserve/internal/dto"
	"mediserve/internal/entities"
	"mediserve/internal/events"
	"mediserve/internal/lifecycle"
	"mediserve/internal/repositories"
	"mediserve/pkg/apperrors"
	"mediserve/pkg/eventbus"
	"mediserve/pkg/ratelimit"
)

type DisputeServiceInterface interface {
	Open(ctx context.Context, serviceRequestID int64, data dto.OpenDisputeDTO) (int64, error)
	Find(ctx context.Context, id int64) (*dto.DisputeDTO, error)
	UpdateStatus(ctx context.Context, id int64, data dto.UpdateDisputeStatusDTO) error
}

type DisputeService struct {
	txManager   repositories.TxManagerInterface
	disputeRepo repositories.DisputeRepositoryInterface
	requestRepo repositories.ServiceRequestRepositoryInterface
	audit       AuditRecorderInterface
	limiter     ratelimit.Limiter
	bus         *eventbus.Bus
	logger      *zap.Logger
}

func NewDisputeService(
	txManager repositories.TxManagerInterface,
	disputeRepo repositories.DisputeRepositoryInterface,
	requestRepo repositories.ServiceRequestRepositoryInterface,
	audit AuditRecorderInterface,
	limiter ratelimit.Limiter,
	bus *eventbus.Bus,
	logger *zap.Logger,
) DisputeServiceInterface {
	return &DisputeService{
		txManager:   txManager,
		disputeRepo: disputeRepo,
		requestRepo: requestRepo,
		audit:       audit,
		limiter:     limiter,
		bus:         bus,
		logger:      logger,
	}
}

// Open raises a dispute on a request and moves the request to disputed
// in the same transaction. Only the owning hospital or the assigned
// provider may dispute.
func (s *DisputeService) Open(ctx context.Context, serviceRequestID int64, data dto.OpenDisputeDTO) (int64, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	if allowed, retryAfter := s.limiter.CheckLimit(ctx, ident.OrganizationID, "dispute.open"); !allowed {
		return 0, apperrors.RateLimited(retryAfter)
	}
	if len(strings.TrimSpace(data.ReasonVI)) < declineReasonMinLen {
		return 0, apperrors.InvalidReason(declineReasonMinLen)
	}

	var (
		disputeID int64
		prev      lifecycle.RequestStatus
		req       *entities.ServiceRequest
	)
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err = s.requestRepo.FindByIDForUpdateInTx(ctx, tx, serviceRequestID)
		if err != nil {
			return err
		}
		isOwner := req.OrganizationID == ident.OrganizationID
		isAssigned := req.AssignedProviderID != nil && *req.AssignedProviderID == ident.OrganizationID
		if !isOwner && !isAssigned {
			return apperrors.Forbidden()
		}
		if !lifecycle.CanTransition(req.Status, lifecycle.RequestDisputed) {
			return apperrors.InvalidTransition(string(req.Status), string(lifecycle.RequestDisputed))
		}
		prev = req.Status

		disputeID, err = s.disputeRepo.CreateInTx(ctx, tx, &entities.Dispute{
			ServiceRequestID: serviceRequestID,
			OrganizationID:   ident.OrganizationID,
			RaisedBy:         ident.UserID,
			Status:           lifecycle.DisputeOpen,
			ReasonVI:         data.ReasonVI,
			ReasonEN:         data.ReasonEN,
		})
		if err != nil {
			return err
		}
		return s.requestRepo.UpdateStatusInTx(ctx, tx, serviceRequestID, lifecycle.RequestDisputed, nil)
	})
	if err != nil {
		return 0, err
	}

	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditDisputeOpened,
		entities.ResourceDispute, idString(disputeID), nil, map[string]interface{}{
			"service_request_id": serviceRequestID,
			"reason_vi":          data.ReasonVI,
		})
	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditRequestTransition,
		entities.ResourceServiceRequest, idString(serviceRequestID),
		map[string]interface{}{"status": string(prev)},
		map[string]interface{}{"status": string(lifecycle.RequestDisputed)})

	s.bus.Publish(events.RequestStatusChanged{
		RequestID:      serviceRequestID,
		OrganizationID: req.OrganizationID,
		ProviderID:     req.AssignedProviderID,
		From:           string(prev),
		To:             string(lifecycle.RequestDisputed),
		ActorID:        ident.UserID,
	})
	return disputeID, nil
}

func (s *DisputeService) Find(ctx context.Context, id int64) (*dto.DisputeDTO, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.disputeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req, err := s.requestRepo.FindByID(ctx, d.ServiceRequestID)
	if err != nil {
		return nil, err
	}
	isOwner := req.OrganizationID == ident.OrganizationID
	isAssigned := req.AssignedProviderID != nil && *req.AssignedProviderID == ident.OrganizationID
	if !isOwner && !isAssigned {
		return nil, apperrors.Forbidden()
	}
	return toDisputeDTO(d), nil
}

// UpdateStatus advances the dispute; closing it (resolved or cancelled)
// also settles the underlying request, to completed by default or to
// the outcome the caller names.
func (s *DisputeService) UpdateStatus(ctx context.Context, id int64, data dto.UpdateDisputeStatusDTO) error {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := authz.RequireApprovalRole(ident); err != nil {
		return err
	}

	target := lifecycle.DisputeStatus(data.Status)

	var (
		prevDispute lifecycle.DisputeStatus
		prevRequest lifecycle.RequestStatus
		settledTo   lifecycle.RequestStatus
		req         *entities.ServiceRequest
	)
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		d, err := s.disputeRepo.FindByIDForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		req, err = s.requestRepo.FindByIDForUpdateInTx(ctx, tx, d.ServiceRequestID)
		if err != nil {
			return err
		}
		isOwner := req.OrganizationID == ident.OrganizationID
		isAssigned := req.AssignedProviderID != nil && *req.AssignedProviderID == ident.OrganizationID
		if !isOwner && !isAssigned {
			return apperrors.Forbidden()
		}
		if !lifecycle.CanTransitionDispute(d.Status, target) {
			return apperrors.InvalidTransition(string(d.Status), string(target))
		}
		prevDispute = d.Status

		if err := s.disputeRepo.UpdateStatusInTx(ctx, tx, id, target, data.Resolution); err != nil {
			return err
		}
		if target != lifecycle.DisputeResolved && target != lifecycle.DisputeCancelled {
			return nil
		}

		settledTo = lifecycle.RequestCompleted
		if data.Outcome != nil {
			settledTo = lifecycle.RequestStatus(*data.Outcome)
		}
		if req.Status != lifecycle.RequestDisputed {
			// Already settled by another path; leave the request alone.
			settledTo = ""
			return nil
		}
		if !lifecycle.CanTransition(req.Status, settledTo) {
			return apperrors.InvalidTransition(string(req.Status), string(settledTo))
		}
		prevRequest = req.Status

		var completedAt *time.Time
		if settledTo == lifecycle.RequestCompleted {
			now := time.Now()
			completedAt = &now
		}
		return s.requestRepo.UpdateStatusInTx(ctx, tx, req.ID, settledTo, completedAt)
	})
	if err != nil {
		return err
	}

	newValues := map[string]interface{}{"status": string(target)}
	if data.Resolution != nil {
		newValues["resolution"] = *data.Resolution
	}
	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditDisputeTransition,
		entities.ResourceDispute, idString(id),
		map[string]interface{}{"status": string(prevDispute)}, newValues)

	if settledTo != "" {
		s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditRequestTransition,
			entities.ResourceServiceRequest, idString(req.ID),
			map[string]interface{}{"status": string(prevRequest)},
			map[string]interface{}{"status": string(settledTo)})
		s.bus.Publish(events.RequestStatusChanged{
			RequestID:      req.ID,
			OrganizationID: req.OrganizationID,
			ProviderID:     req.AssignedProviderID,
			From:           string(prevRequest),
			To:             string(settledTo),
			ActorID:        ident.UserID,
		})
	}
	return nil
}
