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

const declineReasonMinLen = 10

type ServiceRequestServiceInterface interface {
	Create(ctx context.Context, data dto.CreateServiceRequestDTO) (int64, error)
	Find(ctx context.Context, id int64) (*dto.ServiceRequestDTO, error)
	List(ctx context.Context, filter dto.ServiceRequestListFilter) ([]dto.ServiceRequestDTO, uint64, error)
	Cancel(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, target lifecycle.RequestStatus) error
	StartService(ctx context.Context, id int64) error
	UpdateProgress(ctx context.Context, id int64, data dto.UpdateProgressDTO) error
	CompleteService(ctx context.Context, id int64) error
	SubmitCompletionReport(ctx context.Context, id int64, data dto.SubmitCompletionReportDTO) (int64, error)
	DeclineRequest(ctx context.Context, id int64, reason string) error
	GetAuditTrail(ctx context.Context, id int64) ([]entities.AuditEntry, error)
}

type ServiceRequestService struct {
	txManager     repositories.TxManagerInterface
	requestRepo   repositories.ServiceRequestRepositoryInterface
	equipmentRepo repositories.EquipmentRepositoryInterface
	reportRepo    repositories.CompletionReportRepositoryInterface
	auditRepo     repositories.AuditRepositoryInterface
	audit         AuditRecorderInterface
	limiter       ratelimit.Limiter
	bus           *eventbus.Bus
	logger        *zap.Logger
}

func NewServiceRequestService(
	txManager repositories.TxManagerInterface,
	requestRepo repositories.ServiceRequestRepositoryInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	reportRepo repositories.CompletionReportRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	audit AuditRecorderInterface,
	limiter ratelimit.Limiter,
	bus *eventbus.Bus,
	logger *zap.Logger,
) ServiceRequestServiceInterface {
	return &ServiceRequestService{
		txManager:     txManager,
		requestRepo:   requestRepo,
		equipmentRepo: equipmentRepo,
		reportRepo:    reportRepo,
		auditRepo:     auditRepo,
		audit:         audit,
		limiter:       limiter,
		bus:           bus,
		logger:        logger,
	}
}

func (s *ServiceRequestService) checkLimit(ctx context.Context, orgID int64, endpoint string) error {
	allowed, retryAfter := s.limiter.CheckLimit(ctx, orgID, endpoint)
	if !allowed {
		return apperrors.RateLimited(retryAfter)
	}
	return nil
}

func (s *ServiceRequestService) Create(ctx context.Context, data dto.CreateServiceRequestDTO) (int64, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	if err := authz.RequireOrgType(ident, entities.OrgTypeHospital); err != nil {
		return 0, err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "serviceRequest.create"); err != nil {
		return 0, err
	}

	equipment, err := s.equipmentRepo.FindByID(ctx, data.EquipmentID)
	if err != nil {
		return 0, err
	}
	if equipment.OrganizationID != ident.OrganizationID {
		return 0, apperrors.EquipmentOrgMismatch()
	}

	req := &entities.ServiceRequest{
		OrganizationID: ident.OrganizationID,
		EquipmentID:    data.EquipmentID,
		Type:           entities.RequestType(data.Type),
		Priority:       entities.Priority(data.Priority),
		Status:         lifecycle.RequestPending,
		DescriptionVI:  data.DescriptionVI,
		DescriptionEN:  data.DescriptionEN,
		ScheduledAt:    data.ScheduledAt,
		RequestedBy:    ident.UserID,
	}

	var id int64
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		id, err = s.requestRepo.CreateInTx(ctx, tx, req)
		return err
	})
	if err != nil {
		s.logger.Error("service request creation failed", zap.Error(err))
		return 0, err
	}

	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditRequestCreated,
		entities.ResourceServiceRequest, idString(id), nil, map[string]interface{}{
			"status":       string(lifecycle.RequestPending),
			"equipment_id": data.EquipmentID,
			"type":         data.Type,
			"priority":     data.Priority,
		})
	return id, nil
}

func (s *ServiceRequestService) Find(ctx context.Context, id int64) (*dto.ServiceRequestDTO, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(ident, req) {
		return nil, apperrors.Forbidden()
	}
	return toServiceRequestDTO(req), nil
}

func (s *ServiceRequestService) List(ctx context.Context, filter dto.ServiceRequestListFilter) ([]dto.ServiceRequestDTO, uint64, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	requests, total, err := s.requestRepo.List(ctx, filter, ident.OrganizationID, ident.OrgType)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.ServiceRequestDTO, 0, len(requests))
	for i := range requests {
		out = append(out, *toServiceRequestDTO(&requests[i]))
	}
	return out, total, nil
}

func (s *ServiceRequestService) Cancel(ctx context.Context, id int64) error {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "serviceRequest.cancel"); err != nil {
		return err
	}

	var prev lifecycle.RequestStatus
	var req *entities.ServiceRequest
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err = s.requestRepo.FindByIDForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authz.RequireOwnership(ident, req.OrganizationID); err != nil {
			return err
		}
		if !lifecycle.CanTransition(req.Status, lifecycle.RequestCancelled) {
			return apperrors.InvalidTransition(string(req.Status), string(lifecycle.RequestCancelled))
		}
		prev = req.Status
		return s.requestRepo.UpdateStatusInTx(ctx, tx, id, lifecycle.RequestCancelled, nil)
	})
	if err != nil {
		return err
	}

	s.recordTransition(ctx, ident, req, prev, lifecycle.RequestCancelled)
	return nil
}

// UpdateStatus is the generalized transition entry point. Approval-class
// targets pass the elevated-role and self-approval gates; everything
// else only needs ownership (hospital) or assignment (provider) plus a
// legal transition.
func (s *ServiceRequestService) UpdateStatus(ctx context.Context, id int64, target lifecycle.RequestStatus) error {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "serviceRequest.updateStatus"); err != nil {
		return err
	}

	var prev lifecycle.RequestStatus
	var req *entities.ServiceRequest
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err = s.requestRepo.FindByIDForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}

		isOwner := req.OrganizationID == ident.OrganizationID
		isAssigned := req.AssignedProviderID != nil && *req.AssignedProviderID == ident.OrganizationID
		if !isOwner && !isAssigned {
			return apperrors.Forbidden()
		}

		if !lifecycle.CanTransition(req.Status, target) {
			return apperrors.InvalidTransition(string(req.Status), string(target))
		}

		if lifecycle.IsApprovalClass(req.Status, target) {
			if err := authz.RequireApprovalRole(ident); err != nil {
				return err
			}
			if err := authz.PreventSelfApproval(req.RequestedBy, ident.UserID); err != nil {
				return err
			}
		}

		prev = req.Status
		var completedAt *time.Time
		if target == lifecycle.RequestCompleted {
			now := time.Now()
			completedAt = &now
		}
		return s.requestRepo.UpdateStatusInTx(ctx, tx, id, target, completedAt)
	})
	if err != nil {
		return err
	}

	s.recordTransition(ctx, ident, req, prev, target)
	return nil
}

// StartService is the provider's only way into in_progress: it demands
// the status be exactly accepted, tighter than the generic table.
func (s *ServiceRequestService) StartService(ctx context.Context, id int64) error {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := authz.RequireOrgType(ident, entities.OrgTypeProvider); err != nil {
		return err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "serviceRequest.startService"); err != nil {
		return err
	}

	var req *entities.ServiceRequest
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err = s.requestRepo.FindByIDForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.AssignedProviderID == nil || *req.AssignedProviderID != ident.OrganizationID {
			return apperrors.Forbidden()
		}
		if req.Status != lifecycle.RequestAccepted {
			return apperrors.InvalidTransition(string(req.Status), string(lifecycle.RequestInProgress))
		}
		return s.requestRepo.UpdateStatusInTx(ctx, tx, id, lifecycle.RequestInProgress, nil)
	})
	if err != nil {
		return err
	}

	s.recordTransition(ctx, ident, req, lifecycle.RequestAccepted, lifecycle.RequestInProgress)
	return nil
}

// UpdateProgress never changes status; the audited payload is the
// hospital-visible activity trail.
func (s *ServiceRequestService) UpdateProgress(ctx context.Context, id int64, data dto.UpdateProgressDTO) error {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := authz.RequireOrgType(ident, entities.OrgTypeProvider); err != nil {
		return err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "serviceRequest.updateProgress"); err != nil {
		return err
	}

	req, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if req.AssignedProviderID == nil || *req.AssignedProviderID != ident.OrganizationID {
		return apperrors.Forbidden()
	}
	if req.Status != lifecycle.RequestInProgress {
		return apperrors.InvalidServiceRequestStatus(string(req.Status))
	}

	payload := map[string]interface{}{"notes": data.Notes}
	if data.PercentComplete != nil {
		payload["percent_complete"] = *data.PercentComplete
	}
	if data.UnexpectedIssue != nil {
		payload["unexpected_issue"] = *data.UnexpectedIssue
	}
	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditRequestProgress,
		entities.ResourceServiceRequest, idString(id), nil, payload)
	return nil
}

func (s *ServiceRequestService) CompleteService(ctx context.Context, id int64) error {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := authz.RequireOrgType(ident, entities.OrgTypeProvider); err != nil {
		return err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "serviceRequest.completeService"); err != nil {
		return err
	}

	var prev lifecycle.RequestStatus
	var req *entities.ServiceRequest
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err = s.requestRepo.FindByIDForUpdateInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.AssignedProviderID == nil || *req.AssignedProviderID != ident.OrganizationID {
			return apperrors.Forbidden()
		}
		if !lifecycle.CanTransition(req.Status, lifecycle.RequestCompleted) {
			return apperrors.InvalidTransition(string(req.Status), string(lifecycle.RequestCompleted))
		}
		prev = req.Status
		now := time.Now()
		return s.requestRepo.UpdateStatusInTx(ctx, tx, id, lifecycle.RequestCompleted, &now)
	})
	if err != nil {
		return err
	}

	s.recordTransition(ctx, ident, req, prev, lifecycle.RequestCompleted)
	return nil
}

// SubmitCompletionReport may trail the status flip slightly, so it
// accepts both in_progress and completed.
func (s *ServiceRequestService) SubmitCompletionReport(ctx context.Context, id int64, data dto.SubmitCompletionReportDTO) (int64, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	if err := authz.RequireOrgType(ident, entities.OrgTypeProvider); err != nil {
		return 0, err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "serviceRequest.submitCompletionReport"); err != nil {
		return 0, err
	}

	req, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if req.AssignedProviderID == nil || *req.AssignedProviderID != ident.OrganizationID {
		return 0, apperrors.Forbidden()
	}
	if req.Status != lifecycle.RequestInProgress && req.Status != lifecycle.RequestCompleted {
		return 0, apperrors.InvalidServiceRequestStatus(string(req.Status))
	}

	reportID, err := s.reportRepo.Create(ctx, &entities.CompletionReport{
		ServiceRequestID: id,
		ProviderID:       ident.OrganizationID,
		SubmittedBy:      ident.UserID,
		WorkPerformedVI:  data.WorkPerformedVI,
		WorkPerformedEN:  data.WorkPerformedEN,
		PartsReplaced:    data.PartsReplaced,
		LaborHours:       data.LaborHours,
		Recommendations:  data.Recommendations,
	})
	if err != nil {
		return 0, err
	}

	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditReportSubmitted,
		entities.ResourceCompletionReport, idString(reportID), nil, map[string]interface{}{
			"service_request_id": id,
		})
	return reportID, nil
}

// DeclineRequest records a provider's non-interest. The request stays
// quotable by everyone else, so its status is never touched here.
func (s *ServiceRequestService) DeclineRequest(ctx context.Context, id int64, reason string) error {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := authz.RequireOrgType(ident, entities.OrgTypeProvider); err != nil {
		return err
	}
	if len(strings.TrimSpace(reason)) < declineReasonMinLen {
		return apperrors.InvalidReason(declineReasonMinLen)
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "serviceRequest.declineRequest"); err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.requestRepo.FindByIDForUpdateInTx(ctx, tx, id); err != nil {
			return err
		}
		return s.requestRepo.InsertDeclineInTx(ctx, tx, id, ident.OrganizationID, ident.UserID, reason)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditRequestDeclined,
		entities.ResourceServiceRequest, idString(id), nil, map[string]interface{}{"reason": reason})
	return nil
}

func (s *ServiceRequestService) GetAuditTrail(ctx context.Context, id int64) ([]entities.AuditEntry, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(ident, req) {
		return nil, apperrors.Forbidden()
	}
	return s.auditRepo.ListByResource(ctx, entities.ResourceServiceRequest, idString(id))
}

func (s *ServiceRequestService) recordTransition(ctx context.Context, ident *authz.Identity, req *entities.ServiceRequest, from, to lifecycle.RequestStatus) {
	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditRequestTransition,
		entities.ResourceServiceRequest, idString(req.ID),
		map[string]interface{}{"status": string(from)},
		map[string]interface{}{"status": string(to)})

	s.bus.Publish(events.RequestStatusChanged{
		RequestID:      req.ID,
		OrganizationID: req.OrganizationID,
		ProviderID:     req.AssignedProviderID,
		From:           string(from),
		To:             string(to),
		ActorID:        ident.UserID,
	})
}

func canView(ident *authz.Identity, req *entities.ServiceRequest) bool {
	if req.OrganizationID == ident.OrganizationID {
		return true
	}
	if req.AssignedProviderID != nil && *req.AssignedProviderID == ident.OrganizationID {
		return true
	}
	// Providers browse the open market.
	if ident.OrgType == entities.OrgTypeProvider &&
		(req.Status == lifecycle.RequestPending || req.Status == lifecycle.RequestQuoted) {
		return true
	}
	return false
}
