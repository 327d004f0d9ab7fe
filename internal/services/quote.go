package services

import (
	"context"
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

const defaultCurrency = "VND"

type QuoteServiceInterface interface {
	Submit(ctx context.Context, data dto.SubmitQuoteDTO) (int64, error)
	Update(ctx context.Context, id int64, data dto.UpdateQuoteDTO) error
	Accept(ctx context.Context, id int64) (int64, error)
	Reject(ctx context.Context, id int64) (int64, error)
	ListByServiceRequest(ctx context.Context, serviceRequestID int64) ([]dto.QuoteDTO, error)
}

type QuoteService struct {
	txManager   repositories.TxManagerInterface
	quoteRepo   repositories.QuoteRepositoryInterface
	requestRepo repositories.ServiceRequestRepositoryInterface
	orgRepo     repositories.OrganizationRepositoryInterface
	audit       AuditRecorderInterface
	limiter     ratelimit.Limiter
	bus         *eventbus.Bus
	logger      *zap.Logger
}

func NewQuoteService(
	txManager repositories.TxManagerInterface,
	quoteRepo repositories.QuoteRepositoryInterface,
	requestRepo repositories.ServiceRequestRepositoryInterface,
	orgRepo repositories.OrganizationRepositoryInterface,
	audit AuditRecorderInterface,
	limiter ratelimit.Limiter,
	bus *eventbus.Bus,
	logger *zap.Logger,
) QuoteServiceInterface {
	return &QuoteService{
		txManager:   txManager,
		quoteRepo:   quoteRepo,
		requestRepo: requestRepo,
		orgRepo:     orgRepo,
		audit:       audit,
		limiter:     limiter,
		bus:         bus,
		logger:      logger,
	}
}

func (s *QuoteService) checkLimit(ctx context.Context, orgID int64, endpoint string) error {
	allowed, retryAfter := s.limiter.CheckLimit(ctx, orgID, endpoint)
	if !allowed {
		return apperrors.RateLimited(retryAfter)
	}
	return nil
}

// Submit inserts a quote and, when it is the first one, flips the
// request pending -> quoted in the same transaction.
func (s *QuoteService) Submit(ctx context.Context, data dto.SubmitQuoteDTO) (int64, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	if err := authz.RequireOrgType(ident, entities.OrgTypeProvider); err != nil {
		return 0, err
	}
	if _, err := s.orgRepo.FindProviderProfile(ctx, ident.OrganizationID); err != nil {
		return 0, err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "quote.submit"); err != nil {
		return 0, err
	}

	currency := data.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	var validUntil *time.Time
	if data.ValidUntilDays != nil {
		t := time.Now().AddDate(0, 0, *data.ValidUntilDays)
		validUntil = &t
	}

	var quoteID int64
	var flippedFrom lifecycle.RequestStatus
	var req *entities.ServiceRequest
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		req, err = s.requestRepo.FindByIDForUpdateInTx(ctx, tx, data.ServiceRequestID)
		if err != nil {
			return err
		}
		if req.Status != lifecycle.RequestPending && req.Status != lifecycle.RequestQuoted {
			return apperrors.InvalidServiceRequestStatus(string(req.Status))
		}

		quoteID, err = s.quoteRepo.CreateInTx(ctx, tx, &entities.Quote{
			ServiceRequestID:      data.ServiceRequestID,
			ProviderID:            ident.OrganizationID,
			SubmittedBy:           ident.UserID,
			Status:                lifecycle.QuotePending,
			Amount:                data.Amount,
			Currency:              currency,
			Notes:                 data.Notes,
			ValidUntil:            validUntil,
			EstimatedDurationDays: data.EstimatedDurationDays,
			AvailableStartDate:    data.AvailableStartDate,
		})
		if err != nil {
			return err
		}

		if req.Status == lifecycle.RequestPending {
			flippedFrom = lifecycle.RequestPending
			return s.requestRepo.UpdateStatusInTx(ctx, tx, req.ID, lifecycle.RequestQuoted, nil)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditQuoteSubmitted,
		entities.ResourceQuote, idString(quoteID), nil, map[string]interface{}{
			"service_request_id": data.ServiceRequestID,
			"amount":             data.Amount,
			"currency":           currency,
		})

	if flippedFrom != "" {
		s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditRequestTransition,
			entities.ResourceServiceRequest, idString(req.ID),
			map[string]interface{}{"status": string(flippedFrom)},
			map[string]interface{}{"status": string(lifecycle.RequestQuoted)})
		s.bus.Publish(events.RequestStatusChanged{
			RequestID:      req.ID,
			OrganizationID: req.OrganizationID,
			From:           string(flippedFrom),
			To:             string(lifecycle.RequestQuoted),
			ActorID:        ident.UserID,
		})
	}
	return quoteID, nil
}

// Update revises a pending quote; terminal quotes are immutable.
func (s *QuoteService) Update(ctx context.Context, id int64, data dto.UpdateQuoteDTO) error {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := authz.RequireOrgType(ident, entities.OrgTypeProvider); err != nil {
		return err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "quote.update"); err != nil {
		return err
	}

	var prevAmount float64
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		q, err := s.quoteRepo.FindByIDInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if q.ProviderID != ident.OrganizationID {
			return apperrors.Forbidden()
		}
		if q.Status != lifecycle.QuotePending {
			return apperrors.InvalidQuoteStatus(string(q.Status))
		}
		prevAmount = q.Amount

		var validUntil *time.Time
		if data.ValidUntilDays.Valid {
			t := time.Now().AddDate(0, 0, data.ValidUntilDays.Int)
			validUntil = &t
		}
		return s.quoteRepo.UpdateInTx(ctx, tx, id, data, validUntil)
	})
	if err != nil {
		return err
	}

	newValues := map[string]interface{}{}
	if data.Amount.Valid {
		newValues["amount"] = data.Amount.Float64
	}
	if data.Notes.Valid {
		newValues["notes"] = data.Notes.String
	}
	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditQuoteUpdated,
		entities.ResourceQuote, idString(id),
		map[string]interface{}{"amount": prevAmount}, newValues)
	return nil
}

// Accept runs the cascade as one atomic unit: accept the quote, reject
// every pending sibling, assign the provider and move the request to
// accepted. The request row lock serializes competing accepts; the
// loser re-reads after the winner commits and fails on quote status or
// request transition.
func (s *QuoteService) Accept(ctx context.Context, id int64) (int64, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	if err := authz.RequireOrgType(ident, entities.OrgTypeHospital); err != nil {
		return 0, err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "quote.accept"); err != nil {
		return 0, err
	}

	var (
		quote    *entities.Quote
		req      *entities.ServiceRequest
		rejected []entities.Quote
		prev     lifecycle.RequestStatus
	)
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		// First read only locates the request; the authoritative quote
		// state is re-read after the request row lock is held.
		q, err := s.quoteRepo.FindByIDInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		req, err = s.requestRepo.FindByIDForUpdateInTx(ctx, tx, q.ServiceRequestID)
		if err != nil {
			return err
		}
		quote, err = s.quoteRepo.FindByIDInTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := authz.RequireOwnership(ident, req.OrganizationID); err != nil {
			return err
		}
		if err := authz.RequireApprovalRole(ident); err != nil {
			return err
		}
		if err := authz.PreventSelfApproval(req.RequestedBy, ident.UserID); err != nil {
			return err
		}

		if !lifecycle.CanTransitionQuote(quote.Status, lifecycle.QuoteAccepted) {
			return apperrors.InvalidQuoteStatus(string(quote.Status))
		}
		if !lifecycle.CanTransition(req.Status, lifecycle.RequestAccepted) {
			return apperrors.InvalidTransition(string(req.Status), string(lifecycle.RequestAccepted))
		}
		prev = req.Status

		if err := s.quoteRepo.UpdateStatusInTx(ctx, tx, id, lifecycle.QuoteAccepted); err != nil {
			return err
		}
		rejected, err = s.quoteRepo.RejectPendingSiblingsInTx(ctx, tx, req.ID, id)
		if err != nil {
			return err
		}
		return s.requestRepo.AssignProviderInTx(ctx, tx, req.ID, lifecycle.RequestAccepted, quote.ProviderID)
	})
	if err != nil {
		return 0, err
	}

	// One audit entry per logical change: each rejected sibling, the
	// accepted quote, then the request transition.
	rejectedProviders := make([]int64, 0, len(rejected))
	for i := range rejected {
		rejectedProviders = append(rejectedProviders, rejected[i].ProviderID)
		s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditQuoteRejected,
			entities.ResourceQuote, idString(rejected[i].ID),
			map[string]interface{}{"status": string(lifecycle.QuotePending)},
			map[string]interface{}{"status": string(lifecycle.QuoteRejected), "reason": "sibling accepted"})
	}
	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditQuoteAccepted,
		entities.ResourceQuote, idString(id),
		map[string]interface{}{"status": string(lifecycle.QuotePending)},
		map[string]interface{}{"status": string(lifecycle.QuoteAccepted)})
	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditRequestTransition,
		entities.ResourceServiceRequest, idString(req.ID),
		map[string]interface{}{"status": string(prev)},
		map[string]interface{}{"status": string(lifecycle.RequestAccepted), "assigned_provider_id": quote.ProviderID})

	s.bus.Publish(events.QuoteAccepted{
		QuoteID:           id,
		ServiceRequestID:  req.ID,
		HospitalID:        req.OrganizationID,
		WinningProvider:   quote.ProviderID,
		RejectedProviders: rejectedProviders,
		ActorID:           ident.UserID,
	})
	s.bus.Publish(events.RequestStatusChanged{
		RequestID:      req.ID,
		OrganizationID: req.OrganizationID,
		ProviderID:     &quote.ProviderID,
		From:           string(prev),
		To:             string(lifecycle.RequestAccepted),
		ActorID:        ident.UserID,
	})
	return id, nil
}

// Reject turns down one quote; the request keeps its status so other
// quotes stay open.
func (s *QuoteService) Reject(ctx context.Context, id int64) (int64, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return 0, err
	}
	if err := authz.RequireOrgType(ident, entities.OrgTypeHospital); err != nil {
		return 0, err
	}
	if err := s.checkLimit(ctx, ident.OrganizationID, "quote.reject"); err != nil {
		return 0, err
	}

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		q, err := s.quoteRepo.FindByIDInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		req, err := s.requestRepo.FindByIDForUpdateInTx(ctx, tx, q.ServiceRequestID)
		if err != nil {
			return err
		}
		q, err = s.quoteRepo.FindByIDInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authz.RequireOwnership(ident, req.OrganizationID); err != nil {
			return err
		}
		if q.Status != lifecycle.QuotePending {
			return apperrors.InvalidQuoteStatus(string(q.Status))
		}
		return s.quoteRepo.UpdateStatusInTx(ctx, tx, id, lifecycle.QuoteRejected)
	})
	if err != nil {
		return 0, err
	}

	s.audit.Record(ctx, ident.OrganizationID, ident.UserID, entities.AuditQuoteRejected,
		entities.ResourceQuote, idString(id),
		map[string]interface{}{"status": string(lifecycle.QuotePending)},
		map[string]interface{}{"status": string(lifecycle.QuoteRejected)})
	return id, nil
}

// ListByServiceRequest returns all quotes to the owning hospital, and
// only the caller's own quotes to a provider.
func (s *QuoteService) ListByServiceRequest(ctx context.Context, serviceRequestID int64) ([]dto.QuoteDTO, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.requestRepo.FindByID(ctx, serviceRequestID)
	if err != nil {
		return nil, err
	}

	quotes, err := s.quoteRepo.ListByServiceRequest(ctx, serviceRequestID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.QuoteDTO, 0, len(quotes))
	for i := range quotes {
		q := &quotes[i]
		if req.OrganizationID != ident.OrganizationID && q.ProviderID != ident.OrganizationID {
			continue
		}
		out = append(out, *toQuoteDTO(q))
	}
	return out, nil
}
