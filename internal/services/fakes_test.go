package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mediserve/internal/authz"
	"mediserve/internal/dto"
	"mediserve/internal/entities"
	"mediserve/internal/lifecycle"
	"mediserve/pkg/apperrors"
	"mediserve/pkg/eventbus"
)

// fakeStore is a shared in-memory backend for all fake repositories.
// Repository methods take their own short lock; transaction scope is
// emulated by fakeTxManager, which serializes whole transactions the
// way the request row lock does in Postgres.
type fakeStore struct {
	mu sync.Mutex

	nextID    int64
	requests  map[int64]entities.ServiceRequest
	quotes    map[int64]entities.Quote
	disputes  map[int64]entities.Dispute
	equipment map[int64]entities.Equipment
	profiles  map[int64]entities.ProviderProfile
	reports   map[int64]entities.CompletionReport
	declines  []fakeDecline
}

type fakeDecline struct {
	RequestID  int64
	ProviderID int64
	DeclinedBy int64
	Reason     string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:  make(map[int64]entities.ServiceRequest),
		quotes:    make(map[int64]entities.Quote),
		disputes:  make(map[int64]entities.Dispute),
		equipment: make(map[int64]entities.Equipment),
		profiles:  make(map[int64]entities.ProviderProfile),
		reports:   make(map[int64]entities.CompletionReport),
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

type fakeTxManager struct {
	txMu sync.Mutex
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(nil)
}

type fakeServiceRequestRepo struct{ store *fakeStore }

func (r *fakeServiceRequestRepo) CreateInTx(ctx context.Context, tx pgx.Tx, req *entities.ServiceRequest) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id := r.store.id()
	stored := *req
	stored.ID = id
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.store.requests[id] = stored
	return id, nil
}

func (r *fakeServiceRequestRepo) FindByID(ctx context.Context, id int64) (*entities.ServiceRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req, ok := r.store.requests[id]
	if !ok {
		return nil, notFoundErr("service_request")
	}
	return &req, nil
}

func (r *fakeServiceRequestRepo) FindByIDForUpdateInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.ServiceRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeServiceRequestRepo) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.RequestStatus, completedAt *time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req, ok := r.store.requests[id]
	if !ok {
		return notFoundErr("service_request")
	}
	req.Status = status
	if completedAt != nil {
		req.CompletedAt = completedAt
	}
	req.UpdatedAt = time.Now()
	r.store.requests[id] = req
	return nil
}

func (r *fakeServiceRequestRepo) AssignProviderInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.RequestStatus, providerID int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req, ok := r.store.requests[id]
	if !ok {
		return notFoundErr("service_request")
	}
	req.Status = status
	req.AssignedProviderID = &providerID
	req.UpdatedAt = time.Now()
	r.store.requests[id] = req
	return nil
}

func (r *fakeServiceRequestRepo) InsertDeclineInTx(ctx context.Context, tx pgx.Tx, requestID, providerOrgID, userID int64, reason string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.declines = append(r.store.declines, fakeDecline{
		RequestID:  requestID,
		ProviderID: providerOrgID,
		DeclinedBy: userID,
		Reason:     reason,
	})
	return nil
}

func (r *fakeServiceRequestRepo) List(ctx context.Context, filter dto.ServiceRequestListFilter, orgID int64, orgType entities.OrgType) ([]entities.ServiceRequest, uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.ServiceRequest, 0)
	for _, req := range r.store.requests {
		if orgType == entities.OrgTypeHospital {
			if req.OrganizationID != orgID {
				continue
			}
		} else {
			open := req.Status == lifecycle.RequestPending || req.Status == lifecycle.RequestQuoted
			assigned := req.AssignedProviderID != nil && *req.AssignedProviderID == orgID
			if !open && !assigned {
				continue
			}
		}
		if filter.Status != "" && string(req.Status) != filter.Status {
			continue
		}
		if filter.Priority != "" && string(req.Priority) != filter.Priority {
			continue
		}
		if filter.Type != "" && string(req.Type) != filter.Type {
			continue
		}
		out = append(out, req)
	}
	return out, uint64(len(out)), nil
}

type fakeQuoteRepo struct{ store *fakeStore }

func (r *fakeQuoteRepo) CreateInTx(ctx context.Context, tx pgx.Tx, quote *entities.Quote) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id := r.store.id()
	stored := *quote
	stored.ID = id
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.store.quotes[id] = stored
	return id, nil
}

func (r *fakeQuoteRepo) FindByID(ctx context.Context, id int64) (*entities.Quote, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q, ok := r.store.quotes[id]
	if !ok {
		return nil, notFoundErr("quote")
	}
	return &q, nil
}

func (r *fakeQuoteRepo) FindByIDInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.Quote, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeQuoteRepo) UpdateInTx(ctx context.Context, tx pgx.Tx, id int64, patch dto.UpdateQuoteDTO, validUntil *time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q, ok := r.store.quotes[id]
	if !ok {
		return notFoundErr("quote")
	}
	if patch.Amount.Valid {
		q.Amount = patch.Amount.Float64
	}
	if patch.Notes.Valid {
		notes := patch.Notes.String
		q.Notes = &notes
	}
	if patch.EstimatedDurationDays.Valid {
		days := patch.EstimatedDurationDays.Int
		q.EstimatedDurationDays = &days
	}
	if patch.AvailableStartDate.Valid {
		start := patch.AvailableStartDate.Time
		q.AvailableStartDate = &start
	}
	if validUntil != nil {
		q.ValidUntil = validUntil
	}
	q.UpdatedAt = time.Now()
	r.store.quotes[id] = q
	return nil
}

func (r *fakeQuoteRepo) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.QuoteStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q, ok := r.store.quotes[id]
	if !ok {
		return notFoundErr("quote")
	}
	q.Status = status
	q.UpdatedAt = time.Now()
	r.store.quotes[id] = q
	return nil
}

func (r *fakeQuoteRepo) RejectPendingSiblingsInTx(ctx context.Context, tx pgx.Tx, serviceRequestID, exceptQuoteID int64) ([]entities.Quote, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rejected := make([]entities.Quote, 0)
	for id, q := range r.store.quotes {
		if q.ServiceRequestID != serviceRequestID || id == exceptQuoteID || q.Status != lifecycle.QuotePending {
			continue
		}
		q.Status = lifecycle.QuoteRejected
		q.UpdatedAt = time.Now()
		r.store.quotes[id] = q
		rejected = append(rejected, q)
	}
	return rejected, nil
}

func (r *fakeQuoteRepo) ListByServiceRequest(ctx context.Context, serviceRequestID int64) ([]entities.Quote, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.Quote, 0)
	for _, q := range r.store.quotes {
		if q.ServiceRequestID == serviceRequestID {
			out = append(out, q)
		}
	}
	return out, nil
}

type fakeEquipmentRepo struct{ store *fakeStore }

func (r *fakeEquipmentRepo) FindByID(ctx context.Context, id int64) (*entities.Equipment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.equipment[id]
	if !ok {
		return nil, notFoundErr("equipment")
	}
	return &e, nil
}

type fakeOrganizationRepo struct{ store *fakeStore }

func (r *fakeOrganizationRepo) FindByID(ctx context.Context, id int64) (*entities.Organization, error) {
	return &entities.Organization{ID: id}, nil
}

func (r *fakeOrganizationRepo) FindProviderProfile(ctx context.Context, organizationID int64) (*entities.ProviderProfile, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.profiles[organizationID]
	if !ok {
		return nil, notFoundErr("provider_profile")
	}
	return &p, nil
}

type fakeCompletionReportRepo struct{ store *fakeStore }

func (r *fakeCompletionReportRepo) Create(ctx context.Context, report *entities.CompletionReport) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id := r.store.id()
	stored := *report
	stored.ID = id
	stored.CreatedAt = time.Now()
	r.store.reports[id] = stored
	return id, nil
}

func (r *fakeCompletionReportRepo) ListByServiceRequest(ctx context.Context, serviceRequestID int64) ([]entities.CompletionReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.CompletionReport, 0)
	for _, rep := range r.store.reports {
		if rep.ServiceRequestID == serviceRequestID {
			out = append(out, rep)
		}
	}
	return out, nil
}

type fakeDisputeRepo struct{ store *fakeStore }

func (r *fakeDisputeRepo) CreateInTx(ctx context.Context, tx pgx.Tx, dispute *entities.Dispute) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id := r.store.id()
	stored := *dispute
	stored.ID = id
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.store.disputes[id] = stored
	return id, nil
}

func (r *fakeDisputeRepo) FindByID(ctx context.Context, id int64) (*entities.Dispute, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d, ok := r.store.disputes[id]
	if !ok {
		return nil, notFoundErr("dispute")
	}
	return &d, nil
}

func (r *fakeDisputeRepo) FindByIDForUpdateInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.Dispute, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeDisputeRepo) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.DisputeStatus, resolution *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d, ok := r.store.disputes[id]
	if !ok {
		return notFoundErr("dispute")
	}
	d.Status = status
	if resolution != nil {
		d.Resolution = resolution
	}
	d.UpdatedAt = time.Now()
	r.store.disputes[id] = d
	return nil
}

// fakeAuditRecorder captures entries in order so tests can assert on
// the trail without a database.
type fakeAuditRecorder struct {
	mu      sync.Mutex
	entries []entities.AuditEntry
}

func (r *fakeAuditRecorder) Record(ctx context.Context, organizationID, actorID int64, action, resourceType, resourceID string, previous, new map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entities.AuditEntry{
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		PreviousValues: previous,
		NewValues:      new,
		CreatedAt:      time.Now(),
	})
}

func (r *fakeAuditRecorder) byAction(action string) []entities.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.AuditEntry, 0)
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// fakeLimiter counts per org+endpoint; limit <= 0 means unlimited.
type fakeLimiter struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int
}

func newFakeLimiter(limit int) *fakeLimiter {
	return &fakeLimiter{limit: limit, counts: make(map[string]int)}
}

func (l *fakeLimiter) CheckLimit(ctx context.Context, orgID int64, endpoint string) (bool, time.Duration) {
	if l.limit <= 0 {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := fmt.Sprintf("%d:%s", orgID, endpoint)
	l.counts[key]++
	if l.counts[key] > l.limit {
		return false, time.Minute
	}
	return true, 0
}

func notFoundErr(resource string) error {
	return apperrors.NotFound(resource)
}

// fakeAuditListRepo adapts the recorder's captured entries to the read
// side of the audit repository.
type fakeAuditListRepo struct {
	audit *fakeAuditRecorder
}

func (r *fakeAuditListRepo) Create(ctx context.Context, entry *entities.AuditEntry) error {
	r.audit.mu.Lock()
	defer r.audit.mu.Unlock()
	r.audit.entries = append(r.audit.entries, *entry)
	return nil
}

func (r *fakeAuditListRepo) ListByResource(ctx context.Context, resourceType, resourceID string) ([]entities.AuditEntry, error) {
	r.audit.mu.Lock()
	defer r.audit.mu.Unlock()
	out := make([]entities.AuditEntry, 0)
	for _, e := range r.audit.entries {
		if e.ResourceType == resourceType && e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditListRepo) ListForExport(ctx context.Context, organizationID int64, from, to *time.Time) ([]entities.AuditEntry, error) {
	r.audit.mu.Lock()
	defer r.audit.mu.Unlock()
	out := make([]entities.AuditEntry, 0)
	for _, e := range r.audit.entries {
		if e.OrganizationID == organizationID {
			out = append(out, e)
		}
	}
	return out, nil
}

type testEnv struct {
	store    *fakeStore
	audit    *fakeAuditRecorder
	limiter  *fakeLimiter
	requests ServiceRequestServiceInterface
	quotes   QuoteServiceInterface
	disputes DisputeServiceInterface
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	audit := &fakeAuditRecorder{}
	limiter := newFakeLimiter(0)
	tx := &fakeTxManager{}
	logger := zap.NewNop()
	bus := eventbus.New(logger)

	requestRepo := &fakeServiceRequestRepo{store: store}
	quoteRepo := &fakeQuoteRepo{store: store}
	auditRepo := &fakeAuditListRepo{audit: audit}

	return &testEnv{
		store:   store,
		audit:   audit,
		limiter: limiter,
		requests: NewServiceRequestService(
			tx, requestRepo, &fakeEquipmentRepo{store: store},
			&fakeCompletionReportRepo{store: store}, auditRepo, audit, limiter, bus, logger,
		),
		quotes: NewQuoteService(
			tx, quoteRepo, requestRepo, &fakeOrganizationRepo{store: store},
			audit, limiter, bus, logger,
		),
		disputes: NewDisputeService(
			tx, &fakeDisputeRepo{store: store}, requestRepo,
			audit, limiter, bus, logger,
		),
	}
}

// seedRequest inserts a request directly into the store, bypassing the
// workflow, so tests can start from any status.
func (env *testEnv) seedRequest(orgID, equipmentID, requestedBy int64, status lifecycle.RequestStatus) int64 {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	id := env.store.id()
	env.store.requests[id] = entities.ServiceRequest{
		ID:             id,
		OrganizationID: orgID,
		EquipmentID:    equipmentID,
		Type:           entities.RequestTypeRepair,
		Priority:       entities.PriorityHigh,
		Status:         status,
		DescriptionVI:  "Máy chụp X-quang không khởi động",
		RequestedBy:    requestedBy,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	return id
}

func (env *testEnv) seedAssignedRequest(orgID, equipmentID, requestedBy, providerID int64, status lifecycle.RequestStatus) int64 {
	id := env.seedRequest(orgID, equipmentID, requestedBy, status)
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	req := env.store.requests[id]
	req.AssignedProviderID = &providerID
	env.store.requests[id] = req
	return id
}

func (env *testEnv) seedEquipment(orgID int64) int64 {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	id := env.store.id()
	env.store.equipment[id] = entities.Equipment{ID: id, OrganizationID: orgID, Name: "X-ray unit"}
	return id
}

func (env *testEnv) seedProviderProfile(orgID int64) {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	env.store.profiles[orgID] = entities.ProviderProfile{
		ID:             env.store.id(),
		OrganizationID: orgID,
		Specialties:    []string{"imaging"},
		Verified:       true,
	}
}

func (env *testEnv) requestStatus(id int64) lifecycle.RequestStatus {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	return env.store.requests[id].Status
}

func (env *testEnv) quoteStatus(id int64) lifecycle.QuoteStatus {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	return env.store.quotes[id].Status
}

func identityCtx(userID, orgID int64, orgType entities.OrgType, role entities.Role) context.Context {
	return authz.WithIdentity(context.Background(), &authz.Identity{
		UserID:         userID,
		OrganizationID: orgID,
		OrgType:        orgType,
		Role:           role,
	})
}
