package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediserve/internal/dto"
	"mediserve/internal/entities"
	"mediserve/internal/lifecycle"
	"mediserve/pkg/apperrors"
)

type ServiceRequestRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, req *entities.ServiceRequest) (int64, error)
	FindByID(ctx context.Context, id int64) (*entities.ServiceRequest, error)
	// FindByIDForUpdateInTx locks the request row for the rest of the
	// transaction; concurrent workflow calls on the same request
	// serialize on this lock.
	FindByIDForUpdateInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.ServiceRequest, error)
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.RequestStatus, completedAt *time.Time) error
	AssignProviderInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.RequestStatus, providerID int64) error
	InsertDeclineInTx(ctx context.Context, tx pgx.Tx, requestID, providerOrgID, userID int64, reason string) error
	List(ctx context.Context, filter dto.ServiceRequestListFilter, orgID int64, orgType entities.OrgType) ([]entities.ServiceRequest, uint64, error)
}

type ServiceRequestRepository struct {
	storage *pgxpool.Pool
}

func NewServiceRequestRepository(storage *pgxpool.Pool) ServiceRequestRepositoryInterface {
	return &ServiceRequestRepository{storage: storage}
}

const serviceRequestColumns = `
	id, organization_id, equipment_id, type, priority, status,
	description_vi, description_en, scheduled_at, assigned_provider_id,
	requested_by, completed_at, created_at, updated_at`

func scanServiceRequest(row pgx.Row) (*entities.ServiceRequest, error) {
	var req entities.ServiceRequest
	err := row.Scan(
		&req.ID, &req.OrganizationID, &req.EquipmentID, &req.Type, &req.Priority, &req.Status,
		&req.DescriptionVI, &req.DescriptionEN, &req.ScheduledAt, &req.AssignedProviderID,
		&req.RequestedBy, &req.CompletedAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("service_request")
		}
		return nil, fmt.Errorf("scanning service request: %w", err)
	}
	return &req, nil
}

func (r *ServiceRequestRepository) CreateInTx(ctx context.Context, tx pgx.Tx, req *entities.ServiceRequest) (int64, error) {
	query := `
		INSERT INTO service_requests
			(organization_id, equipment_id, type, priority, status,
			 description_vi, description_en, scheduled_at, requested_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id`

	var id int64
	err := tx.QueryRow(ctx, query,
		req.OrganizationID, req.EquipmentID, req.Type, req.Priority, req.Status,
		req.DescriptionVI, req.DescriptionEN, req.ScheduledAt, req.RequestedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting service request: %w", err)
	}
	return id, nil
}

func findServiceRequest(ctx context.Context, q querier, id int64, forUpdate bool) (*entities.ServiceRequest, error) {
	query := `SELECT` + serviceRequestColumns + ` FROM service_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanServiceRequest(q.QueryRow(ctx, query, id))
}

func (r *ServiceRequestRepository) FindByID(ctx context.Context, id int64) (*entities.ServiceRequest, error) {
	return findServiceRequest(ctx, r.storage, id, false)
}

func (r *ServiceRequestRepository) FindByIDForUpdateInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.ServiceRequest, error) {
	return findServiceRequest(ctx, tx, id, true)
}

func (r *ServiceRequestRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.RequestStatus, completedAt *time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE service_requests SET status = $1, completed_at = COALESCE($2, completed_at), updated_at = NOW() WHERE id = $3`,
		status, completedAt, id)
	if err != nil {
		return fmt.Errorf("updating service request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("service_request")
	}
	return nil
}

func (r *ServiceRequestRepository) AssignProviderInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.RequestStatus, providerID int64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE service_requests SET status = $1, assigned_provider_id = $2, updated_at = NOW() WHERE id = $3`,
		status, providerID, id)
	if err != nil {
		return fmt.Errorf("assigning provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("service_request")
	}
	return nil
}

func (r *ServiceRequestRepository) InsertDeclineInTx(ctx context.Context, tx pgx.Tx, requestID, providerOrgID, userID int64, reason string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO service_request_declines (service_request_id, provider_id, declined_by, reason, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		requestID, providerOrgID, userID, reason)
	if err != nil {
		return fmt.Errorf("inserting decline: %w", err)
	}
	return nil
}

// List scopes results by caller side: hospitals see their own requests,
// providers see the open market plus requests assigned to them.
func (r *ServiceRequestRepository) List(ctx context.Context, filter dto.ServiceRequestListFilter, orgID int64, orgType entities.OrgType) ([]entities.ServiceRequest, uint64, error) {
	builder := sq.Select(
		"id", "organization_id", "equipment_id", "type", "priority", "status",
		"description_vi", "description_en", "scheduled_at", "assigned_provider_id",
		"requested_by", "completed_at", "created_at", "updated_at",
	).From("service_requests").PlaceholderFormat(sq.Dollar)

	countBuilder := sq.Select("COUNT(*)").From("service_requests").PlaceholderFormat(sq.Dollar)

	scope := scopePredicate(orgID, orgType)
	builder = builder.Where(scope)
	countBuilder = countBuilder.Where(scope)

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
		countBuilder = countBuilder.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Priority != "" {
		builder = builder.Where(sq.Eq{"priority": filter.Priority})
		countBuilder = countBuilder.Where(sq.Eq{"priority": filter.Priority})
	}
	if filter.Type != "" {
		builder = builder.Where(sq.Eq{"type": filter.Type})
		countBuilder = countBuilder.Where(sq.Eq{"type": filter.Type})
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	builder = builder.OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit))

	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building count query: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting service requests: %w", err)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building list query: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing service requests: %w", err)
	}
	defer rows.Close()

	requests := make([]entities.ServiceRequest, 0)
	for rows.Next() {
		var req entities.ServiceRequest
		if err := rows.Scan(
			&req.ID, &req.OrganizationID, &req.EquipmentID, &req.Type, &req.Priority, &req.Status,
			&req.DescriptionVI, &req.DescriptionEN, &req.ScheduledAt, &req.AssignedProviderID,
			&req.RequestedBy, &req.CompletedAt, &req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning service request row: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

func scopePredicate(orgID int64, orgType entities.OrgType) sq.Sqlizer {
	if orgType == entities.OrgTypeHospital {
		return sq.Eq{"organization_id": orgID}
	}
	return sq.Or{
		sq.Eq{"status": []string{string(lifecycle.RequestPending), string(lifecycle.RequestQuoted)}},
		sq.Eq{"assigned_provider_id": orgID},
	}
}
