package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediserve/internal/entities"
	"mediserve/internal/lifecycle"
	"mediserve/pkg/apperrors"
)

type DisputeRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, dispute *entities.Dispute) (int64, error)
	FindByID(ctx context.Context, id int64) (*entities.Dispute, error)
	FindByIDForUpdateInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.Dispute, error)
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.DisputeStatus, resolution *string) error
}

type DisputeRepository struct {
	storage *pgxpool.Pool
}

func NewDisputeRepository(storage *pgxpool.Pool) DisputeRepositoryInterface {
	return &DisputeRepository{storage: storage}
}

const disputeColumns = `
	id, service_request_id, organization_id, raised_by, status,
	reason_vi, reason_en, resolution, created_at, updated_at`

func scanDispute(row pgx.Row) (*entities.Dispute, error) {
	var d entities.Dispute
	err := row.Scan(
		&d.ID, &d.ServiceRequestID, &d.OrganizationID, &d.RaisedBy, &d.Status,
		&d.ReasonVI, &d.ReasonEN, &d.Resolution, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("dispute")
		}
		return nil, fmt.Errorf("scanning dispute: %w", err)
	}
	return &d, nil
}

func (r *DisputeRepository) CreateInTx(ctx context.Context, tx pgx.Tx, dispute *entities.Dispute) (int64, error) {
	query := `
		INSERT INTO disputes
			(service_request_id, organization_id, raised_by, status, reason_vi, reason_en, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`

	var id int64
	err := tx.QueryRow(ctx, query,
		dispute.ServiceRequestID, dispute.OrganizationID, dispute.RaisedBy,
		dispute.Status, dispute.ReasonVI, dispute.ReasonEN,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting dispute: %w", err)
	}
	return id, nil
}

func (r *DisputeRepository) FindByID(ctx context.Context, id int64) (*entities.Dispute, error) {
	query := `SELECT` + disputeColumns + ` FROM disputes WHERE id = $1`
	return scanDispute(r.storage.QueryRow(ctx, query, id))
}

func (r *DisputeRepository) FindByIDForUpdateInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.Dispute, error) {
	query := `SELECT` + disputeColumns + ` FROM disputes WHERE id = $1 FOR UPDATE`
	return scanDispute(tx.QueryRow(ctx, query, id))
}

func (r *DisputeRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.DisputeStatus, resolution *string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE disputes SET status = $1, resolution = COALESCE($2, resolution), updated_at = NOW() WHERE id = $3`,
		status, resolution, id)
	if err != nil {
		return fmt.Errorf("updating dispute status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("dispute")
	}
	return nil
}
