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

type QuoteRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, quote *entities.Quote) (int64, error)
	FindByID(ctx context.Context, id int64) (*entities.Quote, error)
	FindByIDInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.Quote, error)
	UpdateInTx(ctx context.Context, tx pgx.Tx, id int64, patch dto.UpdateQuoteDTO, validUntil *time.Time) error
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.QuoteStatus) error
	// RejectPendingSiblingsInTx flips every other pending quote on the
	// same request to rejected and returns the affected rows so the
	// caller can audit each one.
	RejectPendingSiblingsInTx(ctx context.Context, tx pgx.Tx, serviceRequestID, exceptQuoteID int64) ([]entities.Quote, error)
	ListByServiceRequest(ctx context.Context, serviceRequestID int64) ([]entities.Quote, error)
}

type QuoteRepository struct {
	storage *pgxpool.Pool
}

func NewQuoteRepository(storage *pgxpool.Pool) QuoteRepositoryInterface {
	return &QuoteRepository{storage: storage}
}

const quoteColumns = `
	id, service_request_id, provider_id, submitted_by, status, amount, currency,
	notes, valid_until, estimated_duration_days, available_start_date, created_at, updated_at`

func scanQuote(row pgx.Row) (*entities.Quote, error) {
	var q entities.Quote
	err := row.Scan(
		&q.ID, &q.ServiceRequestID, &q.ProviderID, &q.SubmittedBy, &q.Status, &q.Amount, &q.Currency,
		&q.Notes, &q.ValidUntil, &q.EstimatedDurationDays, &q.AvailableStartDate, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("quote")
		}
		return nil, fmt.Errorf("scanning quote: %w", err)
	}
	return &q, nil
}

func (r *QuoteRepository) CreateInTx(ctx context.Context, tx pgx.Tx, quote *entities.Quote) (int64, error) {
	query := `
		INSERT INTO quotes
			(service_request_id, provider_id, submitted_by, status, amount, currency,
			 notes, valid_until, estimated_duration_days, available_start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id`

	var id int64
	err := tx.QueryRow(ctx, query,
		quote.ServiceRequestID, quote.ProviderID, quote.SubmittedBy, quote.Status, quote.Amount, quote.Currency,
		quote.Notes, quote.ValidUntil, quote.EstimatedDurationDays, quote.AvailableStartDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting quote: %w", err)
	}
	return id, nil
}

func findQuote(ctx context.Context, q querier, id int64) (*entities.Quote, error) {
	query := `SELECT` + quoteColumns + ` FROM quotes WHERE id = $1`
	return scanQuote(q.QueryRow(ctx, query, id))
}

func (r *QuoteRepository) FindByID(ctx context.Context, id int64) (*entities.Quote, error) {
	return findQuote(ctx, r.storage, id)
}

func (r *QuoteRepository) FindByIDInTx(ctx context.Context, tx pgx.Tx, id int64) (*entities.Quote, error) {
	return findQuote(ctx, tx, id)
}

func (r *QuoteRepository) UpdateInTx(ctx context.Context, tx pgx.Tx, id int64, patch dto.UpdateQuoteDTO, validUntil *time.Time) error {
	builder := sq.Update("quotes").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar)

	if patch.Amount.Valid {
		builder = builder.Set("amount", patch.Amount.Float64)
	}
	if patch.Notes.Valid {
		builder = builder.Set("notes", patch.Notes.String)
	}
	if patch.EstimatedDurationDays.Valid {
		builder = builder.Set("estimated_duration_days", patch.EstimatedDurationDays.Int)
	}
	if patch.AvailableStartDate.Valid {
		builder = builder.Set("available_start_date", patch.AvailableStartDate.Time)
	}
	if validUntil != nil {
		builder = builder.Set("valid_until", *validUntil)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("building quote update: %w", err)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("quote")
	}
	return nil
}

func (r *QuoteRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id int64, status lifecycle.QuoteStatus) error {
	tag, err := tx.Exec(ctx,
		`UPDATE quotes SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("updating quote status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("quote")
	}
	return nil
}

func (r *QuoteRepository) RejectPendingSiblingsInTx(ctx context.Context, tx pgx.Tx, serviceRequestID, exceptQuoteID int64) ([]entities.Quote, error) {
	query := `
		UPDATE quotes SET status = $1, updated_at = NOW()
		WHERE service_request_id = $2 AND id <> $3 AND status = $4
		RETURNING` + quoteColumns

	rows, err := tx.Query(ctx, query,
		lifecycle.QuoteRejected, serviceRequestID, exceptQuoteID, lifecycle.QuotePending)
	if err != nil {
		return nil, fmt.Errorf("rejecting sibling quotes: %w", err)
	}
	defer rows.Close()

	rejected := make([]entities.Quote, 0)
	for rows.Next() {
		var q entities.Quote
		if err := rows.Scan(
			&q.ID, &q.ServiceRequestID, &q.ProviderID, &q.SubmittedBy, &q.Status, &q.Amount, &q.Currency,
			&q.Notes, &q.ValidUntil, &q.EstimatedDurationDays, &q.AvailableStartDate, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning rejected quote: %w", err)
		}
		rejected = append(rejected, q)
	}
	return rejected, rows.Err()
}

func (r *QuoteRepository) ListByServiceRequest(ctx context.Context, serviceRequestID int64) ([]entities.Quote, error) {
	query := `SELECT` + quoteColumns + ` FROM quotes WHERE service_request_id = $1 ORDER BY created_at ASC`
	rows, err := r.storage.Query(ctx, query, serviceRequestID)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]entities.Quote, 0)
	for rows.Next() {
		var q entities.Quote
		if err := rows.Scan(
			&q.ID, &q.ServiceRequestID, &q.ProviderID, &q.SubmittedBy, &q.Status, &q.Amount, &q.Currency,
			&q.Notes, &q.ValidUntil, &q.EstimatedDurationDays, &q.AvailableStartDate, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning quote row: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
