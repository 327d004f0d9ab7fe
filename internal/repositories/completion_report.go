package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediserve/internal/entities"
)

type CompletionReportRepositoryInterface interface {
	// Create inserts a new immutable report row. Resubmission inserts
	// another row; there is no update path.
	Create(ctx context.Context, report *entities.CompletionReport) (int64, error)
	ListByServiceRequest(ctx context.Context, serviceRequestID int64) ([]entities.CompletionReport, error)
}

type CompletionReportRepository struct {
	storage *pgxpool.Pool
}

func NewCompletionReportRepository(storage *pgxpool.Pool) CompletionReportRepositoryInterface {
	return &CompletionReportRepository{storage: storage}
}

func (r *CompletionReportRepository) Create(ctx context.Context, report *entities.CompletionReport) (int64, error) {
	query := `
		INSERT INTO completion_reports
			(service_request_id, provider_id, submitted_by, work_performed_vi,
			 work_performed_en, parts_replaced, labor_hours, recommendations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id`

	var id int64
	err := r.storage.QueryRow(ctx, query,
		report.ServiceRequestID, report.ProviderID, report.SubmittedBy, report.WorkPerformedVI,
		report.WorkPerformedEN, report.PartsReplaced, report.LaborHours, report.Recommendations,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting completion report: %w", err)
	}
	return id, nil
}

func (r *CompletionReportRepository) ListByServiceRequest(ctx context.Context, serviceRequestID int64) ([]entities.CompletionReport, error) {
	query := `
		SELECT id, service_request_id, provider_id, submitted_by, work_performed_vi,
		       work_performed_en, parts_replaced, labor_hours, recommendations, created_at
		FROM completion_reports
		WHERE service_request_id = $1
		ORDER BY created_at ASC`

	rows, err := r.storage.Query(ctx, query, serviceRequestID)
	if err != nil {
		return nil, fmt.Errorf("listing completion reports: %w", err)
	}
	defer rows.Close()

	reports := make([]entities.CompletionReport, 0)
	for rows.Next() {
		var rep entities.CompletionReport
		if err := rows.Scan(
			&rep.ID, &rep.ServiceRequestID, &rep.ProviderID, &rep.SubmittedBy, &rep.WorkPerformedVI,
			&rep.WorkPerformedEN, &rep.PartsReplaced, &rep.LaborHours, &rep.Recommendations, &rep.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning completion report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
