package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediserve/internal/entities"
)

type AuditRepositoryInterface interface {
	// Create appends one entry. The table has no update or delete path.
	Create(ctx context.Context, entry *entities.AuditEntry) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]entities.AuditEntry, error)
	ListForExport(ctx context.Context, organizationID int64, from, to *time.Time) ([]entities.AuditEntry, error)
}

type AuditRepository struct {
	storage *pgxpool.Pool
}

func NewAuditRepository(storage *pgxpool.Pool) AuditRepositoryInterface {
	return &AuditRepository{storage: storage}
}

func (r *AuditRepository) Create(ctx context.Context, entry *entities.AuditEntry) error {
	query := `
		INSERT INTO audit_entries
			(id, organization_id, actor_id, action, resource_type, resource_id,
			 previous_values, new_values, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`

	_, err := r.storage.Exec(ctx, query,
		entry.ID, entry.OrganizationID, entry.ActorID, entry.Action,
		entry.ResourceType, entry.ResourceID, entry.PreviousValues, entry.NewValues)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByResource(ctx context.Context, resourceType, resourceID string) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, organization_id, actor_id, action, resource_type, resource_id,
		       previous_values, new_values, created_at
		FROM audit_entries
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at ASC, id ASC`

	rows, err := r.storage.Query(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

func (r *AuditRepository) ListForExport(ctx context.Context, organizationID int64, from, to *time.Time) ([]entities.AuditEntry, error) {
	builder := sq.Select(
		"id", "organization_id", "actor_id", "action", "resource_type", "resource_id",
		"previous_values", "new_values", "created_at",
	).From("audit_entries").
		Where(sq.Eq{"organization_id": organizationID}).
		OrderBy("created_at ASC").
		PlaceholderFormat(sq.Dollar)

	if from != nil {
		builder = builder.Where(sq.GtOrEq{"created_at": *from})
	}
	if to != nil {
		builder = builder.Where(sq.LtOrEq{"created_at": *to})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building audit export query: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exporting audit entries: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

func scanAuditRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]entities.AuditEntry, error) {
	entries := make([]entities.AuditEntry, 0)
	for rows.Next() {
		var e entities.AuditEntry
		if err := rows.Scan(
			&e.ID, &e.OrganizationID, &e.ActorID, &e.Action, &e.ResourceType, &e.ResourceID,
			&e.PreviousValues, &e.NewValues, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
