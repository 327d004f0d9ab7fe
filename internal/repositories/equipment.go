package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediserve/internal/entities"
	"mediserve/pkg/apperrors"
)

type EquipmentRepositoryInterface interface {
	FindByID(ctx context.Context, id int64) (*entities.Equipment, error)
}

type EquipmentRepository struct {
	storage *pgxpool.Pool
}

func NewEquipmentRepository(storage *pgxpool.Pool) EquipmentRepositoryInterface {
	return &EquipmentRepository{storage: storage}
}

func (r *EquipmentRepository) FindByID(ctx context.Context, id int64) (*entities.Equipment, error) {
	query := `
		SELECT id, organization_id, name, model, serial_number, location, created_at
		FROM equipment WHERE id = $1`

	var e entities.Equipment
	err := r.storage.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.OrganizationID, &e.Name, &e.Model, &e.SerialNumber, &e.Location, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("equipment")
		}
		return nil, fmt.Errorf("scanning equipment: %w", err)
	}
	return &e, nil
}
