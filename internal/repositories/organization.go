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

type OrganizationRepositoryInterface interface {
	FindByID(ctx context.Context, id int64) (*entities.Organization, error)
	FindProviderProfile(ctx context.Context, organizationID int64) (*entities.ProviderProfile, error)
}

type OrganizationRepository struct {
	storage *pgxpool.Pool
}

func NewOrganizationRepository(storage *pgxpool.Pool) OrganizationRepositoryInterface {
	return &OrganizationRepository{storage: storage}
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id int64) (*entities.Organization, error) {
	query := `SELECT id, name, type, city, created_at FROM organizations WHERE id = $1`

	var org entities.Organization
	err := r.storage.QueryRow(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Type, &org.City, &org.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("organization")
		}
		return nil, fmt.Errorf("scanning organization: %w", err)
	}
	return &org, nil
}

func (r *OrganizationRepository) FindProviderProfile(ctx context.Context, organizationID int64) (*entities.ProviderProfile, error) {
	query := `
		SELECT id, organization_id, specialties, verified, created_at
		FROM provider_profiles WHERE organization_id = $1`

	var p entities.ProviderProfile
	err := r.storage.QueryRow(ctx, query, organizationID).Scan(
		&p.ID, &p.OrganizationID, &p.Specialties, &p.Verified, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("provider_profile")
		}
		return nil, fmt.Errorf("scanning provider profile: %w", err)
	}
	return &p, nil
}
