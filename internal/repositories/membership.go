package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"mediserve/internal/authz"
	"mediserve/pkg/apperrors"
)

// MembershipRepository is the pgx-backed MembershipResolver: one typed
// lookup per request, cached in Redis so the auth middleware does not
// hit Postgres on every call.
type MembershipRepository struct {
	storage *pgxpool.Pool
	cache   CacheRepositoryInterface
	ttl     time.Duration
	logger  *zap.Logger
}

func NewMembershipRepository(storage *pgxpool.Pool, cache CacheRepositoryInterface, ttl time.Duration, logger *zap.Logger) authz.MembershipResolver {
	return &MembershipRepository{storage: storage, cache: cache, ttl: ttl, logger: logger}
}

func membershipCacheKey(userID int64) string {
	return fmt.Sprintf("membership:user:%d", userID)
}

func (r *MembershipRepository) Resolve(ctx context.Context, userID int64) (*authz.Identity, error) {
	key := membershipCacheKey(userID)
	if cached, err := r.cache.Get(ctx, key); err == nil && cached != "" {
		var ident authz.Identity
		if err := json.Unmarshal([]byte(cached), &ident); err == nil {
			return &ident, nil
		}
	}

	query := `
		SELECT m.user_id, m.organization_id, o.type, m.role
		FROM memberships m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1 AND m.active`

	var ident authz.Identity
	err := r.storage.QueryRow(ctx, query, userID).Scan(
		&ident.UserID, &ident.OrganizationID, &ident.OrgType, &ident.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NoActiveOrganization()
		}
		return nil, fmt.Errorf("resolving membership: %w", err)
	}

	if payload, err := json.Marshal(&ident); err == nil {
		if err := r.cache.Set(ctx, key, string(payload), r.ttl); err != nil {
			r.logger.Warn("membership cache write failed", zap.Int64("userID", userID), zap.Error(err))
		}
	}
	return &ident, nil
}
