package authz

import (
	"context"

	"mediserve/internal/entities"
	"mediserve/pkg/apperrors"
	"mediserve/pkg/contextkeys"
)

// Identity is the resolved caller: who they are, which organization
// they act for and with what role. The auth middleware places one into
// the request context.
type Identity struct {
	UserID         int64
	OrganizationID int64
	OrgType        entities.OrgType
	Role           entities.Role
}

// MembershipResolver turns an authenticated user id into their active
// organization context. Implementations live in the repositories
// package; the gate only sees the typed result.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID int64) (*Identity, error)
}

func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, contextkeys.IdentityKey, ident)
}

// FromContext enforces requireAuthenticated and
// requireActiveOrganization in one place: every workflow entry point
// starts here.
func FromContext(ctx context.Context) (*Identity, error) {
	ident, ok := ctx.Value(contextkeys.IdentityKey).(*Identity)
	if !ok || ident == nil || ident.UserID == 0 {
		return nil, apperrors.Unauthenticated()
	}
	if ident.OrganizationID == 0 {
		return nil, apperrors.NoActiveOrganization()
	}
	return ident, nil
}
