package authz

import (
	"mediserve/internal/entities"
	"mediserve/pkg/apperrors"
)

// RequireOrgType rejects callers acting for the wrong side of the
// marketplace (hospital vs provider).
func RequireOrgType(ident *Identity, want entities.OrgType) error {
	if ident.OrgType != want {
		return apperrors.ForbiddenOrgType(string(want), string(ident.OrgType))
	}
	return nil
}

// RequireApprovalRole gates approval-class transitions: only owners and
// admins of the acting organization may approve.
func RequireApprovalRole(ident *Identity) error {
	if ident.Role == entities.RoleOwner || ident.Role == entities.RoleAdmin {
		return nil
	}
	return apperrors.InsufficientRole(string(ident.Role))
}

// PreventSelfApproval blocks the conflict of interest where the staffer
// who filed a request approves it themselves. Role does not matter
// here: an owner who created the request is still rejected.
func PreventSelfApproval(requestedBy, actorID int64) error {
	if requestedBy == actorID {
		return apperrors.SelfApprovalForbidden()
	}
	return nil
}

// RequireOwnership rejects callers whose organization does not own the
// resource.
func RequireOwnership(ident *Identity, ownerOrgID int64) error {
	if ident.OrganizationID != ownerOrgID {
		return apperrors.Forbidden()
	}
	return nil
}
