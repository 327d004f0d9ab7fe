package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediserve/internal/dto"
	"mediserve/internal/entities"
	"mediserve/internal/lifecycle"
	"mediserve/pkg/apperrors"
)

const (
	hospitalOrg  = int64(100)
	providerOrg  = int64(200)
	providerOrg2 = int64(201)

	hospitalOwner  = int64(1)
	hospitalAdmin  = int64(2)
	hospitalMember = int64(3)
	providerUser   = int64(10)
	providerUser2  = int64(11)
)

func hospitalCtx(userID int64, role entities.Role) context.Context {
	return identityCtx(userID, hospitalOrg, entities.OrgTypeHospital, role)
}

func providerCtx(userID int64) context.Context {
	return identityCtx(userID, providerOrg, entities.OrgTypeProvider, entities.RoleMember)
}

func noIdentityCtx() context.Context {
	return context.Background()
}

func TestCreateServiceRequest(t *testing.T) {
	env := newTestEnv()
	equipmentID := env.seedEquipment(hospitalOrg)
	ctx := hospitalCtx(hospitalMember, entities.RoleMember)

	id, err := env.requests.Create(ctx, dto.CreateServiceRequestDTO{
		EquipmentID:   equipmentID,
		Type:          "repair",
		Priority:      "high",
		DescriptionVI: "Máy siêu âm mất tín hiệu",
	})
	require.NoError(t, err)

	got, err := env.requests.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.RequestPending), got.Status)
	assert.Nil(t, got.AssignedProviderID)
	assert.Equal(t, hospitalMember, got.RequestedBy)

	created := env.audit.byAction(entities.AuditRequestCreated)
	require.Len(t, created, 1)
	assert.Equal(t, idString(id), created[0].ResourceID)
}

func TestCreateServiceRequestEquipmentMismatch(t *testing.T) {
	env := newTestEnv()
	foreignEquipment := env.seedEquipment(int64(999))

	_, err := env.requests.Create(hospitalCtx(hospitalMember, entities.RoleMember), dto.CreateServiceRequestDTO{
		EquipmentID:   foreignEquipment,
		Type:          "repair",
		Priority:      "high",
		DescriptionVI: "Máy siêu âm mất tín hiệu",
	})
	assert.Equal(t, apperrors.KindEquipmentOrgMismatch, apperrors.KindOf(err))
}

func TestCreateServiceRequestProviderForbidden(t *testing.T) {
	env := newTestEnv()
	equipmentID := env.seedEquipment(providerOrg)

	_, err := env.requests.Create(providerCtx(providerUser), dto.CreateServiceRequestDTO{
		EquipmentID:   equipmentID,
		Type:          "repair",
		Priority:      "high",
		DescriptionVI: "Máy siêu âm mất tín hiệu",
	})
	assert.Equal(t, apperrors.KindForbiddenOrgType, apperrors.KindOf(err))
}

func TestUpdateStatusApprovalGates(t *testing.T) {
	t.Run("member cannot approve", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestQuoted)

		err := env.requests.UpdateStatus(hospitalCtx(hospitalMember, entities.RoleMember), id, lifecycle.RequestAccepted)
		assert.Equal(t, apperrors.KindInsufficientRole, apperrors.KindOf(err))
		assert.Equal(t, lifecycle.RequestQuoted, env.requestStatus(id))
	})

	t.Run("admin can approve", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestQuoted)

		err := env.requests.UpdateStatus(hospitalCtx(hospitalAdmin, entities.RoleAdmin), id, lifecycle.RequestAccepted)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.RequestAccepted, env.requestStatus(id))
	})

	t.Run("requester cannot approve own request even as owner", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestQuoted)

		err := env.requests.UpdateStatus(hospitalCtx(hospitalOwner, entities.RoleOwner), id, lifecycle.RequestAccepted)
		assert.Equal(t, apperrors.KindSelfApprovalForbidden, apperrors.KindOf(err))
		assert.Equal(t, lifecycle.RequestQuoted, env.requestStatus(id))
	})

	t.Run("member may cancel without approval role", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestQuoted)

		err := env.requests.UpdateStatus(hospitalCtx(hospitalMember, entities.RoleMember), id, lifecycle.RequestCancelled)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.RequestCancelled, env.requestStatus(id))
	})
}

func TestUpdateStatusIllegalTransition(t *testing.T) {
	env := newTestEnv()
	id := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestPending)

	err := env.requests.UpdateStatus(hospitalCtx(hospitalAdmin, entities.RoleAdmin), id, lifecycle.RequestCompleted)
	assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))
	assert.Equal(t, lifecycle.RequestPending, env.requestStatus(id))
}

func TestCancelTerminalRequest(t *testing.T) {
	env := newTestEnv()
	id := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestCancelled)

	err := env.requests.Cancel(hospitalCtx(hospitalAdmin, entities.RoleAdmin), id)
	assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))
}

func TestStartService(t *testing.T) {
	t.Run("assigned provider starts accepted request", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestAccepted)

		require.NoError(t, env.requests.StartService(providerCtx(providerUser), id))
		assert.Equal(t, lifecycle.RequestInProgress, env.requestStatus(id))
	})

	t.Run("unassigned provider is rejected", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg2, lifecycle.RequestAccepted)

		err := env.requests.StartService(providerCtx(providerUser), id)
		assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	})

	t.Run("quoted request cannot be started", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestQuoted)

		err := env.requests.StartService(providerCtx(providerUser), id)
		assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))
		assert.Equal(t, lifecycle.RequestQuoted, env.requestStatus(id))
	})
}

func TestUpdateProgress(t *testing.T) {
	t.Run("records audit without touching status", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestInProgress)
		pct := 40

		err := env.requests.UpdateProgress(providerCtx(providerUser), id, dto.UpdateProgressDTO{
			Notes:           "Thay bo mạch nguồn",
			PercentComplete: &pct,
		})
		require.NoError(t, err)
		assert.Equal(t, lifecycle.RequestInProgress, env.requestStatus(id))

		progress := env.audit.byAction(entities.AuditRequestProgress)
		require.Len(t, progress, 1)
		assert.Equal(t, 40, progress[0].NewValues["percent_complete"])
	})

	t.Run("rejected outside in_progress", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestAccepted)

		err := env.requests.UpdateProgress(providerCtx(providerUser), id, dto.UpdateProgressDTO{Notes: "quá sớm"})
		assert.Equal(t, apperrors.KindInvalidServiceRequestStatus, apperrors.KindOf(err))
	})
}

func TestCompleteServiceSetsCompletedAt(t *testing.T) {
	env := newTestEnv()
	id := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestInProgress)

	require.NoError(t, env.requests.CompleteService(providerCtx(providerUser), id))
	assert.Equal(t, lifecycle.RequestCompleted, env.requestStatus(id))

	got, err := env.requests.Find(hospitalCtx(hospitalOwner, entities.RoleOwner), id)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
}

func TestSubmitCompletionReport(t *testing.T) {
	t.Run("accepted during in_progress and after completion", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestInProgress)
		ctx := providerCtx(providerUser)

		_, err := env.requests.SubmitCompletionReport(ctx, id, dto.SubmitCompletionReportDTO{
			WorkPerformedVI: "Đã hiệu chuẩn lại đầu dò",
		})
		require.NoError(t, err)

		require.NoError(t, env.requests.CompleteService(ctx, id))

		_, err = env.requests.SubmitCompletionReport(ctx, id, dto.SubmitCompletionReportDTO{
			WorkPerformedVI: "Bổ sung kết quả đo sau nghiệm thu",
		})
		require.NoError(t, err)
		assert.Len(t, env.store.reports, 2)
	})

	t.Run("rejected before work starts", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestAccepted)

		_, err := env.requests.SubmitCompletionReport(providerCtx(providerUser), id, dto.SubmitCompletionReportDTO{
			WorkPerformedVI: "Chưa làm gì",
		})
		assert.Equal(t, apperrors.KindInvalidServiceRequestStatus, apperrors.KindOf(err))
	})
}

func TestDeclineRequest(t *testing.T) {
	t.Run("short reason rejected", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestPending)

		err := env.requests.DeclineRequest(providerCtx(providerUser), id, "too busy")
		assert.Equal(t, apperrors.KindInvalidReason, apperrors.KindOf(err))
		assert.Empty(t, env.store.declines)
	})

	t.Run("valid reason recorded, status untouched", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestPending)

		err := env.requests.DeclineRequest(providerCtx(providerUser), id, "không có linh kiện thay thế")
		require.NoError(t, err)
		assert.Equal(t, lifecycle.RequestPending, env.requestStatus(id))
		require.Len(t, env.store.declines, 1)
		assert.Equal(t, providerOrg, env.store.declines[0].ProviderID)
	})

	t.Run("padding spaces do not satisfy the minimum", func(t *testing.T) {
		env := newTestEnv()
		id := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestPending)

		err := env.requests.DeclineRequest(providerCtx(providerUser), id, "   busy    ")
		assert.Equal(t, apperrors.KindInvalidReason, apperrors.KindOf(err))
	})
}

func TestRateLimitedCreate(t *testing.T) {
	env := newTestEnv()
	env.limiter.limit = 2
	equipmentID := env.seedEquipment(hospitalOrg)
	ctx := hospitalCtx(hospitalMember, entities.RoleMember)

	payload := dto.CreateServiceRequestDTO{
		EquipmentID:   equipmentID,
		Type:          "repair",
		Priority:      "low",
		DescriptionVI: "Bảo trì định kỳ",
	}
	_, err := env.requests.Create(ctx, payload)
	require.NoError(t, err)
	_, err = env.requests.Create(ctx, payload)
	require.NoError(t, err)

	_, err = env.requests.Create(ctx, payload)
	assert.Equal(t, apperrors.KindRateLimited, apperrors.KindOf(err))
}

func TestFindScoping(t *testing.T) {
	env := newTestEnv()
	id := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestInProgress)

	// Assigned provider sees it, an unrelated provider does not once the
	// request has left the open market.
	_, err := env.requests.Find(providerCtx(providerUser), id)
	require.NoError(t, err)

	otherProvider := identityCtx(providerUser2, providerOrg2, entities.OrgTypeProvider, entities.RoleMember)
	_, err = env.requests.Find(otherProvider, id)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestGetAuditTrailOrdering(t *testing.T) {
	env := newTestEnv()
	equipmentID := env.seedEquipment(hospitalOrg)
	memberCtx := hospitalCtx(hospitalMember, entities.RoleMember)

	id, err := env.requests.Create(memberCtx, dto.CreateServiceRequestDTO{
		EquipmentID:   equipmentID,
		Type:          "maintenance",
		Priority:      "medium",
		DescriptionVI: "Bảo trì máy thở định kỳ",
	})
	require.NoError(t, err)
	require.NoError(t, env.requests.Cancel(memberCtx, id))

	trail, err := env.requests.GetAuditTrail(memberCtx, id)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, entities.AuditRequestCreated, trail[0].Action)
	assert.Equal(t, entities.AuditRequestTransition, trail[1].Action)
}

func TestUnauthenticatedAndNoOrganization(t *testing.T) {
	env := newTestEnv()
	id := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestPending)

	_, err := env.requests.Find(noIdentityCtx(), id)
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))

	orphan := identityCtx(hospitalMember, 0, entities.OrgTypeHospital, entities.RoleMember)
	_, err = env.requests.Find(orphan, id)
	assert.Equal(t, apperrors.KindNoActiveOrganization, apperrors.KindOf(err))
}
