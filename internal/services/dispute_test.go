package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediserve/internal/dto"
	"mediserve/internal/entities"
	"mediserve/internal/lifecycle"
	"mediserve/pkg/apperrors"
)

func TestOpenDispute(t *testing.T) {
	t.Run("hospital disputes a completed request", func(t *testing.T) {
		env := newTestEnv()
		requestID := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestCompleted)

		disputeID, err := env.disputes.Open(hospitalCtx(hospitalMember, entities.RoleMember), requestID, dto.OpenDisputeDTO{
			ReasonVI: "Thiết bị vẫn báo lỗi sau sửa chữa",
		})
		require.NoError(t, err)
		assert.Equal(t, lifecycle.RequestDisputed, env.requestStatus(requestID))

		got, err := env.disputes.Find(hospitalCtx(hospitalMember, entities.RoleMember), disputeID)
		require.NoError(t, err)
		assert.Equal(t, string(lifecycle.DisputeOpen), got.Status)
	})

	t.Run("assigned provider may dispute in_progress work", func(t *testing.T) {
		env := newTestEnv()
		requestID := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestInProgress)

		_, err := env.disputes.Open(providerCtx(providerUser), requestID, dto.OpenDisputeDTO{
			ReasonVI: "Bệnh viện không cho tiếp cận thiết bị",
		})
		require.NoError(t, err)
		assert.Equal(t, lifecycle.RequestDisputed, env.requestStatus(requestID))
	})

	t.Run("third parties are rejected", func(t *testing.T) {
		env := newTestEnv()
		requestID := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestCompleted)

		outsider := identityCtx(providerUser2, providerOrg2, entities.OrgTypeProvider, entities.RoleMember)
		_, err := env.disputes.Open(outsider, requestID, dto.OpenDisputeDTO{
			ReasonVI: "Chúng tôi không liên quan nhưng vẫn thử",
		})
		assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
		assert.Equal(t, lifecycle.RequestCompleted, env.requestStatus(requestID))
	})

	t.Run("pending request cannot be disputed", func(t *testing.T) {
		env := newTestEnv()
		requestID := env.seedRequest(hospitalOrg, 1, hospitalOwner, lifecycle.RequestPending)

		_, err := env.disputes.Open(hospitalCtx(hospitalMember, entities.RoleMember), requestID, dto.OpenDisputeDTO{
			ReasonVI: "Chưa có gì để khiếu nại nhưng vẫn gửi",
		})
		assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))
	})

	t.Run("short reason rejected", func(t *testing.T) {
		env := newTestEnv()
		requestID := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestCompleted)

		_, err := env.disputes.Open(hospitalCtx(hospitalMember, entities.RoleMember), requestID, dto.OpenDisputeDTO{
			ReasonVI: "lỗi",
		})
		assert.Equal(t, apperrors.KindInvalidReason, apperrors.KindOf(err))
	})
}

func (env *testEnv) seedDispute(requestID, orgID, raisedBy int64, status lifecycle.DisputeStatus) int64 {
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	id := env.store.id()
	env.store.disputes[id] = entities.Dispute{
		ID:               id,
		ServiceRequestID: requestID,
		OrganizationID:   orgID,
		RaisedBy:         raisedBy,
		Status:           status,
		ReasonVI:         "Kết quả sửa chữa không đạt",
	}
	return id
}

func TestDisputeLifecycle(t *testing.T) {
	env := newTestEnv()
	requestID := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestDisputed)
	disputeID := env.seedDispute(requestID, hospitalOrg, hospitalMember, lifecycle.DisputeOpen)
	ctx := hospitalCtx(hospitalAdmin, entities.RoleAdmin)

	require.NoError(t, env.disputes.UpdateStatus(ctx, disputeID, dto.UpdateDisputeStatusDTO{
		Status: string(lifecycle.DisputeInvestigating),
	}))
	require.NoError(t, env.disputes.UpdateStatus(ctx, disputeID, dto.UpdateDisputeStatusDTO{
		Status: string(lifecycle.DisputeEscalated),
	}))

	// Regressing an escalated dispute is not allowed.
	err := env.disputes.UpdateStatus(ctx, disputeID, dto.UpdateDisputeStatusDTO{
		Status: string(lifecycle.DisputeInvestigating),
	})
	assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))
}

func TestResolveDisputeSettlesRequest(t *testing.T) {
	t.Run("default outcome is completed", func(t *testing.T) {
		env := newTestEnv()
		requestID := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestDisputed)
		disputeID := env.seedDispute(requestID, hospitalOrg, hospitalMember, lifecycle.DisputeOpen)
		resolution := "Nhà cung cấp đã sửa lại miễn phí"

		err := env.disputes.UpdateStatus(hospitalCtx(hospitalAdmin, entities.RoleAdmin), disputeID, dto.UpdateDisputeStatusDTO{
			Status:     string(lifecycle.DisputeResolved),
			Resolution: &resolution,
		})
		require.NoError(t, err)
		assert.Equal(t, lifecycle.RequestCompleted, env.requestStatus(requestID))
	})

	t.Run("explicit cancelled outcome", func(t *testing.T) {
		env := newTestEnv()
		requestID := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestDisputed)
		disputeID := env.seedDispute(requestID, hospitalOrg, hospitalMember, lifecycle.DisputeOpen)
		outcome := string(lifecycle.RequestCancelled)

		err := env.disputes.UpdateStatus(hospitalCtx(hospitalAdmin, entities.RoleAdmin), disputeID, dto.UpdateDisputeStatusDTO{
			Status:  string(lifecycle.DisputeResolved),
			Outcome: &outcome,
		})
		require.NoError(t, err)
		assert.Equal(t, lifecycle.RequestCancelled, env.requestStatus(requestID))
	})

	t.Run("member role cannot drive the dispute", func(t *testing.T) {
		env := newTestEnv()
		requestID := env.seedAssignedRequest(hospitalOrg, 1, hospitalOwner, providerOrg, lifecycle.RequestDisputed)
		disputeID := env.seedDispute(requestID, hospitalOrg, hospitalMember, lifecycle.DisputeOpen)

		err := env.disputes.UpdateStatus(hospitalCtx(hospitalMember, entities.RoleMember), disputeID, dto.UpdateDisputeStatusDTO{
			Status: string(lifecycle.DisputeResolved),
		})
		assert.Equal(t, apperrors.KindInsufficientRole, apperrors.KindOf(err))
	})
}
