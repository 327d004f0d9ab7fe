package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allRequestStatuses = []RequestStatus{
	RequestPending, RequestQuoted, RequestAccepted, RequestInProgress,
	RequestCompleted, RequestCancelled, RequestDisputed,
}

func TestCanTransition_AllowedPairs(t *testing.T) {
	allowed := map[RequestStatus][]RequestStatus{
		RequestPending:    {RequestQuoted, RequestCancelled},
		RequestQuoted:     {RequestAccepted, RequestCancelled},
		RequestAccepted:   {RequestInProgress, RequestCancelled},
		RequestInProgress: {RequestCompleted, RequestCancelled, RequestDisputed},
		RequestCompleted:  {RequestDisputed},
		RequestDisputed:   {RequestCompleted, RequestCancelled},
		RequestCancelled:  {},
	}

	for from, tos := range allowed {
		for _, to := range tos {
			assert.True(t, CanTransition(from, to), "%s -> %s must be allowed", from, to)
		}
	}
}

// Every pair outside the table must be rejected, including self
// transitions and transitions out of terminal statuses.
func TestCanTransition_ForbiddenPairs(t *testing.T) {
	allowed := map[RequestStatus]map[RequestStatus]bool{}
	for _, from := range allRequestStatuses {
		allowed[from] = map[RequestStatus]bool{}
		for _, to := range NextStatuses(from) {
			allowed[from][to] = true
		}
	}

	for _, from := range allRequestStatuses {
		for _, to := range allRequestStatuses {
			if allowed[from][to] {
				continue
			}
			assert.False(t, CanTransition(from, to), "%s -> %s must be forbidden", from, to)
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition("garbage", RequestQuoted))
	assert.False(t, CanTransition(RequestPending, "garbage"))
	assert.False(t, Known("garbage"))
	assert.True(t, Known(RequestDisputed))
}

func TestCanTransitionQuote(t *testing.T) {
	assert.True(t, CanTransitionQuote(QuotePending, QuoteAccepted))
	assert.True(t, CanTransitionQuote(QuotePending, QuoteRejected))
	assert.True(t, CanTransitionQuote(QuotePending, QuoteExpired))

	for _, terminal := range []QuoteStatus{QuoteAccepted, QuoteRejected, QuoteExpired} {
		for _, to := range []QuoteStatus{QuotePending, QuoteAccepted, QuoteRejected, QuoteExpired} {
			assert.False(t, CanTransitionQuote(terminal, to), "%s -> %s must be forbidden", terminal, to)
		}
	}
}

func TestCanTransitionDispute(t *testing.T) {
	assert.True(t, CanTransitionDispute(DisputeOpen, DisputeInvestigating))
	assert.True(t, CanTransitionDispute(DisputeInvestigating, DisputeEscalated))
	assert.True(t, CanTransitionDispute(DisputeEscalated, DisputeResolved))
	assert.False(t, CanTransitionDispute(DisputeResolved, DisputeOpen))
	assert.False(t, CanTransitionDispute(DisputeEscalated, DisputeInvestigating))
}

func TestIsApprovalClass(t *testing.T) {
	assert.True(t, IsApprovalClass(RequestQuoted, RequestAccepted))
	assert.True(t, IsApprovalClass(RequestAccepted, RequestInProgress))
	assert.False(t, IsApprovalClass(RequestPending, RequestQuoted))
	assert.False(t, IsApprovalClass(RequestInProgress, RequestCompleted))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(RequestCancelled))
	assert.False(t, IsTerminal(RequestCompleted), "completed can still be disputed")
}
