// Package lifecycle holds the transition tables for service requests,
// quotes and disputes. Everything here is a pure lookup: validation
// and error reporting stay with the callers.
package lifecycle

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestQuoted     RequestStatus = "quoted"
	RequestAccepted   RequestStatus = "accepted"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
	RequestCancelled  RequestStatus = "cancelled"
	RequestDisputed   RequestStatus = "disputed"
)

type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
	QuoteExpired  QuoteStatus = "expired"
)

type DisputeStatus string

const (
	DisputeOpen          DisputeStatus = "open"
	DisputeInvestigating DisputeStatus = "investigating"
	DisputeEscalated     DisputeStatus = "escalated"
	DisputeResolved      DisputeStatus = "resolved"
	DisputeCancelled     DisputeStatus = "cancelled"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:    {RequestQuoted, RequestCancelled},
	RequestQuoted:     {RequestAccepted, RequestCancelled},
	RequestAccepted:   {RequestInProgress, RequestCancelled},
	RequestInProgress: {RequestCompleted, RequestCancelled, RequestDisputed},
	RequestCompleted:  {RequestDisputed},
	RequestDisputed:   {RequestCompleted, RequestCancelled},
	RequestCancelled:  {},
}

var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuotePending:  {QuoteAccepted, QuoteRejected, QuoteExpired},
	QuoteAccepted: {},
	QuoteRejected: {},
	QuoteExpired:  {},
}

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeOpen:          {DisputeInvestigating, DisputeEscalated, DisputeResolved, DisputeCancelled},
	DisputeInvestigating: {DisputeEscalated, DisputeResolved, DisputeCancelled},
	DisputeEscalated:     {DisputeResolved, DisputeCancelled},
	DisputeResolved:      {},
	DisputeCancelled:     {},
}

func CanTransition(from, to RequestStatus) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CanTransitionQuote(from, to QuoteStatus) bool {
	for _, next := range quoteTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CanTransitionDispute(from, to DisputeStatus) bool {
	for _, next := range disputeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the allowed targets for a request status. The
// returned slice must not be mutated.
func NextStatuses(from RequestStatus) []RequestStatus {
	return requestTransitions[from]
}

func IsTerminal(s RequestStatus) bool {
	return len(requestTransitions[s]) == 0
}

// IsApprovalClass reports whether a request transition needs the
// elevated-role and self-approval gates when initiated by the hospital:
// accepting quotes and kicking off the work both commit the hospital
// to the assigned provider.
func IsApprovalClass(from, to RequestStatus) bool {
	if from == RequestQuoted && to == RequestAccepted {
		return true
	}
	if from == RequestAccepted && to == RequestInProgress {
		return true
	}
	return false
}

// Known reports whether s is one of the defined request statuses.
func Known(s RequestStatus) bool {
	_, ok := requestTransitions[s]
	return ok
}
