package events

const (
	RequestStatusChangedName = "service_request.status_changed"
	QuoteAcceptedName        = "quote.accepted"
)

// RequestStatusChanged fires after a service-request transition
// commits. Listeners fan it out to notification channels.
type RequestStatusChanged struct {
	RequestID      int64
	OrganizationID int64
	ProviderID     *int64
	From           string
	To             string
	ActorID        int64
}

func (RequestStatusChanged) Name() string { return RequestStatusChangedName }

// QuoteAccepted fires after the acceptance cascade commits; the losing
// providers are listed so they can be notified of the rejection.
type QuoteAccepted struct {
	QuoteID           int64
	ServiceRequestID  int64
	HospitalID        int64
	WinningProvider   int64
	RejectedProviders []int64
	ActorID           int64
}

func (QuoteAccepted) Name() string { return QuoteAcceptedName }
