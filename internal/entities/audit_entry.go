package entities

import "time"

// AuditEntry is append-only: entries are never updated or deleted.
// Previous/new values are free-form snapshots stored as jsonb.
type AuditEntry struct {
	ID             string                 `db:"id"`
	OrganizationID int64                  `db:"organization_id"`
	ActorID        int64                  `db:"actor_id"`
	Action         string                 `db:"action"`
	ResourceType   string                 `db:"resource_type"`
	ResourceID     string                 `db:"resource_id"`
	PreviousValues map[string]interface{} `db:"previous_values"`
	NewValues      map[string]interface{} `db:"new_values"`
	CreatedAt      time.Time              `db:"created_at"`
}

// Audit action names. Kept as constants so report filters and tests do
// not drift from the writers.
const (
	AuditRequestCreated    = "service_request.created"
	AuditRequestTransition = "service_request.status_changed"
	AuditRequestProgress   = "service_request.progress"
	AuditRequestDeclined   = "service_request.declined"
	AuditReportSubmitted   = "completion_report.submitted"
	AuditQuoteSubmitted    = "quote.submitted"
	AuditQuoteUpdated      = "quote.updated"
	AuditQuoteAccepted     = "quote.accepted"
	AuditQuoteRejected     = "quote.rejected"
	AuditDisputeOpened     = "dispute.opened"
	AuditDisputeTransition = "dispute.status_changed"
)

const (
	ResourceServiceRequest   = "service_request"
	ResourceQuote            = "quote"
	ResourceCompletionReport = "completion_report"
	ResourceDispute          = "dispute"
)
