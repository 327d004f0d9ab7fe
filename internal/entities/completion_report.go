package entities

import "time"

// CompletionReport is an immutable record of work performed. A
// resubmission inserts a new row; rows are never updated.
type CompletionReport struct {
	ID               int64     `db:"id"`
	ServiceRequestID int64     `db:"service_request_id"`
	ProviderID       int64     `db:"provider_id"`
	SubmittedBy      int64     `db:"submitted_by"`
	WorkPerformedVI  string    `db:"work_performed_vi"`
	WorkPerformedEN  *string   `db:"work_performed_en"`
	PartsReplaced    *string   `db:"parts_replaced"`
	LaborHours       *float64  `db:"labor_hours"`
	Recommendations  *string   `db:"recommendations"`
	CreatedAt        time.Time `db:"created_at"`
}
