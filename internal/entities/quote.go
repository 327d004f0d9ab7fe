package entities

import (
	"time"

	"mediserve/internal/lifecycle"
)

// Quote is a provider's priced offer against one service request. At
// most one quote per request may be accepted; siblings are rejected by
// the acceptance cascade in the same transaction.
type Quote struct {
	ID                    int64                 `db:"id"`
	ServiceRequestID      int64                 `db:"service_request_id"`
	ProviderID            int64                 `db:"provider_id"`
	SubmittedBy           int64                 `db:"submitted_by"`
	Status                lifecycle.QuoteStatus `db:"status"`
	Amount                float64               `db:"amount"`
	Currency              string                `db:"currency"`
	Notes                 *string               `db:"notes"`
	ValidUntil            *time.Time            `db:"valid_until"`
	EstimatedDurationDays *int                  `db:"estimated_duration_days"`
	AvailableStartDate    *time.Time            `db:"available_start_date"`
	CreatedAt             time.Time             `db:"created_at"`
	UpdatedAt             time.Time             `db:"updated_at"`
}
