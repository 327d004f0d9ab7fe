package dto

import (
	"time"

	"github.com/aarondl/null/v8"
)

type SubmitQuoteDTO struct {
	ServiceRequestID      int64      `json:"service_request_id" validate:"required,gt=0"`
	Amount                float64    `json:"amount" validate:"required,gt=0"`
	Currency              string     `json:"currency,omitempty" validate:"omitempty,len=3"`
	Notes                 *string    `json:"notes,omitempty"`
	ValidUntilDays        *int       `json:"valid_until_days,omitempty" validate:"omitempty,gt=0"`
	EstimatedDurationDays *int       `json:"estimated_duration_days,omitempty" validate:"omitempty,gt=0"`
	AvailableStartDate    *time.Time `json:"available_start_date,omitempty"`
}

// UpdateQuoteDTO is a partial patch; absent fields keep their stored
// values. Only pending quotes may be revised.
type UpdateQuoteDTO struct {
	Amount                null.Float64 `json:"amount,omitempty"`
	Notes                 null.String  `json:"notes,omitempty"`
	ValidUntilDays        null.Int     `json:"valid_until_days,omitempty"`
	EstimatedDurationDays null.Int     `json:"estimated_duration_days,omitempty"`
	AvailableStartDate    null.Time    `json:"available_start_date,omitempty"`
}

type QuoteDTO struct {
	ID                    int64      `json:"id"`
	ServiceRequestID      int64      `json:"service_request_id"`
	ProviderID            int64      `json:"provider_id"`
	Status                string     `json:"status"`
	Amount                float64    `json:"amount"`
	Currency              string     `json:"currency"`
	Notes                 *string    `json:"notes,omitempty"`
	ValidUntil            *time.Time `json:"valid_until,omitempty"`
	EstimatedDurationDays *int       `json:"estimated_duration_days,omitempty"`
	AvailableStartDate    *time.Time `json:"available_start_date,omitempty"`
	CreatedAt             string     `json:"created_at"`
	UpdatedAt             string     `json:"updated_at"`
}
