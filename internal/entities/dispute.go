package entities

import (
	"time"

	"mediserve/internal/lifecycle"
)

type Dispute struct {
	ID               int64                   `db:"id"`
	ServiceRequestID int64                   `db:"service_request_id"`
	OrganizationID   int64                   `db:"organization_id"`
	RaisedBy         int64                   `db:"raised_by"`
	Status           lifecycle.DisputeStatus `db:"status"`
	ReasonVI         string                  `db:"reason_vi"`
	ReasonEN         *string                 `db:"reason_en"`
	Resolution       *string                 `db:"resolution"`
	CreatedAt        time.Time               `db:"created_at"`
	UpdatedAt        time.Time               `db:"updated_at"`
}
