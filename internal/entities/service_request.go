package entities

import (
	"time"

	"mediserve/internal/lifecycle"
)

type RequestType string

const (
	RequestTypeRepair       RequestType = "repair"
	RequestTypeMaintenance  RequestType = "maintenance"
	RequestTypeCalibration  RequestType = "calibration"
	RequestTypeInspection   RequestType = "inspection"
	RequestTypeInstallation RequestType = "installation"
	RequestTypeOther        RequestType = "other"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ServiceRequest is a hospital's equipment-service need. Rows are never
// deleted: the status column is the only way state moves.
// AssignedProviderID is set by the quote-acceptance cascade and only
// there.
type ServiceRequest struct {
	ID                 int64                   `db:"id"`
	OrganizationID     int64                   `db:"organization_id"`
	EquipmentID        int64                   `db:"equipment_id"`
	Type               RequestType             `db:"type"`
	Priority           Priority                `db:"priority"`
	Status             lifecycle.RequestStatus `db:"status"`
	DescriptionVI      string                  `db:"description_vi"`
	DescriptionEN      *string                 `db:"description_en"`
	ScheduledAt        *time.Time              `db:"scheduled_at"`
	AssignedProviderID *int64                  `db:"assigned_provider_id"`
	RequestedBy        int64                   `db:"requested_by"`
	CompletedAt        *time.Time              `db:"completed_at"`
	CreatedAt          time.Time               `db:"created_at"`
	UpdatedAt          time.Time               `db:"updated_at"`
}
