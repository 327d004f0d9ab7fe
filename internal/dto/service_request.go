package dto

import "time"

type CreateServiceRequestDTO struct {
	EquipmentID   int64      `json:"equipment_id" validate:"required,gt=0"`
	Type          string     `json:"type" validate:"required,oneof=repair maintenance calibration inspection installation other"`
	Priority      string     `json:"priority" validate:"required,oneof=low medium high critical"`
	DescriptionVI string     `json:"description_vi" validate:"required,notblank,min=3"`
	DescriptionEN *string    `json:"description_en,omitempty"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
}

type UpdateStatusDTO struct {
	Status string `json:"status" validate:"required"`
}

type UpdateProgressDTO struct {
	Notes           string `json:"notes" validate:"required,notblank,min=3"`
	PercentComplete *int   `json:"percent_complete,omitempty" validate:"omitempty,gte=0,lte=100"`
	UnexpectedIssue *bool  `json:"unexpected_issue,omitempty"`
}

type DeclineRequestDTO struct {
	Reason string `json:"reason" validate:"required"`
}

type SubmitCompletionReportDTO struct {
	WorkPerformedVI string   `json:"work_performed_vi" validate:"required,notblank,min=3"`
	WorkPerformedEN *string  `json:"work_performed_en,omitempty"`
	PartsReplaced   *string  `json:"parts_replaced,omitempty"`
	LaborHours      *float64 `json:"labor_hours,omitempty" validate:"omitempty,gte=0"`
	Recommendations *string  `json:"recommendations,omitempty"`
}

type ServiceRequestDTO struct {
	ID                 int64      `json:"id"`
	OrganizationID     int64      `json:"organization_id"`
	EquipmentID        int64      `json:"equipment_id"`
	Type               string     `json:"type"`
	Priority           string     `json:"priority"`
	Status             string     `json:"status"`
	DescriptionVI      string     `json:"description_vi"`
	DescriptionEN      *string    `json:"description_en,omitempty"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
	AssignedProviderID *int64     `json:"assigned_provider_id,omitempty"`
	RequestedBy        int64      `json:"requested_by"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          string     `json:"created_at"`
	UpdatedAt          string     `json:"updated_at"`
}

// ServiceRequestListFilter carries the whitelisted list parameters; the
// repository maps them onto SQL through squirrel.
type ServiceRequestListFilter struct {
	Status   string `query:"status"`
	Priority string `query:"priority"`
	Type     string `query:"type"`
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
}
