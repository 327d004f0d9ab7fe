package dto

type OpenDisputeDTO struct {
	ReasonVI string  `json:"reason_vi" validate:"required,notblank,min=10"`
	ReasonEN *string `json:"reason_en,omitempty"`
}

type UpdateDisputeStatusDTO struct {
	Status     string  `json:"status" validate:"required,oneof=investigating escalated resolved cancelled"`
	Resolution *string `json:"resolution,omitempty"`
	// Outcome drives the service-request transition when the dispute is
	// resolved: completed or cancelled.
	Outcome *string `json:"outcome,omitempty" validate:"omitempty,oneof=completed cancelled"`
}

type DisputeDTO struct {
	ID               int64   `json:"id"`
	ServiceRequestID int64   `json:"service_request_id"`
	OrganizationID   int64   `json:"organization_id"`
	Status           string  `json:"status"`
	ReasonVI         string  `json:"reason_vi"`
	ReasonEN         *string `json:"reason_en,omitempty"`
	Resolution       *string `json:"resolution,omitempty"`
	CreatedAt        string  `json:"created_at"`
}
