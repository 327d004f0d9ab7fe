package services

import (
	"strconv"
	"time"

	"mediserve/internal/dto"
	"mediserve/internal/entities"
)

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toServiceRequestDTO(req *entities.ServiceRequest) *dto.ServiceRequestDTO {
	return &dto.ServiceRequestDTO{
		ID:                 req.ID,
		OrganizationID:     req.OrganizationID,
		EquipmentID:        req.EquipmentID,
		Type:               string(req.Type),
		Priority:           string(req.Priority),
		Status:             string(req.Status),
		DescriptionVI:      req.DescriptionVI,
		DescriptionEN:      req.DescriptionEN,
		ScheduledAt:        req.ScheduledAt,
		AssignedProviderID: req.AssignedProviderID,
		RequestedBy:        req.RequestedBy,
		CompletedAt:        req.CompletedAt,
		CreatedAt:          formatTime(req.CreatedAt),
		UpdatedAt:          formatTime(req.UpdatedAt),
	}
}

func toQuoteDTO(q *entities.Quote) *dto.QuoteDTO {
	return &dto.QuoteDTO{
		ID:                    q.ID,
		ServiceRequestID:      q.ServiceRequestID,
		ProviderID:            q.ProviderID,
		Status:                string(q.Status),
		Amount:                q.Amount,
		Currency:              q.Currency,
		Notes:                 q.Notes,
		ValidUntil:            q.ValidUntil,
		EstimatedDurationDays: q.EstimatedDurationDays,
		AvailableStartDate:    q.AvailableStartDate,
		CreatedAt:             formatTime(q.CreatedAt),
		UpdatedAt:             formatTime(q.UpdatedAt),
	}
}

func toDisputeDTO(d *entities.Dispute) *dto.DisputeDTO {
	return &dto.DisputeDTO{
		ID:               d.ID,
		ServiceRequestID: d.ServiceRequestID,
		OrganizationID:   d.OrganizationID,
		Status:           string(d.Status),
		ReasonVI:         d.ReasonVI,
		ReasonEN:         d.ReasonEN,
		Resolution:       d.Resolution,
		CreatedAt:        formatTime(d.CreatedAt),
	}
}
