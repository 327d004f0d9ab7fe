package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"mediserve/internal/authz"
	"mediserve/internal/repositories"
)

type ReportServiceInterface interface {
	BuildAuditWorkbook(ctx context.Context, from, to *time.Time) (*excelize.File, error)
}

// ReportService renders the audit trail of the caller's organization
// as an xlsx workbook for compliance hand-over.
type ReportService struct {
	auditRepo repositories.AuditRepositoryInterface
	userRepo  repositories.UserRepositoryInterface
	logger    *zap.Logger
}

func NewReportService(
	auditRepo repositories.AuditRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	logger *zap.Logger,
) ReportServiceInterface {
	return &ReportService{auditRepo: auditRepo, userRepo: userRepo, logger: logger}
}

const auditSheet = "Audit Trail"

func (s *ReportService) BuildAuditWorkbook(ctx context.Context, from, to *time.Time) (*excelize.File, error) {
	ident, err := authz.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireApprovalRole(ident); err != nil {
		return nil, err
	}

	entries, err := s.auditRepo.ListForExport(ctx, ident.OrganizationID, from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(auditSheet)
	if err != nil {
		return nil, fmt.Errorf("creating audit sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("dropping default sheet: %w", err)
	}

	headers := []string{"Entry ID", "Time (UTC)", "Actor", "Action", "Resource", "Resource ID", "Previous", "New"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(auditSheet, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	// Actor names are resolved once per distinct actor, not per row.
	actorNames := map[int64]string{}
	actorName := func(id int64) string {
		if name, ok := actorNames[id]; ok {
			return name
		}
		name := fmt.Sprintf("user #%d", id)
		if u, err := s.userRepo.FindByID(ctx, id); err == nil {
			name = u.FullName
		} else {
			s.logger.Warn("audit export: actor lookup failed", zap.Int64("actorID", id), zap.Error(err))
		}
		actorNames[id] = name
		return name
	}

	for i := range entries {
		e := &entries[i]
		row := i + 2
		values := []interface{}{
			e.ID,
			e.CreatedAt.UTC().Format(time.RFC3339),
			actorName(e.ActorID),
			e.Action,
			e.ResourceType,
			e.ResourceID,
			jsonCell(e.PreviousValues),
			jsonCell(e.NewValues),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(auditSheet, cell, v); err != nil {
				return nil, fmt.Errorf("writing audit row %d: %w", row, err)
			}
		}
	}
	return f, nil
}

func jsonCell(values map[string]interface{}) string {
	if len(values) == 0 {
		return ""
	}
	b, err := json.Marshal(values)
	if err != nil {
		return fmt.Sprintf("%v", values)
	}
	return string(b)
}
