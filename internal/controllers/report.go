package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"mediserve/internal/services"
	"mediserve/pkg/apperrors"
	"mediserve/pkg/utils"
)

type ReportController struct {
	reportService services.ReportServiceInterface
	logger        *zap.Logger
}

func NewReportController(reportService services.ReportServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{
		reportService: reportService,
		logger:        logger,
	}
}

// ExportAuditTrail streams the caller organization's audit trail as an
// xlsx attachment. Optional from/to query params are date-only
// (2006-01-02); to is inclusive through end of day.
func (c *ReportController) ExportAuditTrail(ctx echo.Context) error {
	from, err := parseDateParam(ctx.QueryParam("from"), false)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	to, err := parseDateParam(ctx.QueryParam("to"), true)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	workbook, err := c.reportService.BuildAuditWorkbook(ctx.Request().Context(), from, to)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	filename := fmt.Sprintf("audit-trail-%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().WriteHeader(http.StatusOK)

	if err := workbook.Write(ctx.Response().Writer); err != nil {
		c.logger.Error("streaming audit workbook failed", zap.Error(err))
		return err
	}
	return nil
}

func parseDateParam(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, apperrors.Validation("invalid date " + value + ", expected YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
