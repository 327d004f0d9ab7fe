package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"mediserve/internal/dto"
	"mediserve/internal/lifecycle"
	"mediserve/internal/services"
	"mediserve/pkg/apperrors"
	"mediserve/pkg/utils"
)

type ServiceRequestController struct {
	requestService services.ServiceRequestServiceInterface
	logger         *zap.Logger
}

func NewServiceRequestController(requestService services.ServiceRequestServiceInterface, logger *zap.Logger) *ServiceRequestController {
	return &ServiceRequestController{
		requestService: requestService,
		logger:         logger,
	}
}

func pathID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation("invalid " + name)
	}
	return id, nil
}

func (c *ServiceRequestController) Create(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var payload dto.CreateServiceRequestDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("invalid request body"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	id, err := c.requestService.Create(reqCtx, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]int64{"id": id}, "Đã tạo yêu cầu dịch vụ", http.StatusCreated)
}

func (c *ServiceRequestController) Find(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.requestService.Find(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Successfully", http.StatusOK)
}

func (c *ServiceRequestController) List(ctx echo.Context) error {
	var filter dto.ServiceRequestListFilter
	if err := ctx.Bind(&filter); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("invalid query parameters"), c.logger)
	}

	requests, total, err := c.requestService.List(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if requests == nil {
		requests = make([]dto.ServiceRequestDTO, 0)
	}
	return utils.SuccessResponse(ctx, map[string]interface{}{
		"items": requests,
		"total": total,
	}, "Successfully", http.StatusOK)
}

func (c *ServiceRequestController) Cancel(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.requestService.Cancel(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Đã hủy yêu cầu dịch vụ", http.StatusOK)
}

func (c *ServiceRequestController) UpdateStatus(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UpdateStatusDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("invalid request body"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	target := lifecycle.RequestStatus(payload.Status)
	if !lifecycle.Known(target) {
		return utils.ErrorResponse(ctx, apperrors.Validation("unknown status "+payload.Status), c.logger)
	}

	if err := c.requestService.UpdateStatus(ctx.Request().Context(), id, target); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Đã cập nhật trạng thái", http.StatusOK)
}

func (c *ServiceRequestController) StartService(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.requestService.StartService(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Đã bắt đầu thực hiện dịch vụ", http.StatusOK)
}

func (c *ServiceRequestController) UpdateProgress(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UpdateProgressDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("invalid request body"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.requestService.UpdateProgress(ctx.Request().Context(), id, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Đã ghi nhận tiến độ", http.StatusOK)
}

func (c *ServiceRequestController) CompleteService(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.requestService.CompleteService(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Đã hoàn thành dịch vụ", http.StatusOK)
}

func (c *ServiceRequestController) SubmitCompletionReport(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.SubmitCompletionReportDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("invalid request body"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reportID, err := c.requestService.SubmitCompletionReport(ctx.Request().Context(), id, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]int64{"id": reportID}, "Đã gửi biên bản hoàn thành", http.StatusCreated)
}

func (c *ServiceRequestController) Decline(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.DeclineRequestDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("invalid request body"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.requestService.DeclineRequest(ctx.Request().Context(), id, payload.Reason); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Đã từ chối yêu cầu", http.StatusOK)
}

func (c *ServiceRequestController) GetAuditTrail(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	trail, err := c.requestService.GetAuditTrail(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, trail, "Successfully", http.StatusOK)
}
