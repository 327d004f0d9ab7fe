package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"mediserve/internal/dto"
	"mediserve/internal/services"
	"mediserve/pkg/apperrors"
	"mediserve/pkg/utils"
)

type DisputeController struct {
	disputeService services.DisputeServiceInterface
	logger         *zap.Logger
}

func NewDisputeController(disputeService services.DisputeServiceInterface, logger *zap.Logger) *DisputeController {
	return &DisputeController{
		disputeService: disputeService,
		logger:         logger,
	}
}

func (c *DisputeController) Open(ctx echo.Context) error {
	requestID, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.OpenDisputeDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("invalid request body"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	id, err := c.disputeService.Open(ctx.Request().Context(), requestID, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]int64{"id": id}, "Đã mở khiếu nại", http.StatusCreated)
}

func (c *DisputeController) Find(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.disputeService.Find(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Successfully", http.StatusOK)
}

func (c *DisputeController) UpdateStatus(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UpdateDisputeStatusDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("invalid request body"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.disputeService.UpdateStatus(ctx.Request().Context(), id, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Đã cập nhật khiếu nại", http.StatusOK)
}
