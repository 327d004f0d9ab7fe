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

type QuoteController struct {
	quoteService services.QuoteServiceInterface
	logger       *zap.Logger
}

func NewQuoteController(quoteService services.QuoteServiceInterface, logger *zap.Logger) *QuoteController {
	return &QuoteController{
		quoteService: quoteService,
		logger:       logger,
	}
}

func (c *QuoteController) Submit(ctx echo.Context) error {
	var payload dto.SubmitQuoteDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("invalid request body"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	id, err := c.quoteService.Submit(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]int64{"id": id}, "Đã gửi báo giá", http.StatusCreated)
}

func (c *QuoteController) Update(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UpdateQuoteDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.Validation("invalid request body"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.quoteService.Update(ctx.Request().Context(), id, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Đã cập nhật báo giá", http.StatusOK)
}

func (c *QuoteController) Accept(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if _, err := c.quoteService.Accept(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Đã chấp nhận báo giá", http.StatusOK)
}

func (c *QuoteController) Reject(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if _, err := c.quoteService.Reject(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Đã từ chối báo giá", http.StatusOK)
}

func (c *QuoteController) ListByServiceRequest(ctx echo.Context) error {
	requestID, err := pathID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	quotes, err := c.quoteService.ListByServiceRequest(ctx.Request().Context(), requestID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if quotes == nil {
		quotes = make([]dto.QuoteDTO, 0)
	}
	return utils.SuccessResponse(ctx, quotes, "Successfully", http.StatusOK)
}
