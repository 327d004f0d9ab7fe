package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"mediserve/pkg/apperrors"
)

type HTTPResponse struct {
	Status    bool        `json:"status"`
	Code      string      `json:"code,omitempty"`
	Message   string      `json:"message"`
	MessageEN string      `json:"message_en,omitempty"`
	Body      interface{} `json:"body,omitempty"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HTTPResponse{
		Status:  true,
		Message: message,
		Body:    body,
	})
}

// ErrorResponse maps the closed error taxonomy onto the wire envelope.
// Unexpected errors are logged with their cause and surfaced as a
// generic internal failure.
func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			logger.Error("request failed",
				zap.String("kind", string(appErr.Kind)),
				zap.Error(appErr.Err),
			)
		}
		return c.JSON(appErr.HTTPStatus, &HTTPResponse{
			Status:    false,
			Code:      string(appErr.Kind),
			Message:   appErr.Message.VI,
			MessageEN: appErr.Message.EN,
			Body:      appErr.Details,
		})
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("field %q failed rule %q", e.Field(), e.Tag()))
		}
		vErr := apperrors.Validation(strings.Join(msgs, "; "))
		return c.JSON(vErr.HTTPStatus, &HTTPResponse{
			Status:    false,
			Code:      string(vErr.Kind),
			Message:   vErr.Message.VI,
			MessageEN: vErr.Message.EN,
		})
	}

	logger.Error("unexpected error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, &HTTPResponse{
		Status:    false,
		Code:      string(apperrors.KindInternal),
		Message:   "Lỗi hệ thống",
		MessageEN: "internal error",
	})
}
