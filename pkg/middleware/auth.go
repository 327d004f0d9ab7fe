package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"mediserve/internal/authz"
	"mediserve/pkg/apperrors"
	"mediserve/pkg/service"
	"mediserve/pkg/utils"
)

type AuthMiddleware struct {
	jwtService service.JWTService
	resolver   authz.MembershipResolver
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, resolver authz.MembershipResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		resolver:   resolver,
		logger:     logger,
	}
}

// Auth validates the bearer token and resolves the caller's active
// organization membership into a typed Identity on the request context.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return utils.ErrorResponse(c, apperrors.Unauthenticated(), m.logger)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return utils.ErrorResponse(c, apperrors.Unauthenticated(), m.logger)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("token validation failed", zap.Error(err))
			return utils.ErrorResponse(c, apperrors.Unauthenticated(), m.logger)
		}
		if claims.IsRefreshToken {
			return utils.ErrorResponse(c, apperrors.Unauthenticated(), m.logger)
		}

		ident, err := m.resolver.Resolve(c.Request().Context(), claims.UserID)
		if err != nil {
			m.logger.Warn("membership resolution failed",
				zap.Int64("userID", claims.UserID), zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}

		c.SetRequest(c.Request().WithContext(authz.WithIdentity(c.Request().Context(), ident)))
		return next(c)
	}
}
