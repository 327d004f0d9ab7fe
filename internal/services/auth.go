package services

import (
	"context"

	"go.uber.org/zap"

	"mediserve/internal/dto"
	"mediserve/internal/repositories"
	"mediserve/pkg/apperrors"
	"mediserve/pkg/service"
	"mediserve/pkg/utils"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, data dto.LoginDTO) (*dto.TokenPairDTO, error)
	Refresh(ctx context.Context, data dto.RefreshDTO) (*dto.TokenPairDTO, error)
}

type AuthService struct {
	userRepo   repositories.UserRepositoryInterface
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthService(userRepo repositories.UserRepositoryInterface, jwtService service.JWTService, logger *zap.Logger) AuthServiceInterface {
	return &AuthService{userRepo: userRepo, jwtService: jwtService, logger: logger}
}

// Login answers a generic Unauthenticated for both an unknown email and
// a wrong password, so the response does not leak which accounts exist.
func (s *AuthService) Login(ctx context.Context, data dto.LoginDTO) (*dto.TokenPairDTO, error) {
	user, err := s.userRepo.FindByEmail(ctx, data.Email)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Unauthenticated()
		}
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, data.Password) {
		return nil, apperrors.Unauthenticated()
	}

	access, refresh, err := s.jwtService.GenerateTokens(user.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &dto.TokenPairDTO{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) Refresh(ctx context.Context, data dto.RefreshDTO) (*dto.TokenPairDTO, error) {
	claims, err := s.jwtService.ValidateToken(data.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefreshToken {
		return nil, apperrors.Unauthenticated()
	}
	// The user must still exist; a deleted account keeps a valid token
	// until expiry otherwise.
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Unauthenticated()
		}
		return nil, err
	}

	access, refresh, err := s.jwtService.GenerateTokens(user.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &dto.TokenPairDTO{AccessToken: access, RefreshToken: refresh}, nil
}
