package service

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"mediserve/pkg/apperrors"
)

type JwtCustomClaim struct {
	UserID         int64 `json:"userId"`
	IsRefreshToken bool  `json:"isRefresh"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateTokens(userID int64) (access string, refresh string, err error)
	ValidateToken(tokenString string) (*JwtCustomClaim, error)
}

type jwtService struct {
	secretKey       string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
}

func NewJWTService(secretKey string, accessTokenExp, refreshTokenExp time.Duration) JWTService {
	return &jwtService{
		secretKey:       secretKey,
		accessTokenExp:  accessTokenExp,
		refreshTokenExp: refreshTokenExp,
	}
}

func (s *jwtService) GenerateTokens(userID int64) (string, string, error) {
	now := time.Now()

	sign := func(isRefresh bool, ttl time.Duration) (string, error) {
		claims := &JwtCustomClaim{
			UserID:         userID,
			IsRefreshToken: isRefresh,
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			},
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(s.secretKey))
	}

	access, err := sign(false, s.accessTokenExp)
	if err != nil {
		return "", "", err
	}
	refresh, err := sign(true, s.refreshTokenExp)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *jwtService) ValidateToken(tokenString string) (*JwtCustomClaim, error) {
	claims := &JwtCustomClaim{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Unauthenticated()
		}
		return []byte(s.secretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthenticated()
	}
	return claims, nil
}
