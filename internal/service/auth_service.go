package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ordinaly-software/catalog-api/internal/models"
	"github.com/ordinaly-software/catalog-api/pkg/config"
	appErrors "github.com/ordinaly-software/catalog-api/pkg/errors"
)

// AuthService validates access tokens issued by the identity provider.
// Token issuance lives outside this service; the catalog only consumes them.
type AuthService struct {
	config config.JWTConfig
}

// NewAuthService constructs an auth service.
func NewAuthService(cfg config.JWTConfig) *AuthService {
	return &AuthService{config: cfg}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
