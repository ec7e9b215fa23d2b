package jwttoken

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"custodyprofile/internal/platform/middleware"
	dErrors "custodyprofile/pkg/domain-errors"
)

// Claims represents the JWT claims accepted on inbound requests. The username
// attributes every field change, so it is the one claim we insist on.
type Claims struct {
	Username string `json:"user_name"`
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// JWTService validates inbound access tokens. This service never issues
// tokens; authentication lives with the upstream identity provider.
type JWTService struct {
	signingKey []byte
}

func NewJWTService(signingKey string) *JWTService {
	return &JWTService{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies a token, returning the claims the
// middleware layer cares about.
func (s *JWTService) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Username == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token missing user_name claim")
	}

	return &middleware.JWTClaims{
		Username: claims.Username,
		ClientID: claims.ClientID,
	}, nil
}
