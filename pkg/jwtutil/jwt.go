package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"menew-api/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.JWTConfig

// UserClaims represents the JWT claims carried by both access and refresh tokens
type UserClaims struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID *uint  `json:"tenant_id,omitempty"` // absent for SUPER_ADMIN accounts without a tenant
	jwt.RegisteredClaims
}

// Initialize stores the JWT configuration for token operations
func Initialize(jwtConfig *config.JWTConfig) {
	cfg = jwtConfig
}

// GenerateTokenPair creates a short-lived access token and a longer-lived
// refresh token for the same identity. The two are signed with separate keys
// so a leaked refresh token can never pass as an access token.
func GenerateTokenPair(userID uint, email, role string, tenantID *uint) (accessToken string, refreshToken string, err error) {
	if cfg == nil {
		return "", "", errors.New("JWT configuration not provided")
	}

	accessToken, err = sign(userID, email, role, tenantID, cfg.AccessSigningKey, cfg.AccessTTL)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = sign(userID, email, role, tenantID, cfg.RefreshSigningKey, cfg.RefreshTTL)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func sign(userID uint, email, role string, tenantID *uint, key string, ttl time.Duration) (string, error) {
	claims := UserClaims{
		UserID:   userID,
		Email:    email,
		Role:     role,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(key))
}

// ValidateAccessToken validates and parses an access token
func ValidateAccessToken(tokenString string) (*UserClaims, error) {
	if cfg == nil {
		return nil, errors.New("JWT configuration not provided")
	}
	return parse(tokenString, cfg.AccessSigningKey)
}

// ValidateRefreshToken validates and parses a refresh token
func ValidateRefreshToken(tokenString string) (*UserClaims, error) {
	if cfg == nil {
		return nil, errors.New("JWT configuration not provided")
	}
	return parse(tokenString, cfg.RefreshSigningKey)
}

func parse(tokenString, key string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(key), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
