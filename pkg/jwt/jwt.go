package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

const issuer = "smarthive-community"

// Subject identifies who a token is issued to
type Subject struct {
	UserID     uuid.UUID
	Username   string
	FlatNumber string
	Role       string
}

// Claims represents the JWT claims structure
type Claims struct {
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	FlatNumber string    `json:"flat_number,omitempty"`
	Role       string    `json:"role"`
	TokenType  TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Identity returns the subject carried by the claims
func (c *Claims) Identity() Subject {
	return Subject{
		UserID:     c.UserID,
		Username:   c.Username,
		FlatNumber: c.FlatNumber,
		Role:       c.Role,
	}
}

// Service handles JWT operations
type Service struct {
	accessSecret       string
	refreshSecret      string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

// NewService creates a new JWT service
func NewService(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *Service {
	return &Service{
		accessSecret:       accessSecret,
		refreshSecret:      refreshSecret,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}
}

// AccessTokenExpiry returns the lifetime of issued access tokens
func (s *Service) AccessTokenExpiry() time.Duration {
	return s.accessTokenExpiry
}

// GenerateAccessToken generates a new access token
func (s *Service) GenerateAccessToken(sub Subject) (string, error) {
	return s.sign(sub, AccessToken, s.accessTokenExpiry, s.accessSecret)
}

// GenerateRefreshToken generates a new refresh token
func (s *Service) GenerateRefreshToken(sub Subject) (string, error) {
	return s.sign(sub, RefreshToken, s.refreshTokenExpiry, s.refreshSecret)
}

func (s *Service) sign(sub Subject, tokenType TokenType, expiry time.Duration, secret string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     sub.UserID,
		Username:   sub.Username,
		FlatNumber: sub.FlatNumber,
		Role:       sub.Role,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   sub.UserID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates and parses an access token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, s.accessSecret, AccessToken)
}

// ValidateRefreshToken validates and parses a refresh token
func (s *Service) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, s.refreshSecret, RefreshToken)
}

// validateToken validates a token with the given secret and type
func (s *Service) validateToken(tokenString, secret string, expectedType TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.TokenType != expectedType {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", expectedType, claims.TokenType)
	}

	return claims, nil
}
