package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSubject = errors.New("token has no subject")

// Identity is a verified caller. Claims keeps every claim of the token so it
// can be forwarded to the database unchanged.
type Identity struct {
	Subject string
	Role    string
	Claims  jwt.MapClaims
}

// ParseToken verifies an HS256 token issued by the hosted auth service.
func ParseToken(secret, tokenString string) (*Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ErrMissingSubject
	}
	role, _ := claims["role"].(string)

	return &Identity{
		Subject: subject,
		Role:    role,
		Claims:  claims,
	}, nil
}

// GenerateToken signs a token shaped like the ones the auth service issues.
// Used by local tooling and tests.
func GenerateToken(secret string, ttl time.Duration, subject, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}
