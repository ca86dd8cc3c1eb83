// Package auth issues and verifies the session tokens accepted by the
// development memory store. Tokens are HS256 JWTs whose subject is the
// user id, the same claim the journal client reads.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken signs a token for userID valid for validityDuration from now.
func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration, now time.Time) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", common.ErrValidation)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserIDFromToken verifies tokenString and returns its subject. Every
// failure wraps common.ErrUnauthorized.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", fmt.Errorf("%w: token expired", common.ErrUnauthorized)
	case err != nil:
		return "", fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	case !token.Valid:
		return "", fmt.Errorf("%w: invalid token", common.ErrUnauthorized)
	case claims.Subject == "":
		return "", fmt.Errorf("%w: token has no subject", common.ErrUnauthorized)
	}

	return claims.Subject, nil
}
