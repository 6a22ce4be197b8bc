// Package auth turns bearer tokens into requester ids. Issuing tokens to end
// users belongs to the identity provider; GenerateToken exists for operators
// and tests.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the requester id in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
}

func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
	})

	return token.SignedString(secretKey)
}

// GetUserIDFromToken validates an HS256 token and returns its subject.
// Every failure wraps common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", common.ErrInvalidToken)
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// RequesterFromHeader resolves an Authorization header value. A missing
// header is an anonymous requester (""), not an error.
func RequesterFromHeader(header string, secretKey []byte) (string, error) {
	if header == "" {
		return "", nil
	}
	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok || token == "" {
		return "", common.ErrInvalidToken
	}
	return GetUserIDFromToken(token, secretKey)
}
