package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid auth token")

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a JWT carrying the principal's id and role.
func IssueToken(secret string, ttl time.Duration, p Principal) (string, error) {
	now := time.Now()
	c := claims{
		Role: p.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a JWT and returns the principal it names.
func VerifyToken(secret, tokenString string) (Principal, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, ErrInvalidToken
	}
	role, err := ParseRole(c.Role)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return Principal{ID: id, Role: role}, nil
}
