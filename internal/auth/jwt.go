package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by the session tokens the auth gateway issues.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

// ParseJWT validates a signed token and returns its claims.
func ParseJWT(tokenStr string, key []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}
