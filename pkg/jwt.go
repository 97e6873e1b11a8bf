package pkg

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload of a backend-issued access token.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type Token interface {
	ParseJWT(tokenString string) (*Claims, error)
}

// JWT reads access tokens. With a secret it verifies the HS256 signature and
// expiry; without one it only decodes the claims.
type JWT struct {
	jwtSecret []byte
}

func NewJWT(secret string) *JWT {
	return &JWT{
		jwtSecret: []byte(secret),
	}
}

func (j *JWT) ParseJWT(tokenString string) (*Claims, error) {
	if len(j.jwtSecret) == 0 {
		return j.parseUnverified(tokenString)
	}
	return j.validateJWT(tokenString)
}

func (j *JWT) validateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, jwt.ErrTokenExpired
		}
		return nil, jwt.ErrSignatureInvalid
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	return claims, nil
}

func (j *JWT) parseUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, jwt.ErrTokenMalformed
	}

	return claims, nil
}
