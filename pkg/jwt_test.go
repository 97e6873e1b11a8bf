package pkg

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "super-secret-jwt-token-with-at-least-32-characters"
	testEmail  = "user@example.com"
)

func signToken(t *testing.T, secret string, sub uuid.UUID, expiresAt time.Time) string {
	claims := Claims{
		Email: testEmail,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseJWT(t *testing.T) {
	sub := uuid.New()
	valid := signToken(t, testSecret, sub, time.Now().Add(time.Hour))
	expired := signToken(t, testSecret, sub, time.Now().Add(-time.Hour))
	foreign := signToken(t, "another-secret-another-secret-another", sub, time.Now().Add(time.Hour))

	testCases := []struct {
		name          string
		secret        string
		token         string
		expectedError error
	}{
		{name: "verified valid token", secret: testSecret, token: valid},
		{name: "verified expired token", secret: testSecret, token: expired, expectedError: jwt.ErrTokenExpired},
		{name: "verified wrong signature", secret: testSecret, token: foreign, expectedError: jwt.ErrSignatureInvalid},
		{name: "unverified foreign token", secret: "", token: foreign},
		{name: "unverified expired token", secret: "", token: expired},
		{name: "malformed token", secret: "", token: "not-a-jwt", expectedError: jwt.ErrTokenMalformed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := NewJWT(tc.secret).ParseJWT(tc.token)

			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testEmail, claims.Email)
			userID, err := claims.UserID()
			require.NoError(t, err)
			assert.Equal(t, sub, userID)
		})
	}
}
