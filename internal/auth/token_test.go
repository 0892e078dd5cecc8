package auth

import (
	"testing"
	"time"

	"camerashop/backend/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.Generate(42, models.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "42", claims.Subject)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	good, err := svc.Generate(1, models.RoleUser)
	require.NoError(t, err)

	expired, err := NewTokenService("secret", -time.Minute).Generate(1, models.RoleUser)
	require.NoError(t, err)

	foreign, err := NewTokenService("other-secret", time.Hour).Generate(1, models.RoleUser)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":     "",
		"garbage":   "not.a.jwt",
		"expired":   expired,
		"foreign":   foreign,
		"alg none":  unsigned,
		"truncated": good[:len(good)-4],
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestClaims_UserID(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"}}
	_, err := c.UserID()
	assert.ErrorIs(t, err, ErrInvalidToken)

	c.Subject = "0"
	_, err = c.UserID()
	assert.ErrorIs(t, err, ErrInvalidToken)

	c.Subject = "7"
	id, err := c.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
}
