package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestValidateTokenVerified(t *testing.T) {
	svc := NewAuthService("s3cret")
	require.True(t, svc.Verifies())

	tok := signToken(t, "s3cret", jwt.MapClaims{
		"userId": 42,
		"role":   "student",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	claims, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	require.Equal(t, "42", claims.ID())
	require.True(t, claims.HasRole(RoleStudent))
	require.False(t, claims.HasRole(RoleTeacher, RoleAdmin))

	_, err = svc.ValidateToken(signToken(t, "other", jwt.MapClaims{"userId": "42"}))
	require.Error(t, err)
}

func TestValidateTokenUnverified(t *testing.T) {
	svc := NewAuthService("")
	require.False(t, svc.Verifies())

	claims, err := svc.ValidateToken(signToken(t, "whatever", jwt.MapClaims{"sub": "stu-9"}))
	require.NoError(t, err)
	require.Equal(t, "stu-9", claims.ID())
	require.True(t, claims.HasRole(RoleTeacher), "role-less tokens are not restricted")

	_, err = svc.ValidateToken(signToken(t, "k", jwt.MapClaims{
		"userId": "1",
		"exp":    time.Now().Add(-time.Minute).Unix(),
	}))
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = svc.ValidateToken(signToken(t, "k", jwt.MapClaims{"role": "STUDENT"}))
	require.ErrorIs(t, err, ErrMissingUserID)

	_, err = svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
