package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(subject, role string) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("42", models.RoleTenant))

	ident, err := v.Verify(token)

	require.NoError(t, err)
	assert.Equal(t, int64(42), ident.UserID)
	assert.Equal(t, models.RoleTenant, ident.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, "other-secret", jwt.SigningMethodHS256, validClaims("42", models.RoleLandlord))

	_, err := v.Verify(token)

	assert.Error(t, err)
}

func TestVerifyRejectsWrongSigningMethod(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.SigningMethodHS384, validClaims("42", models.RoleTenant))

	_, err := v.Verify(token)

	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	claims := validClaims("42", models.RoleTenant)
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token := signToken(t, testSecret, jwt.SigningMethodHS256, claims)

	_, err := v.Verify(token)

	assert.Error(t, err)
}

func TestVerifyRejectsBadSubject(t *testing.T) {
	v := NewVerifier(testSecret)
	for _, subject := range []string{"", "abc", "0"} {
		token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(subject, models.RoleTenant))
		_, err := v.Verify(token)
		assert.Error(t, err, "subject %q", subject)
	}
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("42", "admin"))

	_, err := v.Verify(token)

	assert.Error(t, err)
}
