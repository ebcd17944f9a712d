package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT(42, "ingrid", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "ingrid", claims.Name)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidateJWT_Rejects(t *testing.T) {
	token, err := GenerateJWT(7, "kari", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "another-secret")
	assert.Error(t, err, "wrong secret")

	expired, err := GenerateJWT(7, "kari", testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(expired, testSecret)
	assert.Error(t, err, "expired token")

	_, err = ValidateJWT("not-a-token", testSecret)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 7})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateJWT(unsigned, testSecret)
	assert.Error(t, err, "alg none")

	_, err = GenerateJWT(0, "nobody", testSecret, time.Hour)
	assert.Error(t, err)
}
