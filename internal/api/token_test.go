package api

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyToken(t *testing.T) {
	token, err := IssueToken(testSecret, "ops", time.Hour)
	require.NoError(t, err)

	claims, err := VerifyToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, "lvnode", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestIssueToken_Errors(t *testing.T) {
	_, err := IssueToken(nil, "ops", time.Hour)
	assert.Error(t, err)

	_, err = IssueToken(testSecret, "ops", 0)
	assert.Error(t, err)
}

func TestVerifyToken_Rejects(t *testing.T) {
	valid, err := IssueToken(testSecret, "ops", time.Hour)
	require.NoError(t, err)

	_, err = VerifyToken(nil, valid)
	assert.Error(t, err, "empty secret")

	_, err = VerifyToken([]byte("another-secret-another-secret!!!"), valid)
	assert.Error(t, err, "wrong secret")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "lvnode",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	expiredStr, err := expired.SignedString(testSecret)
	require.NoError(t, err)
	_, err = VerifyToken(testSecret, expiredStr)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "lvnode"}})
	noExpiryStr, err := noExpiry.SignedString(testSecret)
	require.NoError(t, err)
	_, err = VerifyToken(testSecret, noExpiryStr)
	assert.Error(t, err, "expiry is required")

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	wrongIssuerStr, err := wrongIssuer.SignedString(testSecret)
	require.NoError(t, err)
	_, err = VerifyToken(testSecret, wrongIssuerStr)
	assert.Error(t, err, "wrong issuer")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "lvnode",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	noneStr, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = VerifyToken(testSecret, noneStr)
	assert.Error(t, err, "alg none")
}
