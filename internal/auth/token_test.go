package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"REFERRAL_AUTH_BACK-END/internal/apperror"
	"REFERRAL_AUTH_BACK-END/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var issuedAt = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestIssuer(secret string, now time.Time) *TokenIssuer {
	return NewTokenIssuer(&config.JWTConfig{
		Secret:         secret,
		Issuer:         "referral-auth",
		AccessTokenTTL: time.Hour,
	}).WithClock(func() time.Time { return now })
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	userID := uuid.New()
	issuer := newTestIssuer(testSecret, issuedAt)

	token, expiresAt, err := issuer.Issue(userID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, issuedAt.Add(time.Hour), expiresAt)

	claims, err := issuer.WithClock(func() time.Time { return issuedAt.Add(59 * time.Minute) }).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "referral-auth", claims.Issuer)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := newTestIssuer(testSecret, issuedAt)
	token, _, err := issuer.Issue(uuid.New())
	require.NoError(t, err)

	for _, at := range []time.Time{issuedAt.Add(time.Hour), issuedAt.Add(2 * time.Hour)} {
		_, err = issuer.WithClock(func() time.Time { return at }).Verify(token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrTokenExpired), "at %s: %v", at, err)
		assert.False(t, errors.Is(err, apperror.ErrTokenInvalid))
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, _, err := newTestIssuer(testSecret, issuedAt).Issue(uuid.New())
	require.NoError(t, err)

	_, err = newTestIssuer("ffffffffffffffffffffffffffffffff", issuedAt).Verify(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrTokenInvalid))
}

func TestTokenIssuer_Malformed(t *testing.T) {
	issuer := newTestIssuer(testSecret, issuedAt)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := issuer.Verify(token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrTokenInvalid), "token %q", token)
	}
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "referral-auth",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}
	claims.Subject = claims.UserID.String()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = newTestIssuer(testSecret, issuedAt).Verify(token)
	assert.True(t, errors.Is(err, apperror.ErrTokenInvalid))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestIssuer(testSecret, issuedAt).Verify(unsigned)
	assert.True(t, errors.Is(err, apperror.ErrTokenInvalid))
}

func TestTokenIssuer_RejectsForeignIssuer(t *testing.T) {
	token, _, err := NewTokenIssuer(&config.JWTConfig{
		Secret:         testSecret,
		Issuer:         "someone-else",
		AccessTokenTTL: time.Hour,
	}).WithClock(func() time.Time { return issuedAt }).Issue(uuid.New())
	require.NoError(t, err)

	_, err = newTestIssuer(testSecret, issuedAt).Verify(token)
	assert.True(t, errors.Is(err, apperror.ErrTokenInvalid))
}

func TestTokenIssuer_IssueRequiresUser(t *testing.T) {
	_, _, err := newTestIssuer(testSecret, issuedAt).Issue(uuid.Nil)
	assert.Error(t, err)
}
