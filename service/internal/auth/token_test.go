package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, secret string, now time.Time) *Issuer {
	t.Helper()
	iss, err := NewIssuer(secret, time.Hour)
	require.NoError(t, err)
	iss.now = func() time.Time { return now }
	return iss
}

func TestNewIssuerValidates(t *testing.T) {
	_, err := NewIssuer("  ", time.Hour)
	assert.Error(t, err)
	_, err = NewIssuer("secret", 0)
	assert.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	iss := newTestIssuer(t, "secret", now)
	id := uuid.New()

	tok, err := iss.Issue(id, "acesup")
	require.NoError(t, err)

	claims, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, id, claims.TableID)
	assert.Equal(t, "acesup", claims.Variant)
	assert.Equal(t, now, claims.IssuedAt)
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt)
}

func TestVerifyExpired(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	iss := newTestIssuer(t, "secret", now)
	tok, err := iss.Issue(uuid.New(), "acesup")
	require.NoError(t, err)

	iss.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	tok, err := newTestIssuer(t, "one", now).Issue(uuid.New(), "acesup")
	require.NoError(t, err)

	_, err = newTestIssuer(t, "two", now).Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyTampered(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	iss := newTestIssuer(t, "secret", now)
	tok, err := iss.Issue(uuid.New(), "acesup")
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	other, err := iss.Issue(uuid.New(), "stripjack")
	require.NoError(t, err)
	parts[1] = strings.Split(other, ".")[1]

	_, err = iss.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsOtherMethods(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	iss := newTestIssuer(t, "secret", now)
	claims := tableClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyEmptyAndBadSubject(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	iss := newTestIssuer(t, "secret", now)
	_, err := iss.Verify("")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	claims := tableClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = iss.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
