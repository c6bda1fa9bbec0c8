package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour, "storefront")
	require.NoError(t, err)
	return c
}

var alice = Subject{ID: "u-1", Email: "alice@example.com", Role: "user"}

func TestNewTokenCodecRejectsSharedSecret(t *testing.T) {
	_, err := NewTokenCodec("same", "same", time.Minute, time.Hour, "x")
	assert.Error(t, err)
	_, err = NewTokenCodec("", "other", time.Minute, time.Hour, "x")
	assert.Error(t, err)
}

func TestIssueAndVerifyAccess(t *testing.T) {
	c := newTestCodec(t)
	tok, err := c.IssueAccess(alice)
	require.NoError(t, err)

	claims, err := c.VerifyAccess(tok.Raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "storefront", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)
}

func TestRefreshTokenCarriesFamily(t *testing.T) {
	c := newTestCodec(t)
	first, err := c.IssueRefresh(alice, "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.Family)

	next, err := c.IssueRefresh(alice, first.Family)
	require.NoError(t, err)
	assert.Equal(t, first.Family, next.Family)
	assert.NotEqual(t, first.ID, next.ID)

	claims, err := c.VerifyRefresh(next.Raw)
	require.NoError(t, err)
	assert.Equal(t, first.Family, claims.Family)
	assert.Equal(t, next.ID, claims.ID)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), next.Exp, 5*time.Second)
}

func TestKeyspacesAreSeparate(t *testing.T) {
	c := newTestCodec(t)
	access, err := c.IssueAccess(alice)
	require.NoError(t, err)
	refresh, err := c.IssueRefresh(alice, "")
	require.NoError(t, err)

	_, err = c.VerifyRefresh(access.Raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = c.VerifyAccess(refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	c := newTestCodec(t)
	c.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := c.IssueAccess(alice)
	require.NoError(t, err)

	c.now = time.Now
	_, err = c.VerifyAccess(tok.Raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTamperedAndMalformed(t *testing.T) {
	c := newTestCodec(t)
	tok, err := c.IssueAccess(alice)
	require.NoError(t, err)

	tampered := tok.Raw[:len(tok.Raw)-2] + "xx"
	_, err = c.VerifyAccess(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = c.VerifyAccess("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = c.VerifyAccess("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsOtherAlgorithmAndIssuer(t *testing.T) {
	c := newTestCodec(t)
	claims := Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "storefront",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, err = c.VerifyAccess(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims.Issuer = "someone-else"
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, err = c.VerifyAccess(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashTokenID(t *testing.T) {
	h := HashTokenID("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashTokenID("abc"))
	assert.NotEqual(t, h, HashTokenID("abd"))
}
