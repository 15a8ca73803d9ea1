package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/wellness/core"
)

func newTestTokenizer(t *testing.T) *JWTTokenizer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return NewJWTTokenizer(key).(*JWTTokenizer)
}

func testGrant(now time.Time) *core.Grant {
	return &core.Grant{
		ID:            "grant-1",
		UserID:        "user-1",
		Generation:    3,
		IssuedAt:      now,
		AccessExpiry:  now.Add(15 * time.Minute),
		RefreshExpiry: now.Add(7 * 24 * time.Hour),
		RefreshID:     "refresh-1",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tk := newTestTokenizer(t)
	grant := testGrant(time.Now().Truncate(time.Second))

	token, err := tk.GrantToAccessToken(grant)
	require.NoError(t, err)

	got, err := tk.AccessTokenToGrant(token)
	require.NoError(t, err)
	assert.Equal(t, grant.ID, got.ID)
	assert.Equal(t, grant.UserID, got.UserID)
	assert.Equal(t, grant.RefreshID, got.RefreshID)
	assert.Equal(t, grant.Generation, got.Generation)
	assert.True(t, grant.AccessExpiry.Equal(got.AccessExpiry))
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	tk := newTestTokenizer(t)
	grant := testGrant(time.Now().Truncate(time.Second))

	token, err := tk.GrantToRefreshToken(grant)
	require.NoError(t, err)

	got, err := tk.RefreshTokenToGrant(token)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", got.RefreshID)
	assert.Equal(t, "user-1", got.UserID)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	tk := newTestTokenizer(t)
	grant := testGrant(time.Now())

	access, err := tk.GrantToAccessToken(grant)
	require.NoError(t, err)
	refresh, err := tk.GrantToRefreshToken(grant)
	require.NoError(t, err)

	_, err = tk.RefreshTokenToGrant(access)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = tk.AccessTokenToGrant(refresh)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestExpiredAccessToken(t *testing.T) {
	tk := newTestTokenizer(t)
	grant := testGrant(time.Now().Add(-time.Hour))
	grant.AccessExpiry = time.Now().Add(-time.Minute)

	token, err := tk.GrantToAccessToken(grant)
	require.NoError(t, err)

	_, err = tk.AccessTokenToGrant(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestForeignKeyRejected(t *testing.T) {
	issuer := newTestTokenizer(t)
	verifier := newTestTokenizer(t)

	token, err := issuer.GrantToAccessToken(testGrant(time.Now()))
	require.NoError(t, err)

	_, err = verifier.AccessTokenToGrant(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
