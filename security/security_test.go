package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() *[32]byte {
	var key [32]byte
	copy(key[:], strings.Repeat("s", 32))
	return &key
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)

	sealed, err := c.Seal("hunter2")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "hunter2")

	plain, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)

	assert.True(t, c.Matches(sealed, "hunter2"))
	assert.False(t, c.Matches(sealed, "hunter3"))
	assert.False(t, c.Matches("plain-text", "plain-text"))
}

func TestCipherRejectsOtherKey(t *testing.T) {
	c, err := NewCipher(testKey())
	require.NoError(t, err)
	sealed, err := c.Seal("secret")
	require.NoError(t, err)

	var other [32]byte
	copy(other[:], strings.Repeat("o", 32))
	c2, err := NewCipher(&other)
	require.NoError(t, err)

	_, err = c2.Open(sealed)
	assert.ErrorIs(t, err, ErrUnsealed)
}

func TestNewCipherRejectsZeroKey(t *testing.T) {
	_, err := NewCipher(&[32]byte{})
	assert.Error(t, err)
	_, err = NewCipher(nil)
	assert.Error(t, err)
}

func TestIdentityToken(t *testing.T) {
	secret := []byte("identity-secret")
	token, err := SignIdentityToken(&HrmsIdentity{Id: 10, UserName: "Asha", Email: "asha@example.com", Role: "agent"}, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseIdentityToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, 10, claims.Identity.ID)
	assert.Equal(t, "agent", claims.Role)

	_, err = ParseIdentityToken(token, []byte("other"))
	assert.Error(t, err)

	expired, err := SignIdentityToken(&HrmsIdentity{Id: 10}, secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseIdentityToken(expired, secret)
	assert.Error(t, err)
}

func TestResetTokens(t *testing.T) {
	now := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	tokens := ResetTokens{Secret: []byte("reset"), TTL: 300 * time.Second}

	token, err := tokens.Issue(20, "lee@example.com", 3, now)
	require.NoError(t, err)

	claims, err := tokens.Parse(token, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 20, claims.UserID)
	assert.Equal(t, 3, claims.PasswordVersion)

	_, err = tokens.Parse(token, now.Add(10*time.Minute))
	assert.Error(t, err)

	// identity tokens are not reset tokens
	identity, err := SignIdentityToken(&HrmsIdentity{Id: 20}, []byte("reset"), time.Hour)
	require.NoError(t, err)
	_, err = tokens.Parse(identity, now)
	assert.Error(t, err)
}
