package secret

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func TestBox_RoundTrip(t *testing.T) {
	box, err := NewBox(testKey)
	require.NoError(t, err)

	sealed, err := box.Seal("sb_publishable_abc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "gcm:"))
	assert.NotContains(t, sealed, "sb_publishable_abc")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sb_publishable_abc", plain)
}

func TestBox_NonceIsRandom(t *testing.T) {
	box, err := NewBox(testKey)
	require.NoError(t, err)

	a, err := box.Seal("same")
	require.NoError(t, err)
	b, err := box.Seal("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestBox_Disabled(t *testing.T) {
	box, err := NewBox(nil)
	require.NoError(t, err)
	assert.False(t, box.Enabled())

	sealed, err := box.Seal("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", sealed)

	plain, err := box.Open("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", plain)
}

func TestBox_SealedWithoutKey(t *testing.T) {
	keyed, err := NewBox(testKey)
	require.NoError(t, err)
	sealed, err := keyed.Seal("value")
	require.NoError(t, err)

	unkeyed, err := NewBox(nil)
	require.NoError(t, err)

	_, err = unkeyed.Open(sealed)
	assert.ErrorIs(t, err, ErrKeyNotSet)
}

func TestBox_PlaintextReadableWithKey(t *testing.T) {
	box, err := NewBox(testKey)
	require.NoError(t, err)

	plain, err := box.Open("legacy-plaintext")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plaintext", plain)
}

func TestBox_WrongKey(t *testing.T) {
	a, err := NewBox(testKey)
	require.NoError(t, err)
	b, err := NewBox(bytes.Repeat([]byte{0x17}, 32))
	require.NoError(t, err)

	sealed, err := a.Seal("value")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)
}

func TestNewBox_BadKeyLength(t *testing.T) {
	_, err := NewBox([]byte("short"))
	assert.Error(t, err)
}
