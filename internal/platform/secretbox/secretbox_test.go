package secretbox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestSealOpenRoundTrip(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)
	require.True(t, box.Enabled())

	sealed, err := box.Seal("Bearer abc", "owner-1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sealed, Prefix))
	require.NotContains(t, sealed, "abc")

	plain, err := box.Open(sealed, "owner-1")
	require.NoError(t, err)
	require.Equal(t, "Bearer abc", plain)
}

func TestSealIsRandomized(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)

	a, err := box.Seal("v", "o")
	require.NoError(t, err)
	b, err := box.Seal("v", "o")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOpenRejectsWrongAssociatedData(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)

	sealed, err := box.Seal("secret", "owner-1")
	require.NoError(t, err)

	_, err = box.Open(sealed, "owner-2")
	require.ErrorIs(t, err, ErrTampered)

	_, err = box.Open(Prefix+"AAAA", "owner-1")
	require.ErrorIs(t, err, ErrTampered)
}

func TestNilBoxPassesThrough(t *testing.T) {
	box, err := New(nil)
	require.NoError(t, err)
	require.Nil(t, box)
	require.False(t, box.Enabled())

	sealed, err := box.Seal("plain", "o")
	require.NoError(t, err)
	require.Equal(t, "plain", sealed)

	plain, err := box.Open("plain", "o")
	require.NoError(t, err)
	require.Equal(t, "plain", plain)

	_, err = box.Open(Prefix+"xyz", "o")
	require.ErrorIs(t, err, ErrNoKey)
}

func TestOpenPlaintextWithKey(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)

	plain, err := box.Open("legacy value", "o")
	require.NoError(t, err)
	require.Equal(t, "legacy value", plain)
}

func TestNewRejectsShortKey(t *testing.T) {
	_, err := New([]byte("short"))
	require.Error(t, err)
}
