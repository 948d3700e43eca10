package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testEncryptionKey)
	require.NoError(t, err)

	sealed, err := enc.Seal("You are a senior Go reviewer.")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "Go reviewer")

	plain, err := enc.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "You are a senior Go reviewer.", plain)
}

func TestEncryptor_FreshNonce(t *testing.T) {
	enc, err := NewEncryptor(testEncryptionKey)
	require.NoError(t, err)

	a, _ := enc.Seal("same text")
	b, _ := enc.Seal("same text")
	assert.NotEqual(t, a, b)
}

func TestEncryptor_Open(t *testing.T) {
	enc, err := NewEncryptor(testEncryptionKey)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		plain, err := enc.Open(nil)
		require.NoError(t, err)
		assert.Empty(t, plain)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := enc.Open([]byte{1, 2, 3})
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})

	t.Run("tampered", func(t *testing.T) {
		sealed, _ := enc.Seal("payload")
		sealed[len(sealed)-1] ^= 0xff
		_, err := enc.Open(sealed)
		assert.Error(t, err)
	})

	t.Run("other key", func(t *testing.T) {
		sealed, _ := enc.Seal("payload")
		other, err := NewEncryptor("fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210")
		require.NoError(t, err)
		_, err = other.Open(sealed)
		assert.Error(t, err)
	})
}

func TestNewEncryptor_InvalidKey(t *testing.T) {
	_, err := NewEncryptor("not-hex")
	assert.Error(t, err)

	_, err = NewEncryptor("abcd")
	assert.Error(t, err)
}
