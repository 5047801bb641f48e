package keychain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cipher, err := NewCipher("correct horse battery staple")
	require.NoError(t, err)

	for _, plaintext := range []string{"", "hunter2", "Äänekoski ääkköset 🚲", "1234"} {
		sealed, err := cipher.Encrypt(plaintext)
		require.NoError(t, err)

		opened, err := cipher.Decrypt(sealed)
		require.NoError(t, err)
		require.Equal(t, plaintext, opened)
	}
}

func TestDeterministic(t *testing.T) {
	cipher, err := NewCipher("secret")
	require.NoError(t, err)

	a, err := cipher.Encrypt("same")
	require.NoError(t, err)
	b, err := cipher.Encrypt("same")
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := cipher.Encrypt("other")
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	other, err := NewCipher("other secret")
	require.NoError(t, err)
	d, err := other.Encrypt("same")
	require.NoError(t, err)
	require.NotEqual(t, a, d)
}

func TestReverseRoundTrip(t *testing.T) {
	cipher, err := NewCipher("correct horse battery staple")
	require.NoError(t, err)

	for _, plaintext := range []string{"", "hunter2", "Äänekoski ääkköset 🚲", "1234"} {
		sealed, err := cipher.Encrypt(plaintext)
		require.NoError(t, err)

		opened, err := cipher.Decrypt(sealed)
		require.NoError(t, err)
		resealed, err := cipher.Encrypt(opened)
		require.NoError(t, err)
		require.Equal(t, sealed, resealed)

		reopened, err := cipher.Decrypt(resealed)
		require.NoError(t, err)
		require.Equal(t, opened, reopened)
	}
}

func TestNonCanonicalCiphertext(t *testing.T) {
	cipher, err := NewCipher("secret")
	require.NoError(t, err)
	sealed, err := cipher.Encrypt("hunter2")
	require.NoError(t, err)

	_, err = cipher.Decrypt(strings.ToUpper(sealed))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestTampered(t *testing.T) {
	cipher, err := NewCipher("secret")
	require.NoError(t, err)
	sealed, err := cipher.Encrypt("hunter2")
	require.NoError(t, err)

	flipped := []byte(sealed)
	last := len(flipped) - 1
	if flipped[last] == '0' {
		flipped[last] = '1'
	} else {
		flipped[last] = '0'
	}
	_, err = cipher.Decrypt(string(flipped))
	require.ErrorIs(t, err, ErrTampered)

	other, err := NewCipher("other secret")
	require.NoError(t, err)
	_, err = other.Decrypt(sealed)
	require.ErrorIs(t, err, ErrTampered)

	_, err = cipher.Decrypt("not hex")
	require.ErrorIs(t, err, ErrMalformed)
	_, err = cipher.Decrypt("abcd")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestEmptyKey(t *testing.T) {
	_, err := NewCipher("")
	require.ErrorIs(t, err, ErrEmptyKey)
}
