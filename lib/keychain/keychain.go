// Package keychain seals portal credentials before they are stored.
//
// Sealing is deterministic: the nonce is a keyed MAC of the plaintext, so a
// plaintext always seals to the same ciphertext under one key and
// Encrypt(Decrypt(c)) == c holds for every ciphertext this package produced.
// Equal credentials therefore have equal ciphertexts.
package keychain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var (
	ErrEmptyKey  = errors.New("keychain: key is empty")
	ErrMalformed = errors.New("keychain: malformed ciphertext")
	ErrTampered  = errors.New("keychain: ciphertext failed authentication")
)

// Cipher is safe for concurrent use.
type Cipher struct {
	key      [32]byte
	nonceKey [32]byte
}

// NewCipher derives the secretbox key and the nonce key from a configured
// secret of any length.
func NewCipher(secret string) (Cipher, error) {
	if secret == "" {
		return Cipher{}, ErrEmptyKey
	}
	var c Cipher
	keys := hkdf.New(sha256.New, []byte(secret), nil, []byte("vamkhelp keychain"))
	_, err := io.ReadFull(keys, c.key[:])
	if err != nil {
		return Cipher{}, fmt.Errorf("keychain: derive key: %w", err)
	}
	_, err = io.ReadFull(keys, c.nonceKey[:])
	if err != nil {
		return Cipher{}, fmt.Errorf("keychain: derive nonce key: %w", err)
	}
	return c, nil
}

func (c Cipher) nonce(plaintext string) [nonceSize]byte {
	mac := hmac.New(sha256.New, c.nonceKey[:])
	mac.Write([]byte(plaintext))
	var nonce [nonceSize]byte
	copy(nonce[:], mac.Sum(nil))
	return nonce
}

// Encrypt returns the hex encoding of nonce followed by the sealed box.
func (c Cipher) Encrypt(plaintext string) (string, error) {
	nonce := c.nonce(plaintext)
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return hex.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext and checks that its nonce is the one Encrypt
// would have chosen, only canonical ciphertexts are accepted.
func (c Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if hex.EncodeToString(raw) != ciphertext {
		return "", fmt.Errorf("%w: hex must be lowercase", ErrMalformed)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrTampered
	}
	expected := c.nonce(string(opened))
	if !hmac.Equal(expected[:], nonce[:]) {
		return "", ErrTampered
	}
	return string(opened), nil
}
