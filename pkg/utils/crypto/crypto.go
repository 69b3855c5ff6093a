package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// OAuth tokens are encrypted at rest. The key is derived from the configured
// ENCRYPTION_KEY passphrase; the nonce is prepended to the ciphertext.

var ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")

func deriveKey(passphrase string) [32]byte {
	return sha256.Sum256([]byte(passphrase))
}

// Encrypt seals plaintext with the given passphrase and returns a
// base64-encoded token safe to store in a text column.
func Encrypt(plaintext, passphrase string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key := deriveKey(passphrase)

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func Decrypt(encoded, passphrase string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	key := deriveKey(passphrase)

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(sealed) < 24 {
		return "", ErrCiphertextTooShort
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])

	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &key)
	if !ok {
		return "", errors.New("crypto: decryption failed")
	}
	return string(plaintext), nil
}
