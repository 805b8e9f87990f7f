// Package security wraps API credentials at rest. Exchange and Telegram
// secrets can be stored in the environment as ENC[...] values and unwrapped
// with a single master passphrase at startup.
package security

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	encPrefix = "ENC["
	encSuffix = "]"

	// pbkdf2Iterations follows the OWASP minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	saltLen          = 16
)

var ErrNoMasterKey = errors.New("secrets master key is not set")

// IsEncrypted reports whether a value is in the ENC[...] wrapped form.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encPrefix) && strings.HasSuffix(value, encSuffix)
}

// EncryptString wraps a plaintext secret as ENC[base64(salt|nonce|ct)],
// using PBKDF2-HMAC-SHA256 key derivation and ChaCha20-Poly1305.
func EncryptString(plaintext, masterKey string) (string, error) {
	if masterKey == "" {
		return "", ErrNoMasterKey
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	aead, err := newAEAD(masterKey, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	return encPrefix + base64.StdEncoding.EncodeToString(blob) + encSuffix, nil
}

// DecryptString unwraps an ENC[...] value. Plain values pass through
// untouched, so configuration may mix encrypted and plaintext secrets.
func DecryptString(value, masterKey string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if masterKey == "" {
		return "", ErrNoMasterKey
	}

	encoded := strings.TrimSuffix(strings.TrimPrefix(value, encPrefix), encSuffix)
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding secret: %w", err)
	}

	if len(blob) < saltLen+chacha20poly1305.NonceSize {
		return "", fmt.Errorf("secret blob too short: %d bytes", len(blob))
	}

	salt := blob[:saltLen]
	nonce := blob[saltLen : saltLen+chacha20poly1305.NonceSize]
	sealed := blob[saltLen+chacha20poly1305.NonceSize:]

	aead, err := newAEAD(masterKey, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting secret: %w", err)
	}

	return string(plaintext), nil
}

func newAEAD(masterKey string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(masterKey), salt, pbkdf2Iterations, chacha20poly1305.KeySize, sha256.New)
	return chacha20poly1305.New(key)
}
