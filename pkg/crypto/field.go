// Package crypto provides field-level protection for personal data stored in
// the database.
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrMalformedCiphertext is returned when a stored value cannot be decoded.
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// FieldCipher encrypts individual column values with XChaCha20-Poly1305 and
// derives deterministic blind indexes for equality lookups.
type FieldCipher struct {
	encKey   []byte
	indexKey []byte
}

// NewFieldCipher derives fixed-size keys from the configured secrets.
func NewFieldCipher(fieldKey, indexKey string) (*FieldCipher, error) {
	if fieldKey == "" || indexKey == "" {
		return nil, errors.New("field cipher requires both an encryption and an index key")
	}
	enc := sha256.Sum256([]byte(fieldKey))
	idx := sha256.Sum256([]byte(indexKey))
	return &FieldCipher{encKey: enc[:], indexKey: idx[:]}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.encKey)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *FieldCipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	aead, err := chacha20poly1305.NewX(c.encKey)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformedCiphertext
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plain), nil
}

// BlindIndex returns a keyed hash of the normalised value. Equal inputs give
// equal indexes, so it can back a unique column without exposing plaintext.
func (c *FieldCipher) BlindIndex(value string) string {
	mac := hmac.New(sha256.New, c.indexKey)
	mac.Write([]byte(normalise(value)))
	return hex.EncodeToString(mac.Sum(nil))
}

func normalise(value string) string {
	value = strings.TrimSpace(value)
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, value)
}
