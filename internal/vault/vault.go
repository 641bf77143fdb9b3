// Package vault provides authenticated symmetric encryption for user-supplied
// API credentials. Plaintext keys are never persisted; only vault tokens are.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// maxMaskLength caps the masked prefix so the displayed form never reveals
// the true length of a long key.
const maxMaskLength = 20

// ConfigurationError indicates the vault secret is missing or unusable.
// The vault refuses to operate rather than fall back to a default key.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("vault configuration error: %s", e.Message)
}

// DecryptionError indicates a token was malformed, truncated, tampered with,
// or encrypted under a different secret.
type DecryptionError struct {
	Cause error
}

func (e *DecryptionError) Error() string {
	return "failed to decrypt credential: invalid or corrupted data"
}

func (e *DecryptionError) Unwrap() error {
	return e.Cause
}

// Vault encrypts and decrypts credentials with a process-lifetime secret.
// The secret is loaded once at startup; runtime rotation is not supported.
type Vault struct {
	aead cipher.AEAD
}

// New creates a Vault from a base64-encoded 32-byte secret.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, &ConfigurationError{Message: "secret is empty"}
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret))
	if err != nil {
		return nil, &ConfigurationError{Message: "secret is not valid base64"}
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, &ConfigurationError{
			Message: fmt.Sprintf("secret must decode to %d bytes, got %d", chacha20poly1305.KeySize, len(key)),
		}
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, &ConfigurationError{Message: err.Error()}
	}

	return &Vault{aead: aead}, nil
}

// NewFromEnv creates a Vault from the VAULT_SECRET_KEY environment variable.
func NewFromEnv() (*Vault, error) {
	secret := os.Getenv("VAULT_SECRET_KEY")
	if secret == "" {
		return nil, &ConfigurationError{Message: "VAULT_SECRET_KEY is required but not set"}
	}
	return New(secret)
}

// NewSecret generates a fresh random vault secret in the encoding New expects.
func NewSecret() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Encrypt encrypts plaintext and returns an opaque base64url token
// (nonce prepended to the AEAD ciphertext).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any token not produced by this vault's Encrypt
// under the current secret fails with a DecryptionError; it never returns
// silently-wrong plaintext.
func (v *Vault) Decrypt(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", &DecryptionError{Cause: err}
	}
	if len(raw) < v.aead.NonceSize() {
		return "", &DecryptionError{Cause: fmt.Errorf("token too short: %d bytes", len(raw))}
	}

	nonce, ciphertext := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", &DecryptionError{Cause: err}
	}
	return string(plaintext), nil
}

// Mask returns a display form showing only the trailing visible characters.
// A value no longer than visible is fully masked at its own length; the
// masked prefix is capped at maxMaskLength characters.
func Mask(s string, visible int) string {
	if visible < 0 {
		visible = 0
	}
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}

	maskLen := len(s) - visible
	if maskLen > maxMaskLength {
		maskLen = maxMaskLength
	}
	return strings.Repeat("*", maskLen) + s[len(s)-visible:]
}
