// Package credential seals API keys before they are written to the
// configuration table. Values are encrypted with AES-256-GCM under a key
// derived from the machine and user, so a copied database is useless
// elsewhere.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// SealedPrefix marks sealed values in storage.
const SealedPrefix = "enc:v1:"

var (
	ErrOpenFailed    = errors.New("credential could not be opened")
	ErrInvalidFormat = errors.New("invalid sealed format")
)

// secretSuffixes name the configuration keys that hold secrets.
var secretSuffixes = []string{".api_key", ".secret_key"}

// IsSecretKey reports whether a configuration key holds a secret.
func IsSecretKey(key string) bool {
	for _, s := range secretSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// Manager seals and opens credentials.
type Manager struct {
	aead cipher.AEAD
}

// NewManager derives the key from machine identifiers.
func NewManager() (*Manager, error) {
	return newManager(machineEntropy())
}

// NewManagerWithSecret derives the key from secret alone. It is used when
// TERMAX_SECRET is set, which lets a database move between machines.
func NewManagerWithSecret(secret string) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("empty secret")
	}
	return newManager("termax-secret:" + secret)
}

func newManager(entropy string) (*Manager, error) {
	key := sha256.Sum256([]byte(entropy))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Manager{aead: aead}, nil
}

// Seal returns the storable form of plaintext. Empty and already sealed
// values are returned unchanged.
func (m *Manager) Seal(plaintext string) (string, error) {
	if plaintext == "" || IsSealed(plaintext) {
		return plaintext, nil
	}

	nonce := make([]byte, m.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := m.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values without the prefix are returned as-is so keys
// set by hand in the database keep working.
func (m *Manager) Open(stored string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	n := m.aead.NonceSize()
	if len(raw) < n {
		return "", ErrInvalidFormat
	}
	plaintext, err := m.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", ErrOpenFailed
	}
	return string(plaintext), nil
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

func machineEntropy() string {
	var b strings.Builder
	hostname, _ := os.Hostname()
	b.WriteString(hostname)
	home, _ := os.UserHomeDir()
	b.WriteString(home)
	b.WriteString(runtime.GOOS)
	b.WriteString(runtime.GOARCH)
	b.WriteString("termax-credential-v1")
	if uid := os.Getuid(); uid != -1 {
		fmt.Fprintf(&b, "uid:%d", uid)
	}
	if user := os.Getenv("USER"); user != "" {
		b.WriteString(user)
	}
	return b.String()
}

// Mask hides all but the first and last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
