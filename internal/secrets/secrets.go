package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	newGCM     = cipher.NewGCM
	randReader io.Reader = rand.Reader
)

var ErrInvalidKey = errors.New("LLM_SECRETS_KEY must be 32 bytes or base64-encoded 32 bytes")

// Sealer encrypts provider API keys so they can sit in the environment
// or a deployment manifest without being readable.
type Sealer struct {
	aead cipher.AEAD
}

func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("LLM_SECRETS_KEY is required")
	}
	if len(raw) == 32 {
		return []byte(raw), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) != 32 {
		return nil, ErrInvalidKey
	}
	return decoded, nil
}

func NewSealer(rawKey string) (*Sealer, error) {
	key, err := ParseKey(rawKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := newGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns base64(nonce || ciphertext).
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Sealer) Open(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", fmt.Errorf("decode sealed secret: %w", err)
	}
	size := s.aead.NonceSize()
	if len(data) < size {
		return "", errors.New("invalid sealed secret")
	}
	plain, err := s.aead.Open(nil, data[:size], data[size:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed secret: %w", err)
	}
	return string(plain), nil
}

// ResolveAPIKey prefers a plaintext key and otherwise opens the sealed one
// with rawKey. Both empty yields an empty key.
func ResolveAPIKey(plain, sealed, rawKey string) (string, error) {
	if strings.TrimSpace(plain) != "" {
		return strings.TrimSpace(plain), nil
	}
	if strings.TrimSpace(sealed) == "" {
		return "", nil
	}
	sealer, err := NewSealer(rawKey)
	if err != nil {
		return "", err
	}
	return sealer.Open(sealed)
}
