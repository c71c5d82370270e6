package secrets

import (
	"bytes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

type errorReader struct{}

func (errorReader) Read(p []byte) (int, error) {
	return 0, errors.New("read error")
}

func fixedKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func encodedKey() string {
	return base64.StdEncoding.EncodeToString(fixedKey())
}

func withNewGCM(t *testing.T, fn func(cipher.Block) (cipher.AEAD, error)) {
	t.Helper()
	old := newGCM
	newGCM = fn
	t.Cleanup(func() {
		newGCM = old
	})
}

func TestParseKey_Raw32(t *testing.T) {
	raw := strings.Repeat("a", 32)
	key, err := ParseKey(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(key) != raw {
		t.Fatalf("expected raw key to match, got %q", string(key))
	}
}

func TestParseKey_Base64Valid(t *testing.T) {
	key, err := ParseKey(encodedKey())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !bytes.Equal(key, fixedKey()) {
		t.Fatalf("expected decoded key to match")
	}
}

func TestParseKey_Invalid(t *testing.T) {
	if _, err := ParseKey(""); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := ParseKey("not-base64!!"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := ParseKey(short); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for short key, got %v", err)
	}
}

func TestSealer_RoundTrip(t *testing.T) {
	sealer, err := NewSealer(encodedKey())
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	sealed, err := sealer.Seal("gemini-api-key")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if strings.Contains(sealed, "gemini") {
		t.Fatalf("sealed value leaks plaintext")
	}
	opened, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened != "gemini-api-key" {
		t.Fatalf("expected round trip, got %q", opened)
	}
}

func TestSealer_SealNonceError(t *testing.T) {
	old := randReader
	randReader = errorReader{}
	t.Cleanup(func() { randReader = old })

	sealer, err := NewSealer(encodedKey())
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	if _, err := sealer.Seal("x"); err == nil {
		t.Fatalf("expected nonce error")
	}
}

func TestSealer_OpenRejectsGarbage(t *testing.T) {
	sealer, err := NewSealer(encodedKey())
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	if _, err := sealer.Open("%%%"); err == nil {
		t.Fatalf("expected base64 error")
	}
	if _, err := sealer.Open(base64.StdEncoding.EncodeToString([]byte("abc"))); err == nil {
		t.Fatalf("expected short payload error")
	}
	tampered := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 40))
	if _, err := sealer.Open(tampered); err == nil {
		t.Fatalf("expected authentication error")
	}
}

func TestNewSealer_GCMError(t *testing.T) {
	withNewGCM(t, func(cipher.Block) (cipher.AEAD, error) {
		return nil, errors.New("gcm error")
	})
	if _, err := NewSealer(encodedKey()); err == nil {
		t.Fatalf("expected gcm error")
	}
}

func TestResolveAPIKey(t *testing.T) {
	sealer, err := NewSealer(encodedKey())
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	sealed, err := sealer.Seal("from-sealed")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	key, err := ResolveAPIKey(" plain ", sealed, encodedKey())
	if err != nil || key != "plain" {
		t.Fatalf("expected plaintext key to win, got %q %v", key, err)
	}
	key, err = ResolveAPIKey("", sealed, encodedKey())
	if err != nil || key != "from-sealed" {
		t.Fatalf("expected sealed key, got %q %v", key, err)
	}
	key, err = ResolveAPIKey("", "", "")
	if err != nil || key != "" {
		t.Fatalf("expected empty key, got %q %v", key, err)
	}
	if _, err := ResolveAPIKey("", sealed, ""); err == nil {
		t.Fatalf("expected missing secrets key error")
	}
}
