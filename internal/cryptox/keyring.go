// Package cryptox implements the file encryption primitives: an immutable
// KeyRing of master secrets and a Cipher that derives per-file keys from it.
package cryptox

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/securefiles/internal/common"
)

// MinSecretLength is the minimum size of decoded key material.
const MinSecretLength = 32

// KeyRing holds one primary secret and an ordered list of fallback secrets.
// It is built once at startup and never mutated. Secrets are only reachable
// from inside this package.
type KeyRing struct {
	secrets [][]byte
}

// NewKeyRing decodes the primary and fallback secrets. Each secret may be
// hex-encoded (even length, hex digits only) or raw UTF-8 text and must
// resolve to at least MinSecretLength bytes.
func NewKeyRing(primary string, fallbacks []string) (*KeyRing, error) {
	if primary == "" {
		return nil, fmt.Errorf("%w: primary encryption secret is empty", common.ErrConfiguration)
	}

	secrets := make([][]byte, 0, 1+len(fallbacks))

	p, err := decodeSecret(primary)
	if err != nil {
		return nil, fmt.Errorf("primary secret: %w", err)
	}
	secrets = append(secrets, p)

	for i, f := range fallbacks {
		s, err := decodeSecret(f)
		if err != nil {
			return nil, fmt.Errorf("fallback secret #%d: %w", i+1, err)
		}
		secrets = append(secrets, s)
	}

	return &KeyRing{secrets: secrets}, nil
}

// ParseFallbacks splits a comma-separated list of secrets, trimming spaces
// and dropping empty items.
func ParseFallbacks(csv string) []string {
	var result []string
	for _, item := range strings.Split(csv, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// Len returns the number of secrets, primary included.
func (k *KeyRing) Len() int {
	return len(k.secrets)
}

// String never prints key material.
func (k *KeyRing) String() string {
	return fmt.Sprintf("KeyRing(%d keys)", len(k.secrets))
}

// GoString keeps %#v from dumping the secrets.
func (k *KeyRing) GoString() string {
	return k.String()
}

func (k *KeyRing) primary() []byte {
	return k.secrets[0]
}

func isHexSecret(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func decodeSecret(s string) ([]byte, error) {
	var b []byte
	if isHexSecret(s) {
		decoded, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed hex secret", common.ErrConfiguration)
		}
		b = decoded
	} else {
		b = []byte(s)
	}

	if len(b) < MinSecretLength {
		return nil, fmt.Errorf("%w: secret must resolve to at least %d bytes", common.ErrConfiguration, MinSecretLength)
	}
	return b, nil
}
