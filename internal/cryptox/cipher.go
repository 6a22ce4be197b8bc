package cryptox

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/logging"
	"golang.org/x/crypto/pbkdf2"
)

const (
	KeyLength        = 32
	SaltLength       = 16
	IVLength         = 12
	AuthTagLength    = 16
	PBKDF2Iterations = 210_000
)

// Sealed is the output of Cipher.Encrypt: ciphertext plus the parameters
// needed to reverse it.
type Sealed struct {
	Ciphertext []byte
	Salt       []byte
	IV         []byte
	AuthTag    []byte
}

// Params is the hex-encoded form of the per-encryption parameters, as
// persisted next to the file record.
type Params struct {
	Salt    string
	IV      string
	AuthTag string
}

// HexParams returns the hex encoding of the sealed parameters.
func (s *Sealed) HexParams() Params {
	return Params{
		Salt:    hex.EncodeToString(s.Salt),
		IV:      hex.EncodeToString(s.IV),
		AuthTag: hex.EncodeToString(s.AuthTag),
	}
}

// FallbackFunc is invoked when a fallback secret, not the primary, opened a
// ciphertext. position is 1 for the first fallback.
type FallbackFunc func(ctx context.Context, position int)

// Cipher is a stateless AES-256-GCM engine over a KeyRing. Keys are derived
// per salt with PBKDF2-HMAC-SHA512 and wiped after use.
//
// Fields:
//   - ring: the secrets, primary first; only the primary ever encrypts.
//   - iterations: PBKDF2 rounds, PBKDF2Iterations unless overridden.
//   - logger: receives the fallback warning (position only, never the secret).
//   - onFallback / onFailure: optional hooks, used for metrics.
//
// A Cipher is safe for concurrent use.
type Cipher struct {
	ring       *KeyRing
	iterations int
	logger     logging.Logger
	onFallback FallbackFunc
	onFailure  func(ctx context.Context)
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithLogger sets the logger used for the fallback warning.
func WithLogger(l logging.Logger) Option {
	return func(c *Cipher) { c.logger = l }
}

// WithFallbackHook registers a callback for fallback decryptions.
func WithFallbackHook(fn FallbackFunc) Option {
	return func(c *Cipher) { c.onFallback = fn }
}

// WithFailureHook registers a callback for ciphertexts no key could open.
func WithFailureHook(fn func(ctx context.Context)) Option {
	return func(c *Cipher) { c.onFailure = fn }
}

// WithIterations overrides the PBKDF2 iteration count. Only tests should
// lower it; ciphertexts are not portable across iteration counts.
func WithIterations(n int) Option {
	return func(c *Cipher) { c.iterations = n }
}

// NewCipher builds a Cipher bound to ring.
func NewCipher(ring *KeyRing, opts ...Option) (*Cipher, error) {
	if ring == nil || ring.Len() == 0 {
		return nil, fmt.Errorf("%w: key ring is empty", common.ErrConfiguration)
	}
	c := &Cipher{ring: ring, iterations: PBKDF2Iterations}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Cipher) deriveKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, c.iterations, KeyLength, sha512.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under a key derived from the primary secret and a
// fresh random salt. A new salt and IV are drawn on every call.
//
// Parameters:
//   - plaintext: the file content; it is not modified.
//
// Returns:
//   - *Sealed: ciphertext (same length as plaintext), 16-byte salt,
//     12-byte IV and the 16-byte GCM tag, kept separate.
//   - err: non-nil only if the AES block cannot be built.
func (c *Cipher) Encrypt(plaintext []byte) (*Sealed, error) {
	salt := common.GenerateRandByteArray(SaltLength)
	iv := common.GenerateRandByteArray(IVLength)

	key := c.deriveKey(c.ring.primary(), salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}

	// Seal appends the tag; it is stored separately.
	out := aesgcm.Seal(nil, iv, plaintext, nil)
	split := len(out) - AuthTagLength

	return &Sealed{
		Ciphertext: out[:split:split],
		Salt:       salt,
		IV:         iv,
		AuthTag:    out[split:],
	}, nil
}

// Decrypt tries every secret of the ring in order, primary first, and
// returns the plaintext of the first one whose tag verifies. If none does,
// it returns common.ErrDecryption without any detail about the failure.
//
// Parameters:
//   - ciphertext, salt, iv, authTag: the values produced by Encrypt.
//
// Returns:
//   - plaintext: the original bytes; callers should wipe it when done.
//   - err: common.ErrDecryption for malformed parameters, a tampered
//     ciphertext or a secret that is no longer in the ring.
func (c *Cipher) Decrypt(ctx context.Context, ciphertext, salt, iv, authTag []byte) ([]byte, error) {
	if len(salt) != SaltLength || len(iv) != IVLength || len(authTag) != AuthTagLength {
		c.failed(ctx)
		return nil, common.ErrDecryption
	}

	sealed := make([]byte, 0, len(ciphertext)+len(authTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)

	for i, secret := range c.ring.secrets {
		plaintext, ok := c.open(secret, salt, iv, sealed)
		if !ok {
			continue
		}
		if i > 0 {
			if c.logger != nil {
				c.logger.Warn(ctx, "decrypted with fallback key", "position", i)
			}
			if c.onFallback != nil {
				c.onFallback(ctx, i)
			}
		}
		return plaintext, nil
	}

	c.failed(ctx)
	return nil, common.ErrDecryption
}

// DecryptHex is Decrypt for hex-encoded parameters as stored in records.
func (c *Cipher) DecryptHex(ctx context.Context, ciphertext []byte, p Params) ([]byte, error) {
	salt, err1 := hex.DecodeString(p.Salt)
	iv, err2 := hex.DecodeString(p.IV)
	tag, err3 := hex.DecodeString(p.AuthTag)
	if err1 != nil || err2 != nil || err3 != nil {
		c.failed(ctx)
		return nil, common.ErrDecryption
	}
	return c.Decrypt(ctx, ciphertext, salt, iv, tag)
}

func (c *Cipher) open(secret, salt, iv, sealed []byte) ([]byte, bool) {
	key := c.deriveKey(secret, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, false
	}
	plaintext, err := aesgcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, false
	}
	return plaintext, true
}

func (c *Cipher) failed(ctx context.Context) {
	if c.onFailure != nil {
		c.onFailure(ctx)
	}
}
