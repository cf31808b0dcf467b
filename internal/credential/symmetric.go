package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"secrets/internal/domain"
)

const symmetricInfo = "secrets/credential/aes-256-gcm"

// SymmetricCodec encrypts secrets with AES-256-GCM under a key derived from
// the deployment secret.
//
// The stored secret can be recovered by anyone holding the deployment key,
// which makes this a weaker guarantee than BcryptCodec. A zero value has no
// key: Store fails with ErrMissingKey and Verify always reports false.
type SymmetricCodec struct {
	aead cipher.AEAD
}

// NewSymmetricCodec derives an AES-256 key from key with HKDF-SHA256.
func NewSymmetricCodec(key string) (*SymmetricCodec, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	derived := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(key), nil, []byte(symmetricInfo)), derived); err != nil {
		return nil, fmt.Errorf("credential: derive key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("credential: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("credential: new gcm: %w", err)
	}
	return &SymmetricCodec{aead: aead}, nil
}

func (c *SymmetricCodec) Variant() Variant { return Symmetric }

// Store returns base64(nonce || ciphertext).
func (c *SymmetricCodec) Store(secret string) (string, error) {
	if secret == "" {
		return "", domain.ErrInvalidSecret
	}
	if c == nil || c.aead == nil {
		return "", ErrMissingKey
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("credential: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(secret), nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (c *SymmetricCodec) Verify(candidate, representation string) bool {
	plain, ok := c.open(representation)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare(plain, []byte(candidate)) == 1
}

func (c *SymmetricCodec) open(representation string) ([]byte, bool) {
	if c == nil || c.aead == nil || representation == "" {
		return nil, false
	}
	data, err := base64.RawStdEncoding.DecodeString(representation)
	if err != nil {
		return nil, false
	}
	n := c.aead.NonceSize()
	if len(data) < n+c.aead.Overhead() {
		return nil, false
	}
	plain, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, false
	}
	return plain, true
}
