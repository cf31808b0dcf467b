package oidc

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// DefaultStateTTL bounds how long a user may spend at the provider.
const DefaultStateTTL = 10 * time.Minute

// ErrInvalidState indicates a forged, expired or mismatched state parameter.
var ErrInvalidState = errors.New("invalid oauth state")

type stateClaims struct {
	Provider string `json:"prv"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

// StateSigner issues and checks the OAuth state parameter. The state is an
// HS256 token naming the provider and a nonce that is also held in a cookie
// on the user agent, so a callback is only accepted from the browser that
// started the attempt.
type StateSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewStateSigner derives a signing key from secret.
func NewStateSigner(secret string) (*StateSigner, error) {
	if secret == "" {
		return nil, errors.New("state signer: empty secret")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("secrets/oauth/state")), key); err != nil {
		return nil, err
	}
	return &StateSigner{key: key, ttl: DefaultStateTTL, now: time.Now}, nil
}

// Issue returns a signed state bound to provider and nonce.
func (s *StateSigner) Issue(provider, nonce string) (string, error) {
	now := s.now()
	claims := stateClaims{
		Provider: provider,
		Nonce:    nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Verify checks the signature, expiry, provider and nonce of state.
func (s *StateSigner) Verify(state, provider, nonce string) error {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Provider != provider {
		return fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}
	if nonce == "" || subtle.ConstantTimeCompare([]byte(claims.Nonce), []byte(nonce)) != 1 {
		return fmt.Errorf("%w: nonce mismatch", ErrInvalidState)
	}
	return nil
}
