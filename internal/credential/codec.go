// Package credential implements the interchangeable strategies for turning a
// presented secret into a stored representation and checking a candidate
// against it.
//
// A deployment selects exactly one Codec at startup. Verify never returns an
// error: a missing, malformed or foreign representation is simply a failed
// verification, so callers cannot tell the failure modes apart.
package credential

import (
	"errors"
	"fmt"
)

// Variant names a codec strategy.
type Variant string

const (
	Plaintext Variant = "plaintext"
	Symmetric Variant = "symmetric"
	Bcrypt    Variant = "bcrypt"
	Federated Variant = "federated"
)

// ErrMissingKey is returned when the symmetric codec has no deployment key.
var ErrMissingKey = errors.New("credential: deployment key is not configured")

// ErrUnsupported is returned by Store on codecs that keep no local secret.
var ErrUnsupported = errors.New("credential: codec does not store local secrets")

// Codec stores and verifies secrets.
type Codec interface {
	Variant() Variant
	Store(secret string) (string, error)
	Verify(candidate, representation string) bool
}

// Options configures New.
type Options struct {
	Variant Variant
	Key     string
	Cost    int
}

// New builds the codec named by opts.Variant.
func New(opts Options) (Codec, error) {
	switch opts.Variant {
	case Plaintext:
		return PlaintextCodec{}, nil
	case Symmetric:
		c, err := NewSymmetricCodec(opts.Key)
		if err != nil {
			return nil, err
		}
		return c, nil
	case Bcrypt, "":
		c, err := NewBcryptCodec(opts.Cost)
		if err != nil {
			return nil, err
		}
		return c, nil
	case Federated:
		return FederatedCodec{}, nil
	default:
		return nil, fmt.Errorf("credential: unknown codec %q", opts.Variant)
	}
}
