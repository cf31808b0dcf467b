package credential

import "secrets/internal/domain"

// PlaintextCodec stores the secret as-is and compares by equality.
//
// It is insecure and exists only as the baseline for comparison and tests.
type PlaintextCodec struct{}

func (PlaintextCodec) Variant() Variant { return Plaintext }

func (PlaintextCodec) Store(secret string) (string, error) {
	if secret == "" {
		return "", domain.ErrInvalidSecret
	}
	return secret, nil
}

func (PlaintextCodec) Verify(candidate, representation string) bool {
	if representation == "" {
		return false
	}
	return candidate == representation
}
