package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"secrets/internal/domain"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// BcryptCodec hashes secrets with bcrypt. Every Store draws a fresh salt and
// the representation carries {cost, salt, hash} in modular crypt format.
type BcryptCodec struct {
	cost int
}

// NewBcryptCodec returns a codec with the given work factor; 0 selects
// DefaultCost.
func NewBcryptCodec(cost int) (*BcryptCodec, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("credential: bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptCodec{cost: cost}, nil
}

func (c *BcryptCodec) Variant() Variant { return Bcrypt }

// Cost returns the configured work factor.
func (c *BcryptCodec) Cost() int { return c.cost }

func (c *BcryptCodec) Store(secret string) (string, error) {
	if secret == "" {
		return "", domain.ErrInvalidSecret
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), c.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidSecret, err)
	}
	if err != nil {
		return "", fmt.Errorf("credential: bcrypt: %w", err)
	}
	return string(h), nil
}

func (c *BcryptCodec) Verify(candidate, representation string) bool {
	if representation == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(representation), []byte(candidate)) == nil
}

// NeedsRehash reports whether representation was produced with a different
// work factor than the one configured.
func (c *BcryptCodec) NeedsRehash(representation string) bool {
	cost, err := bcrypt.Cost([]byte(representation))
	if err != nil {
		return false
	}
	return cost != c.cost
}
