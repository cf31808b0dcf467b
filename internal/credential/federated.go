package credential

// FederatedCodec is used when identity is asserted only by an external
// provider. It never stores a secret and never verifies one.
type FederatedCodec struct{}

func (FederatedCodec) Variant() Variant { return Federated }

func (FederatedCodec) Store(string) (string, error) {
	return "", ErrUnsupported
}

func (FederatedCodec) Verify(string, string) bool {
	return false
}
