package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"secrets/internal/domain"
)

func localCodecs(t *testing.T) map[string]Codec {
	t.Helper()
	sym, err := NewSymmetricCodec("deployment-key")
	require.NoError(t, err)
	bc, err := NewBcryptCodec(bcrypt.MinCost)
	require.NoError(t, err)
	return map[string]Codec{
		"plaintext": PlaintextCodec{},
		"symmetric": sym,
		"bcrypt":    bc,
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	secrets := []string{"hunter2", "a", "pässwörd with spaces", strings.Repeat("x", 64)}

	for name, c := range localCodecs(t) {
		t.Run(name, func(t *testing.T) {
			for _, s := range secrets {
				rep, err := c.Store(s)
				require.NoError(t, err)
				assert.True(t, c.Verify(s, rep), "secret %q", s)
				assert.False(t, c.Verify(s+"!", rep))
				assert.False(t, c.Verify(s[:len(s)-1]+"?", rep))
			}
		})
	}
}

func TestCodec_EmptySecret(t *testing.T) {
	for name, c := range localCodecs(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Store("")
			assert.ErrorIs(t, err, domain.ErrInvalidSecret)
		})
	}
}

func TestCodec_VerifyNeverMatchesGarbage(t *testing.T) {
	for name, c := range localCodecs(t) {
		t.Run(name, func(t *testing.T) {
			assert.False(t, c.Verify("hunter2", ""))
			assert.False(t, c.Verify("", ""))
			assert.False(t, c.Verify("hunter2", "$2a$04$not-a-real-hash"))
			assert.False(t, c.Verify("hunter2", "%%%not base64%%%"))
		})
	}
}

func TestCodec_ForeignRepresentation(t *testing.T) {
	codecs := localCodecs(t)
	bcRep, err := codecs["bcrypt"].Store("hunter2")
	require.NoError(t, err)
	symRep, err := codecs["symmetric"].Store("hunter2")
	require.NoError(t, err)

	assert.False(t, codecs["symmetric"].Verify("hunter2", bcRep))
	assert.False(t, codecs["bcrypt"].Verify("hunter2", symRep))
	assert.False(t, codecs["plaintext"].Verify("hunter2", symRep))
}

func TestBcrypt_DistinctSalts(t *testing.T) {
	c, err := NewBcryptCodec(bcrypt.MinCost)
	require.NoError(t, err)

	a, err := c.Store("hunter2")
	require.NoError(t, err)
	b, err := c.Store("hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, c.Verify("hunter2", a))
	assert.True(t, c.Verify("hunter2", b))

	// $2a$04$<22 char salt><31 char hash>
	salt := a[7:29]
	assert.NotEmpty(t, salt)
	assert.NotEqual(t, "hunter2", salt)
	assert.NotContains(t, a, "hunter2")
	assert.NotEqual(t, salt, b[7:29])
}

func TestBcrypt_Cost(t *testing.T) {
	_, err := NewBcryptCodec(2)
	assert.Error(t, err)
	_, err = NewBcryptCodec(bcrypt.MaxCost + 1)
	assert.Error(t, err)

	c, err := NewBcryptCodec(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, c.Cost())

	low, err := NewBcryptCodec(bcrypt.MinCost)
	require.NoError(t, err)
	rep, err := low.Store("hunter2")
	require.NoError(t, err)
	assert.False(t, low.NeedsRehash(rep))

	higher, err := NewBcryptCodec(bcrypt.MinCost + 1)
	require.NoError(t, err)
	assert.True(t, higher.NeedsRehash(rep))
	assert.False(t, higher.NeedsRehash("garbage"))
}

func TestBcrypt_TooLong(t *testing.T) {
	c, err := NewBcryptCodec(bcrypt.MinCost)
	require.NoError(t, err)
	_, err = c.Store(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, domain.ErrInvalidSecret)
}

func TestSymmetric_MissingKeyFailsClosed(t *testing.T) {
	_, err := NewSymmetricCodec("")
	assert.ErrorIs(t, err, ErrMissingKey)

	var c SymmetricCodec
	_, err = c.Store("hunter2")
	assert.ErrorIs(t, err, ErrMissingKey)

	keyed, err := NewSymmetricCodec("k")
	require.NoError(t, err)
	rep, err := keyed.Store("hunter2")
	require.NoError(t, err)
	assert.False(t, c.Verify("hunter2", rep))

	var nilCodec *SymmetricCodec
	assert.False(t, nilCodec.Verify("hunter2", rep))
}

func TestSymmetric_Reversible(t *testing.T) {
	c, err := NewSymmetricCodec("deployment-key")
	require.NoError(t, err)

	a, err := c.Store("hunter2")
	require.NoError(t, err)
	b, err := c.Store("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce must differ per store")

	plain, ok := c.open(a)
	require.True(t, ok)
	assert.Equal(t, "hunter2", string(plain))

	other, err := NewSymmetricCodec("another-key")
	require.NoError(t, err)
	assert.False(t, other.Verify("hunter2", a))
}

func TestFederated_StoresNothing(t *testing.T) {
	var c FederatedCodec
	_, err := c.Store("hunter2")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.False(t, c.Verify("hunter2", "hunter2"))
}

func TestNew(t *testing.T) {
	tests := []struct {
		opts    Options
		want    Variant
		wantErr bool
	}{
		{Options{Variant: Plaintext}, Plaintext, false},
		{Options{Variant: Symmetric, Key: "k"}, Symmetric, false},
		{Options{Variant: Symmetric}, "", true},
		{Options{Variant: Bcrypt, Cost: bcrypt.MinCost}, Bcrypt, false},
		{Options{Cost: bcrypt.MinCost}, Bcrypt, false},
		{Options{Variant: Federated}, Federated, false},
		{Options{Variant: "md5"}, "", true},
	}
	for _, tc := range tests {
		t.Run(string(tc.opts.Variant), func(t *testing.T) {
			c, err := New(tc.opts)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Variant())
		})
	}
}
