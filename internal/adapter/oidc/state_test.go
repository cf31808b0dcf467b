package oidc

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	s, err := NewStateSigner("deployment-key")
	require.NoError(t, err)

	state, err := s.Issue("google", "nonce-1")
	require.NoError(t, err)
	assert.NoError(t, s.Verify(state, "google", "nonce-1"))
}

func TestStateRejects(t *testing.T) {
	s, err := NewStateSigner("deployment-key")
	require.NoError(t, err)
	other, err := NewStateSigner("another-key")
	require.NoError(t, err)

	state, err := s.Issue("google", "nonce-1")
	require.NoError(t, err)
	forged, err := other.Issue("google", "nonce-1")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Verify(state, "github", "nonce-1"), ErrInvalidState)
	assert.ErrorIs(t, s.Verify(state, "google", "nonce-2"), ErrInvalidState)
	assert.ErrorIs(t, s.Verify(state, "google", ""), ErrInvalidState)
	assert.ErrorIs(t, s.Verify(forged, "google", "nonce-1"), ErrInvalidState)
	assert.ErrorIs(t, s.Verify(strings.TrimSuffix(state, state[len(state)-2:]), "google", "nonce-1"), ErrInvalidState)
	assert.ErrorIs(t, s.Verify("", "google", "nonce-1"), ErrInvalidState)
}

func TestStateExpires(t *testing.T) {
	s, err := NewStateSigner("deployment-key")
	require.NoError(t, err)

	start := time.Now()
	s.now = func() time.Time { return start }
	state, err := s.Issue("google", "n")
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(DefaultStateTTL + time.Minute) }
	assert.ErrorIs(t, s.Verify(state, "google", "n"), ErrInvalidState)
}

func TestNewStateSignerRequiresSecret(t *testing.T) {
	_, err := NewStateSigner("")
	assert.Error(t, err)
}
