package signer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateGeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()

	id1, err := LoadOrCreateEd25519Identity(dir, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, id1.Address())

	require.FileExists(t, filepath.Join(dir, "alice_privatekey.pem"))
	require.FileExists(t, filepath.Join(dir, "alice_publickey.pem"))

	id2, err := LoadOrCreateEd25519Identity(dir, "alice")
	require.NoError(t, err)
	require.Equal(t, id1.Address(), id2.Address())
}

func TestSignVerifyRoundTrip(t *testing.T) {
	id, err := LoadOrCreateEd25519Identity(t.TempDir(), "bob")
	require.NoError(t, err)

	msg := []byte("123456789012|receiver|{}|31/07/2026, 10:30:00|0.0001")
	sig, err := id.Sign(msg)
	require.NoError(t, err)
	require.True(t, id.Verify(msg, sig))

	mutated := append([]byte(nil), msg...)
	mutated[0] ^= 0xFF
	require.False(t, id.Verify(mutated, sig))
}

func TestDistinctIdentitiesHaveDistinctAddresses(t *testing.T) {
	dir := t.TempDir()
	a, err := LoadOrCreateEd25519Identity(dir, "a")
	require.NoError(t, err)
	b, err := LoadOrCreateEd25519Identity(dir, "b")
	require.NoError(t, err)
	require.NotEqual(t, a.Address(), b.Address())
}
