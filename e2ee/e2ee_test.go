// SPDX-License-Identifier: LGPL-3.0-or-later

package e2ee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmark/corevault/crypto"
	"github.com/veilmark/corevault/crypto/keys"
)

func TestBodyEncryptRoundTrip(t *testing.T) {
	km, err := GenerateKeyMaterial()
	require.NoError(t, err)

	ct, err := EncryptBody(km, []byte("the secret"))
	require.NoError(t, err)

	pt, err := DecryptBody(km, ct)
	require.NoError(t, err)
	assert.Equal(t, "the secret", string(pt))
}

func TestSealBlobRoundTrip(t *testing.T) {
	alicePair, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	alice := alicePair.(*keys.X25519KeyPair)

	bobPair, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	bob := bobPair.(*keys.X25519KeyPair)

	km, err := GenerateKeyMaterial()
	require.NoError(t, err)

	sealed, err := SealBlob(alice, bob.PublicKeyBytes(), km[:])
	require.NoError(t, err)

	opened, err := OpenBlob(bob, alice.PublicKeyBytes(), sealed)
	require.NoError(t, err)
	assert.Equal(t, km[:], opened)
}

func TestSealBlobRejectsWrongPeer(t *testing.T) {
	alicePair, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	alice := alicePair.(*keys.X25519KeyPair)

	bobPair, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	bob := bobPair.(*keys.X25519KeyPair)

	evePair, err := keys.GenerateX25519KeyPair()
	require.NoError(t, err)
	eve := evePair.(*keys.X25519KeyPair)

	sealed, err := SealBlob(alice, bob.PublicKeyBytes(), []byte("hello"))
	require.NoError(t, err)

	_, err = OpenBlob(eve, alice.PublicKeyBytes(), sealed)
	assert.ErrorIs(t, err, crypto.ErrAeadFail)
}

func TestKeyMaterialZero(t *testing.T) {
	km, err := GenerateKeyMaterial()
	require.NoError(t, err)
	km.Zero()
	for _, b := range km {
		assert.Equal(t, byte(0), b)
	}
}
