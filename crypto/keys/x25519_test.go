package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestX25519KeyPair(t *testing.T) {
	t.Run("GenerateKeyPair", func(t *testing.T) {
		keyPair, err := GenerateX25519KeyPair()
		require.NoError(t, err)
		assert.NotNil(t, keyPair)
		assert.NotNil(t, keyPair.PublicKey())
		assert.NotNil(t, keyPair.PrivateKey())
	})

	t.Run("DeriveSharedSecret", func(t *testing.T) {
		a, err := GenerateX25519KeyPair()
		require.NoError(t, err)
		b, err := GenerateX25519KeyPair()
		require.NoError(t, err)

		aKey, ok := a.(*X25519KeyPair)
		require.True(t, ok)
		bKey, ok := b.(*X25519KeyPair)
		require.True(t, ok)

		s1, err := aKey.DeriveSharedSecret(bKey.PublicKeyBytes())
		require.NoError(t, err)
		s2, err := bKey.DeriveSharedSecret(aKey.PublicKeyBytes())
		require.NoError(t, err)

		assert.Equal(t, s1, s2)
		assert.Len(t, s1, 32)
	})

	t.Run("SignAndVerifyNotSupported", func(t *testing.T) {
		kp, err := GenerateX25519KeyPair()
		require.NoError(t, err)

		_, err = kp.Sign([]byte("anything"))
		assert.Error(t, err)
		assert.Error(t, kp.Verify([]byte("anything"), []byte("sig")))
	})

	t.Run("FromSeedIsDeterministic", func(t *testing.T) {
		var seed [32]byte
		for i := range seed {
			seed[i] = byte(i)
		}
		a, err := NewX25519KeyPairFromSeed(seed[:])
		require.NoError(t, err)
		b, err := NewX25519KeyPairFromSeed(seed[:])
		require.NoError(t, err)
		assert.Equal(t, a.PublicKeyBytes(), b.PublicKeyBytes())
	})
}
