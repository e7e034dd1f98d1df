package crypto

import (
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// keyMaterialKDFContext is the fixed domain-separation context for
// deriving the AEAD key that seals a shared secret's 44-byte key
// material to its recipient. It never varies between requests: the
// X25519 shared secret itself provides the per-exchange entropy.
const keyMaterialKDFContext = "SharedSecretKeyMaterial_v1"

// DeriveKeyMaterialKey derives an n-byte key from a raw X25519 shared
// secret using a Blake3 keyed hash as an extensible-output function,
// keyed on the shared secret and domain-separated by a fixed context
// string. Blake3 accepts exactly 32 bytes as a key, which is also the
// exact width of a raw X25519 ECDH output.
func DeriveKeyMaterialKey(sharedSecret []byte, n int) ([]byte, error) {
	return blake3XOF(sharedSecret, []byte(keyMaterialKDFContext), n)
}

// privateKeyContextKDFLabel domain-separates the per-user private-key
// context from every other HMAC derivation keyed on kUser.
const privateKeyContextKDFLabel = "PrivateKeyContext_v1:"

// DerivePrivateKeyContext deterministically derives the 32-byte,
// user-scoped private-key context delivered at magic-link redemption.
// It is keyed on kUser (the same process-wide secret that derives
// user_id, of arbitrary length, hence HMAC rather than Blake3's
// fixed-width key) and the user's id, so the same user always gets the
// same context without a dedicated persisted table.
func DerivePrivateKeyContext(kUser, userID []byte) []byte {
	msg := append([]byte(privateKeyContextKDFLabel), userID...)
	return HMACSHA256(kUser, msg)
}

// blake3XOF keys a Blake3 hash with key, absorbs context, and reads n
// bytes from the resulting extensible-output stream.
func blake3XOF(key, context []byte, n int) ([]byte, error) {
	h, err := blake3.NewKeyed(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: blake3 keyed: %w", err)
	}
	if _, err := h.Write(context); err != nil {
		return nil, fmt.Errorf("crypto: blake3 write: %w", err)
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(h.Digest(), out); err != nil {
		return nil, fmt.Errorf("crypto: blake3 read: %w", err)
	}
	return out, nil
}
