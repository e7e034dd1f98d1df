// SPDX-License-Identifier: LGPL-3.0-or-later

// Package e2ee implements the hybrid end-to-end encryption codec: a
// per-secret ChaCha20-Poly1305 body encryption under random 44-byte
// key-material, with that key-material itself sealed to a recipient
// via X25519 ECDH and a Blake3 keyed-XOF KDF. The same sealing
// protocol also carries the server-held private-key context delivered
// at magic-link redemption (section 4.5 step 5 reuses section 4.7's protocol
// verbatim), so SealBlob/OpenBlob operate on arbitrary-length
// plaintexts rather than being hardcoded to the 44-byte case.
package e2ee

import (
	"github.com/veilmark/corevault/crypto"
	"github.com/veilmark/corevault/crypto/keys"
	"github.com/veilmark/corevault/internal/metrics"
)

// KeyMaterialSize is the width of a per-secret key-material blob:
// a 12-byte ChaCha20-Poly1305 nonce followed by a 32-byte key.
const KeyMaterialSize = crypto.AEADNonceSize + crypto.AEADKeySize

// KeyMaterial is the 44-byte nonce||key blob that seals one secret's
// body. Its owner MUST call Zero before releasing it.
type KeyMaterial [KeyMaterialSize]byte

// GenerateKeyMaterial draws fresh random key-material.
func GenerateKeyMaterial() (KeyMaterial, error) {
	var km KeyMaterial
	b, err := crypto.RandomBytes(KeyMaterialSize)
	if err != nil {
		return km, err
	}
	copy(km[:], b)
	return km, nil
}

func (km KeyMaterial) nonce() []byte { return km[:crypto.AEADNonceSize] }
func (km KeyMaterial) key() []byte   { return km[crypto.AEADNonceSize:] }

// Zero clears key-material in place. Every exit path out of a
// key-material's scope, success or error, must call this before the
// buffer is released.
func (km *KeyMaterial) Zero() {
	for i := range km {
		km[i] = 0
	}
}

// EncryptBody seals plaintext under key-material with no associated
// data, per section 4.7.
func EncryptBody(km KeyMaterial, plaintext []byte) ([]byte, error) {
	return crypto.AEADSeal(km.key(), km.nonce(), plaintext, nil)
}

// DecryptBody opens a ciphertext produced by EncryptBody.
func DecryptBody(km KeyMaterial, ciphertext []byte) ([]byte, error) {
	return crypto.AEADOpen(km.key(), km.nonce(), ciphertext, nil)
}

// SealBlob encrypts plaintext to peerPub using local's X25519 private
// key: shared = X25519(local, peerPub) (rejecting the all-zero output),
// derived = Blake3-keyed-XOF(shared, "SharedSecretKeyMaterial_v1", 44),
// cipher_key' = derived[0:32], nonce' = derived[32:44], sealed =
// ChaCha20-Poly1305(cipher_key', nonce', plaintext). Used both to seal
// a shared secret's 44-byte key-material and to seal the 32-byte
// per-user private-key context at magic-link redemption.
func SealBlob(local *keys.X25519KeyPair, peerPub []byte, plaintext []byte) ([]byte, error) {
	cipherKey, nonce, err := derive(local, peerPub)
	if err != nil {
		metrics.E2EESeals.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	sealed, err := crypto.AEADSeal(cipherKey, nonce, plaintext, nil)
	if err != nil {
		metrics.E2EESeals.WithLabelValues("aead_fail").Inc()
		return nil, err
	}
	metrics.E2EESeals.WithLabelValues("ok").Inc()
	return sealed, nil
}

// OpenBlob reverses SealBlob.
func OpenBlob(local *keys.X25519KeyPair, peerPub []byte, sealed []byte) ([]byte, error) {
	cipherKey, nonce, err := derive(local, peerPub)
	if err != nil {
		metrics.E2EEOpens.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	pt, err := crypto.AEADOpen(cipherKey, nonce, sealed, nil)
	if err != nil {
		metrics.E2EEOpens.WithLabelValues("aead_fail").Inc()
		return nil, err
	}
	metrics.E2EEOpens.WithLabelValues("ok").Inc()
	return pt, nil
}

func derive(local *keys.X25519KeyPair, peerPub []byte) (cipherKey, nonce []byte, err error) {
	shared, err := local.DeriveSharedSecret(peerPub)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.Zero(shared)

	derived, err := crypto.DeriveKeyMaterialKey(shared, crypto.AEADKeySize+crypto.AEADNonceSize)
	if err != nil {
		return nil, nil, err
	}
	return derived[:crypto.AEADKeySize], derived[crypto.AEADKeySize:], nil
}

func resultLabel(err error) string {
	if err == crypto.ErrEcdhRejected {
		return "ecdh_rejected"
	}
	return "aead_fail"
}
