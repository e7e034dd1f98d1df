// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package keys

import (
	"crypto"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	corevaultcrypto "github.com/veilmark/corevault/crypto"
)

// X25519KeyPair holds an X25519 private key and its corresponding public key.
type X25519KeyPair struct {
	privateKey *ecdh.PrivateKey
	publicKey  *ecdh.PublicKey
	id         string
}

// GenerateX25519KeyPair generates a new X25519 ECDH key pair.
func GenerateX25519KeyPair() (corevaultcrypto.KeyPair, error) {
	privateKey, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate X25519 key: %w", err)
	}
	publicKey := privateKey.PublicKey()

	hash := sha256.Sum256(publicKey.Bytes())
	id := hex.EncodeToString(hash[:8])

	return &X25519KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         id,
	}, nil
}

// NewX25519KeyPairFromSeed rebuilds a deterministic X25519 key pair
// from a stored 32-byte seed, used to load the server's long-term
// ECDH key from configuration.
func NewX25519KeyPairFromSeed(seed []byte) (*X25519KeyPair, error) {
	privateKey, err := ecdh.X25519().NewPrivateKey(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid X25519 seed: %w", err)
	}
	publicKey := privateKey.PublicKey()
	hash := sha256.Sum256(publicKey.Bytes())
	id := hex.EncodeToString(hash[:8])

	return &X25519KeyPair{
		privateKey: privateKey,
		publicKey:  publicKey,
		id:         id,
	}, nil
}

// PublicKey returns the public key
func (kp *X25519KeyPair) PublicKey() crypto.PublicKey {
	return kp.publicKey
}

// PublicKeyBytes returns the raw 32-byte public key
func (kp *X25519KeyPair) PublicKeyBytes() []byte {
	return kp.publicKey.Bytes()
}

// PrivateKey returns the private key
func (kp *X25519KeyPair) PrivateKey() crypto.PrivateKey {
	return kp.privateKey
}

// Type returns the key type
func (kp *X25519KeyPair) Type() corevaultcrypto.KeyType {
	return corevaultcrypto.KeyTypeX25519
}

// ID returns a unique identifier for this key pair
func (kp *X25519KeyPair) ID() string {
	return kp.id
}

// Sign is not supported: X25519 is a key-agreement curve only.
func (kp *X25519KeyPair) Sign(message []byte) ([]byte, error) {
	return nil, corevaultcrypto.ErrSignNotSupported
}

// Verify is not supported: X25519 is a key-agreement curve only.
func (kp *X25519KeyPair) Verify(message, signature []byte) error {
	return corevaultcrypto.ErrVerifyNotSupported
}

// DeriveSharedSecret computes the raw 32-byte X25519 ECDH output
// against a peer's public key bytes, rejecting low-order/identity
// points. Callers must run the result through a KDF (see
// crypto.DeriveKeyMaterialKey) before using it as key material -- this
// function intentionally does not hash the output itself.
func (kp *X25519KeyPair) DeriveSharedSecret(peerPubBytes []byte) ([]byte, error) {
	peerPub, err := ecdh.X25519().NewPublicKey(peerPubBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse peer public key: %w", err)
	}
	raw, err := kp.privateKey.ECDH(peerPub)
	return sharedSecret(raw, err)
}

// sharedSecret rejects the all-zero shared secret that results from a
// low-order or identity peer point, per RFC 7748 §6.1's warning that
// implementations MUST check for this case.
func sharedSecret(dh []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	var zero [32]byte
	if subtle.ConstantTimeCompare(dh, zero[:]) == 1 {
		return nil, corevaultcrypto.ErrEcdhRejected
	}
	return dh, nil
}
