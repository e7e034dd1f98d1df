package crypto

import (
	"crypto"
	"errors"
)

// KeyType represents the type of cryptographic key: Ed25519 for
// signing identity and session keys, X25519 for ECDH.
// crypto/keys.X25519KeyPair implements KeyPair with KeyTypeX25519, but
// its Sign and Verify return ErrSignNotSupported and
// ErrVerifyNotSupported; ECDH goes through its DeriveSharedSecret.
type KeyType string

const (
	KeyTypeEd25519 KeyType = "Ed25519"
	KeyTypeX25519  KeyType = "X25519"
)

// KeyPair represents a key pair of either KeyType. Only Ed25519 key
// pairs support Sign and Verify.
type KeyPair interface {
	// PublicKey returns the public key
	PublicKey() crypto.PublicKey

	// PrivateKey returns the private key
	PrivateKey() crypto.PrivateKey

	// Type returns the key type
	Type() KeyType

	// Sign signs the given message
	Sign(message []byte) ([]byte, error)

	// Verify verifies the signature
	Verify(message, signature []byte) error

	// ID returns a unique identifier for this key pair
	ID() string
}

// Common errors
var (
	ErrKeyNotFound        = errors.New("key not found")
	ErrInvalidKeyType     = errors.New("invalid key type")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrSignNotSupported   = errors.New("crypto: key type does not support signing")
	ErrVerifyNotSupported = errors.New("crypto: key type does not support verification")
	ErrEcdhRejected       = errors.New("crypto: x25519 low-order or identity point")
	ErrAeadFail           = errors.New("crypto: aead authentication failed")
)
