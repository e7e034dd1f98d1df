package crypto

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// AEADSeal encrypts plaintext with ChaCha20-Poly1305 under key (32
// bytes) and nonce (12 bytes), binding aad as associated data.
func AEADSeal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aead init: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("crypto: aead nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// AEADOpen decrypts a ChaCha20-Poly1305 ciphertext produced by AEADSeal.
func AEADOpen(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aead init: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("crypto: aead nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAeadFail
	}
	return pt, nil
}

// AEADNonceSize is the ChaCha20-Poly1305 nonce width (12 bytes).
const AEADNonceSize = chacha20poly1305.NonceSize

// AEADKeySize is the ChaCha20-Poly1305 key width (32 bytes).
const AEADKeySize = chacha20poly1305.KeySize
