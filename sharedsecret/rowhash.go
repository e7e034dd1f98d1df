// SPDX-License-Identifier: LGPL-3.0-or-later

package sharedsecret

import (
	"encoding/binary"
	"time"

	"github.com/veilmark/corevault/codec"
	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/crypto"
)

// rowHashKeyLabel domain-separates the row-hash AEAD key derived from
// K_row from any other use of that secret.
const rowHashKeyLabel = "RowHashKey_v1"

// rowHashSize is the fixed width of a row hash: a 12-byte nonce
// followed by a 28-byte ciphertext (12-byte plaintext + 16-byte tag).
const rowHashSize = crypto.AEADNonceSize + 12 + 16

func rowHashKey(kRow []byte) []byte {
	return crypto.HMACSHA256(kRow, []byte(rowHashKeyLabel))
}

// sealRowHash computes the row address: an AEAD ciphertext binding
// roleUserID and referenceID as associated data, so the row hash
// itself authenticates its owner -- it is not a plain primary key.
// The plaintext carries expiresAt plus 4 bytes of random salt so the
// same (roleUserID, referenceID, expiresAt) never repeats a hash.
func sealRowHash(kRow, roleUserID, referenceID []byte, expiresAt time.Time) (string, error) {
	nonce, err := crypto.RandomBytes(crypto.AEADNonceSize)
	if err != nil {
		return "", coreerr.Wrap(coreerr.Internal, "sharedsecret: row hash nonce", err)
	}
	salt, err := crypto.RandomBytes(4)
	if err != nil {
		return "", coreerr.Wrap(coreerr.Internal, "sharedsecret: row hash salt", err)
	}

	plaintext := make([]byte, 12)
	binary.BigEndian.PutUint64(plaintext[:8], uint64(expiresAt.Unix()))
	copy(plaintext[8:], salt)

	aad := append(append([]byte{}, roleUserID...), referenceID...)
	ct, err := crypto.AEADSeal(rowHashKey(kRow), nonce, plaintext, aad)
	if err != nil {
		return "", coreerr.Wrap(coreerr.Internal, "sharedsecret: seal row hash", err)
	}
	return codec.Base58Encode(append(nonce, ct...)), nil
}

// openRowHash is the access check: it succeeds only if hashB58 was
// sealed with exactly this (roleUserID, referenceID) pair. A wrong
// roleUserID (a different authenticated user holding the same URL)
// fails AEAD authentication rather than merely failing a field
// comparison.
func openRowHash(kRow []byte, hashB58 string, roleUserID, referenceID []byte) error {
	raw, err := codec.Base58Decode(hashB58)
	if err != nil || len(raw) != rowHashSize {
		return coreerr.New(coreerr.AccessDenied, "sharedsecret: malformed row hash")
	}
	nonce, ct := raw[:crypto.AEADNonceSize], raw[crypto.AEADNonceSize:]
	aad := append(append([]byte{}, roleUserID...), referenceID...)
	if _, err := crypto.AEADOpen(rowHashKey(kRow), nonce, ct, aad); err != nil {
		return coreerr.New(coreerr.AccessDenied, "sharedsecret: row hash does not belong to this user")
	}
	return nil
}
