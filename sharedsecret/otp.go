// SPDX-License-Identifier: LGPL-3.0-or-later

package sharedsecret

import (
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/crypto"
)

const otpDigits = 9
const otpHashLabel = "OtpHash_v1"

// generateOTP draws a uniformly random 9-decimal-digit one-time code.
func generateOTP() (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(otpDigits), nil)
	nBig, err := randInt(max)
	if err != nil {
		return "", coreerr.Wrap(coreerr.Internal, "sharedsecret: generate otp", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, nBig), nil
}

func randInt(max *big.Int) (*big.Int, error) {
	// crypto/rand.Int requires an io.Reader; reuse the module's CSPRNG
	// wrapper for every random draw rather than importing crypto/rand
	// directly in a second place.
	b, err := crypto.RandomBytes(16)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(b)
	return n.Mod(n, max), nil
}

// hashOTP produces the constant-time-comparable stored form of an OTP.
func hashOTP(kRow []byte, otp string) string {
	mac := crypto.HMACSHA256(kRow, []byte(otpHashLabel+":"+otp))
	return base64.RawURLEncoding.EncodeToString(mac)
}

// verifyOTP constant-time compares otpInput against the stored hash.
func verifyOTP(kRow []byte, otpInput, storedHash string) bool {
	want, err := base64.RawURLEncoding.DecodeString(storedHash)
	if err != nil {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(hashOTP(kRow, otpInput))
	if err != nil {
		return false
	}
	return crypto.HMACEqual(got, want)
}
