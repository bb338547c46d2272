package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
)

// DefaultOTPLength is the number of digits in a verification code
const DefaultOTPLength = 6

var ten = big.NewInt(10)

// GenerateOTP returns a numeric code of the given length drawn from a
// cryptographically secure source. Leading zeros are kept.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = DefaultOTPLength
	}

	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", internalError(err, "failed to generate otp")
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// otpEqual compares codes in constant time
func otpEqual(stored *string, submitted string) bool {
	if stored == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(submitted)) == 1
}
