package crypto

import (
	"crypto/rand"
	"math"
)

const (
	codeAlphabet string = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	codeLength   int    = 16 // 16 * 6 = 96 bits of entropy
	codeMask     byte   = 63 // alphabet is exactly 64 characters
)

// GenerateInviteCode returns a random URL-safe invite code. Collisions are
// negligible at 96 bits but the store still enforces uniqueness; callers
// retry on a duplicate-key insert.
func GenerateInviteCode() (string, error) {
	step := int(math.Ceil(1.6 * float64(codeLength)))

	code := make([]byte, codeLength)
	buffer := make([]byte, step)

	for position := 0; position < codeLength; {
		if _, err := rand.Read(buffer); err != nil {
			return "", err
		}

		// Map random bytes to alphabet characters
		for i := 0; i < step && position < codeLength; i++ {
			index := buffer[i] & codeMask
			code[position] = codeAlphabet[index]
			position++
		}
	}

	return string(code), nil
}
