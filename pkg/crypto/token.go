package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// TokenLength is the default number of random bytes in a generated token.
const TokenLength = 32

// GenerateToken returns a random URL-safe token of the requested byte length.
// A failure of the system CSPRNG is not recoverable per request.
func GenerateToken(length int) (string, error) {
	if length <= 0 {
		length = TokenLength
	}
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// DigestToken produces the deterministic one-way digest under which a token is
// persisted. Storage never sees raw tokens; lookups always compare digests.
func DigestToken(token string) string {
	checksum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(checksum[:])
}
