package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/samber/oops"
)

// ResetTokenBytes is the entropy of a reset token: 32 bytes = 256 bits = 64 hex chars.
const ResetTokenBytes = 32

// GenerateResetToken creates a random reset token and its digest.
// The plaintext token is emailed to the user; only the digest is stored.
func GenerateResetToken() (token, digest string, err error) {
	b := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token = hex.EncodeToString(b)
	return token, HashResetToken(token), nil
}

// HashResetToken computes the hex SHA-256 digest under which a token is stored.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
