package mfa

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strconv"
)

const (
	// MinCode and MaxCode bound the 6-digit one-time codes.
	MinCode = 100000
	MaxCode = 999999
)

var codeSpan = big.NewInt(MaxCode - MinCode + 1)

// GenerateCode returns a code drawn uniformly from [MinCode, MaxCode] using crypto/rand.
func GenerateCode() (int, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return 0, err
	}
	return MinCode + int(n.Int64()), nil
}

// HashCode returns the hex SHA-256 of the decimal code.
func HashCode(code int) string {
	h := sha256.Sum256([]byte(strconv.Itoa(code)))
	return hex.EncodeToString(h[:])
}

// CodeEqual compares the hash of code with storedHash in constant time.
func CodeEqual(code int, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashCode(code)), []byte(storedHash)) == 1
}
