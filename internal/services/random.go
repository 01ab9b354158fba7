package services

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const orderIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomString(alphabet string, n int) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}

// GenerateOTPCode returns six uniformly random decimal digits.
func GenerateOTPCode() (string, error) {
	return randomString("0123456789", 6)
}

// GenerateOrderID returns "ord_" followed by eight random [a-z0-9] characters.
func GenerateOrderID() (string, error) {
	s, err := randomString(orderIDAlphabet, 8)
	if err != nil {
		return "", err
	}
	return "ord_" + s, nil
}

// GenerateTableHash returns 32 random hex characters.
func GenerateTableHash() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
