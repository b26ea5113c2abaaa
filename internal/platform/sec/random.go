// Copyright (c) 2026 JadeWellness. All rights reserved.

package sec

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// UpperAlphanumeric is the alphabet used for human-typed recovery codes.
const UpperAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString draws length characters uniformly from alphabet using crypto/rand.
func RandomString(alphabet string, length int) (string, error) {
	if alphabet == "" || length <= 0 {
		return "", fmt.Errorf("sec: invalid random string parameters")
	}

	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("sec: failed to read randomness: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// TemporaryPasswordAlphabet is used for admin-issued initial passwords.
const TemporaryPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
