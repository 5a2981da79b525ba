// Package sigtoken issues the bearer tokens embedded in signing links. The
// token is the sole capability needed to view and submit a signature, so it
// is generated from a CSPRNG and only its SHA-256 digest is ever persisted.
package sigtoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// TokenBytes gives 256 bits of entropy; the hex form is 64 characters.
const TokenBytes = 32

func New() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
