// Package sealhash computes the integrity hash that seals a completed
// signature. The same encoding is used when the signature is recorded and
// when it is later re-verified, so the encoding must be byte-stable: fields
// are length-prefixed and written in a fixed order under a version tag,
// never serialized through a map.
package sealhash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const Version = "esig-v1"

// Signature hashes the signing-relevant tuple. signedAt is normalized to UTC
// so the hash does not depend on the server's local zone.
func Signature(contractID, signatureData string, signedAt time.Time, ipAddress string) string {
	var b strings.Builder
	b.WriteString(Version)
	b.WriteByte('\n')
	writeField(&b, contractID)
	writeField(&b, signatureData)
	writeField(&b, signedAt.UTC().Format(time.RFC3339Nano))
	writeField(&b, ipAddress)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// writeField uses a length prefix so adjacent fields can never be confused
// even when a field contains the separator.
func writeField(b *strings.Builder, field string) {
	b.WriteString(strconv.Itoa(len(field)))
	b.WriteByte(':')
	b.WriteString(field)
	b.WriteByte('\n')
}

func Equal(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
