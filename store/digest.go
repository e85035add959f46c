package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainSnapshot prefixes snapshot digests. The version suffix allows a
// future algorithm change without colliding with old digests.
const DomainSnapshot = "snapcheck/snapshot/v1"

// Digest returns the content digest of snapshot bytes.
// Format: hex(SHA256(domain + 0x00 + data)).
func Digest(data []byte) string {
	return hashWithDomain(DomainSnapshot, data)
}

// ShortDigest returns the first 12 hex characters of Digest.
func ShortDigest(data []byte) string {
	return Digest(data)[:12]
}

// hashWithDomain computes SHA-256 with domain separation.
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
