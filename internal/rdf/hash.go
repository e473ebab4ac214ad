package rdf

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainGraph   = "ontoreg/graph/v1"
	DomainStaging = "ontoreg/staging/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of g over its canonical N-Triples form.
// Two graphs hash equal iff they hold the same statements.
func Hash(g *Graph) string {
	return hashWithDomain(DomainGraph, CanonicalBytes(g))
}

// Salt derives a short blank node salt from a seed such as a version IRI.
func Salt(seed string) string {
	return hashWithDomain(DomainStaging, []byte(seed))[:8]
}
