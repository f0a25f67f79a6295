package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainGraph = "opgraph/graph/v1"
	DomainValue = "opgraph/value/v1"
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

// GraphDigest identifies a serialized operation graph. Build history records
// it so a run can be matched to the exact graph it executed.
func GraphDigest(encoded []byte) string {
	return hashWithDomain(DomainGraph, encoded)
}

// ValueDigest identifies a Value by its canonical JSON rendering.
func ValueDigest(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainValue, canonical), nil
}
