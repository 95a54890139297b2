// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the length of a Hash in bytes.
const HashSize = sha256.Size

// HashHexLength is the length of a Hash in its canonical hex form.
const HashHexLength = 2 * HashSize

// Hash is a SHA-256 content digest.
type Hash [HashSize]byte

// Compute returns the hash of data.
func Compute(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// String returns the canonical lowercase hex form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash, which no stored blob
// can have in practice and which callers use as "unset".
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Parse parses a 64-character hex string. Uppercase digits are
// accepted; the canonical output of String is always lowercase.
func Parse(hexString string) (Hash, error) {
	var hash Hash
	if len(hexString) != HashHexLength {
		return hash, fmt.Errorf("asset hash is %d characters, want %d", len(hexString), HashHexLength)
	}
	if _, err := hex.Decode(hash[:], []byte(hexString)); err != nil {
		return Hash{}, fmt.Errorf("parsing asset hash: %w", err)
	}
	return hash, nil
}

// FromBytes copies a raw 32-byte digest into a Hash.
func FromBytes(raw []byte) (Hash, error) {
	var hash Hash
	if len(raw) != HashSize {
		return hash, fmt.Errorf("asset hash is %d bytes, want %d", len(raw), HashSize)
	}
	copy(hash[:], raw)
	return hash, nil
}

// IsCanonicalName reports whether name is exactly a canonical hash
// string: 64 lowercase hex characters, nothing else. This is the test
// for whether a file in the storage root is a blob.
func IsCanonicalName(name string) bool {
	if len(name) != HashHexLength {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
