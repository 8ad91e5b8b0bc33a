package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// DataHash fingerprints the exact float32 contents of one or more series.
// Column boundaries are part of the hash, so [[1 2] [3]] and [[1] [2 3]]
// differ.
type DataHash Hash

func (h DataHash) String() string { return Hash(h).String() }

// ComputeDataHash hashes the bit patterns of every value, column by column
func ComputeDataHash(columns ...[]float32) DataHash {
	h := sha256.New()
	var buf [8]byte

	for _, col := range columns {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(col)))
		h.Write(buf[:])
		for _, v := range col {
			binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
			h.Write(buf[:4])
		}
	}

	return DataHash(hex.EncodeToString(h.Sum(nil)))
}
