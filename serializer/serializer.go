// Package serializer implements the fixed-order binary encoding and
// SHA512-half digest scheme used for trie node hashes and ledger
// header hashes.
package serializer

import (
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/openledger/ledgercore/common"
)

// Serializer accumulates fields in a fixed append order and produces
// either the raw encoded bytes or a SHA512-half digest of them.
type Serializer struct {
	buf []byte
}

// New returns an empty Serializer.
func New() *Serializer {
	return &Serializer{}
}

// Add32 appends a 32-bit big-endian field.
func (s *Serializer) Add32(v uint32) *Serializer {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
	return s
}

// Add64 appends a 64-bit big-endian field.
func (s *Serializer) Add64(v uint64) *Serializer {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	s.buf = append(s.buf, b[:]...)
	return s
}

// Add160 appends a 160-bit field (an AccountID).
func (s *Serializer) Add160(v common.AccountID) *Serializer {
	s.buf = append(s.buf, v[:]...)
	return s
}

// Add256 appends a 256-bit field (a Hash256).
func (s *Serializer) Add256(v common.Hash256) *Serializer {
	s.buf = append(s.buf, v[:]...)
	return s
}

// AddBlob appends a variable-length field as a 4-byte big-endian
// length prefix followed by the raw bytes.
func (s *Serializer) AddBlob(v []byte) *Serializer {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
	s.buf = append(s.buf, lenBuf[:]...)
	s.buf = append(s.buf, v...)
	return s
}

// Bytes returns the raw encoded byte stream accumulated so far.
func (s *Serializer) Bytes() []byte {
	return s.buf
}

// FinishDigest256 returns the SHA512-half digest of the accumulated
// byte stream: the first 32 bytes of its 64-byte SHA-512 sum.
func (s *Serializer) FinishDigest256() common.Hash256 {
	return SHA512Half(s.buf)
}

// SHA512Half computes the "first half of a 512-bit cryptographic
// hash" digest used throughout the ledger core: SHA-512 truncated to
// its first 256 bits.
func SHA512Half(data []byte) common.Hash256 {
	sum := sha512.Sum512(data)
	var h common.Hash256
	copy(h[:], sum[:common.HashLength])
	return h
}

// HashValues hashes the concatenation of several already-encoded byte
// slices, a convenience for combining child hashes in an inner trie node.
func HashValues(values ...[]byte) (common.Hash256, error) {
	h := sha512.New()
	for _, v := range values {
		if _, err := h.Write(v); err != nil {
			return common.Hash256{}, fmt.Errorf("hash values: %w", err)
		}
	}
	sum := h.Sum(nil)
	var out common.Hash256
	copy(out[:], sum[:common.HashLength])
	return out, nil
}
