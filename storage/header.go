package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/openledger/ledgercore/common"
)

// HeaderLen is the fixed size in bytes of an encoded ledger header.
const HeaderLen = 4 + 8 + 32 + 32 + 32 + 8

// Header is the durable row persisted for one accepted ledger, per
// the external-interfaces binary layout:
//
//	offset  size  field
//	0       4     LedgerSeq      (u32, big-endian)
//	4       8     FeeHeld        (u64, big-endian)
//	12      32    ParentHash     (256-bit)
//	44      32    TransSetHash   (256-bit)
//	76      32    AccountSetHash (256-bit)
//	108     8     ClosingTime    (u64, big-endian)
type Header struct {
	LedgerSeq      uint32
	FeeHeld        uint64
	ParentHash     common.Hash256
	TransSetHash   common.Hash256
	AccountSetHash common.Hash256
	ClosingTime    uint64
	LedgerHash     common.Hash256
}

// Encode serializes the 116-byte on-disk layout, excluding LedgerHash
// itself (the digest of these bytes, computed by the ledger package).
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.LedgerSeq)
	binary.BigEndian.PutUint64(buf[4:12], h.FeeHeld)
	copy(buf[12:44], h.ParentHash[:])
	copy(buf[44:76], h.TransSetHash[:])
	copy(buf[76:108], h.AccountSetHash[:])
	binary.BigEndian.PutUint64(buf[108:116], h.ClosingTime)
	return buf
}

// DecodeHeader parses the 116-byte on-disk layout. ledgerHash is the
// caller-supplied (already verified or already known) hash under
// which this header row is filed.
func DecodeHeader(b []byte, ledgerHash common.Hash256) (*Header, error) {
	if len(b) != HeaderLen {
		return nil, fmt.Errorf("storage: header has length %d, want %d", len(b), HeaderLen)
	}
	return &Header{
		LedgerSeq:      binary.BigEndian.Uint32(b[0:4]),
		FeeHeld:        binary.BigEndian.Uint64(b[4:12]),
		ParentHash:     common.BytesToHash256(b[12:44]),
		TransSetHash:   common.BytesToHash256(b[44:76]),
		AccountSetHash: common.BytesToHash256(b[76:108]),
		ClosingTime:    binary.BigEndian.Uint64(b[108:116]),
		LedgerHash:     ledgerHash,
	}, nil
}

func seqKey(seq uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], seq)
	return b[:]
}

// PutHeader writes h under both its sequence index and its hash
// index. The sequence-indexed row is prefixed with the ledger hash
// so a lookup by sequence alone can still recover it.
func (s *Store) PutHeader(h *Header) error {
	encoded := h.Encode()
	bySeq := make([]byte, 0, common.HashLength+len(encoded))
	bySeq = append(bySeq, h.LedgerHash[:]...)
	bySeq = append(bySeq, encoded...)
	if err := s.db.Put(taggedKey(resourceLedgerBySeq, seqKey(h.LedgerSeq)), bySeq); err != nil {
		return fmt.Errorf("storage: put header by seq %d: %w", h.LedgerSeq, err)
	}
	if err := s.db.Put(taggedKey(resourceLedgerByHash, h.LedgerHash[:]), encoded); err != nil {
		return fmt.Errorf("storage: put header by hash %s: %w", h.LedgerHash, err)
	}
	return nil
}

// HeaderBySeq loads the header filed under the given ledger sequence.
func (s *Store) HeaderBySeq(seq uint32) (*Header, error) {
	raw, err := s.db.Get(taggedKey(resourceLedgerBySeq, seqKey(seq)))
	if err != nil {
		return nil, fmt.Errorf("storage: header by seq %d: %w", seq, err)
	}
	if len(raw) != common.HashLength+HeaderLen {
		return nil, fmt.Errorf("storage: header-by-seq row for %d has bad length %d", seq, len(raw))
	}
	hash := common.BytesToHash256(raw[:common.HashLength])
	return DecodeHeader(raw[common.HashLength:], hash)
}

// HeaderByHash loads the header filed under the given ledger hash.
func (s *Store) HeaderByHash(hash common.Hash256) (*Header, error) {
	raw, err := s.db.Get(taggedKey(resourceLedgerByHash, hash[:]))
	if err != nil {
		return nil, fmt.Errorf("storage: header by hash %s: %w", hash, err)
	}
	return DecodeHeader(raw, hash)
}
