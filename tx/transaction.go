// Package tx implements the ledger's transaction record: a signed
// payload identified by the hash of its signed bytes.
package tx

import (
	"github.com/openledger/ledgercore/common"
	"github.com/openledger/ledgercore/serializer"
)

// Status is a local, view-side annotation of where a transaction
// stands relative to the ledger that included it. It is never part of
// the bytes stored in the transaction trie.
type Status int

const (
	// New is a transaction that has not yet been applied to any ledger.
	New Status = iota
	// Included marks a transaction applied to a still-open or closed ledger.
	Included
	// Committed marks a transaction belonging to an accepted ledger.
	Committed
	// Removed marks a transaction that was applied and then reversed.
	Removed
)

func (s Status) String() string {
	switch s {
	case New:
		return "NEW"
	case Included:
		return "INCLUDED"
	case Committed:
		return "COMMITTED"
	case Removed:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Transaction is a signed value transfer between two accounts.
type Transaction struct {
	ID       common.Hash256
	From     common.AccountID
	To       common.AccountID
	Amount   uint64
	Fee      uint64
	// SourceLedgerSeq is the ledger sequence the submitter built this
	// transaction against (checked as an upper bound by applyTransaction).
	SourceLedgerSeq uint32
	// FromAccountSeq is the sequence the submitter expects From to be
	// at before this transaction applies.
	FromAccountSeq uint32
	SignedBlob     []byte
	Status         Status
}

// NewTransaction derives the transaction id from the signed blob
// (SHA512-half, the same digest primitive as every other hash in the
// ledger core) and returns a Transaction with Status New.
func NewTransaction(from, to common.AccountID, amount, fee uint64, sourceLedgerSeq, fromAccountSeq uint32, signedBlob []byte) *Transaction {
	return &Transaction{
		ID:              serializer.SHA512Half(signedBlob),
		From:            from,
		To:              to,
		Amount:          amount,
		Fee:             fee,
		SourceLedgerSeq: sourceLedgerSeq,
		FromAccountSeq:  fromAccountSeq,
		SignedBlob:      append([]byte{}, signedBlob...),
		Status:          New,
	}
}

// Encode returns the bytes stored as the transaction trie leaf value
// for this transaction: the opaque signed blob, unmodified. Status is
// never encoded.
func (t *Transaction) Encode() []byte {
	return append([]byte{}, t.SignedBlob...)
}
