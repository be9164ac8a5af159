// Package state implements the per-account record stored as a leaf
// value in the ledger's account trie.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadLength is wrapped into the error returned when a byte slice
// being decoded as an AccountState is not exactly EncodedLength bytes.
var ErrBadLength = errors.New("account state: bad encoded length")

// EncodedLength is the fixed size in bytes of an encoded AccountState.
const EncodedLength = 8 + 4

// AccountState is the balance and sequence number of one account.
type AccountState struct {
	Balance  uint64
	Sequence uint32
}

// New returns a freshly created account state.
func New(balance uint64, sequence uint32) *AccountState {
	return &AccountState{Balance: balance, Sequence: sequence}
}

// Encode serializes the account state to its fixed 12-byte layout:
// balance(u64) || sequence(u32), both big-endian.
func (a *AccountState) Encode() []byte {
	buf := make([]byte, EncodedLength)
	binary.BigEndian.PutUint64(buf[0:8], a.Balance)
	binary.BigEndian.PutUint32(buf[8:12], a.Sequence)
	return buf
}

// Decode parses a fixed 12-byte account state, rejecting any buffer
// whose length does not match exactly.
func Decode(b []byte) (*AccountState, error) {
	if len(b) != EncodedLength {
		return nil, fmt.Errorf("account state: got %d bytes, want %d: %w", len(b), EncodedLength, ErrBadLength)
	}
	return &AccountState{
		Balance:  binary.BigEndian.Uint64(b[0:8]),
		Sequence: binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

// Copy returns an independent copy of a, for copy-on-write mutation.
func (a *AccountState) Copy() *AccountState {
	c := *a
	return &c
}

// Credit adds amount to the balance. Overflow is a program error: the
// ledger core never allows balances to approach u64 max given I4's
// enforcement of conservation.
func (a *AccountState) Credit(amount uint64) {
	if a.Balance+amount < a.Balance {
		panic("account state: balance overflow on credit")
	}
	a.Balance += amount
}

// Charge subtracts amount from the balance. The caller must already
// have checked I4 (no overdraft); Charge panics on underflow rather
// than silently wrapping.
func (a *AccountState) Charge(amount uint64) {
	if amount > a.Balance {
		panic("account state: balance underflow on charge")
	}
	a.Balance -= amount
}

// IncSeq increments the account's sequence number.
func (a *AccountState) IncSeq() {
	a.Sequence++
}

// DecSeq decrements the account's sequence number, the inverse
// applied by removeTransaction.
func (a *AccountState) DecSeq() {
	if a.Sequence == 0 {
		panic("account state: sequence underflow on decrement")
	}
	a.Sequence--
}
