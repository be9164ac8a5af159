package common

import (
	"encoding/hex"
	"fmt"
)

// AccountIDLength is the length in bytes of an AccountID (160 bits).
const AccountIDLength = 20

// AccountID identifies an account in the ledger's state trie.
type AccountID [AccountIDLength]byte

// BytesToAccountID converts a byte slice to an AccountID, following the
// same left-pad/truncate convention as BytesToHash256.
func BytesToAccountID(b []byte) AccountID {
	var a AccountID
	if len(b) > AccountIDLength {
		b = b[len(b)-AccountIDLength:]
	}
	copy(a[AccountIDLength-len(b):], b)
	return a
}

// HexToAccountID decodes a hex string into an AccountID.
func HexToAccountID(s string) (AccountID, error) {
	s = trim0x(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return AccountID{}, fmt.Errorf("decode account id hex: %w", err)
	}
	return BytesToAccountID(b), nil
}

// Bytes returns a copy of the account id as a byte slice.
func (a AccountID) Bytes() []byte {
	b := make([]byte, AccountIDLength)
	copy(b, a[:])
	return b
}

// TrieKey zero-extends the account id on the left to a full 256-bit
// trie key, per the account-trie's key convention.
func (a AccountID) TrieKey() Hash256 {
	return BytesToHash256(a[:])
}

func (a AccountID) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Less reports whether a sorts before o, treating both as big-endian
// unsigned integers.
func (a AccountID) Less(o AccountID) bool {
	for i := range a {
		if a[i] != o[i] {
			return a[i] < o[i]
		}
	}
	return false
}
