package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openledger/ledgercore/common"
	"github.com/openledger/ledgercore/trie"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), 0, 0)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreNodeRoundTrip(t *testing.T) {
	s := openTestStore(t)

	hash := common.BytesToHash256([]byte("some-node-hash"))
	payload := []byte("leaf-key-and-value")

	err := s.StoreNode(hash, trie.LeafKind, 7, payload)
	assert.NoError(t, err)

	kind, got, err := s.FetchNode(hash)
	assert.NoError(t, err)
	assert.Equal(t, trie.LeafKind, kind)
	assert.Equal(t, payload, got)
}

func TestHeaderRoundTripBySeqAndHash(t *testing.T) {
	s := openTestStore(t)

	h := &Header{
		LedgerSeq:      3,
		FeeHeld:        15,
		ParentHash:     common.BytesToHash256([]byte("parent")),
		TransSetHash:   common.BytesToHash256([]byte("trans")),
		AccountSetHash: common.BytesToHash256([]byte("account")),
		ClosingTime:    1000,
		LedgerHash:     common.BytesToHash256([]byte("own-hash")),
	}

	assert.NoError(t, s.PutHeader(h))

	bySeq, err := s.HeaderBySeq(3)
	assert.NoError(t, err)
	assert.Equal(t, h.LedgerHash, bySeq.LedgerHash)
	assert.Equal(t, h.FeeHeld, bySeq.FeeHeld)

	byHash, err := s.HeaderByHash(h.LedgerHash)
	assert.NoError(t, err)
	assert.Equal(t, h.LedgerSeq, byHash.LedgerSeq)
	assert.Equal(t, h.ParentHash, byHash.ParentHash)
}
