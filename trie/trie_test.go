package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openledger/ledgercore/common"
)

func key(b byte) common.Hash256 {
	var h common.Hash256
	h[common.HashLength-1] = b
	return h
}

func TestAddGiveItemRejectsDuplicate(t *testing.T) {
	tr := New(nil)
	ok, err := tr.AddGiveItem(key(1), []byte("a"))
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = tr.AddGiveItem(key(1), []byte("b"))
	assert.NoError(t, err)
	assert.False(t, ok)

	v, found, err := tr.Peek(key(1))
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("a"), v)
}

func TestUpdateGiveItemRequiresExisting(t *testing.T) {
	tr := New(nil)
	ok, err := tr.UpdateGiveItem(key(1), []byte("a"))
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _ = tr.AddGiveItem(key(1), []byte("a"))
	ok, err = tr.UpdateGiveItem(key(1), []byte("b"))
	assert.NoError(t, err)
	assert.True(t, ok)

	v, found, _ := tr.Peek(key(1))
	assert.True(t, found)
	assert.Equal(t, []byte("b"), v)
}

func TestDeleteAndCollapse(t *testing.T) {
	tr := New(nil)
	_, _ = tr.AddGiveItem(key(1), []byte("a"))
	_, _ = tr.AddGiveItem(key(2), []byte("b"))

	ok, err := tr.DelItem(key(1))
	assert.NoError(t, err)
	assert.True(t, ok)

	_, found, _ := tr.Peek(key(1))
	assert.False(t, found)

	v, found, _ := tr.Peek(key(2))
	assert.True(t, found)
	assert.Equal(t, []byte("b"), v)

	// after collapsing back to a single leaf, the root hash must equal
	// a freshly built single-leaf trie's root hash.
	fresh := New(nil)
	_, _ = fresh.AddGiveItem(key(2), []byte("b"))
	assert.Equal(t, fresh.RootHash(), tr.RootHash())

	ok, err = tr.DelItem(key(2))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, common.ZeroHash256, tr.RootHash())
}

func TestRootHashIndependentOfInsertionOrder(t *testing.T) {
	keys := []common.Hash256{key(1), key(2), key(3), key(0x10), key(0xff)}

	a := New(nil)
	for _, k := range keys {
		_, _ = a.AddGiveItem(k, []byte{byte(k[common.HashLength-1])})
	}

	b := New(nil)
	for i := len(keys) - 1; i >= 0; i-- {
		k := keys[i]
		_, _ = b.AddGiveItem(k, []byte{byte(k[common.HashLength-1])})
	}

	assert.Equal(t, a.RootHash(), b.RootHash())
}

func TestEmptyTrieRootHashIsZero(t *testing.T) {
	tr := New(nil)
	assert.Equal(t, common.ZeroHash256, tr.RootHash())
}

type memStore struct {
	nodes map[common.Hash256]struct {
		kind    NodeKind
		payload []byte
	}
}

func newMemStore() *memStore {
	return &memStore{nodes: map[common.Hash256]struct {
		kind    NodeKind
		payload []byte
	}{}}
}

func (m *memStore) FetchNode(hash common.Hash256) (NodeKind, []byte, error) {
	rec, ok := m.nodes[hash]
	if !ok {
		return 0, nil, assert.AnError
	}
	return rec.kind, rec.payload, nil
}

func (m *memStore) StoreNode(hash common.Hash256, kind NodeKind, ledgerSeq uint32, payload []byte) error {
	m.nodes[hash] = struct {
		kind    NodeKind
		payload []byte
	}{kind: kind, payload: payload}
	return nil
}

func TestFlushDirtyThenReattach(t *testing.T) {
	store := newMemStore()
	tr := New(store)
	_, _ = tr.AddGiveItem(key(1), []byte("a"))
	_, _ = tr.AddGiveItem(key(2), []byte("b"))

	for {
		more, err := tr.FlushDirty(64, 1)
		assert.NoError(t, err)
		if !more {
			break
		}
	}

	root := tr.RootHash()
	reattached := Attach(store, root)
	v, found, err := reattached.Peek(key(1))
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("a"), v)

	v, found, err = reattached.Peek(key(2))
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("b"), v)
}
