package trie

import (
	"fmt"

	"github.com/openledger/ledgercore/common"
	"github.com/openledger/ledgercore/serializer"
)

// node is the internal representation of a trie node. A nil node
// value represents the implicit empty node (256 zero bits).
type node interface {
	nodeHash() common.Hash256
	isDirty() bool
}

// leafNode holds the full original key (required by the hashing
// rule, hash = H(key||value)) and the opaque value blob.
type leafNode struct {
	key   common.Hash256
	value []byte
	h     common.Hash256
	dirty bool
}

func (l *leafNode) nodeHash() common.Hash256 { return l.h }
func (l *leafNode) isDirty() bool            { return l.dirty }

func newLeaf(key common.Hash256, value []byte, dirty bool) *leafNode {
	l := &leafNode{key: key, value: append([]byte{}, value...), dirty: dirty}
	l.h = calcLeafHash(l)
	return l
}

func calcLeafHash(l *leafNode) common.Hash256 {
	buf := make([]byte, 0, common.HashLength+len(l.value))
	buf = append(buf, l.key[:]...)
	buf = append(buf, l.value...)
	return serializer.SHA512Half(buf)
}

// innerNode branches on the nibble at its tree depth: every inner
// node at depth d selects among its 16 children using nibble d of the
// key, the same depth value every inner node at that tree level uses,
// so it carries no depth bookkeeping of its own.
type innerNode struct {
	children [16]node
	h        common.Hash256
	dirty    bool
}

func (n *innerNode) nodeHash() common.Hash256 { return n.h }
func (n *innerNode) isDirty() bool            { return n.dirty }

func calcInnerHash(n *innerNode) common.Hash256 {
	buf := make([]byte, 0, 16*common.HashLength)
	for _, c := range n.children {
		if c == nil {
			buf = append(buf, common.ZeroHash256[:]...)
			continue
		}
		h := c.nodeHash()
		buf = append(buf, h[:]...)
	}
	return serializer.SHA512Half(buf)
}

func newInner(children [16]node, dirty bool) *innerNode {
	n := &innerNode{children: children, dirty: dirty}
	n.h = calcInnerHash(n)
	return n
}

// stubNode is a child slot known only by hash, not yet faulted in
// from the durable store. It is never dirty: a node only becomes a
// stub by being loaded (or left unloaded) from storage.
type stubNode struct {
	h common.Hash256
}

func (s *stubNode) nodeHash() common.Hash256 { return s.h }
func (s *stubNode) isDirty() bool            { return false }

// encodeLeaf/encodeInner produce the canonical on-disk node encoding
// described in the external-interfaces section: a leaf is key||value,
// an inner node is the concatenation of its 16 child hashes.

func encodeLeaf(l *leafNode) []byte {
	buf := make([]byte, 0, common.HashLength+len(l.value))
	buf = append(buf, l.key[:]...)
	buf = append(buf, l.value...)
	return buf
}

func decodeLeaf(payload []byte) (*leafNode, error) {
	if len(payload) < common.HashLength {
		return nil, fmt.Errorf("trie: leaf payload too short (%d bytes)", len(payload))
	}
	key := common.BytesToHash256(payload[:common.HashLength])
	value := append([]byte{}, payload[common.HashLength:]...)
	l := &leafNode{key: key, value: value}
	l.h = calcLeafHash(l)
	return l, nil
}

func encodeInner(n *innerNode) []byte {
	buf := make([]byte, 0, 16*common.HashLength)
	for _, c := range n.children {
		if c == nil {
			buf = append(buf, common.ZeroHash256[:]...)
			continue
		}
		h := c.nodeHash()
		buf = append(buf, h[:]...)
	}
	return buf
}

func decodeInner(payload []byte) (*innerNode, error) {
	want := 16 * common.HashLength
	if len(payload) != want {
		return nil, fmt.Errorf("trie: inner payload has length %d, want %d", len(payload), want)
	}
	n := &innerNode{}
	off := 0
	for i := 0; i < 16; i++ {
		h := common.BytesToHash256(payload[off : off+common.HashLength])
		off += common.HashLength
		if !h.IsZero() {
			n.children[i] = &stubNode{h: h}
		}
	}
	n.h = calcInnerHash(n)
	return n, nil
}

func decodeNode(kind NodeKind, payload []byte) (node, error) {
	switch kind {
	case LeafKind:
		return decodeLeaf(payload)
	case InnerKind:
		return decodeInner(payload)
	default:
		return nil, fmt.Errorf("trie: unknown node kind %d", kind)
	}
}
