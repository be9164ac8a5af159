// Package trie implements the copy-on-write, radix-16 Merkle trie
// that backs both the account trie and the transaction trie of a
// ledger. Every public operation is serialized behind the trie's own
// mutex; callers needing cross-trie or cross-ledger ordering arrange
// that themselves (see the ledger package).
package trie

import (
	"errors"
	"fmt"
	"sync"

	"github.com/openledger/ledgercore/common"
	"github.com/openledger/ledgercore/log"
)

// ErrCorrupted is wrapped into the error returned when a node fetched
// from the durable store decodes to a hash other than the one it was
// stored under.
var ErrCorrupted = errors.New("trie: corrupted store")

// Trie is a persistent map from 256-bit keys to opaque value blobs,
// with a deterministic root hash covering its entire contents.
type Trie struct {
	mu    sync.Mutex
	root  node
	store Store
}

// New returns an empty trie backed by store. store may be nil for a
// purely in-memory trie that never needs to page nodes in.
func New(store Store) *Trie {
	return &Trie{store: store}
}

// Attach returns a trie whose root hash is already known (e.g. from a
// ledger header loaded from the durable store) but whose structure is
// not yet loaded; the root node is faulted in lazily on first access.
func Attach(store Store, root common.Hash256) *Trie {
	t := &Trie{store: store}
	if !root.IsZero() {
		t.root = &stubNode{h: root}
	}
	return t
}

// Fork returns a new trie that starts out sharing the receiver's
// current root node in memory — no hash lookup, no store round-trip.
// This is the structural-sharing step a ledger takes when it copies
// its parent's account trie: the child trie's first mutation clones
// only the path from the root to the changed leaf, leaving every
// other node, and thus the parent's view, untouched.
func (t *Trie) Fork(store Store) *Trie {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Trie{root: t.root, store: store}
}

// RootHash returns the hash of the current root. For an empty trie
// this is the all-zero hash. Computing it never faults a node in: the
// hash is always known without inspecting structure.
func (t *Trie) RootHash() common.Hash256 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root == nil {
		return common.ZeroHash256
	}
	return t.root.nodeHash()
}

// Peek performs a non-mutating lookup, faulting nodes in from the
// durable store as needed.
func (t *Trie) Peek(key common.Hash256) (value []byte, found bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, depth := t.root, 0
	for {
		resolved, err := t.resolve(n)
		if err != nil {
			return nil, false, err
		}
		switch v := resolved.(type) {
		case nil:
			return nil, false, nil
		case *leafNode:
			if v.key == key {
				return append([]byte{}, v.value...), true, nil
			}
			return nil, false, nil
		case *innerNode:
			idx := key.Nibble(depth)
			n, depth = v.children[idx], depth+1
		default:
			return nil, false, fmt.Errorf("trie: unexpected node type %T", v)
		}
	}
}

// AddGiveItem inserts key/value only if key is currently absent.
// Returns false without mutating the trie if key is already present.
func (t *Trie) AddGiveItem(key common.Hash256, value []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	newRoot, added, err := t.upsert(t.root, key, 0, value, modeAdd)
	if err != nil {
		return false, err
	}
	if added {
		t.root = newRoot
	}
	return added, nil
}

// UpdateGiveItem replaces the value for key only if key is currently
// present. Returns false without mutating the trie if key is absent.
func (t *Trie) UpdateGiveItem(key common.Hash256, value []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	newRoot, updated, err := t.upsert(t.root, key, 0, value, modeUpdate)
	if err != nil {
		return false, err
	}
	if updated {
		t.root = newRoot
	}
	return updated, nil
}

// DelItem removes key, collapsing any inner node left with a single
// leaf child all the way back up to the root.
func (t *Trie) DelItem(key common.Hash256) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	newRoot, deleted, err := t.del(t.root, key, 0)
	if err != nil {
		return false, err
	}
	if deleted {
		t.root = newRoot
	}
	return deleted, nil
}

// FlushDirty persists up to batchLimit dirty nodes, tagged with
// ledgerSeq, to the durable store, and reports whether dirty nodes
// remain. Call it repeatedly until it returns false.
func (t *Trie) FlushDirty(batchLimit int, ledgerSeq uint32) (more bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.store == nil {
		return false, fmt.Errorf("trie: flush requested with no durable store attached")
	}
	remaining := batchLimit
	var flush func(n node) (node, bool, error)
	flush = func(n node) (node, bool, error) {
		switch v := n.(type) {
		case nil, *stubNode:
			return n, false, nil
		case *leafNode:
			if !v.dirty {
				return v, false, nil
			}
			if remaining <= 0 {
				return v, true, nil
			}
			if err := t.store.StoreNode(v.h, LeafKind, ledgerSeq, encodeLeaf(v)); err != nil {
				return v, true, fmt.Errorf("trie: flush leaf %s: %w", v.h, err)
			}
			v.dirty = false
			remaining--
			return v, false, nil
		case *innerNode:
			stillDirty := false
			for i, c := range v.children {
				nc, dirty, err := flush(c)
				if err != nil {
					return v, true, err
				}
				v.children[i] = nc
				stillDirty = stillDirty || dirty
			}
			if v.dirty {
				if remaining <= 0 {
					return v, true, nil
				}
				if err := t.store.StoreNode(v.h, InnerKind, ledgerSeq, encodeInner(v)); err != nil {
					return v, true, fmt.Errorf("trie: flush inner %s: %w", v.h, err)
				}
				v.dirty = false
				remaining--
			}
			return v, stillDirty, nil
		default:
			return n, false, fmt.Errorf("trie: unexpected node type %T", v)
		}
	}
	newRoot, stillDirty, err := flush(t.root)
	if err != nil {
		log.Error("trie flush failed", "err", err)
		return false, err
	}
	t.root = newRoot
	return stillDirty, nil
}

// resolve faults a stub node in from the durable store, leaving any
// other node kind (including nil) untouched.
func (t *Trie) resolve(n node) (node, error) {
	st, ok := n.(*stubNode)
	if !ok {
		return n, nil
	}
	if t.store == nil {
		return nil, fmt.Errorf("trie: node %s not loaded and no durable store attached", st.h)
	}
	kind, payload, err := t.store.FetchNode(st.h)
	if err != nil {
		return nil, fmt.Errorf("trie: fetch node %s: %w", st.h, err)
	}
	decoded, err := decodeNode(kind, payload)
	if err != nil {
		return nil, fmt.Errorf("trie: decode node %s: %w", st.h, err)
	}
	if decoded.nodeHash() != st.h {
		return nil, fmt.Errorf("trie: node %s decoded to mismatched hash %s: %w", st.h, decoded.nodeHash(), ErrCorrupted)
	}
	return decoded, nil
}

type upsertMode int

const (
	modeAdd upsertMode = iota
	modeUpdate
)

// upsert is the copy-on-write insert/update helper. It clones every
// node on the path from the root to the mutated leaf; nodes outside
// that path are referenced unchanged, which is how an unmodified
// subtree ends up shared between a parent ledger and its child.
func (t *Trie) upsert(n node, key common.Hash256, depth int, value []byte, mode upsertMode) (node, bool, error) {
	n, err := t.resolve(n)
	if err != nil {
		return nil, false, err
	}
	switch v := n.(type) {
	case nil:
		if mode == modeUpdate {
			return nil, false, nil
		}
		return newLeaf(key, value, true), true, nil
	case *leafNode:
		if v.key == key {
			if mode == modeAdd {
				return v, false, nil
			}
			return newLeaf(key, value, true), true, nil
		}
		if mode == modeUpdate {
			return v, false, nil
		}
		// split: move both leaves one level down from depth.
		var children [16]node
		children[v.key.Nibble(depth)] = v
		newChild, _, err := t.upsert(children[key.Nibble(depth)], key, depth+1, value, modeAdd)
		if err != nil {
			return nil, false, err
		}
		children[key.Nibble(depth)] = newChild
		return newInner(children, true), true, nil
	case *innerNode:
		idx := key.Nibble(depth)
		newChild, changed, err := t.upsert(v.children[idx], key, depth+1, value, mode)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return v, false, nil
		}
		children := v.children
		children[idx] = newChild
		return newInner(children, true), true, nil
	default:
		return nil, false, fmt.Errorf("trie: unexpected node type %T", v)
	}
}

// del removes key, applying the single-leaf-child collapse rule at
// every level on the way back up.
func (t *Trie) del(n node, key common.Hash256, depth int) (node, bool, error) {
	n, err := t.resolve(n)
	if err != nil {
		return nil, false, err
	}
	switch v := n.(type) {
	case nil:
		return nil, false, nil
	case *leafNode:
		if v.key != key {
			return v, false, nil
		}
		return nil, true, nil
	case *innerNode:
		idx := key.Nibble(depth)
		newChild, deleted, err := t.del(v.children[idx], key, depth+1)
		if err != nil {
			return nil, false, err
		}
		if !deleted {
			return v, false, nil
		}
		children := v.children
		children[idx] = newChild
		return collapse(children), true, nil
	default:
		return nil, false, fmt.Errorf("trie: unexpected node type %T", v)
	}
}

// collapse applies the canonicalization rule: an inner node with
// exactly one non-empty child slot whose child is a leaf is replaced
// by that leaf.
func collapse(children [16]node) node {
	var only node
	count := 0
	for _, c := range children {
		if c != nil {
			count++
			only = c
		}
	}
	if count == 0 {
		return nil
	}
	if count == 1 {
		if leaf, ok := only.(*leafNode); ok {
			return leaf
		}
	}
	return newInner(children, true)
}
