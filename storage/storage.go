// Package storage is the durable-store adapter the ledger core pages
// trie nodes through and persists ledger headers to. It is backed by
// goleveldb, with keys tagged by a one-byte resource type so header
// rows and trie nodes can share one physical database.
package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/openledger/ledgercore/common"
	"github.com/openledger/ledgercore/leveldb"
	"github.com/openledger/ledgercore/log"
	"github.com/openledger/ledgercore/trie"
)

// resourceType tags the physical key so distinct logical tables can
// share one leveldb instance.
type resourceType byte

const (
	resourceTrieNode     resourceType = 0x0
	resourceLedgerBySeq  resourceType = 0x1
	resourceLedgerByHash resourceType = 0x2
)

// nodeEnvelope is the physical value stored for a trie node: the
// node's kind and producing ledger sequence, followed by its
// canonical encoding. The kind/ledgerSeq tag is metadata for recovery
// and pruning; it is not part of the node's hash preimage.
const nodeEnvelopeHeaderLen = 1 + 4

// Store wraps a leveldb.Database with the ledger core's key-tagging
// convention and implements both trie.Store and the ledger header
// store the ledger package consumes.
type Store struct {
	db *leveldb.Database
}

// Open opens (or creates) a leveldb database at path and wraps it as
// a Store.
func Open(path string, cacheMB, handles int) (*Store, error) {
	db, err := leveldb.New(path, cacheMB, handles, false)
	if err != nil {
		log.Error("storage: failed to open database", "path", path, "err", err)
		return nil, fmt.Errorf("storage: open %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func taggedKey(rt resourceType, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = byte(rt)
	copy(out[1:], key)
	return out
}

// FetchNode implements trie.Store.
func (s *Store) FetchNode(hash common.Hash256) (trie.NodeKind, []byte, error) {
	raw, err := s.db.Get(taggedKey(resourceTrieNode, hash[:]))
	if err != nil {
		return 0, nil, fmt.Errorf("storage: fetch node %s: %w", hash, err)
	}
	if len(raw) < nodeEnvelopeHeaderLen {
		return 0, nil, fmt.Errorf("storage: node %s envelope too short", hash)
	}
	kind := trie.NodeKind(raw[0])
	return kind, raw[nodeEnvelopeHeaderLen:], nil
}

// StoreNode implements trie.Store.
func (s *Store) StoreNode(hash common.Hash256, kind trie.NodeKind, ledgerSeq uint32, payload []byte) error {
	envelope := make([]byte, nodeEnvelopeHeaderLen+len(payload))
	envelope[0] = byte(kind)
	binary.BigEndian.PutUint32(envelope[1:5], ledgerSeq)
	copy(envelope[nodeEnvelopeHeaderLen:], payload)
	if err := s.db.Put(taggedKey(resourceTrieNode, hash[:]), envelope); err != nil {
		return fmt.Errorf("storage: store node %s: %w", hash, err)
	}
	return nil
}
