package trie

import "github.com/openledger/ledgercore/common"

// NodeKind tags a persisted trie node so the durable store can
// distinguish leaf from inner encodings on load. It does not record
// which trie (transaction or account) a node belongs to.
type NodeKind byte

const (
	// LeafKind tags a leaf node's persisted encoding.
	LeafKind NodeKind = 0
	// InnerKind tags an inner node's persisted encoding.
	InnerKind NodeKind = 1
)

// Store is the durable-store interface a trie consumes to page nodes
// in on demand and to persist dirty nodes on flush. It is implemented
// by the storage package, backed by goleveldb.
type Store interface {
	// FetchNode retrieves the canonical encoding of the node with the
	// given hash, along with its kind.
	FetchNode(hash common.Hash256) (kind NodeKind, payload []byte, err error)
	// StoreNode persists the canonical encoding of a node, tagged with
	// its kind and the ledger sequence that produced it.
	StoreNode(hash common.Hash256, kind NodeKind, ledgerSeq uint32, payload []byte) error
}
