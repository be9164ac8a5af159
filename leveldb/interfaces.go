package leveldb

// KeyValueStore contains the methods this repo's node/header store
// actually relies on: point lookups, point writes, and shutdown. There
// is no batching, iteration, compaction, or pruning requirement here —
// the trie never deletes a node (no historical-state garbage
// collection) and nothing ever scans the keyspace in order.
type KeyValueStore interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Close() error
}
