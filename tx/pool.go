package tx

import (
	"sort"
	"sync"
)

// Pool is a fee-then-sequence-ordered holding area for transactions
// waiting to be applied to an open ledger. It performs no validation
// of its own; every transaction it yields is still subject to the
// full applyTransaction check chain.
type Pool struct {
	mu      sync.RWMutex
	pending []*Transaction
}

// NewPool returns an empty transaction pool.
func NewPool() *Pool {
	return &Pool{}
}

// Add appends t to the pool.
func (p *Pool) Add(t *Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, t)
}

// Remove drops t from the pool, comparing by id.
func (p *Pool) Remove(t *Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remove(t)
}

func (p *Pool) remove(t *Transaction) {
	for i, k := range p.pending {
		if k.ID == t.ID {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}

// RemoveAll drops every transaction in txs from the pool.
func (p *Pool) RemoveAll(txs ...*Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range txs {
		p.remove(t)
	}
}

// Len reports the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pending)
}

// ByFeeThenSeq orders transactions by descending fee, then by
// ascending from-account sequence, so a higher-paying transaction is
// offered first without violating per-account ordering.
type ByFeeThenSeq []*Transaction

func (s ByFeeThenSeq) Len() int      { return len(s) }
func (s ByFeeThenSeq) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s ByFeeThenSeq) Less(i, j int) bool {
	if s[i].Fee != s[j].Fee {
		return s[i].Fee > s[j].Fee
	}
	return s[i].FromAccountSeq < s[j].FromAccountSeq
}

// Iterator yields the pool's current contents in fee-then-sequence order.
type Iterator struct {
	txs   []*Transaction
	state int
}

// Iterator returns a snapshot iterator over the pool's current
// contents, ordered by ByFeeThenSeq.
func (p *Pool) Iterator() *Iterator {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snapshot := append([]*Transaction{}, p.pending...)
	sort.Sort(ByFeeThenSeq(snapshot))
	return &Iterator{txs: snapshot}
}

// HasNext reports whether another transaction remains.
func (it *Iterator) HasNext() bool {
	return it.state < len(it.txs)
}

// Next returns the next transaction, or nil if the iterator is exhausted.
func (it *Iterator) Next() *Transaction {
	if !it.HasNext() {
		return nil
	}
	t := it.txs[it.state]
	it.state++
	return t
}
