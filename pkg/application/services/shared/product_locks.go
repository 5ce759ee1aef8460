package shared

import (
	"sort"
	"sync"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// ProductLocks serializes allocate-then-append sequences per product.
// Entries are created on first use and kept for the life of the table.
type ProductLocks struct {
	mu    sync.Mutex
	locks map[entities.ProductID]*sync.Mutex
}

// NewProductLocks creates an empty lock table
func NewProductLocks() *ProductLocks {
	return &ProductLocks{locks: make(map[entities.ProductID]*sync.Mutex)}
}

func (pl *ProductLocks) get(id entities.ProductID) *sync.Mutex {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	m, ok := pl.locks[id]
	if !ok {
		m = &sync.Mutex{}
		pl.locks[id] = m
	}
	return m
}

// Lock acquires the locks of every distinct product in ascending id order and
// returns the function releasing them. Callers locking several products must
// use a single Lock call so the order is always the same.
func (pl *ProductLocks) Lock(ids ...entities.ProductID) (unlock func()) {
	distinct := make([]entities.ProductID, 0, len(ids))
	seen := make(map[entities.ProductID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i] < distinct[j] })

	held := make([]*sync.Mutex, 0, len(distinct))
	for _, id := range distinct {
		m := pl.get(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
