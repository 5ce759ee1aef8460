package repositories

import "context"

// Repositories groups the repository views bound to one store or transaction
type Repositories struct {
	Catalog       CatalogRepository
	Ledger        LedgerRepository
	Applications  ApplicationRepository
	Compatibility CompatibilityRepository
}

// Store is the externally owned, transactionally accessed state the services
// operate on. It is passed in by reference; there is no process-wide instance.
type Store interface {
	// Repositories returns views reading and writing committed state directly
	Repositories() Repositories

	// Atomically runs fn as one unit of work. Writes made through the given
	// repositories persist together when fn returns nil and are discarded otherwise.
	Atomically(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
