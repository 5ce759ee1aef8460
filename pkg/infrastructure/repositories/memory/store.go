package memory

import (
	"context"
	"sync"

	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
)

// Store is an in-memory repositories.Store.
//
// Reads take a shared lock; Atomically holds the exclusive lock for the whole
// unit of work and runs it against a copy of the state that replaces the
// committed state only on success. Repositories() must not be used from inside
// an Atomically callback.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// Verify interface compliance
var _ repositories.Store = (*Store)(nil)

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{state: newState()}
}

// Repositories returns views over the committed state
func (s *Store) Repositories() repositories.Repositories {
	return newRepositories(&view{store: s})
}

// Atomically runs fn against a private copy of the state and commits it when fn succeeds
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(ctx, newRepositories(&view{staged: staged})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func newRepositories(v *view) repositories.Repositories {
	return repositories.Repositories{
		Catalog:       v,
		Ledger:        v,
		Applications:  v,
		Compatibility: v,
	}
}

type ruleKey struct{ a, b string }

type state struct {
	products       map[entities.ProductID]entities.Product
	actives        map[entities.ActiveID]entities.ActiveSubstance
	productActives map[entities.ProductID][]entities.ProductActive
	lots           map[entities.LotID]entities.StockLot
	movements      map[entities.LotID][]entities.LedgerMovement
	sequence       int64
	applications   map[entities.ApplicationID]entities.Application
	mixes          map[entities.MixID]entities.TankMix
	rules          map[ruleKey]entities.CompatibilityRule
}

func newState() *state {
	return &state{
		products:       make(map[entities.ProductID]entities.Product),
		actives:        make(map[entities.ActiveID]entities.ActiveSubstance),
		productActives: make(map[entities.ProductID][]entities.ProductActive),
		lots:           make(map[entities.LotID]entities.StockLot),
		movements:      make(map[entities.LotID][]entities.LedgerMovement),
		applications:   make(map[entities.ApplicationID]entities.Application),
		mixes:          make(map[entities.MixID]entities.TankMix),
		rules:          make(map[ruleKey]entities.CompatibilityRule),
	}
}

// clone copies the maps. Slices are capped so an append on the copy never
// writes into the committed backing array; slices that are modified in place
// are always rebuilt by the writers.
func (st *state) clone() *state {
	c := &state{
		products:       make(map[entities.ProductID]entities.Product, len(st.products)),
		actives:        make(map[entities.ActiveID]entities.ActiveSubstance, len(st.actives)),
		productActives: make(map[entities.ProductID][]entities.ProductActive, len(st.productActives)),
		lots:           make(map[entities.LotID]entities.StockLot, len(st.lots)),
		movements:      make(map[entities.LotID][]entities.LedgerMovement, len(st.movements)),
		sequence:       st.sequence,
		applications:   make(map[entities.ApplicationID]entities.Application, len(st.applications)),
		mixes:          make(map[entities.MixID]entities.TankMix, len(st.mixes)),
		rules:          make(map[ruleKey]entities.CompatibilityRule, len(st.rules)),
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.actives {
		c.actives[k] = v
	}
	for k, v := range st.productActives {
		c.productActives[k] = v[:len(v):len(v)]
	}
	for k, v := range st.lots {
		c.lots[k] = v
	}
	for k, v := range st.movements {
		c.movements[k] = v[:len(v):len(v)]
	}
	for k, v := range st.applications {
		c.applications[k] = v
	}
	for k, v := range st.mixes {
		c.mixes[k] = v
	}
	for k, v := range st.rules {
		c.rules[k] = v
	}
	return c
}

// view implements every repository interface, either over the committed state
// of a store (taking its locks) or over the staged state of a unit of work.
type view struct {
	store  *Store
	staged *state
}

func (v *view) read(fn func(st *state) error) error {
	if v.store == nil {
		return fn(v.staged)
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	return fn(v.store.state)
}

func (v *view) write(fn func(st *state) error) error {
	if v.store == nil {
		return fn(v.staged)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}
