package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
)

func newTestLot(t *testing.T, repos repositories.Repositories) *entities.StockLot {
	t.Helper()
	lot, err := entities.NewStockLot("P1", "", "L-001",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nil, entities.Liquid, decimal.NullDecimal{})
	if err != nil {
		t.Fatalf("Failed to build lot: %v", err)
	}
	if err := repos.Ledger.SaveLot(context.Background(), lot); err != nil {
		t.Fatalf("Failed to save lot: %v", err)
	}
	return lot
}

func appendIn(t *testing.T, repos repositories.Repositories, lot *entities.StockLot, qty int64) *entities.LedgerMovement {
	t.Helper()
	m, err := entities.NewLedgerMovement(lot, entities.In, decimal.NewFromInt(qty), lot.Unit, lot.ReceivedDate)
	if err != nil {
		t.Fatalf("Failed to build movement: %v", err)
	}
	if err := repos.Ledger.AppendMovement(context.Background(), m); err != nil {
		t.Fatalf("Failed to append movement: %v", err)
	}
	return m
}

func TestStore_AtomicallyCommits(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var lot *entities.StockLot
	err := store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		lot = newTestLot(t, repos)
		appendIn(t, repos, lot, 10)
		return nil
	})
	if err != nil {
		t.Fatalf("Atomically failed: %v", err)
	}

	movements, err := store.Repositories().Ledger.ListMovements(ctx, lot.ID)
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("Expected 1 movement, got %d", len(movements))
	}
	if movements[0].Sequence != 1 {
		t.Errorf("Expected sequence 1, got %d", movements[0].Sequence)
	}
}

func TestStore_AtomicallyRollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	lot := newTestLot(t, store.Repositories())
	appendIn(t, store.Repositories(), lot, 10)

	boom := errors.New("boom")
	err := store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		appendIn(t, repos, lot, 5)
		appendIn(t, repos, lot, 5)
		if err := repos.Catalog.SaveProduct(ctx, &entities.Product{ID: "P2", TradeName: "Discarded"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	movements, _ := store.Repositories().Ledger.ListMovements(ctx, lot.ID)
	if len(movements) != 1 {
		t.Errorf("Expected rolled back ledger of 1 movement, got %d", len(movements))
	}
	if _, err := store.Repositories().Catalog.GetProduct(ctx, "P2"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected discarded product to be absent, got %v", err)
	}

	// the sequence counter rolls back with the rest of the state
	next := appendIn(t, store.Repositories(), lot, 1)
	if next.Sequence != 2 {
		t.Errorf("Expected sequence 2 after rollback, got %d", next.Sequence)
	}
}

func TestStore_AtomicallyHonoursCancelledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		newTestLot(t, repos)
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	lots, _ := store.Repositories().Ledger.ListLots(context.Background(), entities.LotFilter{})
	if len(lots) != 0 {
		t.Errorf("Expected no committed lots, got %d", len(lots))
	}
}

func TestStore_StagedAppendDoesNotLeakIntoCommittedLedger(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	lot := newTestLot(t, store.Repositories())
	for i := 0; i < 3; i++ {
		appendIn(t, store.Repositories(), lot, 1)
	}
	before, _ := store.Repositories().Ledger.ListMovements(ctx, lot.ID)

	_ = store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		appendIn(t, repos, lot, 100)
		return errors.New("abort")
	})
	appendIn(t, store.Repositories(), lot, 2)

	after, _ := store.Repositories().Ledger.ListMovements(ctx, lot.ID)
	if len(after) != len(before)+1 {
		t.Fatalf("Expected %d movements, got %d", len(before)+1, len(after))
	}
	if !after[len(after)-1].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected last quantity 2, got %s", after[len(after)-1].Quantity)
	}
}

func TestStore_AppendMovementUnknownLot(t *testing.T) {
	store := NewStore()
	m := &entities.LedgerMovement{LotID: "missing", Direction: entities.In, Quantity: decimal.NewFromInt(1)}
	err := store.Repositories().Ledger.AppendMovement(context.Background(), m)
	if !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("Expected not found, got %v", err)
	}
}

func TestStore_ListLotsFilter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repos := store.Repositories()
	received := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		product  entities.ProductID
		location string
		unit     entities.QuantityUnit
	}{
		{"P1", "main", entities.Liquid},
		{"P1", "shed", entities.Liquid},
		{"P1", "main", entities.Solid},
		{"P2", "main", entities.Liquid},
	}
	for _, tt := range tests {
		lot, err := entities.NewStockLot(tt.product, tt.location, "L", received, nil, tt.unit, decimal.NullDecimal{})
		if err != nil {
			t.Fatalf("NewStockLot: %v", err)
		}
		if err := repos.Ledger.SaveLot(ctx, lot); err != nil {
			t.Fatalf("SaveLot: %v", err)
		}
	}

	filters := []struct {
		name   string
		filter entities.LotFilter
		want   int
	}{
		{"all", entities.LotFilter{}, 4},
		{"product", entities.LotFilter{ProductID: "P1"}, 3},
		{"product and location", entities.LotFilter{ProductID: "P1", LocationID: "main"}, 2},
		{"product and unit", entities.LotFilter{ProductID: "P1", Unit: entities.Solid}, 1},
		{"none", entities.LotFilter{ProductID: "P3"}, 0},
	}
	for _, tt := range filters {
		t.Run(tt.name, func(t *testing.T) {
			lots, err := repos.Ledger.ListLots(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListLots: %v", err)
			}
			if len(lots) != tt.want {
				t.Errorf("Expected %d lots, got %d", tt.want, len(lots))
			}
		})
	}

	count, _ := repos.Ledger.CountLotsForProduct(ctx, "P1")
	if count != 3 {
		t.Errorf("Expected 3 lots for P1, got %d", count)
	}
}

func TestStore_SaveRuleReplacesReversedPair(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repos := store.Repositories()

	_ = repos.Compatibility.SaveRule(ctx, &entities.CompatibilityRule{A: "glyphosate", B: "2,4-d", Relation: entities.Caution})
	_ = repos.Compatibility.SaveRule(ctx, &entities.CompatibilityRule{A: "2,4-d", B: "glyphosate", Relation: entities.Forbidden})

	rules, _ := repos.Compatibility.ListRules(ctx)
	if len(rules) != 1 {
		t.Fatalf("Expected 1 rule, got %d", len(rules))
	}
	if rules[0].Relation != entities.Forbidden {
		t.Errorf("Expected forbidden, got %s", rules[0].Relation)
	}

	rule, _ := repos.Compatibility.FindRule(ctx, "glyphosate", "2,4-d")
	if rule != nil {
		t.Errorf("Expected no rule stored for the replaced order, got %+v", rule)
	}
}

func TestStore_ProductActiveUpsert(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repos := store.Repositories()

	_ = repos.Catalog.SaveProductActive(ctx, entities.ProductActive{ProductID: "P1", ActiveID: "A1", Concentration: decimal.NewFromInt(360), Unit: entities.MassPerVolume})
	_ = repos.Catalog.SaveProductActive(ctx, entities.ProductActive{ProductID: "P1", ActiveID: "A1", Concentration: decimal.NewFromInt(480), Unit: entities.MassPerVolume})
	_ = repos.Catalog.SaveProductActive(ctx, entities.ProductActive{ProductID: "P1", ActiveID: "A2", Concentration: decimal.NewFromInt(20), Unit: entities.PercentMassPerMass})

	actives, _ := repos.Catalog.ListProductActives(ctx, "P1")
	if len(actives) != 2 {
		t.Fatalf("Expected 2 associations, got %d", len(actives))
	}
	if !actives[0].Concentration.Equal(decimal.NewFromInt(480)) {
		t.Errorf("Expected updated concentration 480, got %s", actives[0].Concentration)
	}

	refs, _ := repos.Catalog.ListProductsWithActive(ctx, "A2")
	if len(refs) != 1 || refs[0].ProductID != "P1" {
		t.Errorf("Expected P1 to reference A2, got %+v", refs)
	}
}

func TestStore_FindActiveBySynonym(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repos := store.Repositories()

	_ = repos.Catalog.SaveActive(ctx, &entities.ActiveSubstance{
		ID: "A1", Name: "Glyphosate", NormalizedName: "glyphosate", Synonyms: []string{"Glifosat"},
	})

	active, err := repos.Catalog.FindActiveBySynonym(ctx, "glifosat")
	if err != nil {
		t.Fatalf("FindActiveBySynonym: %v", err)
	}
	if active.ID != "A1" {
		t.Errorf("Expected A1, got %s", active.ID)
	}

	active.Synonyms[0] = "mutated"
	again, _ := repos.Catalog.GetActive(ctx, "A1")
	if again.Synonyms[0] != "Glifosat" {
		t.Errorf("Expected stored synonyms to be isolated from callers, got %v", again.Synonyms)
	}

	if _, err := repos.Catalog.FindActiveByName(ctx, "dicamba"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestStore_ConcurrentUnitsOfWorkSerialize(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	lot := newTestLot(t, store.Repositories())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
				m, err := entities.NewLedgerMovement(lot, entities.In, decimal.NewFromInt(1), lot.Unit, lot.ReceivedDate)
				if err != nil {
					return err
				}
				return repos.Ledger.AppendMovement(ctx, m)
			})
		}()
	}
	wg.Wait()

	movements, _ := store.Repositories().Ledger.ListMovements(ctx, lot.ID)
	if len(movements) != 20 {
		t.Fatalf("Expected 20 movements, got %d", len(movements))
	}
	for i, m := range movements {
		if m.Sequence != int64(i+1) {
			t.Errorf("Expected sequence %d at position %d, got %d", i+1, i, m.Sequence)
		}
	}
}
