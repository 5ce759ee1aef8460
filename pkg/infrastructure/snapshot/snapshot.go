// Package snapshot writes and restores the whole store as one MessagePack
// document. Movements keep their relative order; sequences are reassigned
// by the target store.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vsinha/agrostock/pkg/domain/entities"
	"github.com/vsinha/agrostock/pkg/domain/repositories"
)

// Version is written into every snapshot; Import refuses any other
const Version = 1

// Snapshot is the document layout
type Snapshot struct {
	Version        int             `msgpack:"version"`
	TakenAtMs      int64           `msgpack:"taken_at"`
	Actives        []Active        `msgpack:"actives"`
	Products       []Product       `msgpack:"products"`
	ProductActives []ProductActive `msgpack:"product_actives"`
	Lots           []Lot           `msgpack:"lots"`
	Movements      []Movement      `msgpack:"movements"`
	Rules          []Rule          `msgpack:"rules"`
	Mixes          []Mix           `msgpack:"mixes"`
	Applications   []Application   `msgpack:"applications"`
}

// Stats counts the records written or read
type Stats struct {
	Actives      int `json:"actives"`
	Products     int `json:"products"`
	Lots         int `json:"lots"`
	Movements    int `json:"movements"`
	Rules        int `json:"rules"`
	Mixes        int `json:"mixes"`
	Applications int `json:"applications"`
}

func (s *Snapshot) stats() *Stats {
	return &Stats{
		Actives:      len(s.Actives),
		Products:     len(s.Products),
		Lots:         len(s.Lots),
		Movements:    len(s.Movements),
		Rules:        len(s.Rules),
		Mixes:        len(s.Mixes),
		Applications: len(s.Applications),
	}
}

// Export reads every record inside one unit of work and encodes it to w
func Export(ctx context.Context, store repositories.Store, w io.Writer, now time.Time) (*Stats, error) {
	snap := &Snapshot{Version: Version, TakenAtMs: toMs(now)}
	err := store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		return collect(ctx, repos, snap)
	})
	if err != nil {
		return nil, err
	}

	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return snap.stats(), nil
}

func collect(ctx context.Context, repos repositories.Repositories, snap *Snapshot) error {
	actives, err := repos.Catalog.ListActives(ctx)
	if err != nil {
		return err
	}
	for _, a := range actives {
		snap.Actives = append(snap.Actives, fromActive(a))
	}

	products, err := repos.Catalog.ListProducts(ctx, "")
	if err != nil {
		return err
	}
	for _, p := range products {
		snap.Products = append(snap.Products, fromProduct(p))
		pas, err := repos.Catalog.ListProductActives(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, pa := range pas {
			snap.ProductActives = append(snap.ProductActives, fromProductActive(pa))
		}
	}

	lots, err := repos.Ledger.ListLots(ctx, entities.LotFilter{})
	if err != nil {
		return err
	}
	for _, lot := range lots {
		snap.Lots = append(snap.Lots, fromLot(lot))
		movements, err := repos.Ledger.ListMovements(ctx, lot.ID)
		if err != nil {
			return err
		}
		for _, m := range movements {
			snap.Movements = append(snap.Movements, fromMovement(m))
		}
	}
	sort.SliceStable(snap.Movements, func(i, j int) bool {
		return snap.Movements[i].Sequence < snap.Movements[j].Sequence
	})

	rules, err := repos.Compatibility.ListRules(ctx)
	if err != nil {
		return err
	}
	for _, r := range rules {
		snap.Rules = append(snap.Rules, Rule{A: r.A, B: r.B, Relation: int(r.Relation), Notes: r.Notes})
	}

	mixes, err := repos.Applications.ListMixes(ctx)
	if err != nil {
		return err
	}
	for _, mix := range mixes {
		snap.Mixes = append(snap.Mixes, fromMix(mix))
	}

	apps, err := repos.Applications.ListApplications(ctx, "")
	if err != nil {
		return err
	}
	for _, app := range apps {
		snap.Applications = append(snap.Applications, fromApplication(app))
	}
	return nil
}

// Decode reads a snapshot without writing it anywhere
func Decode(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, entities.NewValidationError("snapshot", fmt.Sprintf("cannot decode: %v", err))
	}
	if snap.Version != Version {
		return nil, entities.NewValidationError("snapshot", fmt.Sprintf("unsupported version %d", snap.Version))
	}
	return &snap, nil
}

// Import restores a snapshot into an empty store. Nothing is written unless
// every record is accepted.
func Import(ctx context.Context, store repositories.Store, r io.Reader) (*Stats, error) {
	snap, err := Decode(r)
	if err != nil {
		return nil, err
	}

	err = store.Atomically(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if err := ensureEmpty(ctx, repos); err != nil {
			return err
		}
		return restore(ctx, repos, snap)
	})
	if err != nil {
		return nil, err
	}
	return snap.stats(), nil
}

func ensureEmpty(ctx context.Context, repos repositories.Repositories) error {
	actives, err := repos.Catalog.ListActives(ctx)
	if err != nil {
		return err
	}
	products, err := repos.Catalog.ListProducts(ctx, "")
	if err != nil {
		return err
	}
	rules, err := repos.Compatibility.ListRules(ctx)
	if err != nil {
		return err
	}
	if len(actives)+len(products)+len(rules) > 0 {
		return entities.NewValidationError("store", "import needs an empty store")
	}
	return nil
}

func restore(ctx context.Context, repos repositories.Repositories, snap *Snapshot) error {
	for _, a := range snap.Actives {
		if err := repos.Catalog.SaveActive(ctx, a.entity()); err != nil {
			return fmt.Errorf("active %s: %w", a.ID, err)
		}
	}
	for _, p := range snap.Products {
		product, err := p.entity()
		if err != nil {
			return invalid("product", p.ID, err)
		}
		if err := repos.Catalog.SaveProduct(ctx, product); err != nil {
			return fmt.Errorf("product %s: %w", p.ID, err)
		}
	}
	for _, pa := range snap.ProductActives {
		link, err := pa.entity()
		if err != nil {
			return invalid("product active", pa.ProductID, err)
		}
		if err := repos.Catalog.SaveProductActive(ctx, link); err != nil {
			return err
		}
	}

	lots := make(map[string]bool, len(snap.Lots))
	for _, l := range snap.Lots {
		lot, err := l.entity()
		if err != nil {
			return invalid("lot", l.ID, err)
		}
		if err := repos.Ledger.SaveLot(ctx, lot); err != nil {
			return fmt.Errorf("lot %s: %w", l.ID, err)
		}
		lots[l.ID] = true
	}

	movements := append([]Movement(nil), snap.Movements...)
	sort.SliceStable(movements, func(i, j int) bool { return movements[i].Sequence < movements[j].Sequence })
	for _, m := range movements {
		if !lots[m.LotID] {
			return entities.NewValidationError("movement", fmt.Sprintf("%s references unknown lot %s", m.ID, m.LotID))
		}
		movement, err := m.entity()
		if err != nil {
			return invalid("movement", m.ID, err)
		}
		if err := repos.Ledger.AppendMovement(ctx, movement); err != nil {
			return fmt.Errorf("movement %s: %w", m.ID, err)
		}
	}

	for _, r := range snap.Rules {
		rule, err := entities.NewCompatibilityRule(r.A, r.B, entities.Verdict(r.Relation), r.Notes)
		if err != nil {
			return err
		}
		if err := repos.Compatibility.SaveRule(ctx, rule); err != nil {
			return err
		}
	}
	for _, m := range snap.Mixes {
		mix, err := m.entity()
		if err != nil {
			return invalid("mix", m.ID, err)
		}
		if err := repos.Applications.SaveMix(ctx, mix); err != nil {
			return fmt.Errorf("mix %s: %w", m.ID, err)
		}
	}
	for _, a := range snap.Applications {
		app, err := a.entity()
		if err != nil {
			return invalid("application", a.ID, err)
		}
		if err := repos.Applications.SaveApplication(ctx, app); err != nil {
			return fmt.Errorf("application %s: %w", a.ID, err)
		}
	}
	return nil
}

func invalid(kind, id string, err error) error {
	return entities.NewValidationError(kind, fmt.Sprintf("%s: %v", id, err))
}
