package memory

import (
	"context"
	"sort"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// SaveLot inserts or replaces a stock lot
func (v *view) SaveLot(ctx context.Context, lot *entities.StockLot) error {
	return v.write(func(st *state) error {
		st.lots[lot.ID] = *lot
		return nil
	})
}

// GetLot returns a stock lot by id
func (v *view) GetLot(ctx context.Context, id entities.LotID) (*entities.StockLot, error) {
	var out *entities.StockLot
	err := v.read(func(st *state) error {
		lot, ok := st.lots[id]
		if !ok {
			return entities.NewNotFoundError("lot", string(id))
		}
		out = &lot
		return nil
	})
	return out, err
}

// ListLots returns the lots matching filter ordered by id
func (v *view) ListLots(ctx context.Context, filter entities.LotFilter) ([]*entities.StockLot, error) {
	var out []*entities.StockLot
	err := v.read(func(st *state) error {
		for _, lot := range st.lots {
			if filter.ProductID != "" && lot.ProductID != filter.ProductID {
				continue
			}
			if filter.LocationID != "" && lot.LocationID != filter.LocationID {
				continue
			}
			if filter.Unit != 0 && lot.Unit != filter.Unit {
				continue
			}
			found := lot
			out = append(out, &found)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// CountLotsForProduct returns how many lots reference the product
func (v *view) CountLotsForProduct(ctx context.Context, productID entities.ProductID) (int, error) {
	count := 0
	err := v.read(func(st *state) error {
		for _, lot := range st.lots {
			if lot.ProductID == productID {
				count++
			}
		}
		return nil
	})
	return count, err
}

// AppendMovement stores a movement at the end of its lot's ledger
func (v *view) AppendMovement(ctx context.Context, movement *entities.LedgerMovement) error {
	return v.write(func(st *state) error {
		if _, ok := st.lots[movement.LotID]; !ok {
			return entities.NewNotFoundError("lot", string(movement.LotID))
		}
		st.sequence++
		movement.Sequence = st.sequence
		st.movements[movement.LotID] = append(st.movements[movement.LotID], *movement)
		return nil
	})
}

// ListMovements returns a copy of the lot's ledger in insertion order
func (v *view) ListMovements(ctx context.Context, lotID entities.LotID) ([]entities.LedgerMovement, error) {
	var out []entities.LedgerMovement
	err := v.read(func(st *state) error {
		out = append([]entities.LedgerMovement(nil), st.movements[lotID]...)
		return nil
	})
	return out, err
}
