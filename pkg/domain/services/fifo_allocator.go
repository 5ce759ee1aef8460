package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// AllocationRequest asks for qty of one product in one unit
type AllocationRequest struct {
	ProductID entities.ProductID
	Quantity  decimal.Decimal
	Unit      entities.QuantityUnit
}

func (r AllocationRequest) validate() error {
	if r.ProductID == "" {
		return entities.NewValidationError("product_id", "cannot be empty")
	}
	if !r.Unit.IsValid() {
		return entities.NewValidationError("unit", "must be l or kg")
	}
	if !r.Quantity.IsPositive() {
		return entities.NewValidationError("quantity", "must be > 0")
	}
	return nil
}

// SortFIFO orders lots by consumption priority: lots with an expiry before lots
// without, soonest expiry, oldest receipt, then lot id.
func SortFIFO(rows []entities.LotBalance) {
	sort.SliceStable(rows, func(i, j int) bool {
		return fifoLess(&rows[i].Lot, &rows[j].Lot)
	})
}

// SortByReceived orders lots oldest receipt first, lot id as tie-break
func SortByReceived(rows []entities.LotBalance) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i].Lot, &rows[j].Lot
		if !a.ReceivedDate.Equal(b.ReceivedDate) {
			return a.ReceivedDate.Before(b.ReceivedDate)
		}
		return a.ID < b.ID
	})
}

func fifoLess(a, b *entities.StockLot) bool {
	switch {
	case a.ExpiryDate != nil && b.ExpiryDate == nil:
		return true
	case a.ExpiryDate == nil && b.ExpiryDate != nil:
		return false
	case a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
		return a.ExpiryDate.Before(*b.ExpiryDate)
	}
	if !a.ReceivedDate.Equal(b.ReceivedDate) {
		return a.ReceivedDate.Before(b.ReceivedDate)
	}
	return a.ID < b.ID
}

// AllocateFIFO covers the request from lots in FIFO order. It either returns
// allocations summing exactly to the requested quantity or an
// InsufficientStockError; it never returns a partial allocation.
// rows is not modified.
func AllocateFIFO(req AllocationRequest, rows []entities.LotBalance) (*entities.AllocationResult, error) {
	result, err := PreviewFIFO(req, rows)
	if err != nil {
		return nil, err
	}
	if !result.Covered() {
		return nil, &entities.InsufficientStockError{
			ProductID: req.ProductID,
			Unit:      req.Unit,
			Requested: req.Quantity,
			Available: result.Allocated,
		}
	}
	return result, nil
}

// PreviewFIFO is the explicit partial mode: it walks the same order as AllocateFIFO
// and reports what could be taken plus the shortfall. Callers must not write
// movements from an uncovered preview.
func PreviewFIFO(req AllocationRequest, rows []entities.LotBalance) (*entities.AllocationResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	candidates := make([]entities.LotBalance, 0, len(rows))
	for _, row := range rows {
		if row.Lot.ProductID == req.ProductID && row.Lot.Unit == req.Unit {
			candidates = append(candidates, row)
		}
	}
	SortFIFO(candidates)

	result := &entities.AllocationResult{
		ProductID:   req.ProductID,
		Unit:        req.Unit,
		Requested:   req.Quantity,
		Allocated:   decimal.Zero,
		Remaining:   req.Quantity,
		Allocations: []entities.Allocation{},
	}

	for _, row := range candidates {
		if !result.Remaining.IsPositive() {
			break
		}
		if !row.Balance.IsPositive() {
			continue
		}

		take := decimal.Min(result.Remaining, row.Balance)
		result.Allocations = append(result.Allocations, entities.Allocation{
			LotID:    row.Lot.ID,
			Quantity: take,
		})
		result.Allocated = result.Allocated.Add(take)
		result.Remaining = result.Remaining.Sub(take)
	}

	return result, nil
}
