package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLocation is used when a lot is received without an explicit location
const DefaultLocation = "main"

// StockLot is a physically distinct received batch of one product at one location.
// Its balance is never stored; it is derived from the ledger.
type StockLot struct {
	ID           LotID
	ProductID    ProductID
	LocationID   string
	LotCode      string
	ReceivedDate time.Time
	ExpiryDate   *time.Time
	Unit         QuantityUnit
	UnitPrice    decimal.NullDecimal
	Notes        string
}

// NewStockLot creates a validated StockLot with a fresh id
func NewStockLot(
	productID ProductID,
	locationID, lotCode string,
	receivedDate time.Time,
	expiryDate *time.Time,
	unit QuantityUnit,
	unitPrice decimal.NullDecimal,
) (*StockLot, error) {
	if productID == "" {
		return nil, NewValidationError("product_id", "cannot be empty")
	}
	if lotCode == "" {
		return nil, NewValidationError("lot_code", "cannot be empty")
	}
	if receivedDate.IsZero() {
		return nil, NewValidationError("received_date", "cannot be empty")
	}
	if expiryDate != nil && expiryDate.Before(receivedDate) {
		return nil, NewValidationError("expiry_date", "must not be before the received date")
	}
	if !unit.IsValid() {
		return nil, NewValidationError("unit", "must be l or kg")
	}
	if unitPrice.Valid && unitPrice.Decimal.IsNegative() {
		return nil, NewValidationError("unit_price", "cannot be negative")
	}
	if locationID == "" {
		locationID = DefaultLocation
	}

	return &StockLot{
		ID:           LotID(NewID()),
		ProductID:    productID,
		LocationID:   locationID,
		LotCode:      lotCode,
		ReceivedDate: receivedDate,
		ExpiryDate:   expiryDate,
		Unit:         unit,
		UnitPrice:    unitPrice,
	}, nil
}

// LedgerMovement is one immutable entry changing a lot's balance
type LedgerMovement struct {
	ID            MovementID
	LotID         LotID
	Direction     Direction
	Quantity      decimal.Decimal
	Unit          QuantityUnit
	EffectiveDate time.Time
	// Sequence is the store-wide insertion order, assigned by the store. Within a
	// lot it increases with every append but is not contiguous.
	Sequence  int64
	RefType   string
	RefID     string
	Reason    string
	Notes     string
	CreatedAt time.Time
}

// NewLedgerMovement creates a validated movement against lot
func NewLedgerMovement(lot *StockLot, direction Direction, quantity decimal.Decimal, unit QuantityUnit, effectiveDate time.Time) (*LedgerMovement, error) {
	switch direction {
	case In, Out:
		if !quantity.IsPositive() {
			return nil, NewValidationError("quantity", fmt.Sprintf("must be > 0 for %s movements, got %s", direction, quantity.String()))
		}
	case Adjust:
		if quantity.IsZero() {
			return nil, NewValidationError("quantity", "adjustment cannot be zero")
		}
	default:
		return nil, NewValidationError("direction", "must be one of in, out, adjust")
	}
	if unit != lot.Unit {
		return nil, NewValidationError("unit", fmt.Sprintf("%s does not match lot unit %s", unit, lot.Unit))
	}
	if effectiveDate.IsZero() {
		return nil, NewValidationError("date", "cannot be empty")
	}

	return &LedgerMovement{
		ID:            MovementID(NewID()),
		LotID:         lot.ID,
		Direction:     direction,
		Quantity:      quantity,
		Unit:          unit,
		EffectiveDate: effectiveDate,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Signed returns the movement's contribution to the lot balance
func (m LedgerMovement) Signed() decimal.Decimal {
	switch m.Direction {
	case In:
		return m.Quantity
	case Out:
		return m.Quantity.Neg()
	case Adjust:
		return m.Quantity
	default:
		return decimal.Zero
	}
}

// LotBalance pairs a lot with its derived balance
type LotBalance struct {
	Lot     StockLot
	Balance decimal.Decimal
}

// LotOrder selects the ordering of lot listings
type LotOrder int

const (
	// OrderFIFO is consumption priority: expiring lots first, soonest expiry, oldest receipt, lot id
	OrderFIFO LotOrder = iota
	// OrderReceived is reporting order: oldest receipt first
	OrderReceived
)

// LotFilter narrows lot listings; empty fields match everything
type LotFilter struct {
	ProductID  ProductID
	LocationID string
	Unit       QuantityUnit
}

// Allocation is the quantity taken from one lot
type Allocation struct {
	LotID    LotID
	Quantity decimal.Decimal
}

// AllocationResult represents the result of a FIFO allocation
type AllocationResult struct {
	ProductID   ProductID
	Unit        QuantityUnit
	Requested   decimal.Decimal
	Allocated   decimal.Decimal
	Remaining   decimal.Decimal
	Allocations []Allocation
}

// Covered reports whether the request was fully satisfied
func (r AllocationResult) Covered() bool {
	return !r.Remaining.IsPositive()
}
