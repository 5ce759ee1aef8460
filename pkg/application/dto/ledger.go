package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateLotRequest receives a lot and its opening quantity
type CreateLotRequest struct {
	ProductID    string              `json:"product_id" validate:"required"`
	LocationID   string              `json:"location_id,omitempty"`
	LotCode      string              `json:"lot_code" validate:"required"`
	ReceivedDate time.Time           `json:"received_date" validate:"required"`
	ExpiryDate   *time.Time          `json:"expiry_date,omitempty"`
	Unit         string              `json:"unit" validate:"required"`
	Quantity     decimal.Decimal     `json:"quantity"`
	UnitPrice    decimal.NullDecimal `json:"unit_price"`
	Notes        string              `json:"notes,omitempty"`
}

// MovementRequest appends one movement to a lot; a zero date means now
type MovementRequest struct {
	LotID         string          `json:"lot_id" validate:"required"`
	Direction     string          `json:"direction" validate:"required,oneof=in out adjust"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit" validate:"required"`
	EffectiveDate time.Time       `json:"effective_date"`
	RefType       string          `json:"ref_type,omitempty"`
	RefID         string          `json:"ref_id,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

type MovementView struct {
	ID            string          `json:"id"`
	LotID         string          `json:"lot_id"`
	Sequence      int64           `json:"sequence"`
	Direction     string          `json:"direction"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	EffectiveDate time.Time       `json:"effective_date"`
	RefType       string          `json:"ref_type,omitempty"`
	RefID         string          `json:"ref_id,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// LotQuery filters lot listings. ExpiringWithinDays keeps only lots with an
// expiry no later than that many days from today.
type LotQuery struct {
	ProductID          string `query:"product_id"`
	LocationID         string `query:"location_id"`
	ExpiringWithinDays *int   `query:"expiring_within_days"`
	ByReceived         bool   `query:"by_received"`
	InStockOnly        bool   `query:"in_stock"`
}

// LotRow is a lot with its derived balance
type LotRow struct {
	LotID         string              `json:"lot_id"`
	ProductID     string              `json:"product_id"`
	TradeName     string              `json:"trade_name"`
	LocationID    string              `json:"location_id"`
	LotCode       string              `json:"lot_code"`
	ReceivedDate  time.Time           `json:"received_date"`
	ExpiryDate    *time.Time          `json:"expiry_date,omitempty"`
	Unit          string              `json:"unit"`
	UnitPrice     decimal.NullDecimal `json:"unit_price"`
	Balance       decimal.Decimal     `json:"balance"`
	ExpiresInDays *int                `json:"expires_in_days,omitempty"`
	ExpiringSoon  bool                `json:"expiring_soon"`
}

type BalanceView struct {
	LotID   string          `json:"lot_id"`
	Unit    string          `json:"unit"`
	Balance decimal.Decimal `json:"balance"`
	AsOf    *time.Time      `json:"as_of,omitempty"`
}

// AllocationRequest asks for a quantity of one product
type AllocationRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit" validate:"required"`
}

// WithdrawRequest takes stock out by FIFO outside an application
type WithdrawRequest struct {
	AllocationRequest
	Date   time.Time `json:"date"`
	Reason string    `json:"reason,omitempty"`
	Notes  string    `json:"notes,omitempty"`
}

type AllocationLine struct {
	LotID     string              `json:"lot_id"`
	LotCode   string              `json:"lot_code"`
	Quantity  decimal.Decimal     `json:"quantity"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
}

type AllocationView struct {
	ProductID   string           `json:"product_id"`
	Unit        string           `json:"unit"`
	Requested   decimal.Decimal  `json:"requested"`
	Allocated   decimal.Decimal  `json:"allocated"`
	Remaining   decimal.Decimal  `json:"remaining"`
	Covered     bool             `json:"covered"`
	Allocations []AllocationLine `json:"allocations"`
}

type WithdrawalView struct {
	AllocationView
	MovementIDs []string `json:"movement_ids"`
}
