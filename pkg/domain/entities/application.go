package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Application statuses
const (
	ApplicationPosted = "posted"
	ApplicationDraft  = "draft"
)

// Movement reference types written by the services
const (
	RefApplication = "application"
	RefWithdrawal  = "withdrawal"
	RefReceipt     = "receipt"
)

// Application is a field event consuming products over an area.
// Items, their movements and the total cost are persisted together.
type Application struct {
	ID          ApplicationID
	ParcelRef   string
	Date        time.Time
	AreaHa      decimal.Decimal
	MixID       MixID
	Operator    string
	Machine     string
	WaterLPerHa decimal.NullDecimal
	TankVolumeL decimal.NullDecimal
	Status      string
	TotalCost   decimal.Decimal
	Items       []ApplicationItem
	CreatedAt   time.Time
}

// ApplicationItem is the part of an application drawn from one lot
type ApplicationItem struct {
	ProductID  ProductID
	AppliedQty decimal.Decimal
	Unit       QuantityUnit
	FromLotID  LotID
	UnitPrice  decimal.NullDecimal
	Cost       decimal.Decimal
}

// TankMix is a named recipe of products and per-hectare doses
type TankMix struct {
	ID               MixID
	Name             string
	WaterPH          decimal.NullDecimal
	WaterHardnessPPM decimal.NullDecimal
	Notes            string
	Items            []TankMixItem
	Compatibility    Verdict
	CreatedAt        time.Time
}

// TankMixItem is one product dose of a tank mix
type TankMixItem struct {
	ProductID ProductID
	DosePerHa decimal.Decimal
	DoseUnit  QuantityUnit
}
