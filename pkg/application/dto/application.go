package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateApplicationRequest records a field application. Items are per-hectare
// doses; a mix id replaces them with the mix's items.
type CreateApplicationRequest struct {
	ParcelRef   string              `json:"parcel_ref" validate:"required"`
	Date        time.Time           `json:"date"`
	AreaHa      decimal.Decimal     `json:"area_ha"`
	MixID       string              `json:"mix_id,omitempty"`
	Operator    string              `json:"operator,omitempty"`
	Machine     string              `json:"machine,omitempty"`
	WaterLPerHa decimal.NullDecimal `json:"water_l_per_ha"`
	TankVolumeL decimal.NullDecimal `json:"tank_volume_l"`
	Items       []MixItemInput      `json:"items" validate:"dive"`
}

type ApplicationItemView struct {
	ProductID  string              `json:"product_id"`
	TradeName  string              `json:"trade_name,omitempty"`
	LotID      string              `json:"lot_id"`
	AppliedQty decimal.Decimal     `json:"applied_qty"`
	Unit       string              `json:"unit"`
	UnitPrice  decimal.NullDecimal `json:"unit_price"`
	Cost       decimal.Decimal     `json:"cost"`
}

type ApplicationView struct {
	ID          string                `json:"id"`
	ParcelRef   string                `json:"parcel_ref"`
	Date        time.Time             `json:"date"`
	AreaHa      decimal.Decimal       `json:"area_ha"`
	MixID       string                `json:"mix_id,omitempty"`
	Operator    string                `json:"operator,omitempty"`
	Machine     string                `json:"machine,omitempty"`
	WaterLPerHa decimal.NullDecimal   `json:"water_l_per_ha"`
	TankVolumeL decimal.NullDecimal   `json:"tank_volume_l"`
	Status      string                `json:"status"`
	TotalCost   decimal.Decimal       `json:"total_cost"`
	Items       []ApplicationItemView `json:"items"`
	CreatedAt   time.Time             `json:"created_at"`
}
