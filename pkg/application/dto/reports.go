package dto

import (
	"github.com/shopspring/decimal"
)

// ActiveStockEntry is one lot's contribution to an active substance total.
// ActiveMassKg is null when the product lacks a density the conversion needs.
type ActiveStockEntry struct {
	ProductID         string              `json:"product_id"`
	TradeName         string              `json:"trade_name"`
	LotID             string              `json:"lot_id"`
	LotCode           string              `json:"lot_code"`
	LocationID        string              `json:"location_id"`
	LotQty            decimal.Decimal     `json:"lot_qty"`
	Unit              string              `json:"unit"`
	Concentration     decimal.Decimal     `json:"concentration"`
	ConcentrationUnit string              `json:"concentration_unit"`
	ActiveMassKg      decimal.NullDecimal `json:"active_mass_kg"`
}

// ActiveStock totals an active substance across all lots, in kilograms
type ActiveStock struct {
	ActiveID           string             `json:"active_id"`
	Active             string             `json:"active"`
	TotalMassKg        decimal.Decimal    `json:"total_mass_kg"`
	UnknownMassEntries int                `json:"unknown_mass_entries"`
	Breakdown          []ActiveStockEntry `json:"breakdown"`
}

// StockSummaryRow aggregates positive lot balances per product, location and unit
type StockSummaryRow struct {
	ProductID    string          `json:"product_id"`
	TradeName    string          `json:"trade_name"`
	ProductType  string          `json:"product_type,omitempty"`
	LocationID   string          `json:"location_id"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	Value        decimal.Decimal `json:"value"`
	Lots         int             `json:"lots"`
	UnpricedLots int             `json:"unpriced_lots"`
}
