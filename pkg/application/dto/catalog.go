package dto

import (
	"github.com/shopspring/decimal"
)

// ActiveInput names one active of a product by id or by name
type ActiveInput struct {
	ActiveID      string          `json:"active_id,omitempty"`
	Name          string          `json:"name,omitempty"`
	Concentration decimal.Decimal `json:"concentration"`
	Unit          string          `json:"unit" validate:"required"`
}

// UpsertProductRequest creates a product or updates the one with the same id or trade name
type UpsertProductRequest struct {
	ID          string              `json:"id,omitempty"`
	TradeName   string              `json:"trade_name" validate:"required"`
	ProductType string              `json:"product_type,omitempty"`
	Density     decimal.NullDecimal `json:"density"`
	DefaultUnit string              `json:"default_unit,omitempty"`
	Formulation string              `json:"formulation,omitempty"`
	Supplier    string              `json:"supplier,omitempty"`
	Notes       string              `json:"notes,omitempty"`
	Actives     []ActiveInput       `json:"actives" validate:"dive"`
}

// UpsertActiveRequest creates an active substance or updates the one with the same id or name
type UpsertActiveRequest struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name" validate:"required"`
	Synonyms  []string `json:"synonyms,omitempty"`
	CASNumber string   `json:"cas_number,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

type ProductActiveView struct {
	ActiveID      string          `json:"active_id"`
	Name          string          `json:"name"`
	Concentration decimal.Decimal `json:"concentration"`
	Unit          string          `json:"unit"`
}

type ProductView struct {
	ID          string              `json:"id"`
	TradeName   string              `json:"trade_name"`
	ProductType string              `json:"product_type,omitempty"`
	Density     decimal.NullDecimal `json:"density"`
	DefaultUnit string              `json:"default_unit,omitempty"`
	Formulation string              `json:"formulation,omitempty"`
	Supplier    string              `json:"supplier,omitempty"`
	Notes       string              `json:"notes,omitempty"`
	Actives     []ProductActiveView `json:"actives"`
}

type ActiveView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Synonyms  []string `json:"synonyms,omitempty"`
	CASNumber string   `json:"cas_number,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}
