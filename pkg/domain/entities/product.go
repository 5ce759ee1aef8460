package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Identifier types
type (
	ProductID     string
	ActiveID      string
	LotID         string
	MovementID    string
	ApplicationID string
	MixID         string
)

// NewID returns a time-ordered identifier, so ascending ids follow creation order
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Product types known to the catalog; the set is open
const (
	ProductTypeHerbicide  = "herbicide"
	ProductTypeFertilizer = "fertilizer"
	ProductTypeDiesel     = "diesel"
	ProductTypeGrain      = "grain"
)

// Product is a tradable chemical or fertilizer item
type Product struct {
	ID             ProductID
	TradeName      string
	NormalizedName string
	ProductType    string
	// Density in kg per litre, required to convert across concentration bases
	Density     decimal.NullDecimal
	DefaultUnit QuantityUnit // zero when unset
	Formulation string
	Supplier    string
	Notes       string
}

// HasDensity reports whether a usable (positive) density is recorded
func (p *Product) HasDensity() bool {
	return p.Density.Valid && p.Density.Decimal.IsPositive()
}

// ActiveSubstance is a canonical active ingredient
type ActiveSubstance struct {
	ID             ActiveID
	Name           string
	NormalizedName string
	Synonyms       []string
	CASNumber      string
	Notes          string
}

// ProductActive joins a product to an active substance with its concentration
type ProductActive struct {
	ProductID     ProductID
	ActiveID      ActiveID
	Concentration decimal.Decimal
	Unit          ConcentrationUnit
}
