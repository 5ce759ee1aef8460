package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type MixCheckRequest struct {
	A string `json:"a" validate:"required"`
	B string `json:"b" validate:"required"`
}

type MixCheckItemsRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1,dive,required"`
}

type PairCheck struct {
	A        string `json:"a"`
	B        string `json:"b"`
	Relation string `json:"relation"`
	Notes    string `json:"notes,omitempty"`
}

type MixReport struct {
	Summary string      `json:"summary"`
	Actives []string    `json:"actives"`
	Pairs   []PairCheck `json:"pairs"`
}

// RuleRequest records how two active substances behave together
type RuleRequest struct {
	A        string `json:"a" yaml:"a" validate:"required"`
	B        string `json:"b" yaml:"b" validate:"required"`
	Relation string `json:"relation" yaml:"relation" validate:"required,oneof=allowed caution forbidden"`
	Notes    string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

type MixItemInput struct {
	ProductID string          `json:"product_id" validate:"required"`
	Dose      decimal.Decimal `json:"dose"`
	DoseUnit  string          `json:"dose_unit" validate:"required"`
}

type CreateMixRequest struct {
	Name             string              `json:"name" validate:"required"`
	WaterPH          decimal.NullDecimal `json:"water_ph"`
	WaterHardnessPPM decimal.NullDecimal `json:"water_hardness_ppm"`
	Notes            string              `json:"notes,omitempty"`
	Items            []MixItemInput      `json:"items" validate:"required,min=1,dive"`
}

type MixView struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	WaterPH          decimal.NullDecimal `json:"water_ph"`
	WaterHardnessPPM decimal.NullDecimal `json:"water_hardness_ppm"`
	Notes            string              `json:"notes,omitempty"`
	Items            []MixItemInput      `json:"items"`
	Compatibility    MixReport           `json:"compatibility"`
	CreatedAt        time.Time           `json:"created_at"`
}
