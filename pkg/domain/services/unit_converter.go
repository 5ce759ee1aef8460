package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// MaxMassConcentration is the sanity ceiling for g/L and g/kg concentrations
var MaxMassConcentration = decimal.NewFromInt(5000)

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

var quantityUnitAliases = map[string]entities.QuantityUnit{
	"l":         entities.Liquid,
	"lt":        entities.Liquid,
	"ltr":       entities.Liquid,
	"litru":     entities.Liquid,
	"litri":     entities.Liquid,
	"liter":     entities.Liquid,
	"liters":    entities.Liquid,
	"litre":     entities.Liquid,
	"litres":    entities.Liquid,
	"kg":        entities.Solid,
	"kilogram":  entities.Solid,
	"kilograms": entities.Solid,
	"kilograme": entities.Solid,
}

var concentrationUnitAliases = map[string]entities.ConcentrationUnit{
	"g/l":     entities.MassPerVolume,
	"gperl":   entities.MassPerVolume,
	"g/kg":    entities.MassPerMass,
	"gkg":     entities.MassPerMass,
	"gperkg":  entities.MassPerMass,
	"%w/v":    entities.PercentMassPerVolume,
	"%w/w":    entities.PercentMassPerMass,
	"%":       entities.PercentMassPerMass,
	"percent": entities.PercentMassPerMass,
}

// NormalizeQuantityUnit maps free-text unit spellings onto l or kg
func NormalizeQuantityUnit(input string) (entities.QuantityUnit, error) {
	key := strings.ReplaceAll(NormalizeText(input), " ", "")
	if unit, ok := quantityUnitAliases[key]; ok {
		return unit, nil
	}
	return 0, entities.NewValidationError("unit", fmt.Sprintf("%q must be l or kg", input))
}

// NormalizeConcentrationUnit maps label spellings onto the four concentration units
func NormalizeConcentrationUnit(input string) (entities.ConcentrationUnit, error) {
	key := strings.ReplaceAll(NormalizeText(input), " ", "")
	if unit, ok := concentrationUnitAliases[key]; ok {
		return unit, nil
	}
	return 0, entities.NewValidationError("concentration_unit", fmt.Sprintf("%q is not one of g/L, g/kg, %%w/v, %%w/w", input))
}

// ParseDoseUnit maps a per-hectare dose unit (L/ha, kg/ha) onto the consumed quantity unit
func ParseDoseUnit(input string) (entities.QuantityUnit, error) {
	key := strings.ReplaceAll(NormalizeText(input), " ", "")
	switch key {
	case "l/ha":
		return entities.Liquid, nil
	case "kg/ha":
		return entities.Solid, nil
	default:
		return 0, entities.NewValidationError("dose_unit", fmt.Sprintf("%q must be L/ha or kg/ha", input))
	}
}

// DoseUnitString is the inverse of ParseDoseUnit
func DoseUnitString(unit entities.QuantityUnit) string {
	if unit == entities.Liquid {
		return "L/ha"
	}
	return "kg/ha"
}

// ValidateConcentration checks a concentration against its unit's bounds
func ValidateConcentration(value decimal.Decimal, unit entities.ConcentrationUnit) error {
	if !unit.IsValid() {
		return entities.NewValidationError("concentration_unit", "unsupported unit")
	}
	if !value.IsPositive() {
		return entities.NewValidationError("concentration", "must be > 0")
	}
	if unit.IsPercent() && value.GreaterThan(hundred) {
		return entities.NewValidationError("concentration", "percent exceeds 100")
	}
	if !unit.IsPercent() && value.GreaterThan(MaxMassConcentration) {
		return entities.NewValidationError("concentration", "mass unit implausibly large")
	}
	return nil
}

// RequiresDensity reports whether converting a lot of lotUnit with a concentration
// expressed in concUnit needs the product's density.
func RequiresDensity(concUnit entities.ConcentrationUnit, lotUnit entities.QuantityUnit) bool {
	return concUnit.Basis() != lotUnit
}

// ActiveMass converts a lot quantity into kilograms of active ingredient.
// The result is invalid (unknown, not zero) when a required density is missing.
func ActiveMass(
	qty decimal.Decimal,
	lotUnit entities.QuantityUnit,
	conc decimal.Decimal,
	concUnit entities.ConcentrationUnit,
	density decimal.NullDecimal,
) decimal.NullDecimal {
	if !lotUnit.IsValid() || !concUnit.IsValid() {
		return decimal.NullDecimal{}
	}

	// fraction of active per basis unit
	divisor := thousand
	if concUnit.IsPercent() {
		divisor = hundred
	}
	share := conc.Div(divisor)

	basisQty := qty
	if RequiresDensity(concUnit, lotUnit) {
		if !density.Valid || !density.Decimal.IsPositive() {
			return decimal.NullDecimal{}
		}
		switch lotUnit {
		case entities.Liquid:
			// litres to kilograms of product
			basisQty = qty.Mul(density.Decimal)
		case entities.Solid:
			// kilograms to litres of product
			basisQty = qty.Div(density.Decimal)
		}
	}

	return decimal.NewNullDecimal(basisQty.Mul(share))
}

// EnsureConvertible fails when any concentration of a product cannot be converted
// for lots in lotUnit because the product has no density.
func EnsureConvertible(product *entities.Product, actives []entities.ProductActive, lotUnit entities.QuantityUnit) error {
	for _, pa := range actives {
		if RequiresDensity(pa.Unit, lotUnit) && !product.HasDensity() {
			return entities.NewValidationError("density",
				fmt.Sprintf("product %s needs a density to convert %s concentrations for %s lots", product.TradeName, pa.Unit, lotUnit))
		}
	}
	return nil
}
