package entities

// QuantityUnit is the physical unit a lot is stocked and consumed in
type QuantityUnit int

const (
	Liquid QuantityUnit = iota + 1
	Solid
)

// String returns the canonical ledger spelling ("l" or "kg")
func (u QuantityUnit) String() string {
	switch u {
	case Liquid:
		return "l"
	case Solid:
		return "kg"
	default:
		return "unknown"
	}
}

// IsValid reports whether u is one of the declared units
func (u QuantityUnit) IsValid() bool {
	return u == Liquid || u == Solid
}

// ConcentrationUnit is the basis an active-ingredient concentration is expressed in
type ConcentrationUnit int

const (
	MassPerVolume ConcentrationUnit = iota + 1
	MassPerMass
	PercentMassPerVolume
	PercentMassPerMass
)

// String returns the label spelling of the concentration unit
func (c ConcentrationUnit) String() string {
	switch c {
	case MassPerVolume:
		return "g/L"
	case MassPerMass:
		return "g/kg"
	case PercentMassPerVolume:
		return "%w/v"
	case PercentMassPerMass:
		return "%w/w"
	default:
		return "unknown"
	}
}

// IsValid reports whether c is one of the declared concentration units
func (c ConcentrationUnit) IsValid() bool {
	return c >= MassPerVolume && c <= PercentMassPerMass
}

// IsPercent reports whether the concentration is a percentage
func (c ConcentrationUnit) IsPercent() bool {
	return c == PercentMassPerVolume || c == PercentMassPerMass
}

// Basis returns the product quantity unit the concentration is relative to:
// Liquid for per-volume units, Solid for per-mass units.
func (c ConcentrationUnit) Basis() QuantityUnit {
	switch c {
	case MassPerVolume, PercentMassPerVolume:
		return Liquid
	case MassPerMass, PercentMassPerMass:
		return Solid
	default:
		return 0
	}
}

// Direction is the sign of a ledger movement
type Direction int

const (
	In Direction = iota + 1
	Out
	Adjust
)

// String method for Direction enum
func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	case Adjust:
		return "adjust"
	default:
		return "unknown"
	}
}

// ParseDirection maps the ledger spelling back to a Direction
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "in":
		return In, nil
	case "out":
		return Out, nil
	case "adjust":
		return Adjust, nil
	default:
		return 0, NewValidationError("direction", "must be one of in, out, adjust")
	}
}
