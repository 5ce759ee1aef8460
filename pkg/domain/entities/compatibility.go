package entities

import "fmt"

// Verdict is the compatibility outcome of mixing active substances
type Verdict int

const (
	Allowed Verdict = iota
	Unknown
	Caution
	Forbidden
)

// String method for Verdict enum
func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case Unknown:
		return "unknown"
	case Caution:
		return "caution"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Severity orders verdicts: forbidden(3) > caution(2) > unknown(1) > allowed(0)
func (v Verdict) Severity() int {
	switch v {
	case Allowed:
		return 0
	case Caution:
		return 2
	case Forbidden:
		return 3
	default:
		return 1
	}
}

// ParseVerdict maps a rule relation spelling to a Verdict
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "allowed":
		return Allowed, nil
	case "caution":
		return Caution, nil
	case "forbidden":
		return Forbidden, nil
	case "unknown":
		return Unknown, nil
	default:
		return Unknown, NewValidationError("relation", fmt.Sprintf("unsupported value %q", s))
	}
}

// CompatibilityRule records how two active substances behave in one tank.
// The pair is unordered.
type CompatibilityRule struct {
	A        string
	B        string
	Relation Verdict
	Notes    string
}

// NewCompatibilityRule creates a validated rule
func NewCompatibilityRule(a, b string, relation Verdict, notes string) (*CompatibilityRule, error) {
	if a == "" || b == "" {
		return nil, NewValidationError("substance", "both substances are required")
	}
	if relation == Unknown {
		return nil, NewValidationError("relation", "a rule must be allowed, caution or forbidden")
	}
	return &CompatibilityRule{A: a, B: b, Relation: relation, Notes: notes}, nil
}

// Allowed reports whether the pair may be mixed without restriction
func (r CompatibilityRule) Allowed() bool {
	return r.Relation == Allowed
}

// PairVerdict is the evaluated compatibility of one unordered pair
type PairVerdict struct {
	A        string
	B        string
	Relation Verdict
	Notes    string
}

// MixReport is the reduced verdict over a set of products
type MixReport struct {
	Summary Verdict
	Actives []string
	Pairs   []PairVerdict
}
