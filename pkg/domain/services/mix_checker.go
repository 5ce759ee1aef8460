package services

import (
	"sort"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

// RuleLookup returns the rule stored for the ordered pair (a, b), or nil
type RuleLookup func(a, b string) (*entities.CompatibilityRule, error)

// CheckPair resolves the verdict for an unordered pair: (a,b) first, then (b,a).
// Without any rule the verdict is Unknown.
func CheckPair(a, b string, lookup RuleLookup) (entities.PairVerdict, error) {
	pair := entities.PairVerdict{A: a, B: b, Relation: entities.Unknown}

	rule, err := lookup(a, b)
	if err != nil {
		return pair, err
	}
	if rule == nil {
		rule, err = lookup(b, a)
		if err != nil {
			return pair, err
		}
	}
	if rule != nil {
		pair.Relation = rule.Relation
		pair.Notes = rule.Notes
	}
	return pair, nil
}

// DistinctSorted returns the unique names in ascending order
func DistinctSorted(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CheckAll evaluates every unordered pair of the distinct active names and reduces
// the verdicts to the most severe one. Fewer than two actives is Allowed.
func CheckAll(actives []string, lookup RuleLookup) (*entities.MixReport, error) {
	names := DistinctSorted(actives)
	report := &entities.MixReport{
		Summary: entities.Allowed,
		Actives: names,
		Pairs:   []entities.PairVerdict{},
	}

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			pair, err := CheckPair(names[i], names[j], lookup)
			if err != nil {
				return nil, err
			}
			report.Pairs = append(report.Pairs, pair)
		}
	}

	report.Summary = ReduceVerdicts(report.Pairs)
	return report, nil
}

// ReduceVerdicts returns the maximum severity among pairs, Allowed when empty
func ReduceVerdicts(pairs []entities.PairVerdict) entities.Verdict {
	worst := entities.Allowed
	for _, p := range pairs {
		if p.Relation.Severity() > worst.Severity() {
			worst = p.Relation
		}
	}
	return worst
}
