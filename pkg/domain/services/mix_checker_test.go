package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

func ruleTable(rules ...entities.CompatibilityRule) RuleLookup {
	return func(a, b string) (*entities.CompatibilityRule, error) {
		for i := range rules {
			if rules[i].A == a && rules[i].B == b {
				return &rules[i], nil
			}
		}
		return nil, nil
	}
}

func TestCheckPair_Symmetric(t *testing.T) {
	lookup := ruleTable(
		entities.CompatibilityRule{A: "dicamba", B: "glifosat acid", Relation: entities.Forbidden, Notes: "drift"},
		entities.CompatibilityRule{A: "2,4-d", B: "metribuzin", Relation: entities.Allowed},
		entities.CompatibilityRule{A: "clomazone", B: "tebuconazol", Relation: entities.Caution},
	)

	pairs := [][2]string{
		{"dicamba", "glifosat acid"},
		{"2,4-d", "metribuzin"},
		{"clomazone", "tebuconazol"},
		{"dicamba", "metribuzin"},
	}
	for _, p := range pairs {
		ab, err := CheckPair(p[0], p[1], lookup)
		require.NoError(t, err)
		ba, err := CheckPair(p[1], p[0], lookup)
		require.NoError(t, err)
		assert.Equal(t, ab.Relation, ba.Relation, "%v", p)
		assert.Equal(t, ab.Notes, ba.Notes, "%v", p)
	}

	got, err := CheckPair("glifosat acid", "dicamba", lookup)
	require.NoError(t, err)
	assert.Equal(t, entities.Forbidden, got.Relation)
	assert.Equal(t, "drift", got.Notes)

	got, err = CheckPair("dicamba", "metribuzin", lookup)
	require.NoError(t, err)
	assert.Equal(t, entities.Unknown, got.Relation)
}

func TestCheckPair_PropagatesLookupErrors(t *testing.T) {
	boom := errors.New("store down")
	_, err := CheckPair("a", "b", func(a, b string) (*entities.CompatibilityRule, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestCheckAll(t *testing.T) {
	lookup := ruleTable(
		entities.CompatibilityRule{A: "a", B: "b", Relation: entities.Allowed},
		entities.CompatibilityRule{A: "c", B: "a", Relation: entities.Caution},
	)

	report, err := CheckAll([]string{"c", "a", "b", "a"}, lookup)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, report.Actives)
	require.Len(t, report.Pairs, 3)
	assert.Equal(t, "a", report.Pairs[0].A)
	assert.Equal(t, "b", report.Pairs[0].B)
	assert.Equal(t, entities.Allowed, report.Pairs[0].Relation)
	assert.Equal(t, entities.Caution, report.Pairs[1].Relation)
	assert.Equal(t, entities.Unknown, report.Pairs[2].Relation)
	assert.Equal(t, entities.Caution, report.Summary)
}

func TestCheckAll_SingleActive(t *testing.T) {
	report, err := CheckAll([]string{"glifosat acid", "glifosat acid"}, ruleTable())
	require.NoError(t, err)
	assert.Equal(t, entities.Allowed, report.Summary)
	assert.Empty(t, report.Pairs)
}

func TestReduceVerdicts(t *testing.T) {
	assert.Equal(t, entities.Allowed, ReduceVerdicts(nil))
	assert.Equal(t, entities.Unknown, ReduceVerdicts([]entities.PairVerdict{{Relation: entities.Allowed}, {Relation: entities.Unknown}}))
	assert.Equal(t, entities.Forbidden, ReduceVerdicts([]entities.PairVerdict{
		{Relation: entities.Caution}, {Relation: entities.Forbidden}, {Relation: entities.Unknown},
	}))
}
