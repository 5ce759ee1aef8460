package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdict_Severity(t *testing.T) {
	assert.Equal(t, 3, Forbidden.Severity())
	assert.Equal(t, 2, Caution.Severity())
	assert.Equal(t, 1, Unknown.Severity())
	assert.Equal(t, 0, Allowed.Severity())
	assert.Greater(t, Forbidden.Severity(), Caution.Severity())
	assert.Greater(t, Unknown.Severity(), Allowed.Severity())
}

func TestParseVerdict(t *testing.T) {
	for _, v := range []Verdict{Allowed, Caution, Forbidden, Unknown} {
		parsed, err := ParseVerdict(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}

	_, err := ParseVerdict("maybe")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewCompatibilityRule(t *testing.T) {
	rule, err := NewCompatibilityRule("glifosat acid", "dicamba", Forbidden, "antagonism")
	require.NoError(t, err)
	assert.False(t, rule.Allowed())

	_, err = NewCompatibilityRule("", "dicamba", Allowed, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewCompatibilityRule("a", "b", Unknown, "")
	assert.ErrorIs(t, err, ErrValidation)
}
