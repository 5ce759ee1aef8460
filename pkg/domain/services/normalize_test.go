package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Glifosat   ACID ", "glifosat acid"},
		{"Erbicid Ștefănești", "erbicid stefanesti"},
		{"Tebuconazol\t250 g/L", "tebuconazol 250 g/l"},
		{"2,4-D (ester)", "2,4-d ester"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeText(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "2 4-d", NormalizeName("2,4-D"))
	assert.Equal(t, NormalizeName("Azoxistrobin"), NormalizeName("  AZOXISTROBIN"))
	assert.Equal(t, NormalizeName("Fluazifop-P-butil"), NormalizeName("fluazifop-p-butil"))
	assert.NotEqual(t, NormalizeName("glyphosate"), NormalizeName("glifosat"))
}

func TestMatchesSynonym(t *testing.T) {
	synonyms := []string{"Glyphosate", "glyphosate acid"}
	assert.True(t, MatchesSynonym(NormalizeName("GLYPHOSATE"), synonyms))
	assert.True(t, MatchesSynonym(NormalizeName("glyphosate  acid"), synonyms))
	assert.False(t, MatchesSynonym(NormalizeName("glyphosat"), synonyms))
	assert.False(t, MatchesSynonym("", synonyms))
}
