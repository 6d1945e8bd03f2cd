package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/azaharizaman/atomy-sub011/internal/screening/matching"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "JOHN SMITH", "john smith"},
		{"punctuation stripped", "O'Brien, John-Paul Jr.", "obrien johnpaul jr"},
		{"whitespace collapsed", "  john   smith  ", "john smith"},
		{"tabs and newlines", "john\tsmith\n", "john smith"},
		{"digits kept", "Company 21 Ltd", "company 21 ltd"},
		{"diacritics kept", "José María", "josé maría"},
		{"empty", "", ""},
		{"only punctuation", "!!--..", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, matching.NormalizeName(tt.input))
		})
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	names := []string{"John Smith", "  O'Brien ", "Société Générale S.A."}
	for _, name := range names {
		once := matching.NormalizeName(name)
		assert.Equal(t, once, matching.NormalizeName(once))
	}
}
