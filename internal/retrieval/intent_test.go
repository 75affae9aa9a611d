package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractQueryIntent(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"explicit prepaid", "Tell me about the UV plan", "prepaid"},
		{"product name implies prepaid", "how much is speedstream", "prepaid"},
		{"explicit postpaid", "I want postpaid family plan", "postpaid"},
		{"postpaid product", "one ultra pricing", "postpaid"},
		{"fibre synonyms", "home internet options", "fibre"},
		{"american spelling", "fiber installation", "fibre"},
		{"roaming by travel", "data while travelling overseas", "roaming"},
		{"devices", "latest iphone deals", "devices"},
		{"case insensitive", "PREPAID TOP UP", "prepaid"},
		{"no category", "random unrelated text", ""},
		{"empty query", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractQueryIntent(tt.query))
		})
	}
}

func TestExtractQueryIntent_FirstMatchWins(t *testing.T) {
	// Both prepaid and fibre triggers appear; table order decides.
	assert.Equal(t, "prepaid", ExtractQueryIntent("prepaid or fibre?"))
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"prepaid", "postpaid", "fibre", "roaming", "devices"}, Categories())
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t,
		[]string{"uv", "plan", "pricing"},
		queryTerms("Tell me about the UV plan pricing"),
	)
	assert.Empty(t, queryTerms("me and you"))
	assert.Empty(t, queryTerms("a I"))
}

func TestActiveProductFilters(t *testing.T) {
	assert.Equal(t, []string{"speedstream"}, activeProductFilters("Speedstream plan please"))
	assert.Equal(t, []string{"one pro", "one ultra"}, activeProductFilters("compare one pro and one ultra"))
	assert.Empty(t, activeProductFilters("just browsing"))
}
