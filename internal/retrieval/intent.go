package retrieval

import (
	"regexp"
	"strings"
)

// categoryEntry maps a plan category to the query substrings that trigger it.
// Order matters: the first category with a matching trigger wins, so the
// entries are a slice rather than a map.
type categoryEntry struct {
	category string
	keywords []string
}

// categoryKeywords is the intent-detection trigger table.
var categoryKeywords = []categoryEntry{
	{"prepaid", []string{"prepaid", "pre-paid", "speedstream", "nx", "uv", "one time pass", "otp"}},
	{"postpaid", []string{"postpaid", "post-paid", "one pro", "one ultra", "signature", "family", "gadgetsim", "watchsim"}},
	{"fibre", []string{"fibre", "fiber", "fttr", "home wifi", "home internet", "broadband"}},
	{"roaming", []string{"roaming", "travel", "overseas", "abroad", "international"}},
	{"devices", []string{"phone", "device", "iphone", "samsung", "android", "tablet"}},
}

// productIdentifiers are specific product names that trigger strong
// metadata/URL matching during reranking.
var productIdentifiers = []string{
	"uv",
	"nx",
	"speedstream",
	"one pro",
	"one ultra",
	"signature",
	"family",
	"fttr",
}

// stopWords are filtered from query terms before keyword boosting.
var stopWords = map[string]bool{
	"the":   true,
	"and":   true,
	"for":   true,
	"with":  true,
	"tell":  true,
	"about": true,
	"can":   true,
	"you":   true,
	"me":    true,
}

// questionPattern detects queries phrased as questions. FAQ chunks are only
// competitive when the user is actually asking one.
var questionPattern = regexp.MustCompile(`\b(how|what|when|where|why|can|is|are)\b`)

// Categories returns the known plan category labels in trigger-table order.
func Categories() []string {
	out := make([]string, len(categoryKeywords))
	for i, entry := range categoryKeywords {
		out[i] = entry.category
	}
	return out
}

// ExtractQueryIntent derives a category label from raw query text by
// substring matching against the trigger table. Returns "" when no category
// matches. Computed per request, never persisted.
func ExtractQueryIntent(query string) string {
	queryLower := strings.ToLower(query)

	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(queryLower, kw) {
				return entry.category
			}
		}
	}

	return ""
}

// queryTerms tokenizes the query on whitespace, lower-cases, and drops
// single-character tokens and stop words.
func queryTerms(query string) []string {
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len(t) > 1 && !stopWords[t] {
			terms = append(terms, t)
		}
	}
	return terms
}

// activeProductFilters returns the product identifiers that literally appear
// in the query. These drive a stronger, more surgical boost than generic
// keyword matching.
func activeProductFilters(query string) []string {
	queryLower := strings.ToLower(query)

	var active []string
	for _, id := range productIdentifiers {
		if strings.Contains(queryLower, id) {
			active = append(active, id)
		}
	}
	return active
}
