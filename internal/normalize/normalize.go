// Package normalize canonicalizes column names, categorical values, and
// free text before they reach the labeler or the vectorizer.
package normalize

import (
	"regexp"
	"strings"
)

// nonAlnumRun matches every maximal run of characters outside [a-z0-9].
var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// Identifier canonicalizes a column name or categorical filter value:
// trim, lowercase, collapse each run of non-[a-z0-9] characters into a
// single underscore, and strip leading/trailing underscores.
//
//	"Consumer complaint narrative" -> "consumer_complaint_narrative"
//	"Credit card or prepaid card"  -> "credit_card_or_prepaid_card"
//
// Identifier is idempotent and defined for every string (including "").
func Identifier(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = nonAlnumRun.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// Text applies the preprocessing clean used before vectorizing:
// surrounding whitespace is removed and the text is lowercased.
func Text(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
