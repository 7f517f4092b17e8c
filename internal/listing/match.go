package listing

import (
	"strings"

	"golang.org/x/text/cases"
)

// FieldMatcher builds an Options.Matches func that looks for the term,
// case-folded, as a substring of any of the strings returned by fields.
func FieldMatcher[T any](fields func(T) []string) func(T, string) bool {
	return func(item T, term string) bool {
		fold := cases.Fold()
		needle := fold.String(strings.TrimSpace(term))
		if needle == "" {
			return true
		}
		for _, f := range fields(item) {
			if f != "" && strings.Contains(fold.String(f), needle) {
				return true
			}
		}
		return false
	}
}
