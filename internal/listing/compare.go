package listing

import (
	"cmp"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// comparer orders sort values. A collator keeps internal buffers and is not
// safe for concurrent use, so each Manager owns its own comparer.
type comparer struct {
	col *collate.Collator
}

func newComparer(tag language.Tag) *comparer {
	if tag == language.Und {
		tag = DefaultLocale
	}
	return &comparer{col: collate.New(tag)}
}

// compare returns -1, 0 or +1. Strings use locale collation, numbers and times
// compare by value, and mixed kinds fall back to collating their string forms.
// Callers handle nil before calling compare.
func (c *comparer) compare(a, b any) int {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return c.col.CompareString(as, bs)
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return cmp.Compare(af, bf)
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	return c.col.CompareString(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
