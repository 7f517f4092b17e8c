// Package envelope decodes the polymorphic list responses returned by the
// marketplace backend into one canonical item slice.
//
// Recognized shapes:
//
//	[ {...}, ... ]                              KindArray
//	{ "data": [ ... ] }                         KindData
//	{ "items": [ ... ] }                        KindItems
//	{ "pagination": { "total": n, "data": [...] } } KindPagination
//	{ "data": { "items" | "data": [ ... ] } }   KindNested
//
// Anything else is rejected with ErrUnrecognized rather than read as empty.
package envelope

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Kind identifies which envelope shape a response used.
type Kind int

const (
	KindUnknown Kind = iota
	KindArray
	KindData
	KindItems
	KindPagination
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindData:
		return "data"
	case KindItems:
		return "items"
	case KindPagination:
		return "pagination"
	case KindNested:
		return "nested"
	default:
		return "unknown"
	}
}

var (
	// ErrMalformed reports a body that is not valid JSON.
	ErrMalformed = errors.New("envelope: malformed JSON")
	// ErrUnrecognized reports valid JSON in none of the known shapes.
	ErrUnrecognized = errors.New("envelope: unrecognized response shape")
)

// Envelope is a decoded list response.
type Envelope struct {
	Kind  Kind
	Items []map[string]any
	// Total is the server-side total when the envelope carries one, else len(Items).
	Total int
}

// probe is one candidate item path, tried in order.
type probe struct {
	kind  Kind
	items string
	total string
}

var objectProbes = []probe{
	{kind: KindData, items: "data", total: "total"},
	{kind: KindItems, items: "items", total: "total"},
	{kind: KindPagination, items: "pagination.data", total: "pagination.total"},
	{kind: KindNested, items: "data.items", total: "data.total"},
	{kind: KindNested, items: "data.data", total: "data.total"},
}

// Decode extracts the item array from body.
func Decode(body []byte) (Envelope, error) {
	if !gjson.ValidBytes(body) {
		return Envelope{}, ErrMalformed
	}
	root := gjson.ParseBytes(body)

	if root.IsArray() {
		items, err := objects(root)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Kind: KindArray, Items: items, Total: len(items)}, nil
	}

	if !root.IsObject() {
		return Envelope{}, fmt.Errorf("%w: top-level %s", ErrUnrecognized, root.Type)
	}

	for _, p := range objectProbes {
		arr := root.Get(p.items)
		if !arr.IsArray() {
			continue
		}
		items, err := objects(arr)
		if err != nil {
			return Envelope{}, err
		}
		total := len(items)
		if t := root.Get(p.total); t.Type == gjson.Number && t.Int() >= int64(total) {
			total = int(t.Int())
		}
		return Envelope{Kind: p.kind, Items: items, Total: total}, nil
	}

	return Envelope{}, fmt.Errorf("%w: object without data, items or pagination.data array", ErrUnrecognized)
}

func objects(arr gjson.Result) ([]map[string]any, error) {
	elems := arr.Array()
	items := make([]map[string]any, 0, len(elems))
	for i, elem := range elems {
		if !elem.IsObject() {
			return nil, fmt.Errorf("%w: element %d is %s, not an object", ErrUnrecognized, i, elem.Type)
		}
		m, ok := elem.Value().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d", ErrUnrecognized, i)
		}
		items = append(items, m)
	}
	return items, nil
}
