package domain

import (
	"testing"
	"time"
)

func TestEntity_ID(t *testing.T) {
	tests := []struct {
		name string
		e    Entity
		want string
	}{
		{"string id", Entity{"id": "u-1"}, "u-1"},
		{"numeric id", Entity{"id": float64(42)}, "42"},
		{"mongo style id", Entity{"_id": "64f0c2"}, "64f0c2"},
		{"id wins over _id", Entity{"id": "a", "_id": "b"}, "a"},
		{"missing", Entity{"name": "x"}, ""},
		{"null id", Entity{"id": nil, "_id": "b"}, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.ID(); got != tt.want {
				t.Errorf("ID() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	got, ok := ParseTime("2025-03-01T10:00:00Z")
	if !ok || !got.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseTime(RFC 3339) = %v, %v", got, ok)
	}
	for s, want := range map[string]bool{
		"2025-03-01":          true,
		"2025-03-01 08:30:00": true,
		"yesterday":           false,
		"":                    false,
	} {
		if _, ok := ParseTime(s); ok != want {
			t.Errorf("ParseTime(%q) ok = %v, want %v", s, ok, want)
		}
	}
}

func TestEntity_Lookup(t *testing.T) {
	e := Entity{"vendor": map[string]any{"name": "Boutique Awa", "address": map[string]any{"city": "Dakar"}}}
	v, ok := e.Lookup("vendor.address.city")
	if !ok || v != "Dakar" {
		t.Errorf("Lookup() = %v, %v; want Dakar", v, ok)
	}
	if _, ok := e.Lookup("vendor.phone"); ok {
		t.Error("Lookup() on a missing key should fail")
	}
	if _, ok := e.Lookup("vendor.name.first"); ok {
		t.Error("Lookup() through a scalar should fail")
	}
}

func TestEntity_CloneIsIndependent(t *testing.T) {
	e := Entity{"id": "1", "title": "Vélo"}
	c := e.Clone()
	c["title"] = "Vélo (copie)"
	if e["title"] != "Vélo" {
		t.Errorf("original mutated: %v", e["title"])
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{float64(12.5), "12.5"},
		{float64(3), "3"},
		{7, "7"},
		{true, "true"},
		{[]any{"a", float64(1)}, `["a",1]`},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
