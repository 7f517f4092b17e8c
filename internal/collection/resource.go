// Package collection serves one marketplace collection (users, exchanges,
// messages) through the generic list pipeline: it fetches rows from the
// backend, keeps the per-session list state, runs single and bulk actions and
// exports CSV.
package collection

import (
	"slices"
	"strings"

	"golang.org/x/text/language"

	"github.com/simp-lee/marketdesk/internal/bulk"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/export"
	"github.com/simp-lee/marketdesk/internal/listing"
	"github.com/simp-lee/marketdesk/internal/workspace"
)

// Resource describes a collection: where it lives on the backend, which
// fields drive the list pipeline and which actions it offers.
type Resource struct {
	// Name is the collection name used in routes and session keys.
	Name string
	// Label is the page title.
	Label string
	// Entity names exported files.
	Entity string
	// Path is the backend endpoint, relative to the backend base URL.
	Path string

	StatusField  string
	TypeField    string
	SearchFields []string
	// Search, when set, adds derived strings to the searchable fields.
	Search   func(domain.Entity) []string
	SortKeys []string

	Statuses []string
	Types    []string

	// Scopes lists the backend views besides workspace.ScopeAll. ScopeStatus
	// maps each of them to the status its rows carry, which is how demo rows
	// are narrowed to a view.
	Scopes      []string
	ScopeStatus map[string]string

	Actions []bulk.Action
	// Verbs maps an action to its backend verb when they differ.
	Verbs map[bulk.Action]string

	Columns []export.Column
	// Display lists the fields shown as table columns.
	Display []export.Column

	TitleField   string
	PublishField string
}

// Options returns the list pipeline configuration of the collection.
func (r *Resource) Options(pageSize int, tag language.Tag) listing.Options[domain.Entity] {
	opts := listing.Options[domain.Entity]{
		ID:        domain.Entity.ID,
		SortValue: sortValue,
		PageSize:  pageSize,
		Locale:    tag,
		Matches:   listing.FieldMatcher(r.searchable),
	}
	if r.StatusField != "" {
		field := r.StatusField
		opts.Status = func(e domain.Entity) string { return e.String(field) }
	}
	if r.TypeField != "" {
		field := r.TypeField
		opts.Type = func(e domain.Entity) string { return lookupString(e, field) }
	}
	return opts
}

func (r *Resource) searchable(e domain.Entity) []string {
	out := make([]string, 0, len(r.SearchFields)+2)
	for _, f := range r.SearchFields {
		out = append(out, lookupString(e, f))
	}
	if r.Search != nil {
		out = append(out, r.Search(e)...)
	}
	return out
}

// sortValue resolves key and turns ISO-8601 strings into time.Time so that
// timestamps compare chronologically.
func sortValue(e domain.Entity, key string) any {
	v, ok := e.Lookup(key)
	if !ok || v == nil {
		return nil
	}
	if s, isStr := v.(string); isStr && looksLikeTime(s) {
		if t, parsed := domain.ParseTime(s); parsed {
			return t
		}
	}
	return v
}

func looksLikeTime(s string) bool {
	return len(s) >= len("2006-01-02") && s[4] == '-' && s[7] == '-'
}

func lookupString(e domain.Entity, path string) string {
	v, ok := e.Lookup(path)
	if !ok {
		return ""
	}
	return domain.Stringify(v)
}

// Allows reports whether action is offered by the collection.
func (r *Resource) Allows(action bulk.Action) bool {
	return slices.Contains(r.Actions, action)
}

// Verb returns the backend verb of action.
func (r *Resource) Verb(action bulk.Action) string {
	if v, ok := r.Verbs[action]; ok {
		return v
	}
	return string(action)
}

// HasScope reports whether scope names a view of the collection.
func (r *Resource) HasScope(scope string) bool {
	return scope == "" || scope == workspace.ScopeAll || slices.Contains(r.Scopes, scope)
}

// HasSortKey reports whether key is sortable.
func (r *Resource) HasSortKey(key string) bool {
	return slices.Contains(r.SortKeys, key)
}

// DuplicatePayload builds the creation payload of a copy of item: identifiers
// and timestamps are dropped, the title gets a " (copie)" suffix and the copy
// starts unpublished.
func (r *Resource) DuplicatePayload(item domain.Entity) map[string]any {
	payload := item.Clone()
	for k := range payload {
		if strings.HasPrefix(k, "_") || k == "id" || k == "created_at" || k == "updated_at" {
			delete(payload, k)
		}
	}
	if r.TitleField != "" {
		if title := item.String(r.TitleField); title != "" {
			payload[r.TitleField] = title + " (copie)"
		}
	}
	if r.PublishField != "" {
		payload[r.PublishField] = false
	}
	return payload
}

// Cell renders the value of a display column.
func Cell(col export.Column, e domain.Entity) string {
	if col.Format != nil {
		return col.Format(e)
	}
	return lookupString(e, col.Field)
}
