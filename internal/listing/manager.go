// Package listing implements the client-side list pipeline shared by every
// dashboard screen: free-text search and status/type filters over a fetched
// collection, single-key stable sorting, pagination and page-scoped
// multi-selection for bulk actions.
//
// A Manager is owned by a single writer. All outputs are derived from its
// state after every transition; none of them is independently mutable.
package listing

import (
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// All is the filter sentinel meaning "do not filter on this field".
const All = "all"

// DefaultPageSize is used when Options.PageSize or SetPageSize gets a value below 1.
const DefaultPageSize = 10

// DefaultLocale drives string collation when Options.Locale is unset.
var DefaultLocale = language.French

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses "asc" or "desc" (case-insensitive).
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Asc):
		return Asc, true
	case string(Desc):
		return Desc, true
	default:
		return "", false
	}
}

// Options parameterizes a Manager for one kind of row.
type Options[T any] struct {
	// ID returns the stable identifier used as selection and row key. Required.
	ID func(T) string
	// Status and Type feed the exact-match filters. A nil func disables its filter.
	Status func(T) string
	Type   func(T) string
	// Matches reports whether item matches a non-empty, trimmed search term.
	// A nil func disables free-text search.
	Matches func(item T, term string) bool
	// SortValue returns the value compared for key. nil values sort last.
	SortValue func(item T, key string) any
	PageSize  int
	Locale    language.Tag
}

// Manager derives filtered, sorted and paginated views of a raw collection
// and tracks the rows selected for bulk actions.
type Manager[T any] struct {
	opts Options[T]
	cmp  *comparer

	raw      []T
	search   string
	status   string
	kind     string
	sortKey  string
	sortDir  Direction
	page     int
	pageSize int

	selected map[string]struct{}
	// restore holds the selection that preceded the last select-all, so a
	// second ToggleSelectAllOnPage can undo it exactly. Any other transition
	// clears it.
	restore map[string]struct{}

	filtered []T
	sorted   []T
}

// New creates an empty Manager. It panics if opts.ID is nil.
func New[T any](opts Options[T]) *Manager[T] {
	if opts.ID == nil {
		panic("listing.New: Options.ID must not be nil")
	}
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	m := &Manager[T]{
		opts:     opts,
		cmp:      newComparer(opts.Locale),
		status:   All,
		kind:     All,
		page:     1,
		pageSize: opts.PageSize,
		selected: make(map[string]struct{}),
	}
	m.refresh()
	return m
}

// SetItems replaces the raw collection. Later duplicates of an identifier are
// dropped. Filters and sort are kept; the page falls back to 1 only when the
// new collection makes it invalid.
func (m *Manager[T]) SetItems(items []T) {
	seen := make(map[string]struct{}, len(items))
	raw := make([]T, 0, len(items))
	for _, item := range items {
		id := m.opts.ID(item)
		if id != "" {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		raw = append(raw, item)
	}
	m.raw = raw
	m.derive()
	if m.page > m.TotalPages() {
		m.page = 1
	}
	m.settle()
}

// SetSearchTerm sets the free-text filter and resets the page to 1.
func (m *Manager[T]) SetSearchTerm(term string) {
	m.search = term
	m.page = 1
	m.refresh()
}

// SetStatusFilter filters on the exact status value, or clears the filter for All or "".
func (m *Manager[T]) SetStatusFilter(value string) {
	m.status = normalizeFilter(value)
	m.page = 1
	m.refresh()
}

// SetTypeFilter filters on the exact type value, or clears the filter for All or "".
func (m *Manager[T]) SetTypeFilter(value string) {
	m.kind = normalizeFilter(value)
	m.page = 1
	m.refresh()
}

// RequestSort sorts by key. Requesting the active key toggles the direction;
// a new key starts ascending.
func (m *Manager[T]) RequestSort(key string) {
	if key == "" {
		return
	}
	if m.sortKey == key {
		if m.sortDir == Asc {
			m.sortDir = Desc
		} else {
			m.sortDir = Asc
		}
	} else {
		m.sortKey = key
		m.sortDir = Asc
	}
	m.refresh()
}

// SetSort sets an explicit sort key and direction. An empty key restores fetch order.
func (m *Manager[T]) SetSort(key string, dir Direction) {
	if dir != Desc {
		dir = Asc
	}
	m.sortKey = key
	m.sortDir = dir
	if key == "" {
		m.sortDir = ""
	}
	m.refresh()
}

// ClearSort restores fetch order.
func (m *Manager[T]) ClearSort() {
	m.SetSort("", "")
}

// SetPage moves to page n, clamped to [1, TotalPages()].
func (m *Manager[T]) SetPage(n int) {
	m.page = min(max(n, 1), m.TotalPages())
	m.settle()
}

// SetPageSize changes the page size (values below 1 mean DefaultPageSize) and resets the page to 1.
func (m *Manager[T]) SetPageSize(n int) {
	if n < 1 {
		n = DefaultPageSize
	}
	m.pageSize = n
	m.page = 1
	m.settle()
}

// ToggleSelect flips the selection of id. Identifiers that are not on the
// current page are ignored.
func (m *Manager[T]) ToggleSelect(id string) {
	if !slices.Contains(m.pageIDs(), id) {
		return
	}
	if _, ok := m.selected[id]; ok {
		delete(m.selected, id)
	} else {
		m.selected[id] = struct{}{}
	}
	m.restore = nil
}

// ToggleSelectAllOnPage selects every row of the current page, or, when they
// are all selected already, returns to the selection held before the
// matching select-all (or to none).
func (m *Manager[T]) ToggleSelectAllOnPage() {
	ids := m.pageIDs()
	if len(ids) == 0 {
		return
	}
	if m.IsAllOnPageSelected() {
		if m.restore != nil {
			m.selected = m.restore
		} else {
			for _, id := range ids {
				delete(m.selected, id)
			}
		}
		m.restore = nil
		return
	}
	m.restore = maps.Clone(m.selected)
	for _, id := range ids {
		m.selected[id] = struct{}{}
	}
}

// ClearSelection deselects everything.
func (m *Manager[T]) ClearSelection() {
	clear(m.selected)
	m.restore = nil
}

// Items returns the raw collection in fetch order.
func (m *Manager[T]) Items() []T { return slices.Clone(m.raw) }

// Filtered returns the raw items that pass search and filters, in fetch order.
func (m *Manager[T]) Filtered() []T { return slices.Clone(m.filtered) }

// Sorted returns the filtered items in sort order (fetch order when unsorted).
func (m *Manager[T]) Sorted() []T { return slices.Clone(m.sorted) }

// Paginated returns the rows of the current page. It is empty when the page
// lies beyond the derived page count or the filtered set is empty.
func (m *Manager[T]) Paginated() []T {
	start := (m.page - 1) * m.pageSize
	if start >= len(m.sorted) {
		return []T{}
	}
	end := min(start+m.pageSize, len(m.sorted))
	return slices.Clone(m.sorted[start:end])
}

// TotalPages is max(1, ceil(len(Filtered()) / PageSize())).
func (m *Manager[T]) TotalPages() int {
	return max(1, (len(m.filtered)+m.pageSize-1)/m.pageSize)
}

func (m *Manager[T]) Page() int            { return m.page }
func (m *Manager[T]) PageSize() int        { return m.pageSize }
func (m *Manager[T]) SearchTerm() string   { return m.search }
func (m *Manager[T]) StatusFilter() string { return m.status }
func (m *Manager[T]) TypeFilter() string   { return m.kind }

// Sort returns the active sort key and direction; key is "" when unsorted.
func (m *Manager[T]) Sort() (string, Direction) { return m.sortKey, m.sortDir }

// SelectedIDs returns the selected identifiers in page order.
func (m *Manager[T]) SelectedIDs() []string {
	ids := make([]string, 0, len(m.selected))
	for _, id := range m.pageIDs() {
		if _, ok := m.selected[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Selected returns the selected rows in page order.
func (m *Manager[T]) Selected() []T {
	items := make([]T, 0, len(m.selected))
	for _, item := range m.Paginated() {
		if _, ok := m.selected[m.opts.ID(item)]; ok {
			items = append(items, item)
		}
	}
	return items
}

// IsSelected reports whether id is selected.
func (m *Manager[T]) IsSelected(id string) bool {
	_, ok := m.selected[id]
	return ok
}

func (m *Manager[T]) SelectedCount() int { return len(m.selected) }

// CanBulk reports whether bulk actions may be offered.
func (m *Manager[T]) CanBulk() bool { return len(m.selected) > 0 }

// IsAllOnPageSelected reports whether the page has rows and all of them are selected.
func (m *Manager[T]) IsAllOnPageSelected() bool {
	ids := m.pageIDs()
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if _, ok := m.selected[id]; !ok {
			return false
		}
	}
	return true
}

// Find returns the raw item with the given identifier.
func (m *Manager[T]) Find(id string) (T, bool) {
	for _, item := range m.raw {
		if m.opts.ID(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// refresh re-derives the views after a filter or sort change.
func (m *Manager[T]) refresh() {
	m.derive()
	m.settle()
}

// settle clamps the page and prunes the selection to the rows still on it.
func (m *Manager[T]) settle() {
	m.page = min(max(m.page, 1), m.TotalPages())
	m.restore = nil
	if len(m.selected) == 0 {
		return
	}
	onPage := make(map[string]struct{}, m.pageSize)
	for _, id := range m.pageIDs() {
		onPage[id] = struct{}{}
	}
	maps.DeleteFunc(m.selected, func(id string, _ struct{}) bool {
		_, ok := onPage[id]
		return !ok
	})
}

func (m *Manager[T]) derive() {
	filtered := make([]T, 0, len(m.raw))
	term := strings.TrimSpace(m.search)
	for _, item := range m.raw {
		if m.keep(item, term) {
			filtered = append(filtered, item)
		}
	}
	m.filtered = filtered

	sorted := slices.Clone(filtered)
	if m.sortKey != "" && m.opts.SortValue != nil {
		key, desc := m.sortKey, m.sortDir == Desc
		slices.SortStableFunc(sorted, func(a, b T) int {
			va, vb := m.opts.SortValue(a, key), m.opts.SortValue(b, key)
			switch {
			case va == nil && vb == nil:
				return 0
			case va == nil:
				return 1
			case vb == nil:
				return -1
			}
			c := m.cmp.compare(va, vb)
			if desc {
				return -c
			}
			return c
		})
	}
	m.sorted = sorted
}

func (m *Manager[T]) keep(item T, term string) bool {
	if m.status != All && m.opts.Status != nil && m.opts.Status(item) != m.status {
		return false
	}
	if m.kind != All && m.opts.Type != nil && m.opts.Type(item) != m.kind {
		return false
	}
	if term != "" && m.opts.Matches != nil && !m.opts.Matches(item, term) {
		return false
	}
	return true
}

func (m *Manager[T]) pageIDs() []string {
	start := (m.page - 1) * m.pageSize
	if start >= len(m.sorted) {
		return nil
	}
	end := min(start+m.pageSize, len(m.sorted))
	ids := make([]string, 0, end-start)
	for _, item := range m.sorted[start:end] {
		if id := m.opts.ID(item); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func normalizeFilter(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return All
	}
	return v
}
