package listing

// View is a serialisable snapshot of a Manager's derived state, used as the
// list payload of the dashboard API and pages.
type View[T any] struct {
	Items             []T       `json:"items"`
	Total             int       `json:"total"`
	RawCount          int       `json:"raw_count"`
	Page              int       `json:"page"`
	PageSize          int       `json:"page_size"`
	TotalPages        int       `json:"total_pages"`
	Search            string    `json:"search"`
	Status            string    `json:"status"`
	Type              string    `json:"type"`
	SortKey           string    `json:"sort_key,omitempty"`
	SortDirection     Direction `json:"sort_direction,omitempty"`
	SelectedIDs       []string  `json:"selected_ids"`
	SelectedCount     int       `json:"selected_count"`
	AllOnPageSelected bool      `json:"all_on_page_selected"`
	CanBulk           bool      `json:"can_bulk"`
}

// HasPrev reports whether a previous page exists.
func (v View[T]) HasPrev() bool { return v.Page > 1 }

// HasNext reports whether a next page exists.
func (v View[T]) HasNext() bool { return v.Page < v.TotalPages }

// Snapshot captures the current derived state.
func (m *Manager[T]) Snapshot() View[T] {
	return View[T]{
		Items:             m.Paginated(),
		Total:             len(m.filtered),
		RawCount:          len(m.raw),
		Page:              m.page,
		PageSize:          m.pageSize,
		TotalPages:        m.TotalPages(),
		Search:            m.search,
		Status:            m.status,
		Type:              m.kind,
		SortKey:           m.sortKey,
		SortDirection:     m.sortDir,
		SelectedIDs:       m.SelectedIDs(),
		SelectedCount:     len(m.selected),
		AllOnPageSelected: m.IsAllOnPageSelected(),
		CanBulk:           m.CanBulk(),
	}
}
