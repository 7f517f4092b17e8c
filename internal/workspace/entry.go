package workspace

import (
	"sync"
	"time"

	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/listing"
)

// Backend list scopes. ScopeAll is the collection itself; the others are
// the backend's pre-filtered sibling views.
const (
	ScopeAll     = "all"
	ScopeBlocked = "blocked"
	ScopeDeleted = "deleted"
)

// State is what a list screen renders.
type State struct {
	listing.View[domain.Entity]
	Collection string         `json:"collection"`
	Scope      string         `json:"scope"`
	Source     domain.Source  `json:"source"`
	Notice     *domain.Notice `json:"notice,omitempty"`
	FetchedAt  *time.Time     `json:"fetched_at,omitempty"`
}

// IsDemo reports whether the rows are fallback demo data.
func (s State) IsDemo() bool { return s.Source == domain.SourceDemo }

// Entry is the list state of one collection in one session. The manager is
// only ever touched under the entry's lock.
type Entry struct {
	collection string

	mu        sync.Mutex
	list      *listing.Manager[domain.Entity]
	gen       listing.Generation
	scope     string
	source    domain.Source
	notice    *domain.Notice
	loaded    bool
	fetchedAt time.Time
}

func newEntry(collection string, m *listing.Manager[domain.Entity]) *Entry {
	return &Entry{collection: collection, list: m, scope: ScopeAll}
}

// Update runs fn with exclusive access to the list manager.
func (e *Entry) Update(fn func(m *listing.Manager[domain.Entity])) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.list)
}

// Snapshot captures the current state.
func (e *Entry) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// UpdateSnapshot runs fn then captures the resulting state atomically.
func (e *Entry) UpdateSnapshot(fn func(m *listing.Manager[domain.Entity])) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.list)
	return e.snapshot()
}

func (e *Entry) snapshot() State {
	s := State{
		View:       e.list.Snapshot(),
		Collection: e.collection,
		Scope:      e.scope,
		Source:     e.source,
		Notice:     e.notice,
	}
	if e.loaded {
		t := e.fetchedAt
		s.FetchedAt = &t
	}
	return s
}

// Loaded reports whether a fetch has completed for the current scope.
func (e *Entry) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Scope returns the backend view the rows come from.
func (e *Entry) Scope() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scope
}

// SetScope switches the backend view. A change marks the rows as stale and
// discards fetches still in flight for the old scope.
func (e *Entry) SetScope(scope string) bool {
	if scope == "" {
		scope = ScopeAll
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if scope == e.scope {
		return false
	}
	e.scope = scope
	e.loaded = false
	e.gen.Invalidate()
	return true
}

// Begin starts a fetch and returns its ticket.
func (e *Entry) Begin() uint64 {
	return e.gen.Begin()
}

// Invalidate discards every fetch in flight.
func (e *Entry) Invalidate() {
	e.gen.Invalidate()
}

// Current reports whether ticket belongs to the latest fetch.
func (e *Entry) Current(ticket uint64) bool {
	return e.gen.IsCurrent(ticket)
}

// Commit applies a fetch result if ticket is still the latest one, and
// reports whether it did. A nil notice clears the banner.
func (e *Entry) Commit(ticket uint64, items []domain.Entity, src domain.Source, notice *domain.Notice, at time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen.Apply(ticket, func() {
		e.list.SetItems(items)
		e.source = src
		e.notice = notice
		e.loaded = true
		e.fetchedAt = at
	})
}

// Notify replaces the banner.
func (e *Entry) Notify(n *domain.Notice) {
	e.mu.Lock()
	e.notice = n
	e.mu.Unlock()
}

// Dismiss clears the banner.
func (e *Entry) Dismiss() {
	e.Notify(nil)
}
