package listing

import "sync"

// Generation tags fetches with a monotonic ticket so that only the result of
// the latest fetch is applied. Results of superseded fetches, or of fetches
// started before Invalidate, are discarded.
type Generation struct {
	mu      sync.Mutex
	current uint64
}

// Begin starts a new fetch and returns its ticket. Earlier tickets become stale.
func (g *Generation) Begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	return g.current
}

// Invalidate makes every outstanding ticket stale.
func (g *Generation) Invalidate() {
	g.mu.Lock()
	g.current++
	g.mu.Unlock()
}

// IsCurrent reports whether ticket belongs to the latest fetch.
func (g *Generation) IsCurrent(ticket uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ticket == g.current
}

// Apply runs fn only if ticket is still current, and reports whether it ran.
// fn runs under the generation lock, so it must not call back into g.
func (g *Generation) Apply(ticket uint64, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ticket != g.current {
		return false
	}
	fn()
	return true
}
