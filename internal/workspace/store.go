// Package workspace keeps the per-session list state of the dashboard: one
// list manager per (session, collection), expired after a period of
// inactivity.
package workspace

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/listing"
)

// Factory builds the empty list manager of a collection.
type Factory func(collection string) *listing.Manager[domain.Entity]

// Store maps (session, collection) to an Entry. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, *Entry]
	factory Factory
}

// NewStore creates a Store holding at most size entries, each dropped after
// ttl without access.
func NewStore(size int, ttl time.Duration, factory Factory) *Store {
	if size < 1 {
		size = 1
	}
	return &Store{
		entries: expirable.NewLRU[string, *Entry](size, nil, ttl),
		factory: factory,
	}
}

// Get returns the entry for session and collection, creating it on first
// use. Every access restarts the entry's idle timer.
func (s *Store) Get(session, collection string) *Entry {
	k := key(session, collection)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries.Get(k)
	if !ok {
		e = newEntry(collection, s.factory(collection))
	}
	s.entries.Add(k, e)
	return e
}

// Drop forgets every entry of session.
func (s *Store) Drop(session string) {
	prefix := session + "\x00"
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.entries.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.entries.Remove(k)
		}
	}
}

// Purge forgets every entry.
func (s *Store) Purge() {
	s.entries.Purge()
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.entries.Len()
}

func key(session, collection string) string {
	return session + "\x00" + collection
}
