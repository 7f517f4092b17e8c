package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

// Collection names the marketplace collections the dashboard manages.
const (
	CollectionUsers     = "users"
	CollectionExchanges = "exchanges"
	CollectionMessages  = "messages"
)

// Entity is one row of marketplace data (user, exchange, message) exactly as
// decoded from the backend. Entities are treated as immutable: every change is
// round-tripped through the backend and followed by a refetch.
type Entity map[string]any

// ID returns the entity identifier rendered as a string. Backends use either
// "id" or "_id"; numeric identifiers are formatted without a decimal part.
func (e Entity) ID() string {
	if id := e.String("id"); id != "" {
		return id
	}
	return e.String("_id")
}

// String returns the value under key rendered as a string, or "" when absent or null.
func (e Entity) String(key string) string {
	v, ok := e[key]
	if !ok {
		return ""
	}
	return Stringify(v)
}

// ParseTime parses the timestamp layouts backends are known to send.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Lookup resolves a dotted path ("vendor.name") through nested objects.
func (e Entity) Lookup(path string) (any, bool) {
	var cur any = map[string]any(e)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Clone returns a shallow copy of the entity.
func (e Entity) Clone() Entity {
	return maps.Clone(e)
}

// Stringify renders a decoded JSON value for display, search and export.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Entity:
		return m, true
	default:
		return nil, false
	}
}

// Source tells where the items of a list view came from.
type Source string

const (
	SourceBackend Source = "backend"
	SourceDemo    Source = "demo"
)

// Notice levels, rendered as dismissible banners.
const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is a non-fatal message surfaced to the dashboard user.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// NewNotice creates a Notice with the given level and message.
func NewNotice(level, message string) *Notice {
	return &Notice{Level: level, Message: message}
}
