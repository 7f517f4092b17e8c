// Package export serialises selected entities into the dashboard's CSV
// download format.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/simp-lee/marketdesk/internal/domain"
)

// ContentType is the MIME type of exported files.
const ContentType = "text/csv; charset=utf-8"

// Column maps one CSV column to an entity field.
type Column struct {
	Header string
	// Field is a key or dotted path into the entity. Ignored when Format is set.
	Field  string
	Format func(domain.Entity) string
}

// File is an in-memory export ready to be sent as a download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// Filename returns "<entity>_export_<YYYY-MM-DD>_<count>_elements.csv".
func Filename(entity string, now time.Time, count int) string {
	return fmt.Sprintf("%s_export_%s_%d_elements.csv", entity, now.Format(time.DateOnly), count)
}

// CSV writes a header row then one row per item. Every field is double
// quoted, embedded quotes are doubled and commas inside values become
// semicolons. Lines are joined with "\n" without a trailing newline.
func CSV(entity string, cols []Column, items []domain.Entity, now time.Time) (f *File, err error) {
	if strings.TrimSpace(entity) == "" {
		return nil, errors.New("export: entity name is required")
	}
	if len(cols) == 0 {
		return nil, errors.New("export: no columns")
	}

	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fmt.Errorf("export: format %s: %v", entity, r)
		}
	}()

	var buf bytes.Buffer
	writeRow(&buf, len(cols), func(i int) string { return cols[i].Header })
	for _, item := range items {
		buf.WriteByte('\n')
		writeRow(&buf, len(cols), func(i int) string { return cols[i].value(item) })
	}

	return &File{
		Name:        Filename(entity, now, len(items)),
		ContentType: ContentType,
		Data:        buf.Bytes(),
		Rows:        len(items),
	}, nil
}

func (c Column) value(item domain.Entity) string {
	if c.Format != nil {
		return c.Format(item)
	}
	v, ok := item.Lookup(c.Field)
	if !ok {
		return ""
	}
	return domain.Stringify(v)
}

func writeRow(buf *bytes.Buffer, n int, cell func(int) string) {
	for i := range n {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(quote(cell(i)))
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, ",", ";")
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
