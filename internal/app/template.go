package app

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/render"

	"github.com/simp-lee/marketdesk/internal/bulk"
	"github.com/simp-lee/marketdesk/internal/collection"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/listing"
	"github.com/simp-lee/marketdesk/internal/workspace"
)

// TemplateRenderer is the gin HTML renderer of the dashboard. Every page under
// templates/ is compiled on top of a shared base set made of
// templates/layouts/*.html and templates/partials/*.html, so full pages call
// {{ template "base" . }} while htmx fragments such as collection/table.html
// render a partial directly.
//
// Debug mode re-reads the filesystem on each render; release mode compiles
// once at startup.
type TemplateRenderer struct {
	templates map[string]*template.Template // release mode only
	fs        fs.FS
	funcMap   template.FuncMap
	debug     bool
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer creates a TemplateRenderer reading templates/ from fsys,
// which is os.DirFS("web") in debug mode and web.EmbeddedFS otherwise.
func NewTemplateRenderer(fsys fs.FS, debug bool) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		fs:      fsys,
		funcMap: templateFuncMap(),
		debug:   debug,
	}

	if !debug {
		templates, err := r.parseAllTemplates()
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		r.templates = templates
	}

	return r, nil
}

// Instance implements render.HTMLRender. name is relative to templates/,
// e.g. "collection/list.html".
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	templates := r.templates
	if r.debug {
		var err error
		if templates, err = r.parseAllTemplates(); err != nil {
			return &HTMLInstance{Name: name, err: err}
		}
	}
	return &HTMLInstance{
		Template: templates[name],
		Name:     name,
		Data:     data,
	}
}

// parseAllTemplates compiles every page into its own clone of the base set,
// keyed by its path relative to templates/.
func (r *TemplateRenderer) parseAllTemplates() (map[string]*template.Template, error) {
	base, err := r.parseBase()
	if err != nil {
		return nil, err
	}

	pageFiles, err := r.discoverPageTemplates()
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}

	templates := make(map[string]*template.Template, len(pageFiles))
	for _, pf := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone base for %s: %w", pf, err)
		}
		content, err := fs.ReadFile(r.fs, pf)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", pf, err)
		}
		name := strings.TrimPrefix(pf, "templates/")
		if _, err := clone.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", pf, err)
		}
		templates[name] = clone
	}

	return templates, nil
}

func (r *TemplateRenderer) parseBase() (*template.Template, error) {
	var files []string
	for _, pattern := range []string{"templates/layouts/*.html", "templates/partials/*.html"} {
		matches, err := fs.Glob(r.fs, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}

	base := template.New("").Funcs(r.funcMap)
	for _, f := range files {
		content, err := fs.ReadFile(r.fs, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := base.New(f).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
	}
	return base, nil
}

// discoverPageTemplates lists the .html files under templates/ outside
// layouts/ and partials/.
func (r *TemplateRenderer) discoverPageTemplates() ([]string, error) {
	var pages []string
	err := fs.WalkDir(r.fs, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		rel := strings.TrimPrefix(path, "templates/")
		if strings.HasPrefix(rel, "layouts/") || strings.HasPrefix(rel, "partials/") {
			return nil
		}
		pages = append(pages, path)
		return nil
	})
	return pages, err
}

// templateFuncMap returns the default set of template helper functions.
func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		// json marshals v to a JSON string and returns it as template.JS so it
		// can be embedded in hx-vals and inline scripts.
		"json": func(v any) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return template.JS("null")
			}
			return template.JS(b)
		},

		// formatDate formats a time.Time value as "02/01/2006 15:04".
		"formatDate": func(t time.Time) string {
			return t.Format("02/01/2006 15:04")
		},

		// formatTimestamp formats a backend date string, or returns it as is
		// when it does not parse.
		"formatTimestamp": func(s string) string {
			if t, ok := domain.ParseTime(s); ok {
				return t.Format("02/01/2006 15:04")
			}
			return s
		},

		// cell renders one column of one row.
		"cell": collection.Cell,

		// selected reports whether id is in the selection.
		"selected": func(ids []string, id string) bool {
			return slices.Contains(ids, id)
		},

		// humanize turns a backend code such as "en_attente" into "En attente".
		"humanize": humanize,

		// sortMark returns the arrow shown next to the sorted column header.
		"sortMark": func(key string, sortKey string, dir listing.Direction) string {
			if key != sortKey {
				return ""
			}
			if dir == listing.Desc {
				return "▼"
			}
			return "▲"
		},

		// actionLabel is the button caption of a row or bulk action.
		"actionLabel": func(a bulk.Action) string {
			if l, ok := actionLabels[a]; ok {
				return l
			}
			return humanize(string(a))
		},

		// scopeLabel names a backend list view.
		"scopeLabel": func(scope string) string {
			switch scope {
			case workspace.ScopeBlocked:
				return "Bloqués"
			case workspace.ScopeDeleted:
				return "Supprimés"
			default:
				return "Tous"
			}
		},

		// pageSizes lists the page size choices.
		"pageSizes": func() []int { return []int{10, 25, 50, 100} },

		// add returns the sum of two integers (useful for pagination: page + 1).
		"add": func(a, b int) int {
			return a + b
		},

		// sub returns the difference of two integers (useful for pagination: page - 1).
		"sub": func(a, b int) int {
			return a - b
		},

		// seq generates a slice of integers from start to end inclusive
		// (useful for pagination page number links).
		"seq": func(start, end int) []int {
			if start > end {
				return nil
			}
			s := make([]int, 0, end-start+1)
			for i := start; i <= end; i++ {
				s = append(s, i)
			}
			return s
		},
	}
}

var actionLabels = map[bulk.Action]string{
	bulk.ActionPublish:   "Publier",
	bulk.ActionUnpublish: "Dépublier",
	bulk.ActionAccept:    "Accepter",
	bulk.ActionRefuse:    "Refuser",
	bulk.ActionDuplicate: "Dupliquer",
	bulk.ActionExport:    "Exporter",
	bulk.ActionDelete:    "Supprimer",
	bulk.ActionBlock:     "Bloquer",
	bulk.ActionUnblock:   "Débloquer",
	bulk.ActionRestore:   "Restaurer",
	bulk.ActionMarkRead:  "Marquer lu",
}

func humanize(code string) string {
	s := strings.ReplaceAll(strings.TrimSpace(code), "_", " ")
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// HTMLInstance executes one compiled page.
type HTMLInstance struct {
	Template *template.Template
	Name     string
	Data     any
	err      error // debug-mode parse failure
}

const htmlContentType = "text/html; charset=utf-8"

// Render implements render.Render.
func (h *HTMLInstance) Render(w http.ResponseWriter) error {
	h.WriteContentType(w)
	if h.err != nil {
		return h.err
	}
	if h.Template == nil {
		return fmt.Errorf("template %q not found", h.Name)
	}
	return h.Template.ExecuteTemplate(w, h.Name, h.Data)
}

// WriteContentType sets an HTML Content-Type unless one is already set.
func (h *HTMLInstance) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{htmlContentType}
	}
}
