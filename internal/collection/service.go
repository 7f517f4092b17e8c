package collection

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/simp-lee/marketdesk/internal/bulk"
	"github.com/simp-lee/marketdesk/internal/demo"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/envelope"
	"github.com/simp-lee/marketdesk/internal/export"
	"github.com/simp-lee/marketdesk/internal/listing"
	"github.com/simp-lee/marketdesk/internal/pkg"
	"github.com/simp-lee/marketdesk/internal/workspace"
)

// Backend is the part of the marketplace REST client a collection uses.
type Backend interface {
	ListView(ctx context.Context, path, view string) (envelope.Envelope, error)
	Act(ctx context.Context, path, id, verb string) error
	Delete(ctx context.Context, path, id string) error
	Create(ctx context.Context, path string, payload map[string]any) error
}

// Selection operations.
const (
	OpToggle     = "toggle"
	OpTogglePage = "toggle_page"
	OpClear      = "clear"
)

// Export scopes.
const (
	ExportSelection = "selection"
	ExportFiltered  = "filtered"
)

const (
	demoNotice     = "Serveur injoignable : données de démonstration affichées"
	fetchFailed    = "Impossible de charger les données"
	actionFailed   = "L'action a échoué, veuillez réessayer"
	demoReadOnly   = "action impossible sur des données de démonstration"
	actionRejected = "action non disponible pour cette liste"
)

// Options configures a Service.
type Options struct {
	// DemoRows is the size of the fallback dataset. Zero disables the fallback.
	DemoRows int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service runs the list pipeline of one collection for every session.
type Service struct {
	res      *Resource
	backend  Backend
	store    *workspace.Store
	exec     *bulk.Executor
	demoRows int
	now      func() time.Time
}

// NewService creates a Service. It panics if res, b or store is nil.
func NewService(res *Resource, b Backend, store *workspace.Store, opts Options) *Service {
	if res == nil || b == nil || store == nil {
		panic("collection.NewService: resource, backend and store must not be nil")
	}
	s := &Service{
		res:      res,
		backend:  b,
		store:    store,
		demoRows: max(opts.DemoRows, 0),
		now:      opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.exec = bulk.NewExecutor(s, s.export)
	return s
}

// Resource returns the collection description.
func (s *Service) Resource() *Resource { return s.res }

// Perform applies action to one entity on the backend.
func (s *Service) Perform(ctx context.Context, action bulk.Action, item domain.Entity) error {
	if demo.IsDemo(item) {
		return domain.NewAppError(domain.CodeValidation, demoReadOnly, nil)
	}
	switch action {
	case bulk.ActionDelete:
		return s.backend.Delete(ctx, s.res.Path, item.ID())
	case bulk.ActionDuplicate:
		return s.backend.Create(ctx, s.res.Path, s.res.DuplicatePayload(item))
	default:
		return s.backend.Act(ctx, s.res.Path, item.ID(), s.res.Verb(action))
	}
}

func (s *Service) export(items []domain.Entity) (*export.File, error) {
	return export.CSV(s.res.Entity, s.res.Columns, items, s.now())
}

// Load applies the present list parameters to the session's list, fetching
// the rows first when they are not loaded yet, when the view changed or when
// a refresh is asked. Transitions run in a fixed order: search, status, type,
// sort, page size then page, so a requested page survives the filter resets.
//
// A failed fetch without demo fallback still returns the state, carrying the
// error notice, together with the error.
func (s *Service) Load(ctx context.Context, session string, p pkg.ListParams) (workspace.State, error) {
	e := s.store.Get(session, s.res.Name)
	if p.Sort != nil && p.Sort.Key != "" && !s.res.HasSortKey(p.Sort.Key) {
		return e.Snapshot(), domain.NewAppError(domain.CodeValidation, "tri non autorisé: "+p.Sort.Key, nil)
	}
	if p.Scope != nil {
		if !s.res.HasScope(*p.Scope) {
			return e.Snapshot(), domain.NewAppError(domain.CodeValidation, "vue inconnue: "+*p.Scope, nil)
		}
		e.SetScope(*p.Scope)
	}

	var fetchErr error
	if !e.Loaded() || p.Refresh {
		fetchErr = s.fetch(ctx, e)
	}

	st := e.UpdateSnapshot(func(m *listing.Manager[domain.Entity]) {
		if p.Search != nil {
			m.SetSearchTerm(*p.Search)
		}
		if p.Status != nil {
			m.SetStatusFilter(*p.Status)
		}
		if p.Type != nil {
			m.SetTypeFilter(*p.Type)
		}
		if p.Sort != nil {
			if p.Sort.Key == "" {
				m.ClearSort()
			} else {
				m.SetSort(p.Sort.Key, p.Sort.Dir)
			}
		}
		if p.PageSize != nil {
			m.SetPageSize(*p.PageSize)
		}
		if p.Page != nil {
			m.SetPage(*p.Page)
		}
	})
	return st, fetchErr
}

// State returns the session's list without fetching.
func (s *Service) State(session string) workspace.State {
	return s.store.Get(session, s.res.Name).Snapshot()
}

// fetch loads the rows of the entry's current view. When the backend fails
// and the fallback is enabled, demo rows are committed instead and flagged as
// such; otherwise the error is surfaced as a notice and returned.
func (s *Service) fetch(ctx context.Context, e *workspace.Entry) error {
	ticket := e.Begin()
	scope := e.Scope()
	view := scope
	if view == workspace.ScopeAll {
		view = ""
	}

	env, err := s.backend.ListView(ctx, s.res.Path, view)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return err
		}
		if !e.Current(ticket) {
			slog.DebugContext(ctx, "stale fetch failure ignored", "collection", s.res.Name, "view", scope, "error", err)
			return nil
		}
		if s.demoRows > 0 {
			slog.WarnContext(ctx, "backend unavailable, using demo data",
				"collection", s.res.Name,
				"view", scope,
				"error", err,
			)
			rows := s.demoFor(scope)
			e.Commit(ticket, rows, domain.SourceDemo, domain.NewNotice(domain.NoticeWarning, demoNotice), s.now())
			return nil
		}
		slog.ErrorContext(ctx, "fetch failed", "collection", s.res.Name, "view", scope, "error", err)
		e.Notify(domain.NewNotice(domain.NoticeError, pkg.SafeMessage(err, fetchFailed)))
		return err
	}

	items := make([]domain.Entity, len(env.Items))
	for i, m := range env.Items {
		items[i] = domain.Entity(m)
	}
	if !e.Commit(ticket, items, domain.SourceBackend, nil, s.now()) {
		slog.DebugContext(ctx, "stale fetch discarded", "collection", s.res.Name, "view", scope)
	}
	return nil
}

func (s *Service) demoFor(scope string) []domain.Entity {
	rows := demo.For(s.res.Name, s.demoRows)
	status, narrowed := s.res.ScopeStatus[scope]
	if !narrowed || s.res.StatusField == "" {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if r.String(s.res.StatusField) == status {
			out = append(out, r)
		}
	}
	return out
}

// RequestSort toggles the sort on key.
func (s *Service) RequestSort(session, key string) (workspace.State, error) {
	e := s.store.Get(session, s.res.Name)
	if !s.res.HasSortKey(key) {
		return e.Snapshot(), domain.NewAppError(domain.CodeValidation, "tri non autorisé: "+key, nil)
	}
	return e.UpdateSnapshot(func(m *listing.Manager[domain.Entity]) { m.RequestSort(key) }), nil
}

// Select changes the selection of the current page.
func (s *Service) Select(session, op, id string) (workspace.State, error) {
	e := s.store.Get(session, s.res.Name)
	switch op {
	case OpToggle:
		if id == "" {
			return e.Snapshot(), domain.NewAppError(domain.CodeValidation, "identifiant requis", nil)
		}
		return e.UpdateSnapshot(func(m *listing.Manager[domain.Entity]) { m.ToggleSelect(id) }), nil
	case OpTogglePage:
		return e.UpdateSnapshot(func(m *listing.Manager[domain.Entity]) { m.ToggleSelectAllOnPage() }), nil
	case OpClear:
		return e.UpdateSnapshot(func(m *listing.Manager[domain.Entity]) { m.ClearSelection() }), nil
	default:
		return e.Snapshot(), domain.NewAppError(domain.CodeValidation, "opération inconnue: "+op, nil)
	}
}

// Bulk runs action on the current selection. Mutating actions clear the
// selection and refetch the rows; the outcome is left as a notice.
func (s *Service) Bulk(ctx context.Context, session string, action bulk.Action) (bulk.Result, workspace.State, error) {
	e := s.store.Get(session, s.res.Name)
	if !s.res.Allows(action) {
		return bulk.Result{Action: action}, e.Snapshot(), domain.NewAppError(domain.CodeValidation, actionRejected, nil)
	}

	var items []domain.Entity
	st := e.UpdateSnapshot(func(m *listing.Manager[domain.Entity]) { items = m.Selected() })
	if st.IsDemo() && action != bulk.ActionExport && len(items) > 0 {
		err := domain.NewAppError(domain.CodeValidation, demoReadOnly, nil)
		e.Notify(domain.NewNotice(domain.NoticeWarning, demoReadOnly))
		return bulk.Result{Action: action, Total: len(items)}, e.Snapshot(), err
	}

	if action != bulk.ActionExport {
		e.Invalidate()
	}
	res, err := s.exec.Execute(ctx, action, items)
	if err != nil {
		e.Notify(domain.NewNotice(domain.NoticeError, pkg.SafeMessage(err, res.Summary())))
		return res, e.Snapshot(), err
	}
	if action != bulk.ActionExport {
		e.Update(func(m *listing.Manager[domain.Entity]) { m.ClearSelection() })
		s.refetch(ctx, e)
	}
	e.Notify(domain.NewNotice(res.Level(), res.Summary()))
	return res, e.Snapshot(), nil
}

// Act runs action on the entity id of the session's rows, then refetches.
func (s *Service) Act(ctx context.Context, session, id string, action bulk.Action) (workspace.State, error) {
	e := s.store.Get(session, s.res.Name)
	if !s.res.Allows(action) || action == bulk.ActionExport {
		return e.Snapshot(), domain.NewAppError(domain.CodeValidation, actionRejected, nil)
	}
	var (
		item  domain.Entity
		found bool
	)
	e.Update(func(m *listing.Manager[domain.Entity]) { item, found = m.Find(id) })
	if !found {
		return e.Snapshot(), domain.NewAppError(domain.CodeNotFound, "élément introuvable", nil)
	}

	e.Invalidate()
	if err := s.Perform(ctx, action, item); err != nil {
		e.Notify(domain.NewNotice(domain.NoticeError, pkg.SafeMessage(err, actionFailed)))
		return e.Snapshot(), err
	}
	s.refetch(ctx, e)
	e.Notify(domain.NewNotice(domain.NoticeSuccess, "Action effectuée"))
	return e.Snapshot(), nil
}

// refetch reloads the rows after a mutation. A failure keeps the previous
// rows; the mutation itself already succeeded.
func (s *Service) refetch(ctx context.Context, e *workspace.Entry) {
	if err := s.fetch(ctx, e); err != nil {
		slog.WarnContext(ctx, "refetch after action failed", "collection", s.res.Name, "error", err)
	}
}

// Export serialises the selection, or every filtered row when scope is
// ExportFiltered, without any backend call.
func (s *Service) Export(session, scope string) (*export.File, error) {
	e := s.store.Get(session, s.res.Name)
	var items []domain.Entity
	switch scope {
	case "", ExportSelection:
		e.Update(func(m *listing.Manager[domain.Entity]) { items = m.Selected() })
	case ExportFiltered:
		e.Update(func(m *listing.Manager[domain.Entity]) { items = m.Sorted() })
	default:
		return nil, domain.NewAppError(domain.CodeValidation, "portée d'export inconnue: "+scope, nil)
	}
	res, err := s.exec.Execute(context.Background(), bulk.ActionExport, items)
	if err != nil {
		return nil, err
	}
	return res.Export, nil
}

// Stats counts the loaded rows by status.
func (s *Service) Stats(ctx context.Context, session string) (Stats, error) {
	e := s.store.Get(session, s.res.Name)
	var err error
	if !e.Loaded() {
		err = s.fetch(ctx, e)
	}
	var items []domain.Entity
	e.Update(func(m *listing.Manager[domain.Entity]) { items = m.Items() })
	st := Stats{Collection: s.res.Name, Label: s.res.Label, Total: len(items), ByStatus: make(map[string]int, len(s.res.Statuses))}
	for _, status := range s.res.Statuses {
		st.ByStatus[status] = 0
	}
	for _, item := range items {
		st.ByStatus[item.String(s.res.StatusField)]++
	}
	return st, err
}

// Stats is the per-status breakdown shown on dashboard cards.
type Stats struct {
	Collection string         `json:"collection"`
	Label      string         `json:"label"`
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
}

// Create posts a new entity, then refetches the session's rows.
func (s *Service) Create(ctx context.Context, session string, payload map[string]any) (workspace.State, error) {
	e := s.store.Get(session, s.res.Name)
	e.Invalidate()
	if err := s.backend.Create(ctx, s.res.Path, payload); err != nil {
		e.Notify(domain.NewNotice(domain.NoticeError, pkg.SafeMessage(err, actionFailed)))
		return e.Snapshot(), err
	}
	s.refetch(ctx, e)
	e.Notify(domain.NewNotice(domain.NoticeSuccess, "Créé avec succès"))
	return e.Snapshot(), nil
}

// Dismiss clears the session's notice.
func (s *Service) Dismiss(session string) workspace.State {
	e := s.store.Get(session, s.res.Name)
	e.Dismiss()
	return e.Snapshot()
}

// NewFactory returns the workspace factory building list managers for the
// given collections. Unknown collections get a plain manager.
func NewFactory(pageSize int, tag language.Tag, resources ...*Resource) workspace.Factory {
	byName := make(map[string]*Resource, len(resources))
	for _, r := range resources {
		byName[r.Name] = r
	}
	return func(collection string) *listing.Manager[domain.Entity] {
		if r, ok := byName[collection]; ok {
			return listing.New(r.Options(pageSize, tag))
		}
		return listing.New(listing.Options[domain.Entity]{ID: domain.Entity.ID, PageSize: pageSize, Locale: tag})
	}
}
