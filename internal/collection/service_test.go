package collection

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/simp-lee/marketdesk/internal/bulk"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/envelope"
	"github.com/simp-lee/marketdesk/internal/export"
	"github.com/simp-lee/marketdesk/internal/listing"
	"github.com/simp-lee/marketdesk/internal/pkg"
	"github.com/simp-lee/marketdesk/internal/workspace"
)

// --- fake backend ---

type fakeBackend struct {
	mu        sync.Mutex
	views     map[string][]map[string]any
	listErr   error
	failIDs   map[string]bool
	calls     []string
	listCalls int
	created   []map[string]any
	// during runs inside ListView and Act before they answer.
	during func(op string)
}

func newFakeBackend(n int) *fakeBackend {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"id":         fmt.Sprintf("u%d", i+1),
			"first_name": fmt.Sprintf("Prénom%d", i+1),
			"last_name":  fmt.Sprintf("Nom%02d", n-i),
			"email":      fmt.Sprintf("user%d@example.sn", i+1),
			"status":     []string{"actif", "bloque"}[i%2],
			"role":       "vendeur",
			"created_at": time.Date(2025, 1, i+1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		}
	}
	return &fakeBackend{views: map[string][]map[string]any{"": rows}, failIDs: map[string]bool{}}
}

func (f *fakeBackend) ListView(_ context.Context, path, view string) (envelope.Envelope, error) {
	if f.during != nil {
		f.during("list")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.calls = append(f.calls, "list "+path+"/"+view)
	if f.listErr != nil {
		return envelope.Envelope{}, f.listErr
	}
	items := f.views[view]
	return envelope.Envelope{Kind: envelope.KindData, Items: items, Total: len(items)}, nil
}

func (f *fakeBackend) Act(_ context.Context, path, id, verb string) error {
	if f.during != nil {
		f.during(verb)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, verb+" "+path+"/"+id)
	if f.failIDs[id] {
		return domain.NewAppError(domain.CodeValidation, "refusé par le serveur", nil)
	}
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, path, id string) error {
	return f.Act(context.Background(), path, id, "delete")
}

func (f *fakeBackend) Create(_ context.Context, path string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create "+path)
	f.created = append(f.created, payload)
	return nil
}

func (f *fakeBackend) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// --- fixtures ---

var fixedNow = time.Date(2025, 6, 14, 10, 30, 0, 0, time.UTC)

func testResource() *Resource {
	return &Resource{
		Name:         domain.CollectionUsers,
		Label:        "Utilisateurs",
		Entity:       "utilisateurs",
		Path:         "/users",
		StatusField:  "status",
		TypeField:    "role",
		SearchFields: []string{"first_name", "last_name", "email"},
		SortKeys:     []string{"last_name", "email", "created_at"},
		Statuses:     []string{"actif", "bloque", "supprime"},
		Scopes:       []string{workspace.ScopeBlocked, workspace.ScopeDeleted},
		ScopeStatus:  map[string]string{workspace.ScopeBlocked: "bloque", workspace.ScopeDeleted: "supprime"},
		Actions:      []bulk.Action{bulk.ActionBlock, bulk.ActionUnblock, bulk.ActionDelete, bulk.ActionExport},
		Columns: []export.Column{
			{Header: "ID", Field: "id"},
			{Header: "Nom", Field: "last_name"},
			{Header: "Email", Field: "email"},
		},
		TitleField: "last_name",
	}
}

func newTestService(b Backend, demoRows int) *Service {
	res := testResource()
	store := workspace.NewStore(16, time.Minute, NewFactory(5, listing.DefaultLocale, res))
	return NewService(res, b, store, Options{DemoRows: demoRows, Now: func() time.Time { return fixedNow }})
}

func ptr[T any](v T) *T { return &v }

// --- tests ---

func TestLoad_FetchesOnceThenKeepsState(t *testing.T) {
	b := newFakeBackend(12)
	svc := newTestService(b, 0)
	ctx := context.Background()

	st, err := svc.Load(ctx, "s1", pkg.ListParams{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if st.RawCount != 12 || st.TotalPages != 3 || len(st.Items) != 5 || st.Source != domain.SourceBackend {
		t.Fatalf("state = %+v", st.View)
	}

	st, err = svc.Load(ctx, "s1", pkg.ListParams{Page: ptr(3)})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if st.Page != 3 || len(st.Items) != 2 {
		t.Errorf("page 3 = %d items on page %d", len(st.Items), st.Page)
	}
	if b.listCalls != 1 {
		t.Errorf("list calls = %d; want 1", b.listCalls)
	}

	if _, err := svc.Load(ctx, "s1", pkg.ListParams{Refresh: true}); err != nil {
		t.Fatalf("Load(refresh) error: %v", err)
	}
	if b.listCalls != 2 {
		t.Errorf("list calls after refresh = %d; want 2", b.listCalls)
	}
}

func TestLoad_AppliesTransitionsInOrder(t *testing.T) {
	svc := newTestService(newFakeBackend(12), 0)

	st, err := svc.Load(context.Background(), "s1", pkg.ListParams{
		Status: ptr("actif"),
		Sort:   &pkg.SortParam{Key: "last_name", Dir: listing.Asc},
		Page:   ptr(2),
	})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if st.Total != 6 || st.Page != 2 || st.Status != "actif" {
		t.Fatalf("state = total %d page %d status %q", st.Total, st.Page, st.Status)
	}
	if len(st.Items) != 1 {
		t.Fatalf("page 2 holds %d items; want 1", len(st.Items))
	}
	// Active users are u1,u3,...,u11 with last names Nom12,Nom10,...,Nom02.
	if got := st.Items[0].String("last_name"); got != "Nom12" {
		t.Errorf("last item = %q; want Nom12", got)
	}
}

func TestLoad_RejectsUnknownScopeAndSortKey(t *testing.T) {
	b := newFakeBackend(3)
	svc := newTestService(b, 0)

	if _, err := svc.Load(context.Background(), "s1", pkg.ListParams{Scope: ptr("archived")}); !domain.IsValidation(err) {
		t.Errorf("Load(unknown scope) error = %v; want validation", err)
	}
	if _, err := svc.Load(context.Background(), "s1", pkg.ListParams{Sort: &pkg.SortParam{Key: "phone"}}); !domain.IsValidation(err) {
		t.Errorf("Load(unknown sort) error = %v; want validation", err)
	}
	if b.listCalls != 0 {
		t.Errorf("list calls = %d; want none before validation passes", b.listCalls)
	}
}

func TestLoad_ScopeChangeRefetchesView(t *testing.T) {
	b := newFakeBackend(4)
	b.views[workspace.ScopeBlocked] = []map[string]any{{"id": "u9", "status": "bloque"}}
	svc := newTestService(b, 0)
	ctx := context.Background()

	if _, err := svc.Load(ctx, "s1", pkg.ListParams{}); err != nil {
		t.Fatal(err)
	}
	st, err := svc.Load(ctx, "s1", pkg.ListParams{Scope: ptr(workspace.ScopeBlocked)})
	if err != nil {
		t.Fatal(err)
	}
	if st.Scope != workspace.ScopeBlocked || st.RawCount != 1 || st.Items[0].ID() != "u9" {
		t.Errorf("state = scope %q raw %d", st.Scope, st.RawCount)
	}
	if b.count("list /users/blocked") != 1 {
		t.Errorf("calls = %v", b.calls)
	}
}

func TestLoad_DemoFallback(t *testing.T) {
	b := newFakeBackend(0)
	b.listErr = domain.NewAppError(domain.CodeUnavailable, "serveur injoignable", nil)
	svc := newTestService(b, 12)

	st, err := svc.Load(context.Background(), "s1", pkg.ListParams{})
	if err != nil {
		t.Fatalf("Load() error = %v; want fallback", err)
	}
	if !st.IsDemo() || st.RawCount != 12 {
		t.Fatalf("state = source %q raw %d", st.Source, st.RawCount)
	}
	if st.Notice == nil || st.Notice.Level != domain.NoticeWarning {
		t.Errorf("Notice = %+v; want warning banner", st.Notice)
	}

	st, err = svc.Load(context.Background(), "s2", pkg.ListParams{Scope: ptr(workspace.ScopeBlocked)})
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range st.Items {
		if item.String("status") != "bloque" {
			t.Errorf("blocked demo view holds status %q", item.String("status"))
		}
	}
}

func TestLoad_FailureWithoutFallback(t *testing.T) {
	b := newFakeBackend(0)
	b.listErr = domain.NewAppError(domain.CodeUnavailable, "serveur injoignable", nil)
	svc := newTestService(b, 0)

	st, err := svc.Load(context.Background(), "s1", pkg.ListParams{})
	if !domain.IsUnavailable(err) {
		t.Fatalf("Load() error = %v; want unavailable", err)
	}
	if st.IsDemo() || st.RawCount != 0 {
		t.Errorf("state = source %q raw %d", st.Source, st.RawCount)
	}
	if st.Notice == nil || st.Notice.Level != domain.NoticeError || st.Notice.Message != "serveur injoignable" {
		t.Errorf("Notice = %+v", st.Notice)
	}
}

func TestLoad_SupersededFailureLeavesNoNotice(t *testing.T) {
	b := newFakeBackend(0)
	b.listErr = domain.NewAppError(domain.CodeUnavailable, "serveur injoignable", nil)
	svc := newTestService(b, 0)
	b.during = func(string) {
		svc.store.Get("s1", domain.CollectionUsers).Invalidate()
	}

	st, err := svc.Load(context.Background(), "s1", pkg.ListParams{})
	if err != nil {
		t.Fatalf("Load() error = %v; want nil for a superseded fetch", err)
	}
	if st.Notice != nil {
		t.Errorf("Notice = %+v; want none", st.Notice)
	}
}

func TestAct_DiscardsFetchStartedBeforeMutation(t *testing.T) {
	b := newFakeBackend(3)
	svc := newTestService(b, 0)
	ctx := context.Background()
	if _, err := svc.Load(ctx, "s1", pkg.ListParams{}); err != nil {
		t.Fatal(err)
	}

	e := svc.store.Get("s1", domain.CollectionUsers)
	stale := e.Begin()
	var committed bool
	b.during = func(op string) {
		if op == "block" {
			committed = e.Commit(stale, nil, domain.SourceBackend, nil, fixedNow)
		}
	}

	st, err := svc.Act(ctx, "s1", "u1", bulk.ActionBlock)
	if err != nil {
		t.Fatalf("Act() error: %v", err)
	}
	if committed {
		t.Error("fetch started before the action was committed")
	}
	if st.RawCount != 3 {
		t.Errorf("RawCount = %d; want 3", st.RawCount)
	}
}

func TestSelectAndBulk_PartialFailure(t *testing.T) {
	b := newFakeBackend(12)
	b.failIDs["u2"] = true
	svc := newTestService(b, 0)
	ctx := context.Background()

	if _, err := svc.Load(ctx, "s1", pkg.ListParams{}); err != nil {
		t.Fatal(err)
	}
	st, err := svc.Select("s1", OpTogglePage, "")
	if err != nil {
		t.Fatal(err)
	}
	if st.SelectedCount != 5 || !st.AllOnPageSelected || !st.CanBulk {
		t.Fatalf("selection = %d", st.SelectedCount)
	}

	res, st, err := svc.Bulk(ctx, "s1", bulk.ActionBlock)
	if err != nil {
		t.Fatalf("Bulk() error: %v", err)
	}
	if res.Total != 5 || res.Succeeded != 4 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
	if st.SelectedCount != 0 {
		t.Errorf("selection kept after bulk: %d", st.SelectedCount)
	}
	if st.Notice == nil || st.Notice.Message != "4 réussi(s), 1 échoué(s)" || st.Notice.Level != domain.NoticeWarning {
		t.Errorf("Notice = %+v", st.Notice)
	}
	if b.count("block /users/") != 5 {
		t.Errorf("block calls = %d; want 5", b.count("block /users/"))
	}
	if b.listCalls != 2 {
		t.Errorf("list calls = %d; want a refetch after the bulk action", b.listCalls)
	}
}

func TestBulk_Validation(t *testing.T) {
	b := newFakeBackend(4)
	svc := newTestService(b, 0)
	ctx := context.Background()
	if _, err := svc.Load(ctx, "s1", pkg.ListParams{}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Bulk(ctx, "s1", bulk.ActionBlock); !domain.IsValidation(err) {
		t.Errorf("Bulk(empty selection) error = %v; want validation", err)
	}
	if _, _, err := svc.Bulk(ctx, "s1", bulk.ActionPublish); !domain.IsValidation(err) {
		t.Errorf("Bulk(publish on users) error = %v; want validation", err)
	}
	if n := b.count("block") + b.count("publish"); n != 0 {
		t.Errorf("backend saw %d action calls; want none", n)
	}
}

func TestBulk_DemoRowsAreReadOnly(t *testing.T) {
	b := newFakeBackend(0)
	b.listErr = domain.NewAppError(domain.CodeUnavailable, "serveur injoignable", nil)
	svc := newTestService(b, 6)
	ctx := context.Background()
	if _, err := svc.Load(ctx, "s1", pkg.ListParams{}); err != nil {
		t.Fatal(err)
	}
	svc.Select("s1", OpTogglePage, "")

	if _, _, err := svc.Bulk(ctx, "s1", bulk.ActionDelete); !domain.IsValidation(err) {
		t.Errorf("Bulk(delete demo) error = %v; want validation", err)
	}
	res, _, err := svc.Bulk(ctx, "s1", bulk.ActionExport)
	if err != nil || res.Export == nil || res.Export.Rows != 5 {
		t.Errorf("Bulk(export demo) = %+v, %v", res, err)
	}
	if b.count("delete") != 0 {
		t.Error("demo rows reached the backend")
	}
}

func TestBulk_ExportKeepsSelection(t *testing.T) {
	b := newFakeBackend(7)
	svc := newTestService(b, 0)
	ctx := context.Background()
	svc.Load(ctx, "s1", pkg.ListParams{})
	svc.Select("s1", OpToggle, "u1")
	svc.Select("s1", OpToggle, "u3")

	res, st, err := svc.Bulk(ctx, "s1", bulk.ActionExport)
	if err != nil {
		t.Fatalf("Bulk(export) error: %v", err)
	}
	if res.Export.Name != "utilisateurs_export_2025-06-14_2_elements.csv" {
		t.Errorf("Name = %q", res.Export.Name)
	}
	if st.SelectedCount != 2 || b.listCalls != 1 {
		t.Errorf("export changed the list: selected %d, list calls %d", st.SelectedCount, b.listCalls)
	}
}

func TestAct(t *testing.T) {
	b := newFakeBackend(3)
	svc := newTestService(b, 0)
	ctx := context.Background()
	svc.Load(ctx, "s1", pkg.ListParams{})

	if _, err := svc.Act(ctx, "s1", "u2", bulk.ActionUnblock); err != nil {
		t.Fatalf("Act() error: %v", err)
	}
	if b.count("unblock /users/u2") != 1 || b.listCalls != 2 {
		t.Errorf("calls = %v", b.calls)
	}

	if _, err := svc.Act(ctx, "s1", "u404", bulk.ActionBlock); !domain.IsNotFound(err) {
		t.Errorf("Act(unknown id) error = %v; want not found", err)
	}
	if _, err := svc.Act(ctx, "s1", "u1", bulk.ActionExport); !domain.IsValidation(err) {
		t.Errorf("Act(export) error = %v; want validation", err)
	}

	b.failIDs["u3"] = true
	st, err := svc.Act(ctx, "s1", "u3", bulk.ActionDelete)
	if err == nil {
		t.Fatal("Act() error = nil; want backend error")
	}
	if st.Notice == nil || st.Notice.Message != "refusé par le serveur" {
		t.Errorf("Notice = %+v", st.Notice)
	}
}

func TestPerform_Duplicate(t *testing.T) {
	b := newFakeBackend(0)
	svc := newTestService(b, 0)
	item := domain.Entity{"id": "u1", "last_name": "Diop", "created_at": "2025-01-01", "_demo": false}

	if err := svc.Perform(context.Background(), bulk.ActionDuplicate, item); err != nil {
		t.Fatal(err)
	}
	if len(b.created) != 1 {
		t.Fatalf("created = %v", b.created)
	}
	got := b.created[0]
	if got["last_name"] != "Diop (copie)" {
		t.Errorf("payload = %v", got)
	}
	for _, k := range []string{"id", "created_at", "_demo"} {
		if _, ok := got[k]; ok {
			t.Errorf("payload kept %q", k)
		}
	}
}

func TestExport(t *testing.T) {
	svc := newTestService(newFakeBackend(12), 0)
	svc.Load(context.Background(), "s1", pkg.ListParams{Status: ptr("bloque")})

	if _, err := svc.Export("s1", ExportSelection); !domain.IsValidation(err) {
		t.Errorf("Export(empty selection) error = %v; want validation", err)
	}
	f, err := svc.Export("s1", ExportFiltered)
	if err != nil {
		t.Fatalf("Export(filtered) error: %v", err)
	}
	if f.Rows != 6 || f.Name != "utilisateurs_export_2025-06-14_6_elements.csv" {
		t.Errorf("file = %s (%d rows)", f.Name, f.Rows)
	}
	if _, err := svc.Export("s1", "everything"); !domain.IsValidation(err) {
		t.Errorf("Export(unknown scope) error = %v; want validation", err)
	}
}

func TestStats(t *testing.T) {
	svc := newTestService(newFakeBackend(5), 0)

	st, err := svc.Stats(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 5 || st.ByStatus["actif"] != 3 || st.ByStatus["bloque"] != 2 || st.ByStatus["supprime"] != 0 {
		t.Errorf("stats = %+v", st)
	}
	if _, ok := st.ByStatus["supprime"]; !ok {
		t.Error("declared status missing from stats")
	}
}

func TestCreateAndDismiss(t *testing.T) {
	b := newFakeBackend(1)
	svc := newTestService(b, 0)

	st, err := svc.Create(context.Background(), "s1", map[string]any{"subject": "Bonjour"})
	if err != nil {
		t.Fatal(err)
	}
	if st.Notice == nil || st.Notice.Level != domain.NoticeSuccess {
		t.Errorf("Notice = %+v", st.Notice)
	}
	if st := svc.Dismiss("s1"); st.Notice != nil {
		t.Errorf("Dismiss() kept %+v", st.Notice)
	}
}

func TestRequestSortAndSelect(t *testing.T) {
	svc := newTestService(newFakeBackend(6), 0)
	svc.Load(context.Background(), "s1", pkg.ListParams{})

	st, err := svc.RequestSort("s1", "email")
	if err != nil || st.SortKey != "email" || st.SortDirection != listing.Asc {
		t.Fatalf("RequestSort() = %s %s, %v", st.SortKey, st.SortDirection, err)
	}
	st, _ = svc.RequestSort("s1", "email")
	if st.SortDirection != listing.Desc {
		t.Errorf("second RequestSort() dir = %s", st.SortDirection)
	}
	if _, err := svc.RequestSort("s1", "password"); !domain.IsValidation(err) {
		t.Errorf("RequestSort(password) error = %v", err)
	}

	if _, err := svc.Select("s1", OpToggle, ""); !domain.IsValidation(err) {
		t.Errorf("Select(toggle, \"\") error = %v", err)
	}
	if _, err := svc.Select("s1", "invert", ""); !domain.IsValidation(err) {
		t.Errorf("Select(invert) error = %v", err)
	}
	st, _ = svc.Select("s1", OpToggle, st.Items[0].ID())
	if st.SelectedCount != 1 {
		t.Errorf("SelectedCount = %d", st.SelectedCount)
	}
	st, _ = svc.Select("s1", OpClear, "")
	if st.SelectedCount != 0 || len(st.SelectedIDs) != 0 {
		t.Errorf("selection after clear = %v", st.SelectedIDs)
	}
}
