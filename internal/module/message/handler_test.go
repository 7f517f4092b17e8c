package message

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/marketdesk/internal/bulk"
	"github.com/simp-lee/marketdesk/internal/collection"
	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/envelope"
	"github.com/simp-lee/marketdesk/internal/listing"
	"github.com/simp-lee/marketdesk/internal/middleware"
	"github.com/simp-lee/marketdesk/internal/pkg"
	"github.com/simp-lee/marketdesk/internal/workspace"
)

type mockBackend struct {
	mu        sync.Mutex
	rows      []map[string]any
	created   []map[string]any
	verbs     []string
	createErr error
}

func (m *mockBackend) ListView(context.Context, string, string) (envelope.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return envelope.Envelope{Kind: envelope.KindItems, Items: m.rows, Total: len(m.rows)}, nil
}

func (m *mockBackend) Act(_ context.Context, _, id, verb string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verbs = append(m.verbs, verb+":"+id)
	return nil
}

func (m *mockBackend) Delete(_ context.Context, _, id string) error {
	return m.Act(context.Background(), "", id, "delete")
}

func (m *mockBackend) Create(_ context.Context, _ string, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, payload)
	m.rows = append(m.rows, map[string]any{"id": "m" + payload["subject"].(string), "status": StatusUnread})
	return nil
}

func newTestService(b collection.Backend) *collection.Service {
	res := Resource()
	store := workspace.NewStore(4, time.Minute, collection.NewFactory(10, listing.DefaultLocale, res))
	return collection.NewService(res, b, store, collection.Options{})
}

func setupTestRouter(svc *collection.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Session())
	NewModule(svc, 100).RegisterRoutes(r.Group("/api/v1"), r.Group(""))
	return r
}

func TestSend_Success(t *testing.T) {
	b := &mockBackend{}
	r := setupTestRouter(newTestService(b))

	body := `{"recipient_id":"u7","subject":" Disponibilité ","body":"Bonjour, le vélo est-il disponible ?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(b.created) != 1 || b.created[0]["subject"] != "Disponibilité" || b.created[0]["recipient_id"] != "u7" {
		t.Errorf("unexpected payload %v", b.created)
	}

	var resp pkg.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(resp.Data)
	var st struct {
		RawCount int            `json:"raw_count"`
		Notice   *domain.Notice `json:"notice"`
	}
	json.Unmarshal(data, &st)
	if st.RawCount != 1 || st.Notice == nil || st.Notice.Level != domain.NoticeSuccess {
		t.Errorf("unexpected state raw=%d notice=%+v", st.RawCount, st.Notice)
	}
}

func TestSend_ValidationBlocksBeforeNetwork(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing body", `{"recipient_id":"u7","subject":"Bonjour"}`},
		{"blank body", `{"recipient_id":"u7","subject":"Bonjour","body":"   "}`},
		{"missing recipient", `{"subject":"Bonjour","body":"Salut"}`},
		{"malformed", `{"subject":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockBackend{}
			r := setupTestRouter(newTestService(b))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
			if len(b.created) != 0 {
				t.Error("backend called despite invalid input")
			}
		})
	}
}

func TestSend_BackendError(t *testing.T) {
	b := &mockBackend{createErr: domain.NewAppError(domain.CodeValidation, "destinataire inconnu", nil)}
	r := setupTestRouter(newTestService(b))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"recipient_id":"x","subject":"a","body":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp pkg.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusBadRequest || resp.Message != "destinataire inconnu" {
		t.Errorf("got %d %q", w.Code, resp.Message)
	}
}

func TestSendHTMX(t *testing.T) {
	b := &mockBackend{}
	r := setupTestRouter(newTestService(b))

	send := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("HX-Request", "true")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(url.Values{"recipient_id": {"u7"}, "subject": {"Bonjour"}, "body": {""}})
	if w.Header().Get("HX-Reswap") != "none" || !strings.Contains(w.Header().Get("HX-Trigger"), `"error"`) {
		t.Errorf("empty body: expected rejection, got %v", w.Header())
	}
	if len(b.created) != 0 {
		t.Fatal("backend called for an empty message")
	}

	w = send(url.Values{"recipient_id": {"u7"}, "subject": {"Bonjour"}, "body": {"Salut"}})
	if got := w.Header().Get("HX-Redirect"); got != "/messages" {
		t.Errorf("expected HX-Redirect /messages, got %q", got)
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), "Message envoyé") {
		t.Errorf("unexpected trigger %q", w.Header().Get("HX-Trigger"))
	}
}

func TestMarkReadUsesReadVerb(t *testing.T) {
	b := &mockBackend{rows: []map[string]any{{"id": "m1", "status": StatusUnread}}}
	svc := newTestService(b)
	ctx := context.Background()
	svc.Load(ctx, "s", pkg.ListParams{})

	if _, err := svc.Act(ctx, "s", "m1", bulk.ActionMarkRead); err != nil {
		t.Fatal(err)
	}
	if len(b.verbs) != 1 || b.verbs[0] != "read:m1" {
		t.Errorf("verbs = %v", b.verbs)
	}
	if _, err := svc.Act(ctx, "s", "m1", bulk.ActionPublish); !domain.IsValidation(err) {
		t.Errorf("Act(publish) error = %v; want validation", err)
	}
}

func TestPayload(t *testing.T) {
	p, ok := SendMessageRequest{RecipientID: " u1 ", Subject: "Objet", Body: "Texte"}.Payload()
	if !ok || p["recipient_id"] != "u1" {
		t.Errorf("Payload() = %v, %v", p, ok)
	}
	if _, ok := (SendMessageRequest{RecipientID: "u1", Subject: "\t", Body: "x"}).Payload(); ok {
		t.Error("blank subject accepted")
	}
}
