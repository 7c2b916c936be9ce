package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"dompet/internal/core"
	"dompet/internal/services"
	"dompet/internal/store/memory"
)

var wib = time.FixedZone("WIB", 7*3600)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := services.NewEntryService(st, nil)
	return NewServer(":0", svc, WithLocation(wib)), st
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, r)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return m
}

func TestCreateTransaction(t *testing.T) {
	srv, st := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/transaction",
		`{"name":"PC Gaming","description":"new rig","datetime":"2024-01-02T15:04:00+07:00","price":-60000}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decode(t, rr)
	if got["name"] != "PC Gaming" || got["description"] != "new rig" {
		t.Fatalf("unexpected body %v", got)
	}
	if got["price"] != float64(-60000) {
		t.Fatalf("price should be a JSON number, got %#v", got["price"])
	}
	if got["datetime"] != "2024-01-02T08:04:00Z" {
		t.Fatalf("datetime not normalised to UTC: %v", got["datetime"])
	}
	if id, _ := got["id"].(string); id == "" {
		t.Fatalf("missing id")
	}

	entries, _ := st.ListAll(context.Background())
	if len(entries) != 1 {
		t.Fatalf("expected 1 stored entry, got %d", len(entries))
	}
}

func TestCreateTransactionCoercesPriceAndZone(t *testing.T) {
	srv, st := newTestServer(t)

	cases := []struct {
		body     string
		price    string
		datetime time.Time
	}{
		{`{"name":"Coffee","datetime":"2024-01-02T15:04","price":"  25.5 "}`, "25.5", time.Date(2024, 1, 2, 8, 4, 0, 0, time.UTC)},
		{`{"name":"Free sample","datetime":"2024-01-03","price":0}`, "0", time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC)},
		{`{"name":"Bonus","datetime":"2024-01-04T00:00:00Z","price":"1e3"}`, "1000", time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		rr := do(t, srv, http.MethodPost, "/api/transaction", tc.body)
		if rr.Code != http.StatusCreated {
			t.Fatalf("%s: expected 201, got %d: %s", tc.body, rr.Code, rr.Body.String())
		}
	}

	entries, _ := st.ListAll(context.Background())
	byName := map[string]core.Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	for _, tc := range cases {
		var in struct{ Name string }
		_ = json.Unmarshal([]byte(tc.body), &in)
		e := byName[in.Name]
		if e.Price.String() != tc.price {
			t.Fatalf("%s: price %s, want %s", in.Name, e.Price, tc.price)
		}
		if !e.Datetime.Equal(tc.datetime) {
			t.Fatalf("%s: datetime %s, want %s", in.Name, e.Datetime, tc.datetime)
		}
	}
}

func TestCreateTransactionRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want map[string]any
	}{
		{
			name: "malformed json",
			body: `{"name":`,
			want: map[string]any{"error": "Invalid request body", "message": "unexpected EOF"},
		},
		{
			name: "empty object",
			body: `{}`,
			want: map[string]any{"error": "Missing required fields", "received": map[string]any{}},
		},
		{
			name: "price absent",
			body: `{"name":"x","datetime":"2024-01-01T10:00"}`,
			want: map[string]any{"error": "Missing required fields", "received": map[string]any{"name": "x", "datetime": "2024-01-01T10:00"}},
		},
		{
			name: "price null",
			body: `{"name":"x","datetime":"2024-01-01T10:00","price":null}`,
			want: map[string]any{"error": "Missing required fields", "received": map[string]any{"name": "x", "datetime": "2024-01-01T10:00", "price": nil}},
		},
		{
			name: "blank name",
			body: `{"name":"   ","datetime":"2024-01-01T10:00","price":5}`,
			want: map[string]any{"error": "Missing required fields", "received": map[string]any{"name": "   ", "datetime": "2024-01-01T10:00", "price": float64(5)}},
		},
		{
			name: "empty datetime",
			body: `{"name":"x","datetime":"","price":5}`,
			want: map[string]any{"error": "Missing required fields", "received": map[string]any{"name": "x", "datetime": "", "price": float64(5)}},
		},
		{
			name: "price not numeric",
			body: `{"name":"x","datetime":"2024-01-01T10:00","price":"abc"}`,
			want: map[string]any{"error": "Invalid price format", "received": "abc"},
		},
		{
			name: "price empty string",
			body: `{"name":"x","datetime":"2024-01-01T10:00","price":""}`,
			want: map[string]any{"error": "Invalid price format", "received": ""},
		},
		{
			name: "price bool",
			body: `{"name":"x","datetime":"2024-01-01T10:00","price":true}`,
			want: map[string]any{"error": "Invalid price format", "received": true},
		},
		{
			name: "price beyond float range",
			body: `{"name":"x","datetime":"2024-01-01T10:00","price":"1e400"}`,
			want: map[string]any{"error": "Invalid price format", "received": "1e400"},
		},
		{
			name: "name not a string",
			body: `{"name":42,"datetime":"2024-01-01T10:00","price":5}`,
			want: map[string]any{"error": "Invalid field type", "received": map[string]any{"name": float64(42), "datetime": "2024-01-01T10:00", "price": float64(5)}},
		},
		{
			name: "description not a string",
			body: `{"name":"x","description":["a"],"datetime":"2024-01-01T10:00","price":5}`,
			want: map[string]any{"error": "Invalid field type", "received": map[string]any{"name": "x", "description": []any{"a"}, "datetime": "2024-01-01T10:00", "price": float64(5)}},
		},
		{
			name: "datetime unparseable",
			body: `{"name":"x","datetime":"yesterday","price":5}`,
			want: map[string]any{"error": "Invalid datetime format", "received": "yesterday"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, st := newTestServer(t)
			rr := do(t, srv, http.MethodPost, "/api/transaction", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if diff := cmp.Diff(tc.want, decode(t, rr)); diff != "" {
				t.Fatalf("body mismatch (-want +got):\n%s", diff)
			}
			if entries, _ := st.ListAll(context.Background()); len(entries) != 0 {
				t.Fatalf("rejected request must not store anything")
			}
		})
	}
}

func TestCreateTransactionHugeExponent(t *testing.T) {
	for _, price := range []string{`1e400`, `1e50000000`, `-1e50000000`} {
		srv, st := newTestServer(t)
		rr := do(t, srv, http.MethodPost, "/api/transaction", `{"name":"x","datetime":"2024-01-01T10:00","price":`+price+`}`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", price, rr.Code)
		}
		var body struct {
			Error    string          `json:"error"`
			Received json.RawMessage `json:"received"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Error != "Invalid price format" || string(body.Received) != price {
			t.Fatalf("%s: unexpected body %s", price, rr.Body.String())
		}
		if entries, _ := st.ListAll(context.Background()); len(entries) != 0 {
			t.Fatalf("%s: rejected request must not store anything", price)
		}
	}
}

func TestStoreUnavailable(t *testing.T) {
	srv, st := newTestServer(t)
	st.SetOffline(true)

	rr := do(t, srv, http.MethodPost, "/api/transaction", `{"name":"x","datetime":"2024-01-01T10:00","price":5}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	got := decode(t, rr)
	if got["error"] != "Failed to create transaction" || got["storeState"] != "disconnected" {
		t.Fatalf("unexpected body %v", got)
	}
	if msg, _ := got["message"].(string); !strings.Contains(msg, "store unavailable") {
		t.Fatalf("unexpected message %q", msg)
	}

	rr = do(t, srv, http.MethodGet, "/api/transaction", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	got = decode(t, rr)
	if got["error"] != "Failed to fetch transactions" || got["storeState"] != "disconnected" {
		t.Fatalf("unexpected body %v", got)
	}

	rr = do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz expected 503, got %d", rr.Code)
	}
}

func TestListTransactions(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/transaction", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty list should be [], got %d %q", rr.Code, rr.Body.String())
	}

	for _, body := range []string{
		`{"name":"b","datetime":"2024-01-02T00:00:00Z","price":1}`,
		`{"name":"c","datetime":"2024-01-03T00:00:00Z","price":1}`,
		`{"name":"a","datetime":"2024-01-01T00:00:00Z","price":1}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/transaction", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed failed: %d %s", rr.Code, rr.Body.String())
		}
	}

	rr = do(t, srv, http.MethodGet, "/api/transaction", "")
	var list []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range list {
		names = append(names, e["name"].(string))
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, names); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRouteNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	cases := []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodDelete, "/api/transaction"},
		{http.MethodPut, "/api/transaction"},
		{http.MethodPost, "/"},
	}
	for _, tc := range cases {
		rr := do(t, srv, tc.method, tc.path, "")
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, rr.Code)
		}
		want := map[string]any{"error": "Route not found", "path": tc.path, "method": tc.method}
		if diff := cmp.Diff(want, decode(t, rr)); diff != "" {
			t.Fatalf("%s %s (-want +got):\n%s", tc.method, tc.path, diff)
		}
	}
}

type panicService struct{}

func (panicService) Create(context.Context, core.NewEntry) (core.Entry, error) { panic("create exploded") }
func (panicService) List(context.Context) ([]core.Entry, error)               { panic("list exploded") }
func (panicService) State(context.Context) core.StoreState                     { return core.StateConnected }

func TestPanicRecovery(t *testing.T) {
	srv := NewServer(":0", panicService{})
	rr := do(t, srv, http.MethodGet, "/api/transaction", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	want := map[string]any{"error": "Internal server error", "message": "list exploded"}
	if diff := cmp.Diff(want, decode(t, rr)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if srv.Metrics().ServerErrors != 1 {
		t.Fatalf("panic should count as a server error")
	}
}

func TestAuxiliaryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/test", "")
	got := decode(t, rr)
	if rr.Code != http.StatusOK || got["message"] != "test okay3" || got["storeState"] != "connected" || got["timestamp"] == nil {
		t.Fatalf("unexpected /api/test: %d %v", rr.Code, got)
	}

	rr = do(t, srv, http.MethodGet, "/api/transaction/test", "")
	got = decode(t, rr)
	if rr.Code != http.StatusOK || got["message"] != "Transaction endpoint is accessible" || got["timestamp"] == nil {
		t.Fatalf("unexpected /api/transaction/test: %d %v", rr.Code, got)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr = do(t, srv, http.MethodGet, "/metrics", "")
	got = decode(t, rr)
	if got["totalRequests"].(float64) < 4 {
		t.Fatalf("metrics not counting: %v", got)
	}

	rr = do(t, srv, http.MethodGet, "/static/style.css", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Cache-Control"), "max-age") {
		t.Fatalf("static asset: %d %q", rr.Code, rr.Header().Get("Cache-Control"))
	}
}

func postForm(t *testing.T, srv *Server, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/ui/transaction", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, r)
	return rr
}

func TestIndexRendersLedger(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, body := range []string{
		`{"name":"Salary","datetime":"2024-01-01T00:00:00Z","price":100}`,
		`{"name":"Lunch","datetime":"2024-01-02T00:00:00Z","price":-30}`,
		`{"name":"Refund","datetime":"2024-01-03T00:00:00Z","price":5}`,
	} {
		do(t, srv, http.MethodPost, "/api/transaction", body)
	}

	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	page := rr.Body.String()
	for _, want := range []string{"Rp 75", "Salary", "Rp 30", "price red", "1/1/2024, 7:00:00 am"} {
		if !strings.Contains(page, want) {
			t.Fatalf("index missing %q", want)
		}
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Fatalf("index should carry security headers")
	}
	if strings.Index(page, "Refund") > strings.Index(page, "Salary") {
		t.Fatalf("newest entry should render first")
	}
}

func TestIndexShowsBannerWhenStoreIsDown(t *testing.T) {
	srv, st := newTestServer(t)
	st.SetOffline(true)

	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("listing failure must not be a 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Failed to fetch transactions") {
		t.Fatalf("missing error banner")
	}
}

func TestFormSubmit(t *testing.T) {
	srv, st := newTestServer(t)

	rr := postForm(t, srv, url.Values{"name": {"Hello world"}, "datetime": {"2024-01-02T15:04"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Please enter a valid price format") {
		t.Fatalf("missing parser error in page")
	}

	rr = postForm(t, srv, url.Values{"name": {"-Rp 60.000"}, "datetime": {"2024-01-02T15:04"}})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Please enter a description after the price") {
		t.Fatalf("expected label error, got %d", rr.Code)
	}

	rr = postForm(t, srv, url.Values{"name": {"-Rp 60.000 PC"}})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Please fill in all required fields") {
		t.Fatalf("expected required-fields error, got %d", rr.Code)
	}

	if entries, _ := st.ListAll(context.Background()); len(entries) != 0 {
		t.Fatalf("rejected forms must not store anything")
	}

	rr = postForm(t, srv, url.Values{
		"name":        {"-Rp 60.000 PC Gaming"},
		"description": {"new rig"},
		"datetime":    {"2024-01-02T15:04"},
	})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	entries, _ := st.ListAll(context.Background())
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Name != "PC Gaming" || e.Description != "new rig" || e.Price.String() != "-60000" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !e.Datetime.Equal(time.Date(2024, 1, 2, 8, 4, 0, 0, time.UTC)) {
		t.Fatalf("form datetime should be read in the server zone, got %s", e.Datetime)
	}
}

func TestCreateTransactionBodyTooLarge(t *testing.T) {
	srv, _ := newTestServer(t)
	big := `{"name":"` + string(bytes.Repeat([]byte("a"), maxBodyBytes+1)) + `"}`
	rr := do(t, srv, http.MethodPost, "/api/transaction", big)
	if rr.Code != http.StatusBadRequest || decode(t, rr)["error"] != "Invalid request body" {
		t.Fatalf("expected Invalid request body, got %d", rr.Code)
	}
}
