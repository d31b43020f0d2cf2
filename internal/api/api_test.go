package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-ledger-backend/config"
	"machine-ledger-backend/internal/auth"
	"machine-ledger-backend/internal/ledger"
	"machine-ledger-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Roster columns used by the assertions below.
const (
	colStatus        = 6
	colEventID       = 9
	colDepartureDate = 13
	colUpdatedBy     = 16
	histActor        = 7
)

type testServer struct {
	cfg    *config.Config
	mem    *store.MemoryStore
	router *gin.Engine
}

func newTestServer(t *testing.T, a *auth.Authenticator) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Ledger.Timezone = "UTC"
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000

	mem := store.NewMemoryStore()
	mem.Seed(cfg.Ledger.RosterSheet, 1, [][]string{
		{"Código", "Modelo", "Serial"},
		{"PB-01", "S920", "SN1", "-", "-", "-", "Estoque SP", "SP", "Ingresse", "-", "-", "-", "-", "-", "-", "-", "-"},
		{"PB-02", "S920", "SN2", "-", "-", "-", "Em Uso", "-", "Ingresse", "1024", "Festival de Verão", "Prod A", "Ana", "01/03/2024", "05/03/2024", "-", "-"},
	})
	mem.Seed(cfg.Ledger.HistorySheet, 1, [][]string{{"Data", "Serial", "Ação"}})
	mem.Seed(cfg.Ledger.EventsSheet, 1, [][]string{
		{"ID", "Evento", "Produtor", "Comercial"},
		{"1024", "Festival de Verão", "Prod A", "Ana"},
	})

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	l := ledger.New(mem, &cfg.Ledger, func() time.Time { return now })
	return &testServer{cfg: cfg, mem: mem, router: NewRouter(cfg, l, a)}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *testServer) rosterCell(row, col int) string {
	return s.mem.Cell(s.cfg.Ledger.RosterSheet, row, col)
}

func TestGetMachines(t *testing.T) {
	s := newTestServer(t, nil)
	w, out := s.do(t, http.MethodGet, "/api/machines", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["ok"])

	machines := out["machines"].([]any)
	require.Len(t, machines, 2)
	first := machines[0].(map[string]any)
	assert.Equal(t, "SN1", first["serial"])
	assert.Equal(t, float64(2), first["row"])
	assert.Equal(t, "-", first["eventId"], "absent values render as the sheet marker")
	assert.Equal(t, "SP", first["location"])

	_, _ = s.do(t, http.MethodGet, "/api/machines", nil, nil)
	reads, _, _ := s.mem.Calls()
	assert.Equal(t, 1, reads, "roster served from cache")

	_, _ = s.do(t, http.MethodGet, "/api/machines?refresh=true", nil, nil)
	reads, _, _ = s.mem.Calls()
	assert.Equal(t, 2, reads)
}

func TestCheckOutIn_SendPartialBatch(t *testing.T) {
	s := newTestServer(t, nil)
	w, out := s.do(t, http.MethodPost, "/api/movements/check-out-in", map[string]any{
		"action":        "Envio",
		"eventId":       "1024",
		"departureDate": "2024-03-10",
		"returnDate":    "2024-03-12",
		"serials":       []any{"SN1", map[string]any{"serial": "SN9", "rowHint": 7}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["ok"])
	assert.Equal(t, []any{"SN1"}, out["applied"])
	assert.Equal(t, []any{map[string]any{"serial": "SN9", "step": "not-found", "message": "serial not found in roster"}}, out["errors"])

	assert.Equal(t, "Em Uso", s.rosterCell(2, colStatus))
	assert.Equal(t, "1024", s.rosterCell(2, colEventID))
	assert.Equal(t, "10/03/2024", s.rosterCell(2, colDepartureDate))
	assert.Equal(t, "System", s.rosterCell(2, colUpdatedBy))
}

func TestCheckOutIn_Return(t *testing.T) {
	s := newTestServer(t, nil)
	w, out := s.do(t, http.MethodPost, "/api/movements/check-out-in", map[string]any{
		"action":  "Retorno RJ",
		"serials": []any{map[string]any{"serial": "SN2", "rowHint": "3"}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"ok": true, "applied": []any{"SN2"}}, out)
	assert.Equal(t, "Estoque RJ", s.rosterCell(3, colStatus))
	assert.Equal(t, "-", s.rosterCell(3, colEventID))
}

func TestCheckOutIn_NeedsOrigin(t *testing.T) {
	s := newTestServer(t, nil)
	body := map[string]any{"action": "RETURN", "serials": []any{"SN1"}}

	w, out := s.do(t, http.MethodPost, "/api/movements/check-out-in", body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"ok": false, "needsOriginPrompt": true, "serials": []any{"SN1"}}, out)
	_, appends, writes := s.mem.Calls()
	assert.Zero(t, appends)
	assert.Zero(t, writes)

	body["originNote"] = "came back from a partner"
	_, out = s.do(t, http.MethodPost, "/api/movements/check-out-in", body, nil)
	assert.Equal(t, true, out["ok"])
}

func TestCheckOutIn_Validation(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "empty body", body: nil, want: "invalid request body"},
		{name: "no action", body: map[string]any{"serials": []any{"SN1"}}, want: "select a valid action"},
		{name: "unknown action", body: map[string]any{"action": "Teleport", "serials": []any{"SN1"}}, want: "select a valid action"},
		{name: "bad date", body: map[string]any{"action": "SEND", "departureDate": "soon", "serials": []any{"SN1"}}, want: "departureDate must be a date like dd/mm/yyyy"},
		{name: "no serials", body: map[string]any{"action": "RETURN"}, want: "no machines selected"},
		{name: "no event", body: map[string]any{"action": "SEND", "serials": []any{"SN1"}}, want: "event id is required"},
		{name: "unknown event", body: map[string]any{
			"action": "SEND_FIXED", "eventId": "999", "departureDate": "10/03/2024", "serials": []any{"SN1"},
		}, want: "unknown event id: 999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			w, out := s.do(t, http.MethodPost, "/api/movements/check-out-in", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, map[string]any{"ok": false, "error": tt.want}, out)
		})
	}
}

func TestStatusAdjust(t *testing.T) {
	s := newTestServer(t, nil)

	w, out := s.do(t, http.MethodPost, "/api/status-adjust", map[string]any{"serial": "SN2"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status is required", out["error"])

	w, out = s.do(t, http.MethodPost, "/api/status-adjust", map[string]any{"serial": "SN2", "status": "Estoque BH"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "Estoque BH", s.rosterCell(3, colStatus))
	assert.Equal(t, "-", s.rosterCell(3, colEventID), "stock status clears the event")
}

func TestDashboard_CachedUntilWrite(t *testing.T) {
	s := newTestServer(t, nil)

	w, out := s.do(t, http.MethodGet, "/api/dashboard", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	summary := out["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["total"])
	assert.Equal(t, float64(1), summary["available"])
	assert.Equal(t, float64(1), summary["overdue"])

	w, _ = s.do(t, http.MethodGet, "/api/dashboard", nil, nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	_, out = s.do(t, http.MethodPost, "/api/status-adjust", map[string]any{"serial": "SN1", "status": "Manutenção"}, nil)
	require.Equal(t, true, out["ok"])

	w, out = s.do(t, http.MethodGet, "/api/dashboard", nil, nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, float64(0), out["summary"].(map[string]any)["available"])
}

func TestGetHistory(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/api/status-adjust", map[string]any{"serial": "SN1", "status": "Manutenção"}, nil)
	s.do(t, http.MethodPost, "/api/status-adjust", map[string]any{"serial": "SN2", "status": "Manutenção", "note": "screen"}, nil)

	_, out := s.do(t, http.MethodGet, "/api/history", nil, nil)
	assert.Len(t, out["history"], 2)

	_, out = s.do(t, http.MethodGet, "/api/history?serial=SN2", nil, nil)
	history := out["history"].([]any)
	require.Len(t, history, 1)
	row := history[0].(map[string]any)
	assert.Equal(t, "STATUS_ADJUST", row["action"])
	assert.Equal(t, "screen", row["note"])
	assert.Equal(t, "1024", row["eventId"])
}

func TestLoginFlow(t *testing.T) {
	users := filepath.Join(t.TempDir(), "users.yaml")
	_, err := auth.AddUser(users, "Maria", "maria@example.com", "s3cret")
	require.NoError(t, err)
	list, err := auth.LoadUsers(users)
	require.NoError(t, err)
	a, err := auth.New(&config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}, list, nil)
	require.NoError(t, err)

	s := newTestServer(t, a)

	w, _ := s.do(t, http.MethodGet, "/api/machines", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, out := s.do(t, http.MethodPost, "/api/login", map[string]any{"email": "maria@example.com", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, out = s.do(t, http.MethodPost, "/api/login", map[string]any{"email": "not-an-email", "password": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email must be a valid email address", out["error"])

	w, out = s.do(t, http.MethodPost, "/api/login", map[string]any{"email": "maria@example.com", "password": "s3cret"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := out["token"].(string)
	require.NotEmpty(t, token)
	assert.Contains(t, w.Header().Get("Set-Cookie"), s.cfg.Auth.CookieName+"="+token)

	bearer := http.Header{"Authorization": {"Bearer " + token}}
	_, out = s.do(t, http.MethodPost, "/api/status-adjust", map[string]any{"serial": "SN1", "status": "Manutenção"}, bearer)
	require.Equal(t, true, out["ok"])
	assert.Equal(t, "Maria", s.rosterCell(2, colUpdatedBy))
	assert.Equal(t, "Maria", s.mem.Cell(s.cfg.Ledger.HistorySheet, 2, histActor))
}

func TestLogin_Disabled(t *testing.T) {
	s := newTestServer(t, nil)
	w, out := s.do(t, http.MethodPost, "/api/login", map[string]any{"email": "maria@example.com", "password": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, out["ok"])
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	w, out := s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["ok"])

	s.do(t, http.MethodGet, "/api/machines", nil, nil)
	w, _ = s.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ledger_cache_lookups_total")
}
