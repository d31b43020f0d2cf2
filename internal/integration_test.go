package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-ledger-backend/config"
	"machine-ledger-backend/internal/api"
	"machine-ledger-backend/internal/ledger"
	"machine-ledger-backend/internal/store"
)

// TestMachineLifecycle sends a machine to an event and brings it back through
// the HTTP API over the SQL range store, checking the roster and history
// after each step.
func TestMachineLifecycle(t *testing.T) {
	// --- Test Setup ---

	// 1. An in-memory SQLite range store opened the way ledgerd opens it.
	cfg := config.Default()
	cfg.Store.Driver = store.DriverSQL
	cfg.Database.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.Ledger.Timezone = "UTC"
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000

	ctx := context.Background()
	rangeStore, err := store.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to open the SQL range store: %v", err)
	}

	// 2. Seed the three sheets, header rows included.
	seed := func(sheet string, rows [][]string) {
		t.Helper()
		err := rangeStore.Append(ctx, store.Range{Sheet: sheet, ToCol: 16}, rows)
		require.NoError(t, err)
	}
	seed(cfg.Ledger.RosterSheet, [][]string{
		{"Código", "Modelo", "Serial", "Operadora", "Chip", "Obs", "Status", "Local", "Empresa"},
		{"PB-01", "S920", "SN1", "-", "-", "-", "Estoque SP", "SP", "Ingresse", "-", "-", "-", "-", "-", "-", "-", "-"},
	})
	seed(cfg.Ledger.HistorySheet, [][]string{{"Data", "Serial", "Ação"}})
	seed(cfg.Ledger.EventsSheet, [][]string{
		{"ID", "Evento", "Produtor", "Comercial"},
		{"1024", "Festival de Verão", "Prod A", "Ana"},
	})

	// 3. The ledger runs on a fixed clock; the server is the real router.
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	l := ledger.New(rangeStore, &cfg.Ledger, func() time.Time { return now })
	server := httptest.NewServer(api.NewRouter(cfg, l, nil))
	defer server.Close()

	post := func(path string, body any) map[string]any {
		t.Helper()
		data, err := json.Marshal(body)
		require.NoError(t, err)
		resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(data))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}
	get := func(path string, out any) {
		t.Helper()
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	type machinesResponse struct {
		Machines []map[string]any `json:"machines"`
	}
	type historyResponse struct {
		History []map[string]any `json:"history"`
	}

	// --- Step 1: Send the machine to an event ---
	out := post("/api/movements/check-out-in", map[string]any{
		"action":        "Envio",
		"eventId":       "1024",
		"departureDate": "2024-03-08",
		"returnDate":    "2024-03-11T10:00:00Z",
		"serials":       []string{"SN1"},
	})
	assert.Equal(t, map[string]any{"ok": true, "applied": []any{"SN1"}}, out)

	var machines machinesResponse
	get("/api/machines", &machines)
	require.Len(t, machines.Machines, 1)
	sent := machines.Machines[0]
	assert.Equal(t, "Em Uso", sent["status"])
	assert.Equal(t, "1024", sent["eventId"])
	assert.Equal(t, "Festival de Verão", sent["eventName"])
	assert.Equal(t, "08/03/2024", sent["departureDate"])
	assert.Equal(t, "11/03/2024", sent["returnDate"])
	assert.Equal(t, "SP", sent["location"])

	// --- Step 2: Bring it back to another location ---
	out = post("/api/movements/check-out-in", map[string]any{
		"action":  "Retorno RJ",
		"serials": []map[string]any{{"serial": "SN1", "rowHint": 2}},
	})
	assert.Equal(t, true, out["ok"])

	get("/api/machines", &machines)
	back := machines.Machines[0]
	assert.Equal(t, "Estoque RJ", back["status"])
	assert.Equal(t, "RJ", back["location"])
	assert.Equal(t, "-", back["eventId"])
	assert.Equal(t, "-", back["departureDate"])
	assert.Equal(t, "-", back["returnDate"])

	// --- Step 3: Verify the history ---
	var history historyResponse
	get("/api/history?serial=SN1", &history)
	require.Len(t, history.History, 2)

	assert.Equal(t, "SEND", history.History[0]["action"])
	assert.Equal(t, "Em Uso", history.History[0]["statusAfter"])

	ret := history.History[1]
	assert.Equal(t, "RETURN", ret["action"])
	assert.Equal(t, "1024", ret["eventId"], "return row keeps the origin event")
	assert.Equal(t, "08/03/2024", ret["departureDate"])
	assert.Equal(t, "10/03/2024", ret["returnDate"])
	assert.Equal(t, "Estoque RJ", ret["statusAfter"])
	assert.Equal(t, "System", ret["actor"])

	// --- Step 4: The dashboard reflects both movements ---
	var dashboard struct {
		Summary ledger.Summary `json:"summary"`
		Flow    ledger.Flow    `json:"flow"`
	}
	get("/api/dashboard", &dashboard)
	assert.Equal(t, 1, dashboard.Summary.Available)
	assert.Equal(t, map[string]int{"RJ": 1}, dashboard.Summary.AvailableByLocation)

	last := len(dashboard.Flow.Labels) - 1
	assert.Equal(t, "10/03/2024", dashboard.Flow.Labels[last])
	assert.Equal(t, 1, dashboard.Flow.Returns[last])
	assert.Equal(t, 1, dashboard.Flow.Sends[last-2])
}
