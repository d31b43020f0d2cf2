package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"machine-ledger-backend/internal/ledger"
	"machine-ledger-backend/internal/model"
	"machine-ledger-backend/internal/parse"
)

// GetMachines handles GET /api/machines. refresh=true bypasses the roster
// cache.
func (h *Handler) GetMachines(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))
	roster := h.ledger.Registry.GetRoster(c.Request.Context(), refresh)

	machines := make([]model.MachineRecord, len(roster))
	for i, m := range roster {
		machines[i] = machineView(m)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "machines": machines})
}

// GetHistory handles GET /api/history, optionally filtered by serial.
func (h *Handler) GetHistory(c *gin.Context) {
	rows := h.ledger.Registry.HistoryFor(c.Request.Context(), c.Query("serial"))

	history := make([]model.MovementRecord, len(rows))
	for i, m := range rows {
		history[i] = movementView(m)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "history": history})
}

type dashboardResponse struct {
	OK bool `json:"ok"`
	ledger.Dashboard
}

// GetDashboard handles GET /api/dashboard.
func (h *Handler) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	roster := h.ledger.Registry.GetRoster(ctx, false)
	history := h.ledger.Registry.History(ctx)

	d := ledger.BuildDashboard(roster, history, h.ledger.Now(), h.ledger.Location)
	c.JSON(http.StatusOK, dashboardResponse{OK: true, Dashboard: d})
}

// machineView renders absent values with the sheet's "-" marker.
func machineView(m model.MachineRecord) model.MachineRecord {
	m.Carrier = parse.Dash(m.Carrier)
	m.Chip = parse.Dash(m.Chip)
	m.Notes = parse.Dash(m.Notes)
	m.Status = parse.Dash(m.Status)
	m.Location = parse.Dash(m.Location)
	m.Company = parse.Dash(m.Company)
	m.EventID = parse.Dash(m.EventID)
	m.EventName = parse.Dash(m.EventName)
	m.Producer = parse.Dash(m.Producer)
	m.Commercial = parse.Dash(m.Commercial)
	m.DepartureDate = parse.Dash(m.DepartureDate)
	m.ReturnDate = parse.Dash(m.ReturnDate)
	m.UpdatedAt = parse.Dash(m.UpdatedAt)
	m.UpdatedBy = parse.Dash(m.UpdatedBy)
	return m
}

func movementView(m model.MovementRecord) model.MovementRecord {
	m.EventID = parse.Dash(m.EventID)
	m.DepartureDate = parse.Dash(m.DepartureDate)
	m.ReturnDate = parse.Dash(m.ReturnDate)
	m.StatusAfter = parse.Dash(m.StatusAfter)
	m.Actor = parse.Dash(m.Actor)
	m.EventName = parse.Dash(m.EventName)
	m.Producer = parse.Dash(m.Producer)
	m.Commercial = parse.Dash(m.Commercial)
	m.Location = parse.Dash(m.Location)
	m.Note = parse.Dash(m.Note)
	return m
}
