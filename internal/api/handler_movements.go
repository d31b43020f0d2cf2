package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"machine-ledger-backend/internal/auth"
	"machine-ledger-backend/internal/ledger"
	"machine-ledger-backend/internal/logging"
	"machine-ledger-backend/internal/model"
	"machine-ledger-backend/internal/parse"
)

// serialInput accepts either "SN123" or {"serial": "SN123", "rowHint": 42}.
type serialInput struct {
	Serial  string `json:"serial"`
	RowHint int    `json:"rowHint"`
}

func (s *serialInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Serial)
	}
	var obj struct {
		Serial  json.RawMessage `json:"serial"`
		RowHint json.RawMessage `json:"rowHint"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Serial = looseString(obj.Serial)
	s.RowHint, _ = strconv.Atoi(looseString(obj.RowHint))
	return nil
}

// looseString reads a JSON string or number as text.
func looseString(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}

type movementRequest struct {
	Action        string        `json:"action"`
	Location      *string       `json:"location"`
	EventID       *string       `json:"eventId"`
	DepartureDate string        `json:"departureDate" binding:"omitempty,ledgerdate"`
	ReturnDate    string        `json:"returnDate" binding:"omitempty,ledgerdate"`
	Note          string        `json:"note" binding:"max=2000"`
	OriginNote    string        `json:"originNote" binding:"max=2000"`
	Serials       []serialInput `json:"serials"`
}

// CheckOutIn handles POST /api/movements/check-out-in.
func (h *Handler) CheckOutIn(c *gin.Context) {
	var req movementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}

	action, qualifier, err := parse.ParseAction(req.Action)
	if err != nil {
		badRequest(c, ledger.ErrInvalidAction.Error())
		return
	}

	refs := make([]ledger.SerialRef, len(req.Serials))
	for i, s := range req.Serials {
		refs[i] = ledger.SerialRef{Serial: s.Serial, RowHint: s.RowHint}
	}

	h.apply(c, ledger.Request{
		Action:        action,
		Qualifier:     qualifier,
		Serials:       refs,
		EventID:       req.EventID,
		Location:      req.Location,
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
		Note:          req.Note,
		OriginNote:    req.OriginNote,
		Actor:         auth.ActorFrom(c),
	})
}

type statusAdjustRequest struct {
	Serial   string  `json:"serial" binding:"required"`
	Status   string  `json:"status" binding:"required"`
	EventID  *string `json:"eventId"`
	Location *string `json:"location"`
	Note     string  `json:"note" binding:"max=2000"`
}

// StatusAdjust handles POST /api/status-adjust.
func (h *Handler) StatusAdjust(c *gin.Context) {
	var req statusAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}

	h.apply(c, ledger.Request{
		Action:   model.ActionStatusAdjust,
		Serials:  []ledger.SerialRef{{Serial: req.Serial}},
		Status:   req.Status,
		EventID:  req.EventID,
		Location: req.Location,
		Note:     req.Note,
		Actor:    auth.ActorFrom(c),
	})
}

func (h *Handler) apply(c *gin.Context, req ledger.Request) {
	res, err := h.ledger.Engine.Apply(c.Request.Context(), req)
	if err != nil {
		badRequest(c, validationMessage(err))
		return
	}

	if len(res.NeedsOrigin) > 0 {
		c.JSON(http.StatusOK, gin.H{"ok": false, "needsOriginPrompt": true, "serials": res.NeedsOrigin})
		return
	}

	h.flushResponses()
	if len(res.Errors) > 0 {
		logging.FromContext(c.Request.Context(), lAPI).WithField("errors", len(res.Errors)).Warn("transition finished with errors")
		c.JSON(http.StatusOK, gin.H{"ok": false, "applied": res.Applied, "errors": res.Errors})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "applied": res.Applied})
}

// validationMessage keeps the wrapped detail of date and event errors and
// falls back to a generic text for anything unexpected.
func validationMessage(err error) string {
	for _, known := range []error{
		ledger.ErrInvalidAction,
		ledger.ErrNoSerials,
		ledger.ErrEventRequired,
		ledger.ErrDepartureRequired,
		ledger.ErrReturnRequired,
		ledger.ErrInvalidDate,
		ledger.ErrUnknownEvent,
		ledger.ErrStatusRequired,
	} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}
	return "invalid request"
}
