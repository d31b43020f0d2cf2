package parse

import (
	"errors"
	"strings"

	"machine-ledger-backend/internal/model"
)

var (
	ErrActionRequired = errors.New("action is required")
	ErrUnknownAction  = errors.New("unknown action")
)

// canonicalActions maps exact tags (new and legacy spellings) to actions.
var canonicalActions = map[string]model.Action{
	"SEND":          model.ActionSend,
	"SEND_FIXED":    model.ActionSendFixed,
	"RETURN":        model.ActionReturn,
	"MAINTENANCE":   model.ActionMaintenance,
	"STATUS_ADJUST": model.ActionStatusAdjust,
	"ENVIO":         model.ActionSend,
	"ENVIO_FIXO":    model.ActionSendFixed,
	"RETORNO":       model.ActionReturn,
	"MANUTENCAO":    model.ActionMaintenance,
	"MANUTENÇÃO":    model.ActionMaintenance,
	"AJUSTE_STATUS": model.ActionStatusAdjust,
}

// verbs recognised inside free-form labels such as "Retorno SP" or "Envio Fixo".
var verbs = map[string]model.Action{
	"envio":       model.ActionSend,
	"send":        model.ActionSend,
	"retorno":     model.ActionReturn,
	"return":      model.ActionReturn,
	"manutenção":  model.ActionMaintenance,
	"manutencao":  model.ActionMaintenance,
	"maintenance": model.ActionMaintenance,
}

var fixedWords = map[string]bool{"fixo": true, "fixed": true}

// ParseAction resolves an action label into the closed action set and an
// optional location qualifier. Labels are either canonical tags ("RETURN",
// "ENVIO_FIXO") or the UI's human forms ("Envio Fixo", "Retorno RJ").
func ParseAction(raw string) (model.Action, string, error) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return "", "", ErrActionRequired
	}

	if action, ok := canonicalActions[strings.ToUpper(s)]; ok {
		return action, "", nil
	}

	words := strings.Fields(s)
	var (
		action    model.Action
		fixed     bool
		qualifier []string
	)
	for i, w := range words {
		lower := strings.ToLower(w)
		if a, ok := verbs[lower]; ok && action == "" {
			action = a
			continue
		}
		if fixedWords[lower] {
			fixed = true
			continue
		}
		// canonical tag followed by a qualifier, e.g. "RETURN SP"
		if a, ok := canonicalActions[strings.ToUpper(w)]; ok && i == 0 {
			action = a
			continue
		}
		qualifier = append(qualifier, w)
	}

	if action == "" {
		return "", "", ErrUnknownAction
	}
	if action == model.ActionSend && fixed {
		action = model.ActionSendFixed
	}
	return action, strings.ToUpper(strings.Join(qualifier, " ")), nil
}

// ParseRecordedAction classifies the action column of a history row. Rows not
// written by this service keep their raw text.
func ParseRecordedAction(raw string) model.Action {
	action, _, err := ParseAction(raw)
	if err != nil {
		return model.Action(strings.TrimSpace(raw))
	}
	return action
}
