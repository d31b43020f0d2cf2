package ledger

import (
	"context"

	"github.com/sirupsen/logrus"

	"machine-ledger-backend/internal/logging"
	"machine-ledger-backend/internal/model"
	"machine-ledger-backend/internal/parse"
	"machine-ledger-backend/internal/store"
)

var lRecorder = logging.Subsystem("Recorder")

// Patch is the set of roster cells written for one machine.
type Patch struct {
	Serial string
	Row    int
	Cells  []PatchCell
}

// PatchCell is one roster column of a Patch. An empty Value clears the cell.
type PatchCell struct {
	Col   int
	Value string
}

func (p *Patch) set(col int, value string) {
	p.Cells = append(p.Cells, PatchCell{Col: col, Value: value})
}

// Recorder performs the two physical writes of a transition: a multi-row
// history append and a batched roster patch. Both report failure as false
// and invalidate the ledger cache after the attempt.
type Recorder struct {
	store  store.Store
	cache  *Cache
	layout Layout
}

// NewRecorder creates a recorder that invalidates c after every write.
func NewRecorder(s store.Store, c *Cache, layout Layout) *Recorder {
	return &Recorder{store: s, cache: c, layout: layout}
}

// AppendMovements appends one or more history rows in a single call.
func (r *Recorder) AppendMovements(ctx context.Context, movements ...model.MovementRecord) bool {
	if len(movements) == 0 {
		return true
	}
	defer r.cache.Invalidate()

	rows := make([][]string, len(movements))
	for i, m := range movements {
		rows[i] = movementToRow(m)
	}
	if err := r.store.Append(ctx, r.layout.historyAppendRange(), rows); err != nil {
		logging.FromContext(ctx, lRecorder).WithError(err).WithField("rows", len(rows)).Error("could not append movements")
		return false
	}
	logging.FromContext(ctx, lRecorder).WithField("rows", len(rows)).Debug("movements appended")
	return true
}

// ApplyPatches writes every patch in one batched call.
func (r *Recorder) ApplyPatches(ctx context.Context, patches []Patch) bool {
	if len(patches) == 0 {
		return true
	}
	defer r.cache.Invalidate()

	var writes []store.CellWrite
	for _, p := range patches {
		for _, c := range p.Cells {
			writes = append(writes, store.CellWrite{
				Sheet: r.layout.RosterSheet,
				Row:   p.Row,
				Col:   c.Col,
				Value: parse.Dash(c.Value),
			})
		}
	}
	if err := r.store.BatchWrite(ctx, writes); err != nil {
		logging.FromContext(ctx, lRecorder).WithError(err).WithFields(logrus.Fields{"patches": len(patches), "cells": len(writes)}).Error("could not patch roster")
		return false
	}
	logging.FromContext(ctx, lRecorder).WithFields(logrus.Fields{"patches": len(patches), "cells": len(writes)}).Debug("roster patched")
	return true
}
