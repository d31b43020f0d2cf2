package model

import "strings"

// Status tags as they are written to the roster.
const (
	StatusInStock     = "Estoque"
	StatusInUse       = "Em Uso"
	StatusFixed       = "Fixo"
	StatusMaintenance = "Manutenção"
)

// StatusKind is the closed classification of the open set of status tags.
type StatusKind string

const (
	KindInStock     StatusKind = "in_stock"
	KindInUse       StatusKind = "in_use"
	KindFixed       StatusKind = "fixed"
	KindMaintenance StatusKind = "maintenance"
	KindOther       StatusKind = "other"
)

// ClassifyStatus maps a free-text status to its kind. For stock statuses the
// location qualifier ("Estoque SP" -> "SP") is returned as well.
func ClassifyStatus(status string) (StatusKind, string) {
	s := strings.TrimSpace(status)
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "estoque"):
		return KindInStock, strings.TrimSpace(s[len("estoque"):])
	case strings.Contains(lower, "em uso"):
		return KindInUse, ""
	case lower == "fixo":
		return KindFixed, ""
	case strings.HasPrefix(lower, "manuten"):
		return KindMaintenance, ""
	}
	return KindOther, ""
}

// StockStatus builds the stock tag for a location; an empty location gives the
// plain "Estoque" tag.
func StockStatus(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return StatusInStock
	}
	return StatusInStock + " " + location
}
