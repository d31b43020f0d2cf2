package model

import "time"

// Cell is a single spreadsheet cell persisted by the SQL range store.
type Cell struct {
	Sheet     string    `gorm:"primaryKey;size:128"`
	Row       int       `gorm:"column:row_num;primaryKey;autoIncrement:false"`
	Col       int       `gorm:"column:col_num;primaryKey;autoIncrement:false"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
