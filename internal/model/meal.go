package model

import (
	"time"

	"github.com/lib/pq"
)

// Meal is a row of the Meals table. Column names follow the hosted schema,
// which uses camelCase for this table.
type Meal struct {
	ID        int64          `gorm:"column:id;primaryKey" json:"id"`
	UserID    string         `gorm:"column:userId;not null;index" json:"userId"`
	Datetime  time.Time      `gorm:"column:datetime;not null" json:"datetime"`
	Notes     *string        `gorm:"column:notes" json:"notes"`
	Type      *string        `gorm:"column:type" json:"type"`
	ImageURLs pq.StringArray `gorm:"column:imageUrls;type:text[]" json:"imageUrls"`
	CreatedAt time.Time      `gorm:"column:createdAt;autoCreateTime" json:"createdAt"`
}

func (Meal) TableName() string { return "Meals" }

// NotesText returns the notes or an empty string.
func (m *Meal) NotesText() string {
	if m.Notes == nil {
		return ""
	}
	return *m.Notes
}

// TypeText returns the meal type tag or an empty string.
func (m *Meal) TypeText() string {
	if m.Type == nil {
		return ""
	}
	return *m.Type
}
