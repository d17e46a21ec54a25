package models

import "time"

// OrderCounter holds the last allocated value of a named sequence.
type OrderCounter struct {
	Name      string    `gorm:"column:name;primaryKey" json:"name"`
	Value     int64     `gorm:"column:value;not null" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}
