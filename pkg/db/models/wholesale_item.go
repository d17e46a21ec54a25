package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WholesaleItem is a catalog entry offered to wholesale buyers.
type WholesaleItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU       string          `gorm:"column:sku;not null;uniqueIndex" json:"sku"`
	Title     string          `gorm:"column:title;not null" json:"title"`
	Brand     string          `gorm:"column:brand;not null" json:"brand"`
	Model     string          `gorm:"column:model;not null" json:"model"`
	Storage   string          `gorm:"column:storage" json:"storage,omitempty"`
	Grade     string          `gorm:"column:grade" json:"grade,omitempty"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock     int             `gorm:"column:stock;not null;default:0" json:"stock"`
	Active    bool            `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName keeps the catalog under its historical table name.
func (WholesaleItem) TableName() string {
	return "wholesale_inventory"
}
