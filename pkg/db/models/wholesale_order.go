package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

// WholesaleOrder is a bulk catalog purchase awaiting or holding payment.
type WholesaleOrder struct {
	ID              uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber     string                     `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	UserID          uuid.UUID                  `gorm:"column:user_id;type:uuid;not null" json:"user_id,omitempty"`
	BuyerEmail      string                     `gorm:"column:buyer_email;not null" json:"buyer_email"`
	BuyerName       string                     `gorm:"column:buyer_name" json:"buyer_name,omitempty"`
	Items           types.WholesaleLines       `gorm:"column:items;type:jsonb;serializer:json" json:"items"`
	Amount          decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Currency        string                     `gorm:"column:currency;not null" json:"currency"`
	PaymentIntentID *string                    `gorm:"column:payment_intent_id;uniqueIndex" json:"payment_intent_id,omitempty"`
	Status          enums.WholesaleOrderStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	PaidAt          *time.Time                 `gorm:"column:paid_at" json:"paid_at,omitempty"`
	ExpiresAt       time.Time                  `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt       time.Time                  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
