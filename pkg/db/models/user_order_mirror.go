package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

// UserOrderMirror is the per-user copy of an order read by the customer account views.
type UserOrderMirror struct {
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id,omitempty"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;primaryKey" json:"order_id"`
	OrderNumber  string             `gorm:"column:order_number;not null" json:"order_number"`
	Status       enums.OrderStatus  `gorm:"column:status;type:text;not null" json:"status"`
	Labels       types.Labels       `gorm:"column:labels;type:jsonb;serializer:json" json:"labels"`
	ActivityLogs types.ActivityLogs `gorm:"column:activity_logs;type:jsonb;serializer:json" json:"activity_logs"`
	UpdatedAt    time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

// MirrorOf projects the order onto its user mirror row.
func MirrorOf(order *Order) UserOrderMirror {
	return UserOrderMirror{
		UserID:       *order.UserID,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		Status:       order.Status,
		Labels:       order.Labels,
		ActivityLogs: order.ActivityLogs,
		UpdatedAt:    order.UpdatedAt,
	}
}
