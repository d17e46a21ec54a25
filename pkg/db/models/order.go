package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

// Order is the authoritative trade-in order document.
type Order struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber    string               `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	UserID         *uuid.UUID           `gorm:"column:user_id;type:uuid" json:"user_id,omitempty"`
	Status         enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending_shipment'" validate:"required,enum" json:"status"`
	ShippingInfo   types.ShippingInfo   `gorm:"column:shipping_info;type:jsonb;serializer:json" json:"shipping_info"`
	Device         types.Device         `gorm:"column:device;type:jsonb;serializer:json" json:"device"`
	Payment        types.Payment        `gorm:"column:payment;type:jsonb;serializer:json" json:"payment"`
	StatusTimeline types.StatusTimeline `gorm:"column:status_timeline;type:jsonb;serializer:json" validate:"dive" json:"status_timeline"`
	Labels         types.Labels         `gorm:"column:labels;type:jsonb;serializer:json" validate:"unique=ID,dive" json:"labels"`
	ActivityLogs   types.ActivityLogs   `gorm:"column:activity_logs;type:jsonb;serializer:json" json:"activity_logs"`
	ReOffer        *types.ReOffer       `gorm:"column:re_offer;type:jsonb;serializer:json" json:"re_offer,omitempty"`
	Version        int64                `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// HasUser reports whether the order belongs to a registered customer.
func (o *Order) HasUser() bool {
	return o != nil && o.UserID != nil && *o.UserID != uuid.Nil
}
