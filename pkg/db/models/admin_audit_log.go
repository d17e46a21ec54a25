package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

// AdminAuditLog is an append-only record of one order mutation.
type AdminAuditLog struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	OrderNumber string            `gorm:"column:order_number;not null" json:"order_number"`
	Action      enums.AuditAction `gorm:"column:action;type:text;not null" json:"action"`
	Actor       string            `gorm:"column:actor;not null" json:"actor"`
	Details     types.JSONMap     `gorm:"column:details;type:jsonb;serializer:json" json:"details"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
