package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

// CreateOrderInput is a new trade-in submission.
type CreateOrderInput struct {
	UserID       *uuid.UUID         `json:"-"`
	ShippingInfo types.ShippingInfo `json:"shipping_info"`
	Device       types.Device       `json:"device"`
	Payment      CreatePaymentInput `json:"payment"`
	Actor        string             `json:"-"`
}

// CreatePaymentInput is the payout choice and quoted amount.
type CreatePaymentInput struct {
	Method        enums.PaymentMethod `json:"method" validate:"required,enum"`
	Amount        decimal.Decimal     `json:"amount"`
	PayoutAccount string              `json:"payout_account,omitempty" validate:"omitempty,max=200"`
}

// UpdateStatusInput moves an order to a new status.
type UpdateStatusInput struct {
	Status enums.OrderStatus `json:"status" validate:"required,enum"`
	Note   string            `json:"note,omitempty" validate:"omitempty,max=1000"`
	Notify bool              `json:"notify"`
	// ExpectedStatuses, when set, rejects the change with STATE_CONFLICT unless
	// the stored status is one of them at write time.
	ExpectedStatuses []enums.OrderStatus `json:"-"`
}

// ReOfferInput revises the quote after inspection.
type ReOfferInput struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"required,max=1000"`
	Notify bool            `json:"notify"`
}

// CustomerActionInput is a self-service request from the order owner.
type CustomerActionInput struct {
	Action enums.CustomerAction `json:"action" validate:"required,enum"`
	Note   string               `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// AppendActivityInput is a free-form activity entry.
type AppendActivityInput struct {
	Action  string         `json:"action" validate:"required,max=120"`
	Context map[string]any `json:"context,omitempty"`
}

// LabelResult pairs a generated label with the updated order.
type LabelResult struct {
	Label types.Label   `json:"label"`
	Order *models.Order `json:"order"`
}

// OrderList is a page of orders.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// UserOrderList is a page of a customer's mirrored orders.
type UserOrderList struct {
	Orders     []models.UserOrderMirror `json:"orders"`
	NextCursor string                   `json:"next_cursor,omitempty"`
}
