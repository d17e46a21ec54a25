package types

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradein-backend/pkg/enums"
)

// ShippingInfo is the customer's contact and return address.
type ShippingInfo struct {
	FullName      string `json:"full_name" validate:"required,max=200"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone,omitempty" validate:"omitempty,max=32"`
	StreetAddress string `json:"street_address" validate:"required,max=300"`
	City          string `json:"city" validate:"required,max=120"`
	State         string `json:"state" validate:"required,max=64"`
	ZipCode       string `json:"zip_code" validate:"required,max=16"`
	Country       string `json:"country,omitempty" validate:"omitempty,len=2"`
}

// Device describes the handset being traded in.
type Device struct {
	Brand     string                `json:"brand" validate:"required,max=64"`
	Model     string                `json:"model" validate:"required,max=128"`
	Storage   string                `json:"storage" validate:"required,max=32"`
	Condition enums.DeviceCondition `json:"condition" validate:"required,enum"`
	Carrier   string                `json:"carrier,omitempty" validate:"omitempty,max=64"`
	IMEI      string                `json:"imei,omitempty" validate:"omitempty,numeric,min=14,max=16"`
}

// Payment holds the quoted payout and its settlement state.
type Payment struct {
	Method          enums.PaymentMethod `json:"method" validate:"required,enum"`
	Status          enums.PaymentStatus `json:"status" validate:"required,enum"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency,omitempty"`
	PaymentIntentID string              `json:"payment_intent_id,omitempty"`
	PayoutAccount   string              `json:"payout_account,omitempty" validate:"omitempty,max=200"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
}

// StatusEntry is one step of an order's append-only status timeline.
type StatusEntry struct {
	Status enums.OrderStatus `json:"status" validate:"required,enum"`
	Actor  string            `json:"actor"`
	At     time.Time         `json:"at"`
	Note   string            `json:"note,omitempty"`
}

// StatusTimeline is ordered oldest first.
type StatusTimeline []StatusEntry

// ReOffer is a revised quote issued after inspection.
type ReOffer struct {
	CurrentOffer decimal.Decimal     `json:"current_offer"`
	Reason       string              `json:"reason"`
	Status       enums.ReOfferStatus `json:"status" validate:"required,enum"`
	ProposedBy   string              `json:"proposed_by"`
	ProposedAt   time.Time           `json:"proposed_at"`
	RespondedAt  *time.Time          `json:"responded_at,omitempty"`
	History      []ReOfferRevision   `json:"history,omitempty"`
}

// ReOfferRevision keeps superseded offers.
type ReOfferRevision struct {
	Offer      decimal.Decimal     `json:"offer"`
	Reason     string              `json:"reason"`
	Status     enums.ReOfferStatus `json:"status"`
	ProposedBy string              `json:"proposed_by"`
	ProposedAt time.Time           `json:"proposed_at"`
}
