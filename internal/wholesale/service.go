// Package wholesale runs the B2B catalog checkout and its payment reconciliation.
package wholesale

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradein-backend/internal/notifications"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/tradein-backend/pkg/stripe"
	"github.com/angelmondragon/tradein-backend/pkg/types"
	"github.com/angelmondragon/tradein-backend/pkg/validation"
)

const (
	defaultCurrency       = "usd"
	defaultReservationTTL = 30 * time.Minute
)

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type numberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB) (string, error)
}

// PaymentCreator opens card payments for checkouts.
type PaymentCreator interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (pkgstripe.Intent, error)
}

// ServiceParams wires the wholesale service.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	Allocator      numberAllocator
	Payments       PaymentCreator
	Notifier       notifications.Notifier
	Logger         *logger.Logger
	Currency       string
	ReservationTTL time.Duration
	Now            func() time.Time
}

// Service implements catalog listing, checkout and payment settlement.
type Service struct {
	repo      Repository
	tx        txRunner
	allocator numberAllocator
	payments  PaymentCreator
	notifier  notifications.Notifier
	logg      *logger.Logger
	currency  string
	ttl       time.Duration
	now       func() time.Time
}

// NewService validates the dependencies and builds the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wholesale repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Allocator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order number allocator required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment creator required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.NewLogNotifier(params.Logger)
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	ttl := params.ReservationTTL
	if ttl <= 0 {
		ttl = defaultReservationTTL
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:      params.Repo,
		tx:        params.Tx,
		allocator: params.Allocator,
		payments:  params.Payments,
		notifier:  notifier,
		logg:      params.Logger,
		currency:  currency,
		ttl:       ttl,
		now:       now,
	}, nil
}

// ListInventory returns the purchasable catalog.
func (s *Service) ListInventory(ctx context.Context) ([]models.WholesaleItem, error) {
	return s.repo.ListInventory(ctx, true)
}

// CheckoutLine is one requested catalog item.
type CheckoutLine struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1,max=1000"`
}

// CheckoutInput is a buyer's cart.
type CheckoutInput struct {
	UserID     uuid.UUID      `json:"-"`
	BuyerEmail string         `json:"buyer_email" validate:"required,email"`
	BuyerName  string         `json:"buyer_name,omitempty" validate:"omitempty,max=200"`
	Items      []CheckoutLine `json:"items" validate:"required,min=1,max=50,dive"`
}

// CheckoutResult hands the client secret back to the buyer.
type CheckoutResult struct {
	Order        *models.WholesaleOrder `json:"order"`
	ClientSecret string                 `json:"client_secret"`
}

// Checkout reserves stock under a new WHL order, then opens the payment intent.
// A failed intent releases the reservation.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	lines := mergeLines(input.Items)

	var order *models.WholesaleOrder
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()

		reserved := make(types.WholesaleLines, 0, len(lines))
		for _, line := range lines {
			item, err := repo.FindItem(ctx, line.ItemID)
			if err != nil {
				return err
			}
			if !item.Active {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "item is not available").
					WithDetails(map[string]any{"item_id": item.ID})
			}
			if err := repo.ReserveStock(ctx, item.ID, line.Quantity, now); err != nil {
				return err
			}
			reserved = append(reserved, types.WholesaleLine{
				ItemID:    item.ID.String(),
				SKU:       item.SKU,
				Title:     item.Title,
				Quantity:  line.Quantity,
				UnitPrice: item.Price,
				LineTotal: item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
			})
		}

		number, err := s.allocator.Next(ctx, tx)
		if err != nil {
			return err
		}
		created := &models.WholesaleOrder{
			ID:          uuid.New(),
			OrderNumber: number,
			UserID:      input.UserID,
			BuyerEmail:  strings.TrimSpace(input.BuyerEmail),
			BuyerName:   strings.TrimSpace(input.BuyerName),
			Items:       reserved,
			Amount:      reserved.Total(),
			Currency:    s.currency,
			Status:      enums.WholesaleOrderStatusPending,
			ExpiresAt:   now.Add(s.ttl),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.CreateOrder(ctx, created); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithField(ctx, "wholesale_order_number", order.OrderNumber)
	intent, err := s.payments.CreatePaymentIntent(ctx, order.Amount, order.Currency, map[string]string{
		pkgstripe.MetadataKind:        pkgstripe.KindWholesale,
		pkgstripe.MetadataOrderID:     order.ID.String(),
		pkgstripe.MetadataOrderNumber: order.OrderNumber,
	})
	if err != nil {
		if _, expireErr := s.Expire(ctx, order.ID); expireErr != nil {
			s.logg.Error(ctx, "release reservation after payment failure", expireErr)
		}
		return nil, err
	}

	err = s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		intentID := intent.PaymentIntentID
		current.PaymentIntentID = &intentID
		current.UpdatedAt = s.now()
		if err := repo.UpdateOrder(ctx, current, current.Status); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "payment_intent_id", intent.PaymentIntentID), "link payment intent to wholesale order", err)
		return nil, err
	}
	return &CheckoutResult{Order: order, ClientSecret: intent.ClientSecret}, nil
}

// MarkPaid settles the order holding paymentIntentID. Settling twice is a
// no-op; a payment arriving after expiry is STATE_CONFLICT.
func (s *Service) MarkPaid(ctx context.Context, paymentIntentID string) (*models.WholesaleOrder, error) {
	var (
		order   *models.WholesaleOrder
		settled bool
	)
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		settled = false
		repo := s.repo.WithTx(tx)
		current, err := repo.FindOrderByPaymentIntent(ctx, paymentIntentID)
		if err != nil {
			return err
		}
		order = current
		switch current.Status {
		case enums.WholesaleOrderStatusPaid:
			return nil
		case enums.WholesaleOrderStatusExpired:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "wholesale order expired before payment").
				WithDetails(map[string]any{"order_number": current.OrderNumber})
		}
		previous := current.Status
		paidAt := s.now()
		current.Status = enums.WholesaleOrderStatusPaid
		current.PaidAt = &paidAt
		current.UpdatedAt = paidAt
		if err := repo.UpdateOrder(ctx, current, previous); err != nil {
			return err
		}
		settled = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if settled {
		s.notifyPaid(ctx, order)
	}
	return order, nil
}

// MarkPaymentFailed records a declined attempt. The reservation holds until
// expiry so the buyer can retry the same intent.
func (s *Service) MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) (*models.WholesaleOrder, error) {
	var order *models.WholesaleOrder
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindOrderByPaymentIntent(ctx, paymentIntentID)
		if err != nil {
			return err
		}
		order = current
		if current.Status != enums.WholesaleOrderStatusPending {
			return nil
		}
		current.Status = enums.WholesaleOrderStatusPaymentFailed
		current.UpdatedAt = s.now()
		return repo.UpdateOrder(ctx, current, enums.WholesaleOrderStatusPending)
	})
	if err != nil {
		return nil, err
	}
	if reason != "" {
		s.logg.Warn(s.logg.WithField(ctx, "wholesale_order_number", order.OrderNumber), "wholesale payment failed: "+reason)
	}
	return order, nil
}

// Expire closes an unpaid order and returns its reserved stock in one
// transaction. It reports whether the order changed.
func (s *Service) Expire(ctx context.Context, orderID uuid.UUID) (bool, error) {
	expired := false
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		expired = false
		repo := s.repo.WithTx(tx)
		current, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}
		switch current.Status {
		case enums.WholesaleOrderStatusPending, enums.WholesaleOrderStatusPaymentFailed:
		default:
			return nil
		}

		now := s.now()
		previous := current.Status
		current.Status = enums.WholesaleOrderStatusExpired
		current.UpdatedAt = now
		if err := repo.UpdateOrder(ctx, current, previous); err != nil {
			return err
		}
		for _, line := range current.Items {
			itemID, err := uuid.Parse(line.ItemID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "wholesale line item id")
			}
			if err := repo.ReleaseStock(ctx, itemID, line.Quantity, now); err != nil {
				return err
			}
		}
		expired = true
		return nil
	})
	return expired, err
}

// ListExpired returns unpaid orders whose reservation lapsed before now.
func (s *Service) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.WholesaleOrder, error) {
	return s.repo.ListExpired(ctx, now, limit)
}

func (s *Service) notifyPaid(ctx context.Context, order *models.WholesaleOrder) {
	n := notifications.Notification{
		Kind:        notifications.KindWholesalePaid,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Recipient:   order.BuyerEmail,
		Name:        order.BuyerName,
		Status:      string(order.Status),
		Data:        map[string]any{"amount": order.Amount.String(), "currency": order.Currency},
		OccurredAt:  s.now(),
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logg.Error(ctx, "wholesale notification failed", err)
		}
	}()
}

// mergeLines folds repeated items into one line, keeping first-seen order.
func mergeLines(lines []CheckoutLine) []CheckoutLine {
	merged := make([]CheckoutLine, 0, len(lines))
	index := map[uuid.UUID]int{}
	for _, line := range lines {
		if i, ok := index[line.ItemID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ItemID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}
