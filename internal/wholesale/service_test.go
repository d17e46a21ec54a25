package wholesale

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradein-backend/internal/notifications"
	"github.com/angelmondragon/tradein-backend/internal/ordernumber"
	"github.com/angelmondragon/tradein-backend/pkg/db"
	"github.com/angelmondragon/tradein-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/tradein-backend/pkg/stripe"
)

type fakePayments struct {
	mu       sync.Mutex
	err      error
	calls    int
	metadata map[string]string
	amount   decimal.Decimal
}

func (f *fakePayments) CreatePaymentIntent(_ context.Context, amount decimal.Decimal, _ string, metadata map[string]string) (pkgstripe.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return pkgstripe.Intent{}, f.err
	}
	f.metadata = metadata
	f.amount = amount
	return pkgstripe.Intent{
		PaymentIntentID: fmt.Sprintf("pi_%d", f.calls),
		ClientSecret:    fmt.Sprintf("pi_%d_secret", f.calls),
	}, nil
}

type chanNotifier struct {
	sent chan notifications.Notification
}

func (c *chanNotifier) Notify(_ context.Context, n notifications.Notification) error {
	c.sent <- n
	return nil
}

type fixture struct {
	client   *db.Client
	svc      *Service
	payments *fakePayments
	notifier *chanNotifier
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.NewClient(t)
	f := &fixture{
		client:   client,
		payments: &fakePayments{},
		notifier: &chanNotifier{sent: make(chan notifications.Notification, 4)},
		clock:    time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repo: NewRepository(client.DB()),
		Tx:   client,
		Allocator: ordernumber.NewAllocator(client,
			ordernumber.WithCounter(ordernumber.CounterWholesale),
			ordernumber.WithFormat("WHL", 6)),
		Payments:       f.payments,
		Notifier:       f.notifier,
		Logger:         logger.New(logger.Options{ServiceName: "wholesale-test", Output: io.Discard}),
		ReservationTTL: 30 * time.Minute,
		Now:            func() time.Time { return f.clock },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seedItem(t *testing.T, sku string, price string, stock int) models.WholesaleItem {
	t.Helper()
	item := models.WholesaleItem{
		ID:     uuid.New(),
		SKU:    sku,
		Title:  "iPhone 12 64GB Grade B",
		Brand:  "Apple",
		Model:  "iPhone 12",
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	}
	require.NoError(t, f.client.DB().Create(&item).Error)
	return item
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var item models.WholesaleItem
	require.NoError(t, f.client.DB().Where("id = ?", id).Take(&item).Error)
	return item.Stock
}

func checkout(userID uuid.UUID, lines ...CheckoutLine) CheckoutInput {
	return CheckoutInput{
		UserID:     userID,
		BuyerEmail: "buyer@resale.example",
		BuyerName:  "Resale Co",
		Items:      lines,
	}
}

func TestCheckout_ReservesStockAndOpensIntent(t *testing.T) {
	f := newFixture(t)
	phone := f.seedItem(t, "IP12-64-B", "210.50", 10)
	tablet := f.seedItem(t, "IPAD9-64-A", "180", 4)

	result, err := f.svc.Checkout(context.Background(), checkout(uuid.New(),
		CheckoutLine{ItemID: phone.ID, Quantity: 2},
		CheckoutLine{ItemID: tablet.ID, Quantity: 1},
		CheckoutLine{ItemID: phone.ID, Quantity: 1},
	))
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, "WHL-000001", order.OrderNumber)
	assert.Equal(t, enums.WholesaleOrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.True(t, order.Amount.Equal(decimal.RequireFromString("811.50")), "amount %s", order.Amount)
	require.NotNil(t, order.PaymentIntentID)
	assert.Equal(t, "pi_1", *order.PaymentIntentID)
	assert.Equal(t, "pi_1_secret", result.ClientSecret)
	assert.WithinDuration(t, f.clock.Add(30*time.Minute), order.ExpiresAt, time.Second)

	assert.Equal(t, pkgstripe.KindWholesale, f.payments.metadata[pkgstripe.MetadataKind])
	assert.Equal(t, order.ID.String(), f.payments.metadata[pkgstripe.MetadataOrderID])
	assert.True(t, f.payments.amount.Equal(order.Amount))

	assert.Equal(t, 7, f.stock(t, phone.ID))
	assert.Equal(t, 3, f.stock(t, tablet.ID))
}

func TestCheckout_InsufficientStockReservesNothing(t *testing.T) {
	f := newFixture(t)
	phone := f.seedItem(t, "IP12-64-B", "210.50", 5)
	tablet := f.seedItem(t, "IPAD9-64-A", "180", 1)

	_, err := f.svc.Checkout(context.Background(), checkout(uuid.New(),
		CheckoutLine{ItemID: phone.ID, Quantity: 2},
		CheckoutLine{ItemID: tablet.ID, Quantity: 2},
	))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	assert.Equal(t, 5, f.stock(t, phone.ID))
	assert.Equal(t, 1, f.stock(t, tablet.ID))
	assert.Zero(t, f.payments.calls)

	var orders int64
	require.NoError(t, f.client.DB().Model(&models.WholesaleOrder{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestCheckout_PaymentFailureReleasesReservation(t *testing.T) {
	f := newFixture(t)
	phone := f.seedItem(t, "IP12-64-B", "210.50", 5)
	f.payments.err = pkgerrors.New(pkgerrors.CodeAdapter, "stripe down")

	_, err := f.svc.Checkout(context.Background(), checkout(uuid.New(), CheckoutLine{ItemID: phone.ID, Quantity: 2}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAdapter), "got %v", err)
	assert.Equal(t, 5, f.stock(t, phone.ID))

	var order models.WholesaleOrder
	require.NoError(t, f.client.DB().Take(&order).Error)
	assert.Equal(t, enums.WholesaleOrderStatusExpired, order.Status)
}

func TestCheckout_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), checkout(uuid.New()))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.Checkout(context.Background(), checkout(uuid.New(), CheckoutLine{ItemID: uuid.New(), Quantity: 0}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = f.svc.Checkout(context.Background(), checkout(uuid.New(), CheckoutLine{ItemID: uuid.New(), Quantity: 1}))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestMarkPaid_SettlesOnceAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := f.seedItem(t, "IP12-64-B", "210.50", 5)
	result, err := f.svc.Checkout(ctx, checkout(uuid.New(), CheckoutLine{ItemID: phone.ID, Quantity: 1}))
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(ctx, *result.Order.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, enums.WholesaleOrderStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	select {
	case n := <-f.notifier.sent:
		assert.Equal(t, notifications.KindWholesalePaid, n.Kind)
		assert.Equal(t, "buyer@resale.example", n.Recipient)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not sent")
	}

	again, err := f.svc.MarkPaid(ctx, *result.Order.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, enums.WholesaleOrderStatusPaid, again.Status)
	select {
	case <-f.notifier.sent:
		t.Fatal("second settlement must not notify")
	case <-time.After(50 * time.Millisecond):
	}

	_, err = f.svc.MarkPaid(ctx, "pi_unknown")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestMarkPaymentFailed_ThenPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := f.seedItem(t, "IP12-64-B", "210.50", 5)
	result, err := f.svc.Checkout(ctx, checkout(uuid.New(), CheckoutLine{ItemID: phone.ID, Quantity: 1}))
	require.NoError(t, err)
	intentID := *result.Order.PaymentIntentID

	failed, err := f.svc.MarkPaymentFailed(ctx, intentID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, enums.WholesaleOrderStatusPaymentFailed, failed.Status)
	assert.Equal(t, 4, f.stock(t, phone.ID), "reservation holds after a decline")

	paid, err := f.svc.MarkPaid(ctx, intentID)
	require.NoError(t, err)
	assert.Equal(t, enums.WholesaleOrderStatusPaid, paid.Status)
}

func TestExpire_ReleasesStockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	phone := f.seedItem(t, "IP12-64-B", "210.50", 5)
	result, err := f.svc.Checkout(ctx, checkout(uuid.New(), CheckoutLine{ItemID: phone.ID, Quantity: 3}))
	require.NoError(t, err)
	require.Equal(t, 2, f.stock(t, phone.ID))

	due, err := f.svc.ListExpired(ctx, f.clock, 10)
	require.NoError(t, err)
	assert.Empty(t, due, "reservation still valid")

	f.clock = f.clock.Add(31 * time.Minute)
	due, err = f.svc.ListExpired(ctx, f.clock, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	changed, err := f.svc.Expire(ctx, due[0].ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 5, f.stock(t, phone.ID))

	changed, err = f.svc.Expire(ctx, due[0].ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 5, f.stock(t, phone.ID))

	_, err = f.svc.MarkPaid(ctx, *result.Order.PaymentIntentID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestListInventory_HidesSoldOut(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "A-1", "10", 3)
	f.seedItem(t, "A-2", "10", 0)

	items, err := f.svc.ListInventory(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A-1", items[0].SKU)
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal), "got %v", err)
}
