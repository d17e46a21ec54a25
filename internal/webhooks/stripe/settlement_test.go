package stripewebhook

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/tradein-backend/internal/notifications"
	"github.com/angelmondragon/tradein-backend/internal/ordernumber"
	"github.com/angelmondragon/tradein-backend/internal/orders"
	"github.com/angelmondragon/tradein-backend/internal/shipping"
	"github.com/angelmondragon/tradein-backend/internal/webhooks"
	"github.com/angelmondragon/tradein-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/tradein-backend/pkg/stripe"
	"github.com/angelmondragon/tradein-backend/pkg/stripe/stripetest"
	"github.com/angelmondragon/tradein-backend/pkg/types"
)

func TestRedeliveredPaymentSettlesOrderOnce(t *testing.T) {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "stripe-settlement-test", Output: io.Discard})
	client := dbtest.NewClient(t)

	svc, err := orders.NewService(orders.ServiceParams{
		Repo:      orders.NewRepository(client.DB()),
		Tx:        client,
		Allocator: ordernumber.NewAllocator(client),
		Shipping:  shipping.NewMock(),
		Notifier:  notifications.NewLogNotifier(logg),
		Logger:    logg,
	})
	require.NoError(t, err)
	src, err := NewSource(SourceParams{
		Verifier:  secretVerifier{},
		Orders:    svc,
		Wholesale: &stubWholesale{},
		Logger:    logg,
	})
	require.NoError(t, err)
	processor, err := webhooks.NewProcessor(webhooks.ProcessorParams{
		Store:   webhooks.NewDBStore(client.DB()),
		Sources: []webhooks.Source{src},
		Logger:  logg,
	})
	require.NoError(t, err)

	order, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
		ShippingInfo: types.ShippingInfo{
			FullName:      "Lee Park",
			Email:         "lee@example.com",
			StreetAddress: "9 Oak Ave",
			City:          "Portland",
			State:         "OR",
			ZipCode:       "97201",
		},
		Device: types.Device{
			Brand:     "Google",
			Model:     "Pixel 7",
			Storage:   "128GB",
			Condition: enums.DeviceConditionGood,
		},
		Payment: orders.CreatePaymentInput{
			Method: enums.PaymentMethodPayPal,
			Amount: decimal.RequireFromString("220.00"),
		},
		Actor: "web",
	})
	require.NoError(t, err)

	body, sig := stripetest.PaymentIntentEvent(t, secret, "evt_1", stripe.EventTypePaymentIntentSucceeded, "pi_1", map[string]string{
		pkgstripe.MetadataKind:    pkgstripe.KindTradeIn,
		pkgstripe.MetadataOrderID: order.ID.String(),
	})

	first, err := processor.Handle(ctx, Provider, body, sig)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	settled, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, settled.Payment.Status)
	require.Len(t, settled.ActivityLogs, 2)
	audits, err := svc.ListAuditLogs(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, audits, 2)

	second, err := processor.Handle(ctx, Provider, body, sig)
	require.NoError(t, err)
	require.True(t, second.Duplicate)

	final, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, final.Payment.Status)
	require.Len(t, final.ActivityLogs, 2)
	require.Equal(t, settled.Version, final.Version)
	again, err := svc.ListAuditLogs(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, again, 2)

	var events int64
	require.NoError(t, client.DB().Model(&models.WebhookEvent{}).Where("event_id = ?", "evt_1").Count(&events).Error)
	require.Equal(t, int64(1), events)
}
