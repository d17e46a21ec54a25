package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tradein-backend/api/controllers"
	"github.com/angelmondragon/tradein-backend/api/middleware"
	internalorders "github.com/angelmondragon/tradein-backend/internal/orders"
	"github.com/angelmondragon/tradein-backend/internal/webhooks"
	carrierwebhook "github.com/angelmondragon/tradein-backend/internal/webhooks/carrier"
	stripewebhook "github.com/angelmondragon/tradein-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/tradein-backend/internal/wholesale"
	"github.com/angelmondragon/tradein-backend/pkg/config"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
	"github.com/angelmondragon/tradein-backend/pkg/metrics"
	"github.com/angelmondragon/tradein-backend/pkg/pagination"
	pkgredis "github.com/angelmondragon/tradein-backend/pkg/redis"
)

// OrdersService is the slice of the order mutation core exposed over HTTP.
type OrdersService interface {
	CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.UserOrderList, error)
	CustomerAction(ctx context.Context, orderID, userID uuid.UUID, input internalorders.CustomerActionInput) (*models.Order, error)
	ListOrders(ctx context.Context, filter internalorders.ListFilter, params pagination.Params) (*internalorders.OrderList, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListAuditLogs(ctx context.Context, orderID uuid.UUID) ([]models.AdminAuditLog, error)
	GenerateInboundLabel(ctx context.Context, orderID uuid.UUID, actor string) (*internalorders.LabelResult, error)
	VoidLabel(ctx context.Context, orderID uuid.UUID, labelID, actor string) (*models.Order, error)
	AppendActivity(ctx context.Context, orderID uuid.UUID, actor string, input internalorders.AppendActivityInput) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, input internalorders.UpdateStatusInput, actor string) (*models.Order, error)
	ProposeReOffer(ctx context.Context, orderID uuid.UUID, input internalorders.ReOfferInput, actor string) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID, actor string) error
}

// WholesaleService backs the buyer catalog and checkout.
type WholesaleService interface {
	ListInventory(ctx context.Context) ([]models.WholesaleItem, error)
	Checkout(ctx context.Context, input wholesale.CheckoutInput) (*wholesale.CheckoutResult, error)
}

// WebhookProcessor verifies, claims and applies provider deliveries.
type WebhookProcessor interface {
	Handle(ctx context.Context, provider string, body []byte, signature string) (webhooks.Result, error)
}

// RedisStore holds idempotency records and rate limit counters.
type RedisStore interface {
	pkgredis.IdempotencyStore
	middleware.RateLimiter
	Ping(ctx context.Context) error
}

// Dependencies are the services cmd/api builds once and hands to the router.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       RedisStore
	Orders      OrdersService
	Wholesale   WholesaleService
	Webhooks    WebhookProcessor
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

const requestTimeout = 30 * time.Second

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		chimw.RealIP,
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg, deps.HTTPMetrics),
		chimw.Timeout(requestTimeout),
	)

	var idempotencyStore pkgredis.IdempotencyStore
	var limiter middleware.RateLimiter
	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		limiter = deps.Redis
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", controllers.Webhook(deps.Webhooks, stripewebhook.Provider, stripewebhook.SignatureHeader, logg))
		r.Post("/carrier", controllers.Webhook(deps.Webhooks, carrierwebhook.Provider, carrierwebhook.SignatureHeader, logg))
	})

	r.With(
		middleware.OptionalAuth(cfg.JWT, logg),
		middleware.OrderIntakeRateLimit(limiter, cfg.RateLimit, logg),
	).Post("/api/v1/orders", controllers.CreateOrder(deps.Orders, logg))

	r.Route("/api/v1/me", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Get("/orders", controllers.MyOrders(deps.Orders, logg))
		r.Post("/orders/{orderId}/actions", controllers.MyOrderAction(deps.Orders, logg))
	})

	r.Route("/api/v1/wholesale", func(r chi.Router) {
		r.Get("/inventory", controllers.WholesaleInventory(deps.Wholesale, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(logg, enums.RoleBuyer, enums.RoleAdmin))
			r.Use(middleware.Idempotency(idempotencyStore, logg))
			r.Post("/checkout", controllers.WholesaleCheckout(deps.Wholesale, logg))
		})
	})

	r.Route("/api/v1/admin/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
		r.Route("/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.AdminGetOrder(deps.Orders, logg))
			r.Delete("/", controllers.AdminDeleteOrder(deps.Orders, logg))
			r.Get("/audit", controllers.AdminOrderAudit(deps.Orders, logg))
			r.Post("/labels", controllers.AdminCreateLabel(deps.Orders, logg))
			r.Delete("/labels/{labelId}", controllers.AdminVoidLabel(deps.Orders, logg))
			r.Post("/activity", controllers.AdminAppendActivity(deps.Orders, logg))
			r.Post("/status", controllers.AdminUpdateStatus(deps.Orders, logg))
			r.Post("/re-offer", controllers.AdminReOffer(deps.Orders, logg))
		})
	})

	return r
}
