package wholesale

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradein-backend/internal/repo"
	"github.com/angelmondragon/tradein-backend/pkg/db"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

// Repository persists the wholesale catalog and its orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListInventory(ctx context.Context, activeOnly bool) ([]models.WholesaleItem, error)
	FindItem(ctx context.Context, id uuid.UUID) (*models.WholesaleItem, error)
	ReserveStock(ctx context.Context, itemID uuid.UUID, quantity int, at time.Time) error
	ReleaseStock(ctx context.Context, itemID uuid.UUID, quantity int, at time.Time) error
	CreateOrder(ctx context.Context, order *models.WholesaleOrder) error
	UpdateOrder(ctx context.Context, order *models.WholesaleOrder, expected enums.WholesaleOrderStatus) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.WholesaleOrder, error)
	FindOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.WholesaleOrder, error)
	ListExpired(ctx context.Context, before time.Time, limit int) ([]models.WholesaleOrder, error)
}

type repository struct {
	repo.Base
	tx *gorm.DB
}

// NewRepository builds a wholesale repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base, tx: tx}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return r.Conn(ctx, r.tx)
}

func (r *repository) ListInventory(ctx context.Context, activeOnly bool) ([]models.WholesaleItem, error) {
	query := r.conn(ctx).Model(&models.WholesaleItem{})
	if activeOnly {
		query = query.Where("active = ? AND stock > 0", true)
	}
	var items []models.WholesaleItem
	if err := query.Order("brand ASC").Order("model ASC").Order("sku ASC").Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wholesale inventory")
	}
	return items, nil
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.WholesaleItem, error) {
	var item models.WholesaleItem
	if err := r.conn(ctx).Where("id = ?", id).Take(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wholesale item not found").
				WithDetails(map[string]any{"item_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wholesale item")
	}
	return &item, nil
}

// ReserveStock decrements stock only when enough remains.
func (r *repository) ReserveStock(ctx context.Context, itemID uuid.UUID, quantity int, at time.Time) error {
	res := r.conn(ctx).Model(&models.WholesaleItem{}).
		Where("id = ? AND active = ? AND stock >= ?", itemID, true, quantity).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": at,
		})
	if res.Error != nil {
		return repo.WriteError(res.Error, "reserve wholesale stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
			WithDetails(map[string]any{"item_id": itemID, "quantity": quantity})
	}
	return nil
}

func (r *repository) ReleaseStock(ctx context.Context, itemID uuid.UUID, quantity int, at time.Time) error {
	err := r.conn(ctx).Model(&models.WholesaleItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", quantity),
			"updated_at": at,
		}).Error
	return repo.WriteError(err, "release wholesale stock")
}

func (r *repository) CreateOrder(ctx context.Context, order *models.WholesaleOrder) error {
	return repo.WriteError(r.conn(ctx).Create(order).Error, "create wholesale order")
}

// UpdateOrder writes the order only while its stored status is still expected.
func (r *repository) UpdateOrder(ctx context.Context, order *models.WholesaleOrder, expected enums.WholesaleOrderStatus) error {
	res := r.conn(ctx).
		Select("*").
		Omit("id", "order_number", "created_at").
		Where("status = ?", expected).
		Updates(order)
	if res.Error != nil && !db.IsConflict(res.Error) && db.IsUniqueViolation(res.Error, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, res.Error, "payment intent already linked")
	}
	return repo.Conditional(res, "update wholesale order")
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.WholesaleOrder, error) {
	return r.findOrder(ctx, "id = ?", id)
}

func (r *repository) FindOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.WholesaleOrder, error) {
	return r.findOrder(ctx, "payment_intent_id = ?", paymentIntentID)
}

func (r *repository) findOrder(ctx context.Context, where string, arg any) (*models.WholesaleOrder, error) {
	var order models.WholesaleOrder
	if err := r.conn(ctx).Where(where, arg).Take(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wholesale order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wholesale order")
	}
	return &order, nil
}

// ListExpired returns unpaid orders whose reservation lapsed before the cutoff.
func (r *repository) ListExpired(ctx context.Context, before time.Time, limit int) ([]models.WholesaleOrder, error) {
	var rows []models.WholesaleOrder
	err := r.conn(ctx).
		Where("status IN ? AND expires_at < ?", []enums.WholesaleOrderStatus{
			enums.WholesaleOrderStatusPending,
			enums.WholesaleOrderStatusPaymentFailed,
		}, before.UTC()).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired wholesale orders")
	}
	return rows, nil
}
