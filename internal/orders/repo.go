package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tradein-backend/internal/repo"
	"github.com/angelmondragon/tradein-backend/pkg/db"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	"github.com/angelmondragon/tradein-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/pagination"
)

// Repository persists orders, their user mirrors and the admin audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	UpsertMirror(ctx context.Context, mirror models.UserOrderMirror) error
	DeleteMirror(ctx context.Context, userID, orderID uuid.UUID) error
	InsertAuditLog(ctx context.Context, entry *models.AdminAuditLog) error
	ListOrders(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	ListMirrors(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.UserOrderMirror, error)
	ListAuditLogs(ctx context.Context, orderID uuid.UUID) ([]models.AdminAuditLog, error)
	SweepOrders(ctx context.Context, filter SweepFilter) ([]models.Order, error)
}

// ListFilter narrows the admin order listing.
type ListFilter struct {
	Status *enums.OrderStatus
}

// SweepFilter selects orders for the reconciliation jobs, keyset paginated by id.
type SweepFilter struct {
	Statuses      []enums.OrderStatus
	UpdatedBefore *time.Time
	WithLabels    bool
	AfterID       *uuid.UUID
	Limit         int
}

type repository struct {
	repo.Base
	tx *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
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

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.conn(ctx).Where("id = ?", id).Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

// FindOrderByTrackingNumber narrows candidates with a text match on the labels
// document and confirms the exact tracking number in Go.
func (r *repository) FindOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error) {
	trimmed := strings.TrimSpace(trackingNumber)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}
	var candidates []models.Order
	err := r.conn(ctx).
		Where(`CAST(labels AS TEXT) LIKE ? ESCAPE '\'`, "%"+escapeLike(trimmed)+"%").
		Order("created_at DESC").
		Limit(10).
		Find(&candidates).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order by tracking number")
	}
	for i := range candidates {
		if _, ok := candidates[i].Labels.FindByTracking(trimmed); ok {
			return &candidates[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order carries that tracking number")
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.conn(ctx).Create(order).Error; err != nil {
		if db.IsConflict(err) {
			return db.ErrWriteConflict
		}
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}

// UpdateOrder writes the whole document when the stored version still matches
// order.Version, then advances it. A stale version is db.ErrWriteConflict.
func (r *repository) UpdateOrder(ctx context.Context, order *models.Order) error {
	expected := order.Version
	order.Version = expected + 1
	res := r.conn(ctx).
		Select("*").
		Omit("id", "order_number", "created_at").
		Where("version = ?", expected).
		Updates(order)
	if err := repo.Conditional(res, "update order"); err != nil {
		order.Version = expected
		return err
	}
	return nil
}

func (r *repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return repo.Conditional(r.conn(ctx).Where("id = ?", id).Delete(&models.Order{}), "delete order")
}

func (r *repository) UpsertMirror(ctx context.Context, mirror models.UserOrderMirror) error {
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "order_id"}},
		UpdateAll: true,
	}).Create(&mirror).Error
	return repo.WriteError(err, "upsert order mirror")
}

func (r *repository) DeleteMirror(ctx context.Context, userID, orderID uuid.UUID) error {
	err := r.conn(ctx).
		Where("user_id = ? AND order_id = ?", userID, orderID).
		Delete(&models.UserOrderMirror{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order mirror")
	}
	return nil
}

func (r *repository) InsertAuditLog(ctx context.Context, entry *models.AdminAuditLog) error {
	return repo.WriteError(r.conn(ctx).Create(entry).Error, "insert audit log")
}

func (r *repository) ListOrders(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	query := r.conn(ctx).Model(&models.Order{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Order
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (r *repository) ListMirrors(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.UserOrderMirror, error) {
	query := r.conn(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(updated_at < ?) OR (updated_at = ? AND order_id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.UserOrderMirror
	if err := query.Order("updated_at DESC").Order("order_id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user orders")
	}
	return rows, nil
}

func (r *repository) ListAuditLogs(ctx context.Context, orderID uuid.UUID) ([]models.AdminAuditLog, error) {
	var rows []models.AdminAuditLog
	err := r.conn(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit logs")
	}
	return rows, nil
}

func (r *repository) SweepOrders(ctx context.Context, filter SweepFilter) ([]models.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	query := r.conn(ctx).Model(&models.Order{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.UpdatedBefore != nil {
		query = query.Where("updated_at < ?", filter.UpdatedBefore.UTC())
	}
	if filter.WithLabels {
		query = query.Where("labels IS NOT NULL AND CAST(labels AS TEXT) NOT IN ('null', '[]')")
	}
	if filter.AfterID != nil {
		query = query.Where("id > ?", *filter.AfterID)
	}
	var rows []models.Order
	if err := query.Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sweep orders: %w", err)
	}
	return rows, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
