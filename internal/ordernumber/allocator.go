// Package ordernumber hands out human-readable sequential order numbers.
package ordernumber

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tradein-backend/internal/repo"
	"github.com/angelmondragon/tradein-backend/pkg/db"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

const (
	// CounterOrders numbers trade-in orders.
	CounterOrders = "orders"
	// CounterWholesale numbers wholesale orders.
	CounterWholesale = "wholesale_orders"

	DefaultPrefix = "ORD"
	DefaultWidth  = 7
)

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Allocator increments a named counter row and formats the result.
type Allocator struct {
	repo.Base
	tx      txRunner
	counter string
	prefix  string
	width   int
	now     func() time.Time
}

// Option customizes an Allocator.
type Option func(*Allocator)

// WithCounter selects the counter row backing the sequence.
func WithCounter(name string) Option {
	return func(a *Allocator) {
		if name != "" {
			a.counter = name
		}
	}
}

// WithFormat overrides the prefix and zero padding width.
func WithFormat(prefix string, width int) Option {
	return func(a *Allocator) {
		if prefix != "" {
			a.prefix = prefix
		}
		if width > 0 {
			a.width = width
		}
	}
}

// NewAllocator builds an allocator over the shared db client.
func NewAllocator(client *db.Client, opts ...Option) *Allocator {
	a := &Allocator{
		Base:    repo.NewBase(client.DB()),
		tx:      client,
		counter: CounterOrders,
		prefix:  DefaultPrefix,
		width:   DefaultWidth,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next allocates the next number inside the caller's transaction. A lost
// compare-and-swap returns db.ErrWriteConflict so the surrounding
// WithTxRetry replays the whole transaction.
func (a *Allocator) Next(ctx context.Context, tx *gorm.DB) (string, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "order number allocation requires a transaction")
	}
	conn := a.Conn(ctx, tx)

	var counter models.OrderCounter
	err := conn.Where("name = ?", a.counter).Take(&counter).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		counter = models.OrderCounter{Name: a.counter, Value: 0}
	case err != nil:
		return "", fmt.Errorf("read order counter %q: %w", a.counter, err)
	}

	next := counter.Value + 1
	if err := a.advance(conn, counter.Value, next); err != nil {
		return "", err
	}
	return Format(a.prefix, a.width, next), nil
}

// advance moves the counter from current to next, failing with
// db.ErrWriteConflict when the stored value is no longer current.
func (a *Allocator) advance(conn *gorm.DB, current, next int64) error {
	now := a.now()

	var res *gorm.DB
	if current == 0 {
		res = conn.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.OrderCounter{Name: a.counter, Value: next, UpdatedAt: now})
	} else {
		res = conn.Model(&models.OrderCounter{}).
			Where("name = ? AND value = ?", a.counter, current).
			Updates(map[string]any{"value": next, "updated_at": now})
	}
	return repo.Conditional(res, "advance order counter "+a.counter)
}

// AllocateOrderNumber opens its own transaction for callers that only need a number.
func (a *Allocator) AllocateOrderNumber(ctx context.Context) (string, error) {
	var number string
	err := a.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		var err error
		number, err = a.Next(ctx, tx)
		return err
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

// Format renders value as <prefix>-<zero padded value>.
func Format(prefix string, width int, value int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, width, value)
}
