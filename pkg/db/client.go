package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/tradein-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
	"github.com/angelmondragon/tradein-backend/pkg/logger"
)

const (
	defaultTxAttempts = 5
	defaultTxBackoff  = 20 * time.Millisecond
	maxTxBackoff      = time.Second
)

// Client wraps the shared GORM connection.
type Client struct {
	conn       *gorm.DB
	txAttempts int
	txBackoff  time.Duration
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option tweaks a Client built around an existing connection.
type Option func(*Client)

// WithRetryPolicy overrides the conflict retry budget used by WithTxRetry.
func WithRetryPolicy(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.txAttempts = attempts
		}
		if backoff > 0 {
			c.txBackoff = backoff
		}
	}
}

// New boots a GORM client using the provided configuration.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	})

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	applyPoolSettings(sqlDB, cfg)

	if logg != nil {
		logg.Info(ctx, "database connection established")
	}

	return NewFromConn(conn, WithRetryPolicy(cfg.MaxTxAttempts, cfg.TxRetryBackoff)), nil
}

// NewFromConn wraps an already opened GORM connection.
func NewFromConn(conn *gorm.DB, opts ...Option) *Client {
	c := &Client{conn: conn, txAttempts: defaultTxAttempts, txBackoff: defaultTxBackoff}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx executes fn inside a transaction, rolling back on error/panic.
// A context canceled before commit rolls the transaction back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// WithTxRetry runs fn in a transaction and replays the whole transaction when it
// loses an optimistic check or the database reports a serialization failure.
// Exhausting the budget yields a CodeTransactionConflict error.
func (c *Client) WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempts := c.txAttempts
	if attempts <= 0 {
		attempts = defaultTxAttempts
	}
	backoff := retry.WithCappedDuration(maxTxBackoff, retry.NewExponential(c.txBackoff))
	backoff = retry.WithMaxRetries(uint64(attempts-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.WithTx(ctx, fn)
		if err != nil && IsConflict(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && IsConflict(err) {
		return pkgerrors.Wrap(pkgerrors.CodeTransactionConflict, err, "transaction retries exhausted")
	}
	return err
}
