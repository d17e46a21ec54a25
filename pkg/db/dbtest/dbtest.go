// Package dbtest opens throwaway sqlite databases carrying the production schema.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/tradein-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending_shipment',
  shipping_info TEXT,
  device TEXT,
  payment TEXT,
  status_timeline TEXT,
  labels TEXT,
  activity_logs TEXT,
  re_offer TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS user_order_mirrors (
  user_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  status TEXT NOT NULL,
  labels TEXT,
  activity_logs TEXT,
  updated_at DATETIME,
  PRIMARY KEY (user_id, order_id)
);`,
	`CREATE TABLE IF NOT EXISTS admin_audit_logs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  action TEXT NOT NULL,
  actor TEXT NOT NULL,
  details TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS order_counters (
  name TEXT PRIMARY KEY,
  value INTEGER NOT NULL,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  synthetic INTEGER NOT NULL DEFAULT 0,
  payload_hash TEXT NOT NULL,
  claimed_at DATETIME NOT NULL,
  processed_at DATETIME,
  UNIQUE (provider, event_id)
);`,
	`CREATE TABLE IF NOT EXISTS wholesale_inventory (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  brand TEXT NOT NULL,
  model TEXT NOT NULL,
  storage TEXT,
  grade TEXT,
  price NUMERIC NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS wholesale_orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  buyer_email TEXT NOT NULL,
  buyer_name TEXT,
  items TEXT,
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL,
  payment_intent_id TEXT UNIQUE,
  status TEXT NOT NULL DEFAULT 'pending',
  paid_at DATETIME,
  expires_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
}

// Open returns a gorm handle on a fresh file-backed sqlite database limited to
// one connection, so concurrent transactions serialize the way row locks would.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "tradein.sqlite") + "?_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// NewClient wraps Open in a db.Client with a fast retry policy.
func NewClient(t *testing.T, opts ...db.Option) *db.Client {
	t.Helper()
	opts = append([]db.Option{db.WithRetryPolicy(8, time.Millisecond)}, opts...)
	return db.NewFromConn(Open(t), opts...)
}
