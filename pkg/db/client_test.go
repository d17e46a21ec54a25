package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "db.sqlite")
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func countModels(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return count
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := NewFromConn(db)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}
	if got := countModels(t, db); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if got := countModels(t, db); got != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", got)
	}
}

func TestWithTx_CanceledBeforeCommitRollsBack(t *testing.T) {
	db := newTestDB(t)
	client := NewFromConn(db)

	ctx, cancel := context.WithCancel(context.Background())
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "abandoned"}).Error; err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if got := countModels(t, db); got != 0 {
		t.Fatalf("expected no committed rows, got %d", got)
	}
}

func TestWithTxRetry_ReplaysConflicts(t *testing.T) {
	db := newTestDB(t)
	client := NewFromConn(db, WithRetryPolicy(3, time.Millisecond))

	attempts := 0
	err := client.WithTxRetry(context.Background(), func(tx *gorm.DB) error {
		attempts++
		if err := tx.Create(&testModel{Name: fmt.Sprintf("attempt-%d", attempts)}).Error; err != nil {
			return err
		}
		if attempts < 3 {
			return ErrWriteConflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTxRetry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if got := countModels(t, db); got != 1 {
		t.Fatalf("expected only the final attempt to commit, got %d rows", got)
	}
}

func TestWithTxRetry_ExhaustedBudgetIsTransactionConflict(t *testing.T) {
	db := newTestDB(t)
	client := NewFromConn(db, WithRetryPolicy(2, time.Millisecond))

	attempts := 0
	err := client.WithTxRetry(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return ErrWriteConflict
	})
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeTransactionConflict) {
		t.Fatalf("expected transaction conflict, got %v", err)
	}
	if !errors.Is(err, ErrWriteConflict) {
		t.Fatalf("expected cause to be preserved")
	}
}

func TestWithTxRetry_DoesNotReplayOtherErrors(t *testing.T) {
	db := newTestDB(t)
	client := NewFromConn(db)

	attempts := 0
	boom := errors.New("boom")
	err := client.WithTxRetry(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return boom
	})
	if !errors.Is(err, boom) || attempts != 1 {
		t.Fatalf("expected single attempt with boom, got attempts=%d err=%v", attempts, err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	if err := db.Exec("CREATE TABLE uniq (k TEXT PRIMARY KEY)").Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Exec("INSERT INTO uniq (k) VALUES ('a')").Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := db.Exec("INSERT INTO uniq (k) VALUES ('a')").Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(errors.New("other"), "") {
		t.Fatalf("unexpected unique violation match")
	}
}

func TestPing(t *testing.T) {
	client := NewFromConn(newTestDB(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}
