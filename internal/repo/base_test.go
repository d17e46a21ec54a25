package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradein-backend/pkg/db"
	"github.com/angelmondragon/tradein-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

type ctxKey struct{}

func TestNewBaseStoresConnection(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	if base.db != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	withCtx := base.DB(ctx)
	if withCtx == nil || withCtx.Statement == nil {
		t.Fatalf("expected statement created after WithContext")
	}
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	if withoutCtx := base.DB(nil); withoutCtx != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseConn_PrefersTransaction(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	tx := db.Begin()
	t.Cleanup(func() { tx.Rollback() })

	ctx := context.WithValue(context.Background(), ctxKey{}, "tx")
	conn := base.Conn(ctx, tx)
	if conn.Statement.ConnPool != tx.Statement.ConnPool {
		t.Fatalf("expected transaction connection pool")
	}
	if conn.Statement.Context != ctx {
		t.Fatalf("expected context on transaction handle")
	}
	if base.Conn(ctx, nil).Statement.ConnPool != db.Statement.ConnPool {
		t.Fatalf("expected shared connection outside a transaction")
	}
}

func TestWriteErrorClassifiesConflicts(t *testing.T) {
	if err := WriteError(nil, "noop"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	serialization := &pgconn.PgError{Code: "40001"}
	if err := WriteError(serialization, "update"); !errors.Is(err, db.ErrWriteConflict) {
		t.Fatalf("expected write conflict, got %v", err)
	}

	err := WriteError(errors.New("connection reset"), "update order")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestConditionalReportsLostGuard(t *testing.T) {
	conn := dbtest.Open(t)
	if err := conn.Exec("CREATE TABLE counters (name TEXT PRIMARY KEY, value INTEGER)").Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := conn.Exec("INSERT INTO counters (name, value) VALUES ('orders', 1)").Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	bump := func(expected int) *gorm.DB {
		return conn.Exec("UPDATE counters SET value = value + 1 WHERE name = 'orders' AND value = ?", expected)
	}
	if err := Conditional(bump(1), "bump"); err != nil {
		t.Fatalf("expected guarded update to apply, got %v", err)
	}
	if err := Conditional(bump(1), "bump"); !errors.Is(err, db.ErrWriteConflict) {
		t.Fatalf("expected write conflict on stale guard, got %v", err)
	}
}
