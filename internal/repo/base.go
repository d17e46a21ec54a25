// Package repo holds the connection plumbing shared by the gorm repositories.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/tradein-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

// Base carries the shared connection of a repository.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the shared connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Conn returns tx when the caller is inside a transaction and the shared
// connection otherwise. Statements issued inside a transaction must use it.
func (b Base) Conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		if ctx == nil {
			return tx
		}
		return tx.WithContext(ctx)
	}
	return b.DB(ctx)
}

// WriteError classifies a failed write. Serialization failures, deadlocks and
// lost CAS writes become db.ErrWriteConflict so WithTxRetry replays the
// transaction; everything else is a DEPENDENCY_ERROR naming op.
func WriteError(err error, op string) error {
	if err == nil {
		return nil
	}
	if db.IsConflict(err) {
		return db.ErrWriteConflict
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

// Conditional checks a guarded UPDATE or DELETE. Zero affected rows means the
// guard no longer held and is reported as db.ErrWriteConflict.
func Conditional(res *gorm.DB, op string) error {
	if res.Error != nil {
		return WriteError(res.Error, op)
	}
	if res.RowsAffected == 0 {
		return db.ErrWriteConflict
	}
	return nil
}
