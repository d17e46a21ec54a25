package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Dump walks err and extracts the typed code plus any Postgres diagnostics,
// whether the driver underneath is pgx or lib/pq.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(te.Code()).Retryable
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if pgErr := postgresError(err); pgErr != nil {
		d.PGCode = pgErr.Code
		d.PGConstraint = pgErr.ConstraintName
		d.PGTable = pgErr.TableName
		d.PGColumn = pgErr.ColumnName
		d.PGDetail = pgErr.Detail
		d.PGMessage = pgErr.Message
	}
	return d
}

// PostgresCode returns the SQLSTATE carried anywhere in err, or "".
func PostgresCode(err error) string {
	if pgErr := postgresError(err); pgErr != nil {
		return pgErr.Code
	}
	return ""
}

// postgresError normalizes lib/pq errors into the pgconn shape.
func postgresError(err error) *pgconn.PgError {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &pgconn.PgError{
			Code:           string(pqErr.Code),
			ConstraintName: pqErr.Constraint,
			TableName:      pqErr.Table,
			ColumnName:     pqErr.Column,
			Detail:         pqErr.Detail,
			Message:        pqErr.Message,
		}
	}
	return nil
}
