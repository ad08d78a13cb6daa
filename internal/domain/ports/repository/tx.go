package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Repositories accept nil for the
// non-transactional path; the concrete type (pgx.Tx for Postgres) is an
// infra detail that never leaks into use-case signatures.
type Tx interface{}

// NoTX is passed where no transaction is wanted, for readability.
var NoTX Tx

// TransactionManager runs fn inside a database transaction, handing the
// tx handle through so repositories can bind their statements to it.
// fn returning an error rolls the transaction back.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
