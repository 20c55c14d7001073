package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via `tx`.
//
// Repository methods accept `tx Tx` and detect the concrete handle
// implementation-side (pgx.Tx for Postgres); they MUST gracefully accept
// nil for the non-transactional path. Use-case interfaces stay free of
// storage types.
//
// USAGE
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
//		s, err := sessions.FindByMailbox(ctx, tx, addr)
//		...
//		return err
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
