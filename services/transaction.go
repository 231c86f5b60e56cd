package services

import (
	"context"

	"github.com/upb/nse-market-bot/repositories"
)

// WithTransactionResult runs fn inside txMgr.InTransaction and returns its
// result. Repositories called with the context passed to fn share the
// transaction. On error the zero value is returned and nothing is committed.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) (T, error)) (T, error) {
	var result T

	err := txMgr.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
		r, err := fn(txCtx, tx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}
