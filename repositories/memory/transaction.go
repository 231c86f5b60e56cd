package memory

import (
	"context"

	"github.com/upb/nse-market-bot/repositories"
)

// TransactionManager satisfies repositories.TransactionManager for the
// in-memory store. Writes are applied immediately; Rollback does not undo them.
type TransactionManager struct{}

// NewTransactionManager creates a no-op transaction manager
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

// Begin returns a transaction handle bound to ctx
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &transaction{ctx: ctx}, nil
}

// InTransaction runs fn and returns its error
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, _ := tm.Begin(ctx)
	return fn(ctx, tx)
}

type transaction struct {
	ctx context.Context
}

func (t *transaction) Commit() error            { return nil }
func (t *transaction) Rollback() error          { return nil }
func (t *transaction) Context() context.Context { return t.ctx }
