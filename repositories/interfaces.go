package repositories

import (
	"context"

	"github.com/upb/nse-market-bot/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// PassageRepository handles knowledge base passages and similarity ranking
type PassageRepository interface {
	// SearchSimilar returns up to limit passages ranked by cosine similarity
	// to vector, highest first. Equal similarities are ordered by insertion order.
	SearchSimilar(ctx context.Context, vector []float32, limit int) ([]*models.ScoredPassage, error)

	// Insert stores a passage and sets its ID and CreatedAt
	Insert(ctx context.Context, passage *models.Passage) error

	// Count returns the number of stored passages
	Count(ctx context.Context) (int, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Passages     PassageRepository
	Transactions TransactionManager
}
