package postgres

import (
	"github.com/upb/nse-market-bot/config"
	"github.com/upb/nse-market-bot/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages the Postgres repositories
type RepositoryFactory struct {
	db         *DB
	table      string
	dimensions int
	logger     *zap.Logger
}

// NewRepositoryFactory opens the database and creates a factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return NewRepositoryFactoryFromDB(db, cfg.Store.Table, cfg.Embedding.Dimensions, logger), nil
}

// NewRepositoryFactoryFromDB creates a factory over an open pool
func NewRepositoryFactoryFromDB(db *DB, table string, dimensions int, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{
		db:         db,
		table:      table,
		dimensions: dimensions,
		logger:     logger,
	}
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Passages:     NewPassageRepository(f.db, f.table, f.dimensions, f.logger),
		Transactions: f.GetTransactionManager(),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
