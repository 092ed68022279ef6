package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxRepos are the repositories bound to one transaction.
type TxRepos struct {
	Batches StockBatchRepository
	Storage StorageRepository
	Sales   SaleRepository
	Returns ReturnRepository
}

// TxManager runs a function inside a database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r TxRepos) error) error
}

type pgTxManager struct {
	db DBTX
}

func NewTxManager(db DBTX) TxManager {
	return &pgTxManager{db: db}
}

func (m *pgTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, r TxRepos) error) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// no-op after a successful commit
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func bind(tx pgx.Tx) TxRepos {
	return TxRepos{
		Batches: NewStockBatchRepo(tx),
		Storage: NewStorageRepo(tx),
		Sales:   NewSaleRepo(tx),
		Returns: NewReturnRepo(tx),
	}
}
