package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/importer"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/ledger"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/logger"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/repository"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/validation"
)

// TransactionService handles ledger import and retrieval.
type TransactionService struct {
	db              *sql.DB
	transactionRepo *repository.TransactionRepository
}

// NewTransactionService creates a new TransactionService with the provided repository dependencies.
func NewTransactionService(
	db *sql.DB,
	transactionRepo *repository.TransactionRepository,
) *TransactionService {
	return &TransactionService{
		db:              db,
		transactionRepo: transactionRepo,
	}
}

// ImportResult describes one ledger import.
type ImportResult struct {
	Source   string
	Imported []model.Transaction
	Rejected []*ledger.InvalidTransactionError
}

// ImportTransactions reads a CSV export and stores every parseable row in a
// single database transaction. Unparseable rows are reported, not stored.
// A row whose ID is already in the ledger fails the whole import with
// ErrDuplicateEntry and nothing is stored.
func (s *TransactionService) ImportTransactions(ctx context.Context, r io.Reader, source string) (*ImportResult, error) {
	log := logger.FromContext(ctx)

	txs, rejected, err := importer.ReadCSV(r, source)
	if err != nil {
		return nil, err
	}

	for _, rej := range rejected {
		log.Warn().
			Str("source", source).
			Int("row", rej.Index).
			Str("transaction_id", rej.TxID).
			Err(rej.Err).
			Msg("Skipping unparseable row")
	}

	if err := s.insert(ctx, txs); err != nil {
		return nil, err
	}

	log.Info().
		Str("source", source).
		Int("imported", len(txs)).
		Int("rejected", len(rejected)).
		Msg("Ledger imported")

	return &ImportResult{Source: source, Imported: txs, Rejected: rejected}, nil
}

// AddTransactions stores already-built transactions, assigning their sequence.
func (s *TransactionService) AddTransactions(ctx context.Context, txs []model.Transaction) error {
	return s.insert(ctx, txs)
}

func (s *TransactionService) insert(ctx context.Context, txs []model.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.transactionRepo.WithTx(tx).InsertTransactions(ctx, txs); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToStoreTransactions, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetTransactions retrieves a wallet's ledger in insertion order.
// Returns ErrWalletNotFound when the wallet has no transactions.
func (s *TransactionService) GetTransactions(ctx context.Context, walletID string) ([]model.Transaction, error) {
	if err := validation.ValidateID(walletID); err != nil {
		return nil, err
	}

	txs, err := s.transactionRepo.GetTransactions(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveTransactions, err)
	}
	if len(txs) == 0 {
		return nil, apperrors.ErrWalletNotFound
	}
	return txs, nil
}

// GetWallets lists every wallet present in the ledger.
func (s *TransactionService) GetWallets(ctx context.Context) ([]string, error) {
	wallets, err := s.transactionRepo.GetWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveTransactions, err)
	}
	return wallets, nil
}
