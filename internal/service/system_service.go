package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/database"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/repository"
)

// SystemService handles system-related operations
type SystemService struct {
	db              *sql.DB
	version         string
	transactionRepo *repository.TransactionRepository
	taxRecordRepo   *repository.TaxRecordRepository
}

// NewSystemService creates a new SystemService. version is the application
// version reported by GetStatus.
func NewSystemService(
	db *sql.DB,
	version string,
	transactionRepo *repository.TransactionRepository,
	taxRecordRepo *repository.TaxRecordRepository,
) *SystemService {
	return &SystemService{
		db:              db,
		version:         version,
		transactionRepo: transactionRepo,
		taxRecordRepo:   taxRecordRepo,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// GetStatus reports versions and row counts. The database must be migrated.
func (s *SystemService) GetStatus(ctx context.Context) (*model.SystemStatus, error) {
	if err := s.CheckHealth(); err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}

	dbVersion, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}

	wallets, err := s.transactionRepo.GetWallets(ctx)
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactionRepo.CountTransactions(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.taxRecordRepo.CountTaxRecords(ctx)
	if err != nil {
		return nil, err
	}

	return &model.SystemStatus{
		AppVersion:   s.version,
		DbVersion:    dbVersion,
		Wallets:      len(wallets),
		Transactions: transactions,
		TaxRecords:   records,
	}, nil
}
