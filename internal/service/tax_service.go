package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/apperrors"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/costbasis"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/ledger"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/logger"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/report"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/repository"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/validation"
)

// TaxSettings are the computation defaults applied when a caller passes none.
type TaxSettings struct {
	Methods       []model.Method
	QuoteCurrency string
	Workers       int
}

// TaxService recomputes tax records from the ledger and serves annual summaries.
type TaxService struct {
	db              *sql.DB
	transactionRepo *repository.TransactionRepository
	taxRecordRepo   *repository.TaxRecordRepository
	reportCache     *cache.Cache
	settings        TaxSettings
}

// NewTaxService creates a new TaxService with the provided dependencies.
// reportCache holds per-wallet annual summaries and is invalidated on every
// recomputation of that wallet.
func NewTaxService(
	db *sql.DB,
	transactionRepo *repository.TransactionRepository,
	taxRecordRepo *repository.TaxRecordRepository,
	reportCache *cache.Cache,
	settings TaxSettings,
) *TaxService {
	if len(settings.Methods) == 0 {
		settings.Methods = model.AllMethods
	}
	return &TaxService{
		db:              db,
		transactionRepo: transactionRepo,
		taxRecordRepo:   taxRecordRepo,
		reportCache:     reportCache,
		settings:        settings,
	}
}

// MethodResult is the outcome of one cost-basis method over a wallet.
type MethodResult struct {
	Method   model.Method                      `json:"method"`
	Records  []model.TaxRecord                 `json:"records"`
	Warnings []model.ShortfallWarning          `json:"warnings"`
	Rejected []*ledger.InvalidTransactionError `json:"-"`
}

// Calculation is the outcome of recomputing one wallet.
type Calculation struct {
	WalletID  string                `json:"walletId"`
	Methods   []MethodResult        `json:"methods"`
	Summaries []model.AnnualSummary `json:"summaries"`
}

// CalculateTaxes recomputes the tax records of walletID under methods (the
// configured defaults when empty), replaces the stored records of those
// methods atomically and returns the new records with their summaries.
//
// Invalid transactions and shortfalls are reported in the result and logged
// as warnings; they never fail the call.
func (s *TaxService) CalculateTaxes(ctx context.Context, walletID string, methods []model.Method) (*Calculation, error) {
	log := logger.FromContext(ctx).With().Str("wallet_id", walletID).Logger()

	if err := validation.ValidateID(walletID); err != nil {
		return nil, err
	}
	methods, err := s.resolveMethods(methods)
	if err != nil {
		return nil, err
	}

	txs, err := s.transactionRepo.GetTransactions(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveTransactions, err)
	}
	if len(txs) == 0 {
		return nil, apperrors.ErrWalletNotFound
	}

	results, err := s.compute(ctx, txs, methods)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		for _, rej := range r.Rejected {
			log.Warn().
				Str("method", string(r.Method)).
				Str("transaction_id", rej.TxID).
				Err(rej.Err).
				Msg("Transaction rejected")
		}
		for _, w := range r.Warnings {
			log.Warn().
				Str("method", string(r.Method)).
				Str("token", w.Token).
				Str("transaction_id", w.DisposalTxID).
				Stringer("requested", w.Requested).
				Stringer("unmatched", w.UnmatchedQuantity).
				Msg("Disposal exceeds holdings")
		}
	}

	if err := s.persist(ctx, walletID, results); err != nil {
		return nil, err
	}
	if s.reportCache != nil {
		s.reportCache.Delete(walletID)
	}

	var all []model.TaxRecord
	for _, r := range results {
		all = append(all, r.Records...)
		log.Info().
			Str("method", string(r.Method)).
			Int("records", len(r.Records)).
			Int("shortfalls", len(r.Warnings)).
			Int("rejected", len(r.Rejected)).
			Msg("Tax records recomputed")
	}

	return &Calculation{
		WalletID:  walletID,
		Methods:   results,
		Summaries: report.Aggregate(all),
	}, nil
}

// RecalculateAll runs CalculateTaxes for every wallet in the ledger. A wallet
// that fails does not stop the others; all failures are joined into the
// returned error. Cancellation is checked between wallets.
func (s *TaxService) RecalculateAll(ctx context.Context, methods []model.Method) ([]*Calculation, error) {
	wallets, err := s.transactionRepo.GetWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveTransactions, err)
	}

	calculations := make([]*Calculation, 0, len(wallets))
	var errs []error

	for _, walletID := range wallets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		calc, err := s.CalculateTaxes(ctx, walletID, methods)
		if err != nil {
			errs = append(errs, fmt.Errorf("wallet %s: %w", walletID, err))
			continue
		}
		calculations = append(calculations, calc)
	}

	return calculations, errors.Join(errs...)
}

// GetAnnualSummaries returns the stored results of walletID rolled up per
// (year, method). year 0 returns every year; methods empty returns every method.
func (s *TaxService) GetAnnualSummaries(ctx context.Context, walletID string, year int, methods ...model.Method) ([]model.AnnualSummary, error) {
	if err := validation.ValidateID(walletID); err != nil {
		return nil, err
	}
	if err := validation.ValidateYear(year); err != nil {
		return nil, err
	}
	for _, m := range methods {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownMethod, m)
		}
	}

	if s.reportCache != nil {
		if cached, ok := s.reportCache.Get(walletID); ok {
			return report.Filter(cached.([]model.AnnualSummary), year, methods...), nil
		}
	}

	exists, err := s.transactionRepo.WalletExists(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveTransactions, err)
	}
	if !exists {
		return nil, apperrors.ErrWalletNotFound
	}

	records, err := s.taxRecordRepo.GetTaxRecords(ctx, walletID, 0, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveTaxRecords, err)
	}

	summaries := report.Aggregate(records)
	if s.reportCache != nil {
		s.reportCache.Set(walletID, summaries, cache.DefaultExpiration)
	}

	return report.Filter(summaries, year, methods...), nil
}

// GetTaxRecords returns the stored records of walletID, optionally narrowed
// to one year, one token and the given methods. Tokens match case-insensitively.
func (s *TaxService) GetTaxRecords(ctx context.Context, walletID string, year int, token string, methods ...model.Method) ([]model.TaxRecord, error) {
	if err := validation.ValidateID(walletID); err != nil {
		return nil, err
	}
	if err := validation.ValidateYear(year); err != nil {
		return nil, err
	}

	token = strings.ToUpper(strings.TrimSpace(token))

	records, err := s.taxRecordRepo.GetTaxRecords(ctx, walletID, year, token, methods...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveTaxRecords, err)
	}
	return records, nil
}

func (s *TaxService) resolveMethods(methods []model.Method) ([]model.Method, error) {
	if len(methods) == 0 {
		return s.settings.Methods, nil
	}
	var out []model.Method
	for _, m := range methods {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownMethod, m)
		}
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// compute normalizes the ledger and runs the engine. Lot-based methods share
// one method-agnostic stream; average cost gets its own, since it rejects
// disposals that precede the first acquisition of their pair.
func (s *TaxService) compute(ctx context.Context, txs []model.Transaction, methods []model.Method) ([]MethodResult, error) {
	byMethod := make(map[model.Method]MethodResult, len(methods))

	var lotMethods []model.Method
	for _, m := range methods {
		if m.UsesLots() {
			lotMethods = append(lotMethods, m)
		}
	}

	run := func(opts ledger.Options, ms []model.Method) error {
		if len(ms) == 0 {
			return nil
		}
		opts.QuoteCurrency = s.settings.QuoteCurrency
		stream, rejected := ledger.Normalize(txs, opts)

		results, err := costbasis.ComputeAll(ctx, stream, ms, s.settings.Workers)
		if err != nil {
			return err
		}
		for _, r := range results {
			byMethod[r.Method] = MethodResult{
				Method:   r.Method,
				Records:  r.Records,
				Warnings: r.Warnings,
				Rejected: rejected,
			}
		}
		return nil
	}

	if err := run(ledger.Options{}, lotMethods); err != nil {
		return nil, err
	}
	if slices.Contains(methods, model.MethodAverageCost) {
		if err := run(ledger.Options{Method: model.MethodAverageCost}, []model.Method{model.MethodAverageCost}); err != nil {
			return nil, err
		}
	}

	results := make([]MethodResult, 0, len(methods))
	for _, m := range methods {
		results = append(results, byMethod[m])
	}
	return results, nil
}

func (s *TaxService) persist(ctx context.Context, walletID string, results []MethodResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	repo := s.taxRecordRepo.WithTx(tx)
	for _, r := range results {
		if err := repo.ReplaceTaxRecords(ctx, walletID, r.Method, r.Records); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrFailedToStoreTaxRecords, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
