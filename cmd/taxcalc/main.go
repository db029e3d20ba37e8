package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/config"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/database"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/logger"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/repository"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/scheduler"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the wired services shared by every command.
type app struct {
	cfg          *config.Config
	log          zerolog.Logger
	db           *sql.DB
	system       *service.SystemService
	transactions *service.TransactionService
	taxes        *service.TaxService
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	a := setup()
	defer a.db.Close()

	switch cmd {
	case "import":
		a.runImport()
	case "compute":
		a.runCompute()
	case "summary":
		a.runSummary()
	case "records":
		a.runRecords()
	case "wallets":
		a.runWallets()
	case "schedule":
		a.runSchedule()
	case "status":
		a.runStatus()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Crypto Tax Calculator")
	fmt.Println("\nUsage:")
	fmt.Println("  taxcalc <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import    Import ledger CSV files")
	fmt.Println("  compute   Recompute tax records for one wallet or all wallets")
	fmt.Println("  summary   Show annual gain/loss summaries of a wallet")
	fmt.Println("  records   Show the tax records of a wallet")
	fmt.Println("  wallets   List wallets in the ledger")
	fmt.Println("  schedule  Recompute every wallet on the configured cron schedule")
	fmt.Println("  status    Show versions and ledger size")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'taxcalc <command> -h' for more information on a command.")
}

func setup() *app {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level)

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("path", dir).Msg("Failed to create database directory")
		}
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := database.Migrate(context.Background(), db, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	log.Debug().Str("path", cfg.Database.Path).Msg("Connected to database")

	transactionRepo := repository.NewTransactionRepository(db)
	taxRecordRepo := repository.NewTaxRecordRepository(db)

	return &app{
		cfg: cfg,
		log: log,
		db:  db,
		system: service.NewSystemService(
			db,
			version,
			transactionRepo,
			taxRecordRepo,
		),
		transactions: service.NewTransactionService(
			db,
			transactionRepo,
		),
		taxes: service.NewTaxService(
			db,
			transactionRepo,
			taxRecordRepo,
			cache.New(15*time.Minute, 30*time.Minute),
			service.TaxSettings{
				Methods:       cfg.Tax.Methods,
				QuoteCurrency: cfg.Tax.QuoteCurrency,
				Workers:       cfg.Tax.Workers,
			},
		),
	}
}

func (a *app) context(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return logger.WithContext(ctx, a.log), cancel
}

// parseMethods turns a -method flag into a method list. An empty flag yields
// nil so the service applies its configured defaults.
func (a *app) parseMethods(value string) []model.Method {
	if value == "" {
		return nil
	}
	methods, err := model.ParseMethods(value)
	if err != nil {
		a.log.Fatal().Err(err).Msg("Invalid -method")
	}
	return methods
}

func (a *app) runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	compute := fs.Bool("compute", false, "Recompute every wallet after importing")
	fs.Parse(os.Args[2:])

	if fs.NArg() == 0 {
		a.log.Fatal().Msg("Usage: taxcalc import [-compute] FILE...")
	}

	ctx, cancel := a.context(5 * time.Minute)
	defer cancel()

	var results []*service.ImportResult
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			a.log.Fatal().Err(err).Str("file", path).Msg("Failed to open ledger file")
		}

		result, err := a.transactions.ImportTransactions(ctx, f, filepath.Base(path))
		f.Close()
		if err != nil {
			a.log.Fatal().Err(err).Str("file", path).Msg("Import failed")
		}
		results = append(results, result)
	}

	summary := make([]map[string]any, 0, len(results))
	for _, r := range results {
		rejected := make([]string, 0, len(r.Rejected))
		for _, rej := range r.Rejected {
			rejected = append(rejected, rej.Error())
		}
		summary = append(summary, map[string]any{
			"source":   r.Source,
			"imported": len(r.Imported),
			"rejected": rejected,
		})
	}
	printJSON(summary)

	if *compute {
		if _, err := a.taxes.RecalculateAll(ctx, nil); err != nil {
			a.log.Fatal().Err(err).Msg("Recompute failed")
		}
	}
}

func (a *app) runCompute() {
	fs := flag.NewFlagSet("compute", flag.ExitOnError)
	walletID := fs.String("wallet", "", "Wallet ID (default: every wallet)")
	method := fs.String("method", "", "Comma-separated methods: fifo, lifo, average_cost")
	fs.Parse(os.Args[2:])

	methods := a.parseMethods(*method)

	ctx, cancel := a.context(10 * time.Minute)
	defer cancel()

	if *walletID == "" {
		calcs, err := a.taxes.RecalculateAll(ctx, methods)
		if err != nil {
			a.log.Error().Err(err).Msg("Recompute finished with errors")
		}
		printJSON(calcs)
		if err != nil {
			os.Exit(1)
		}
		return
	}

	calc, err := a.taxes.CalculateTaxes(ctx, *walletID, methods)
	if err != nil {
		a.log.Fatal().Err(err).Str("wallet_id", *walletID).Msg("Recompute failed")
	}
	printJSON(calc)
}

func (a *app) runSummary() {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	walletID := fs.String("wallet", "", "Wallet ID")
	year := fs.Int("year", 0, "Tax year (default: every year)")
	method := fs.String("method", "", "Comma-separated methods (default: every method)")
	fs.Parse(os.Args[2:])

	if *walletID == "" {
		a.log.Fatal().Msg("Error: -wallet is required")
	}

	ctx, cancel := a.context(time.Minute)
	defer cancel()

	summaries, err := a.taxes.GetAnnualSummaries(ctx, *walletID, *year, a.parseMethods(*method)...)
	if err != nil {
		a.log.Fatal().Err(err).Str("wallet_id", *walletID).Msg("Failed to load summaries")
	}
	printJSON(summaries)
}

func (a *app) runRecords() {
	fs := flag.NewFlagSet("records", flag.ExitOnError)
	walletID := fs.String("wallet", "", "Wallet ID")
	year := fs.Int("year", 0, "Tax year (default: every year)")
	token := fs.String("token", "", "Token symbol (default: every token)")
	method := fs.String("method", "", "Comma-separated methods (default: every method)")
	fs.Parse(os.Args[2:])

	if *walletID == "" {
		a.log.Fatal().Msg("Error: -wallet is required")
	}

	ctx, cancel := a.context(time.Minute)
	defer cancel()

	records, err := a.taxes.GetTaxRecords(ctx, *walletID, *year, *token, a.parseMethods(*method)...)
	if err != nil {
		a.log.Fatal().Err(err).Str("wallet_id", *walletID).Msg("Failed to load tax records")
	}
	printJSON(records)
}

func (a *app) runWallets() {
	ctx, cancel := a.context(time.Minute)
	defer cancel()

	wallets, err := a.transactions.GetWallets(ctx)
	if err != nil {
		a.log.Fatal().Err(err).Msg("Failed to list wallets")
	}
	printJSON(wallets)
}

func (a *app) runStatus() {
	ctx, cancel := a.context(time.Minute)
	defer cancel()

	status, err := a.system.GetStatus(ctx)
	if err != nil {
		a.log.Fatal().Err(err).Msg("Failed to read status")
	}
	printJSON(status)
}

func (a *app) runSchedule() {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	spec := fs.String("cron", a.cfg.Tax.RecomputeSchedule, "Cron expression (5 fields)")
	now := fs.Bool("now", false, "Run one recompute before waiting for the schedule")
	fs.Parse(os.Args[2:])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := scheduler.New(a.taxes, nil, a.log)
	if err := s.Register(*spec); err != nil {
		a.log.Fatal().Err(err).Str("cron", *spec).Msg("Invalid schedule")
	}

	if *now {
		_ = s.RunOnce(logger.WithContext(ctx, a.log))
	}

	s.Start(ctx)
	a.log.Info().Str("cron", *spec).Msg("Scheduler started")

	<-ctx.Done()
	a.log.Info().Msg("Shutting down scheduler...")

	// Wait for a running recompute, bounded like the server shutdown.
	shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	select {
	case <-s.Stop().Done():
		a.log.Info().Msg("Scheduler exited")
	case <-shutdown.Done():
		a.log.Warn().Msg("Scheduler forced to shutdown")
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		os.Exit(1)
	}
}
