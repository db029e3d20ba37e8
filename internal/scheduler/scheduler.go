// Package scheduler recomputes every wallet's tax records on a cron schedule.
package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/logger"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/model"
	"github.com/ndewijer/Crypto-Tax-Calculator/internal/service"
)

// Recalculator is the part of service.TaxService the scheduler drives.
type Recalculator interface {
	RecalculateAll(ctx context.Context, methods []model.Method) ([]*service.Calculation, error)
}

// Scheduler runs RecalculateAll on a cron schedule. Overlapping runs are
// skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	svc     Recalculator
	methods []model.Method
	log     zerolog.Logger

	mu  sync.Mutex
	ctx context.Context
}

// New creates a Scheduler. methods empty means the service defaults.
func New(svc Recalculator, methods []model.Method, log zerolog.Logger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		svc:     svc,
		methods: methods,
		log:     log,
		ctx:     context.Background(),
	}
}

// Register adds the recompute job under a standard 5-field cron spec.
func (s *Scheduler) Register(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		_ = s.RunOnce(ctx)
	})
	return err
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start begins running jobs in the background. Jobs receive ctx, so
// cancelling it stops a recompute between wallets.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = logger.WithContext(ctx, s.log)
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts the schedule and returns a context that is done once any
// running job has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce performs a single recompute of every wallet.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.log.Info().Msg("Starting scheduled tax recomputation")

	calcs, err := s.svc.RecalculateAll(ctx, s.methods)

	records := 0
	for _, c := range calcs {
		for _, m := range c.Methods {
			records += len(m.Records)
		}
	}

	if err != nil {
		s.log.Error().Err(err).Int("wallets", len(calcs)).Msg("Scheduled tax recomputation finished with errors")
		return err
	}

	s.log.Info().Int("wallets", len(calcs)).Int("records", records).Msg("Scheduled tax recomputation finished")
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
