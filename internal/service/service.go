package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ticket-price-alerts/internal/alerting"
	"ticket-price-alerts/internal/compare"
	"ticket-price-alerts/internal/config"
	"ticket-price-alerts/internal/fetcher"
	"ticket-price-alerts/internal/scheduler"
	"ticket-price-alerts/internal/state"
	"ticket-price-alerts/internal/storage"
)

// FetcherFactory builds the portal fetcher for one run. A fresh product per
// run re-reads crawl policies between firings while the browser behind it
// stays warm.
type FetcherFactory func() fetcher.PortalFetcher

// RunResult carries everything one run decided. Fixtures where neither
// portal had an in-range price and nothing failed are already dropped.
type RunResult struct {
	RunID     uuid.UUID
	Decisions []compare.Decision
	Failures  []compare.Failure
}

// Empty reports whether the run produced nothing worth sending.
func (r RunResult) Empty() bool {
	return len(r.Decisions) == 0 && len(r.Failures) == 0
}

// Service orchestrates scraping, evaluation, and alert delivery.
type Service struct {
	scheduler  *scheduler.Scheduler
	fetchers   FetcherFactory
	builder    *alerting.Builder
	notifier   alerting.Notifier
	sends      *state.Store
	alertStore storage.AlertStore
	logger     zerolog.Logger

	fixtures  []config.FixtureConfig
	rng       compare.Range
	window    config.WindowConfig
	location  *time.Location
	maxPerDay int
	channels  []string
	labelA    string
	labelB    string
	alertsOn  bool
	locker    storage.AdvisoryLocker
	lockKey   int64
	clock     func() time.Time
}

// New constructs the monitoring service.
func New(cfg *config.Config, sched *scheduler.Scheduler, fetchers FetcherFactory, builder *alerting.Builder, notifier alerting.Notifier, sends *state.Store, alertStore storage.AlertStore, logger zerolog.Logger) (*Service, error) {
	location, err := cfg.Window.Location()
	if err != nil {
		return nil, err
	}

	var locker storage.AdvisoryLocker
	if l, ok := alertStore.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:  sched,
		fetchers:   fetchers,
		builder:    builder,
		notifier:   notifier,
		sends:      sends,
		alertStore: alertStore,
		logger:     logger.With().Str("component", "service").Logger(),
		fixtures:   cfg.Fixtures,
		rng: compare.Range{
			Low:  decimal.NewFromFloat(cfg.Range.Low),
			High: decimal.NewFromFloat(cfg.Range.High),
		},
		window:    cfg.Window,
		location:  location,
		maxPerDay: cfg.Alerting.MaxPerDay,
		channels:  cfg.Alerting.Channels,
		labelA:    cfg.Portals.ALabel,
		labelB:    cfg.Portals.BLabel,
		alertsOn:  cfg.Alerting.Enabled && notifier != nil,
		locker:    locker,
		lockKey:   cfg.Schedule.AdvisoryLockKey,
		clock:     time.Now,
	}, nil
}

// Run begins the scheduled watch loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessFiring)
}

// ProcessFiring 执行一次受分布式锁保护的检查。
func (s *Service) ProcessFiring(ctx context.Context) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Msg("skip firing because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.CheckOnce(ctx, false)
}

// CheckOnce runs one complete check: gate on the send window and the daily
// cap, scrape both portals for every fixture, evaluate, and deliver the
// alert when there is anything to report. A delivery failure is the only
// error the happy path returns; gates and empty runs complete cleanly
// without touching the browser.
func (s *Service) CheckOnce(ctx context.Context, dryRun bool) error {
	runID := uuid.New()
	logger := s.logger.With().Str("run_id", runID.String()).Logger()

	now := s.clock().In(s.location)
	if !s.withinWindow(now) {
		logger.Info().
			Int("hour", now.Hour()).
			Int("start_hour", s.window.StartHour).
			Int("end_hour", s.window.EndHour).
			Str("timezone", s.window.Timezone).
			Msg("outside send window, skipping run")
		return nil
	}

	today := now.Format(state.DateLayout)
	sends, err := s.sends.Load()
	if err != nil {
		return fmt.Errorf("load send state: %w", err)
	}
	if count := sends.CountFor(today); count >= s.maxPerDay {
		logger.Info().
			Int("sent_today", count).
			Int("max_per_day", s.maxPerDay).
			Msg("daily alert cap reached, skipping run")
		return nil
	}

	logger.Info().Int("fixtures", len(s.fixtures)).Msg("starting price check")
	result := s.collect(ctx, runID, logger)
	if result.Empty() {
		logger.Info().Msg("no prices in range and no failures, nothing to send")
		return nil
	}

	msg, err := s.builder.Build(result.Decisions, result.Failures)
	if err != nil {
		return err
	}

	if dryRun || !s.alertsOn {
		event := logger.Info().
			Str("subject", msg.Subject).
			Int("games_in_range", len(result.Decisions)).
			Int("failed_urls", len(result.Failures))
		if dryRun {
			event.Msg("dry run, delivery skipped")
		} else {
			event.Msg("alerting disabled, delivery skipped")
		}
		return nil
	}

	if err := s.notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("deliver alert: %w", err)
	}

	// The counter moves only after a successful delivery. If persisting it
	// fails the alert still went out, so log and finish cleanly.
	if err := s.sends.Save(state.DailySends{Date: today, Count: sends.CountFor(today) + 1}); err != nil {
		logger.Error().Err(err).Msg("alert sent but send counter not persisted")
	}

	s.audit(ctx, runID, now, msg, result, logger)

	logger.Info().
		Str("subject", msg.Subject).
		Int("games_in_range", len(result.Decisions)).
		Int("failed_urls", len(result.Failures)).
		Int("sent_today", sends.CountFor(today)+1).
		Msg("alert sent")
	return nil
}

// collect fans out one goroutine per (fixture, portal) page, waits for all
// of them, and folds the outcomes into per-fixture decisions.
func (s *Service) collect(ctx context.Context, runID uuid.UUID, logger zerolog.Logger) RunResult {
	portals := s.fetchers()

	outcomes := make([]fetcher.Outcome, 2*len(s.fixtures))
	var wg sync.WaitGroup
	for i, fx := range s.fixtures {
		wg.Add(2)
		go func(slot int, name, url string) {
			defer wg.Done()
			outcomes[slot] = portals.Fetch(ctx, name, s.labelA, url)
		}(2*i, fx.Name, fx.PortalAURL)
		go func(slot int, name, url string) {
			defer wg.Done()
			outcomes[slot] = portals.Fetch(ctx, name, s.labelB, url)
		}(2*i+1, fx.Name, fx.PortalBURL)
	}
	wg.Wait()

	result := RunResult{RunID: runID}
	for i, fx := range s.fixtures {
		decision, failures := compare.Evaluate(outcomes[2*i], outcomes[2*i+1], s.rng)
		result.Failures = append(result.Failures, failures...)
		if decision == nil {
			if len(failures) == 0 {
				logger.Debug().Str("fixture", fx.Name).Msg("no prices in range on either portal")
			}
			continue
		}
		result.Decisions = append(result.Decisions, *decision)
	}
	return result
}

func (s *Service) withinWindow(now time.Time) bool {
	hour := now.Hour()
	return hour >= s.window.StartHour && hour < s.window.EndHour
}

// audit records the emission in the optional Postgres log. Best effort: the
// alert already went out, a storage fault must not fail the run.
func (s *Service) audit(ctx context.Context, runID uuid.UUID, sentAt time.Time, msg alerting.Message, result RunResult, logger zerolog.Logger) {
	if s.alertStore == nil {
		return
	}

	record := storage.AlertRecord{
		RunID:        runID,
		SentAt:       sentAt.UTC(),
		Recipient:    msg.Recipient,
		Subject:      msg.Subject,
		GamesInRange: len(result.Decisions),
		FailedURLs:   len(result.Failures),
		Channels:     s.channels,
	}
	if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return
		}
		logger.Error().Err(err).Msg("failed to persist alert record")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
