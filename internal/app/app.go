package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ticket-price-alerts/internal/alerting"
	"ticket-price-alerts/internal/config"
	"ticket-price-alerts/internal/fetcher"
	"ticket-price-alerts/internal/scheduler"
	"ticket-price-alerts/internal/service"
	"ticket-price-alerts/internal/state"
	"ticket-price-alerts/internal/storage"
	"ticket-price-alerts/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newRenderer() *fetcher.Browser {
	return fetcher.NewBrowser(fetcher.BrowserOptions{
		PageLoadTimeout: a.Config.Browser.PageLoadTimeout,
		SettleWait:      a.Config.Browser.SettleWait,
		UserAgent:       a.Config.Browser.UserAgent,
		ControlURL:      a.Config.Browser.ControlURL,
		Bin:             a.Config.Browser.Bin,
	}, a.Logger)
}

// newFetcherFactory shares one warm browser across runs while giving every
// run a fresh policy cache, so robots.txt changes take effect between
// firings without relaunching Chromium.
func (a *App) newFetcherFactory(renderer fetcher.Renderer) service.FetcherFactory {
	return func() fetcher.PortalFetcher {
		var policy fetcher.PolicyChecker
		if a.Config.Robots.Enabled {
			policy = fetcher.NewPolicyCache(fetcher.PolicyCacheOptions{
				UserAgent: a.Config.Browser.UserAgent,
				Timeout:   a.Config.Robots.Timeout,
			}, a.Logger)
		}
		return fetcher.NewPortal(renderer, policy, a.Logger)
	}
}

func (a *App) newBuilder() *alerting.Builder {
	return alerting.NewBuilder(alerting.BuilderOptions{
		Recipient:    a.Config.Alerting.Recipient,
		PortalALabel: a.Config.Portals.ALabel,
		PortalBLabel: a.Config.Portals.BLabel,
		Low:          decimal.NewFromFloat(a.Config.Range.Low),
		High:         decimal.NewFromFloat(a.Config.Range.High),
		MaxPerDay:    a.Config.Alerting.MaxPerDay,
		WindowLabel:  a.Config.Window.Label(),
	})
}

func (a *App) newNotifier() alerting.Notifier {
	var targets []alerting.Notifier
	if a.Config.Alerting.HasChannel(config.ChannelEmail) {
		rc := a.Config.Alerting.Resend
		targets = append(targets, alerting.NewResendNotifier(rc.APIKey, rc.Sender, rc.APIBase, 10*time.Second, a.Logger))
	}
	if a.Config.Alerting.Telegram.Enabled || a.Config.Alerting.HasChannel(config.ChannelTelegram) {
		tc := a.Config.Alerting.Telegram
		targets = append(targets, alerting.NewTelegramNotifier(tc.BotToken, tc.ChatID, tc.APIBase, 10*time.Second, a.Logger))
	}

	switch len(targets) {
	case 0:
		return nil
	case 1:
		return targets[0]
	default:
		return alerting.NewMultiNotifier(targets...)
	}
}

func (a *App) sendStore() *state.Store {
	return state.New(a.Config.State.Path)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(ctx context.Context, sched *scheduler.Scheduler) (*service.Service, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; audit log disabled")
	}

	renderer := a.newRenderer()
	cleanup := func() {
		renderer.Close()
		if closeStore != nil {
			closeStore()
		}
	}

	var alertStore storage.AlertStore
	if store != nil {
		alertStore = store
	}

	svc, err := service.New(
		a.Config,
		sched,
		a.newFetcherFactory(renderer),
		a.newBuilder(),
		a.newNotifier(),
		a.sendStore(),
		alertStore,
		a.Logger,
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// CheckOptions configure a one-shot check.
type CheckOptions struct {
	DryRun bool
}

// Check executes a single gated check and returns once the alert is
// delivered or skipped.
func (a *App) Check(ctx context.Context, opts CheckOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, cleanup, err := a.newService(ctx, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	return svc.CheckOnce(ctx, opts.DryRun)
}

// Watch executes checks on the configured cron schedule until interrupted.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	location, err := a.Config.Window.Location()
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		CronSpec:  a.Config.Schedule.Cron,
		Location:  location,
		Immediate: a.Config.Schedule.Immediate,
	}, a.Logger)

	svc, cleanup, err := a.newService(ctx, sched)
	if err != nil {
		return err
	}
	defer cleanup()

	a.Logger.Info().
		Str("version", version.String()).
		Int("fixtures", len(a.Config.Fixtures)).
		Msg("starting ticket price watcher")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("ticket price watcher stopped")
	return nil
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Limit int
}

// ProbeOptions configure a single-URL probe.
type ProbeOptions struct {
	URL   string
	Label string
}
