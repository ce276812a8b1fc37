package fetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// BrowserOptions parameterise the headless Chromium renderer.
type BrowserOptions struct {
	PageLoadTimeout time.Duration
	SettleWait      time.Duration
	UserAgent       string
	// ControlURL attaches to an already running browser instead of
	// launching one.
	ControlURL string
	// Bin pins the Chromium binary when launching (container images).
	Bin string
}

// Browser renders pages with headless Chromium over the DevTools protocol.
// The underlying browser is launched lazily on first use and reused across
// renders.
type Browser struct {
	opts      BrowserOptions
	logger    zerolog.Logger
	client    *rod.Browser
	clientMux sync.Mutex
}

// NewBrowser builds a renderer. No browser process is started until the
// first Render call.
func NewBrowser(opts BrowserOptions, logger zerolog.Logger) *Browser {
	return &Browser{opts: opts, logger: logger.With().Str("component", "browser").Logger()}
}

// Render navigates to the URL, waits according to mode, lets late JavaScript
// settle, scrolls to the bottom to trigger lazy content, and returns the
// body's visible text. The page-load timeout covers navigation and the load
// wait; overruns surface as context.DeadlineExceeded.
func (b *Browser) Render(ctx context.Context, pageURL string, mode WaitMode) (string, error) {
	timeout := b.opts.PageLoadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := b.getClient()
	if err != nil {
		return "", err
	}

	page, err := client.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	if ua := strings.TrimSpace(b.opts.UserAgent); ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			return "", fmt.Errorf("set user agent: %w", err)
		}
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1280, Height: 900, DeviceScaleFactor: 1}); err != nil {
		return "", fmt.Errorf("set viewport: %w", err)
	}

	if err := b.navigate(page.Timeout(timeout), pageURL, mode); err != nil {
		return "", err
	}

	if b.opts.SettleWait > 0 {
		sleepCtx(ctx, b.opts.SettleWait)
	}

	if _, err := page.Eval("window.scrollTo(0, document.body.scrollHeight)"); err != nil {
		return "", fmt.Errorf("scroll page: %w", err)
	}
	sleepCtx(ctx, time.Second)

	result, err := page.Eval("document.body.innerText")
	if err != nil {
		return "", fmt.Errorf("read page text: %w", err)
	}
	return result.Value.Str(), nil
}

func (b *Browser) navigate(page *rod.Page, pageURL string, mode WaitMode) error {
	if err := page.Navigate(pageURL); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}

	switch mode {
	case WaitContentLoaded:
		if err := page.WaitLoad(); err != nil {
			return fmt.Errorf("wait for document load: %w", err)
		}
	default:
		if err := page.WaitStable(time.Second); err != nil {
			return fmt.Errorf("wait for network idle: %w", err)
		}
	}
	return nil
}

func (b *Browser) getClient() (*rod.Browser, error) {
	b.clientMux.Lock()
	defer b.clientMux.Unlock()

	if b.client != nil {
		return b.client, nil
	}

	controlURL := b.opts.ControlURL
	if controlURL == "" {
		chrome := launcher.New().Headless(true).NoSandbox(true).Leakless(false)
		if b.opts.Bin != "" {
			chrome = chrome.Bin(b.opts.Bin)
		}
		launched, err := chrome.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chromium: %w", err)
		}
		controlURL = launched
	}

	client := rod.New().ControlURL(controlURL)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	b.logger.Debug().Str("control_url", controlURL).Msg("browser connected")
	b.client = client
	return client, nil
}

// Close shuts down the underlying browser. Safe to call when Render never
// ran.
func (b *Browser) Close() {
	b.clientMux.Lock()
	defer b.clientMux.Unlock()

	if b.client == nil {
		return
	}
	if err := b.client.Close(); err != nil {
		b.logger.Debug().Err(err).Msg("browser close")
	}
	b.client = nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

var _ Renderer = (*Browser)(nil)
