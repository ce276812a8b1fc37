package fetcher

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"ticket-price-alerts/internal/extract"
)

const (
	// ReasonBlocked marks a URL skipped for crawl-policy compliance.
	ReasonBlocked = "blocked by site policy"
	// ReasonTimeout marks a page that failed to load under both wait
	// strategies.
	ReasonTimeout = "page load timed out"
)

// Portal fetches one listing page: crawl-policy gate, render, price
// extraction. Fetch never returns an error; every fault is downgraded to a
// failure reason on the Outcome.
type Portal struct {
	renderer Renderer
	policy   PolicyChecker
	logger   zerolog.Logger
}

// NewPortal wires a renderer and an optional policy checker. A nil policy
// skips the compliance gate.
func NewPortal(renderer Renderer, policy PolicyChecker, logger zerolog.Logger) *Portal {
	return &Portal{
		renderer: renderer,
		policy:   policy,
		logger:   logger.With().Str("component", "portal_fetcher").Logger(),
	}
}

// Fetch retrieves and extracts prices for one (fixture, portal) pair.
func (p *Portal) Fetch(ctx context.Context, fixture, portal, pageURL string) Outcome {
	out := Outcome{Fixture: fixture, Portal: portal, URL: pageURL}
	logger := p.logger.With().Str("fixture", fixture).Str("portal", portal).Str("url", pageURL).Logger()

	if p.policy != nil && !p.policy.Allowed(ctx, pageURL) {
		out.Reason = ReasonBlocked
		logger.Warn().Msg("skipping to stay compliant")
		return out
	}

	text, err := p.render(ctx, pageURL, logger)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			out.Reason = ReasonTimeout
			logger.Warn().Msg("page load timed out on both wait strategies")
		} else {
			out.Reason = err.Error()
			logger.Error().Err(err).Msg("page render failed")
		}
		return out
	}

	out.Prices = extract.Prices(text)
	if len(out.Prices) == 0 {
		logger.Info().Msg("no prices found in rendered text")
	} else {
		logger.Info().
			Int("count", len(out.Prices)).
			Str("min", out.Prices[0].String()).
			Str("max", out.Prices[len(out.Prices)-1].String()).
			Msg("prices extracted")
	}
	return out
}

// render tries the network-idle wait first. When that times out it retries
// once with the lighter content-loaded wait; slow third-party widgets often
// hold network idle open while the listing itself rendered fine.
func (p *Portal) render(ctx context.Context, pageURL string, logger zerolog.Logger) (string, error) {
	text, err := p.renderer.Render(ctx, pageURL, WaitNetworkIdle)
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}

	logger.Warn().Msg("network idle wait timed out, falling back to content loaded")
	return p.renderer.Render(ctx, pageURL, WaitContentLoaded)
}

var _ PortalFetcher = (*Portal)(nil)
