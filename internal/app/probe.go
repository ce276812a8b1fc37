package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Probe renders a single portal page through the full fetch pipeline and
// prints the prices it found. Useful when a portal changes its markup and a
// fixture goes quiet.
func (a *App) Probe(ctx context.Context, opts ProbeOptions) error {
	if opts.URL == "" {
		return errors.New("a URL to probe is required")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	label := opts.Label
	if label == "" {
		label = "probe"
	}

	renderer := a.newRenderer()
	defer renderer.Close()

	outcome := a.newFetcherFactory(renderer)().Fetch(ctx, "probe", label, opts.URL)
	if outcome.Failed() {
		return fmt.Errorf("probe failed: %s", outcome.Reason)
	}

	if len(outcome.Prices) == 0 {
		fmt.Fprintln(os.Stdout, "page rendered but no prices found")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%d price(s) found:\n", len(outcome.Prices))
	for _, price := range outcome.Prices {
		fmt.Fprintf(os.Stdout, "  €%s\n", price.String())
	}
	return nil
}
