package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// WaitMode selects how long a render waits for the page to finish loading.
type WaitMode int

const (
	// WaitNetworkIdle waits for the page and its requests to settle.
	WaitNetworkIdle WaitMode = iota
	// WaitContentLoaded waits only for the initial document load event.
	WaitContentLoaded
)

// Outcome is the result of fetching one portal listing page. Reason is empty
// on success; Prices may still be empty when the page rendered but carried no
// recognisable EUR amounts.
type Outcome struct {
	Fixture string
	Portal  string
	URL     string
	Prices  []decimal.Decimal
	Reason  string
}

// Failed reports whether the fetch produced a failure reason.
func (o Outcome) Failed() bool {
	return o.Reason != ""
}

// Renderer turns a listing URL into the page's visible text.
type Renderer interface {
	Render(ctx context.Context, url string, mode WaitMode) (string, error)
}

// PolicyChecker answers whether a URL may be fetched under the site's
// crawl policy.
type PolicyChecker interface {
	Allowed(ctx context.Context, url string) bool
}

// PortalFetcher retrieves ticket prices from one portal listing page.
type PortalFetcher interface {
	Fetch(ctx context.Context, fixture, portal, url string) Outcome
}
