package compare

import (
	"github.com/shopspring/decimal"

	"ticket-price-alerts/internal/fetcher"
)

// Portal identifies one of the two monitored portals positionally.
type Portal string

const (
	PortalA Portal = "portal_a"
	PortalB Portal = "portal_b"
)

// Comparison classifies which portals produced an in-range best price.
type Comparison string

const (
	ComparisonBoth  Comparison = "both"
	ComparisonAOnly Comparison = "portal_a_only"
	ComparisonBOnly Comparison = "portal_b_only"
)

// Range bounds the acceptable price band in EUR, inclusive on both ends.
type Range struct {
	Low  decimal.Decimal
	High decimal.Decimal
}

// Contains reports whether the price falls inside the band.
func (r Range) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.Low) && price.LessThanOrEqual(r.High)
}

// Decision is one fixture's alert-worthy comparison. A portal's best price
// is nil when it failed, found nothing, or found nothing in range. Saving is
// set only when Comparison is both; ties break toward portal A.
type Decision struct {
	Fixture    string
	PortalAURL string
	PortalBURL string
	BestA      *decimal.Decimal
	BestB      *decimal.Decimal
	Comparison Comparison
	Cheaper    Portal
	Saving     *decimal.Decimal
}

// Failure is one portal page that could not be checked, reported in the
// alert's failure section.
type Failure struct {
	Fixture string
	Portal  Portal
	URL     string
	Reason  string
}

// BestInRange returns the minimum in-range price of a successful outcome,
// or nil when the outcome failed, had no prices, or none fell in range.
func BestInRange(out fetcher.Outcome, rng Range) *decimal.Decimal {
	if out.Failed() {
		return nil
	}

	var best *decimal.Decimal
	for _, price := range out.Prices {
		if !rng.Contains(price) {
			continue
		}
		if best == nil || price.LessThan(*best) {
			p := price
			best = &p
		}
	}
	return best
}

// Evaluate combines the two portal outcomes for one fixture; the first
// outcome is portal A's, the second portal B's. The decision is nil when
// neither portal produced an in-range price. Failure entries are emitted
// for failed outcomes only: a page that rendered without usable prices is
// not a failure, and a fixture where nothing qualified and nothing failed
// produces no output at all. Both channels are independent, so one portal
// can appear in the failure list while the other still drives a decision.
func Evaluate(outA, outB fetcher.Outcome, rng Range) (*Decision, []Failure) {
	var failures []Failure
	if outA.Failed() {
		failures = append(failures, Failure{Fixture: outA.Fixture, Portal: PortalA, URL: outA.URL, Reason: outA.Reason})
	}
	if outB.Failed() {
		failures = append(failures, Failure{Fixture: outB.Fixture, Portal: PortalB, URL: outB.URL, Reason: outB.Reason})
	}

	bestA := BestInRange(outA, rng)
	bestB := BestInRange(outB, rng)
	if bestA == nil && bestB == nil {
		return nil, failures
	}

	decision := &Decision{
		Fixture:    outA.Fixture,
		PortalAURL: outA.URL,
		PortalBURL: outB.URL,
		BestA:      bestA,
		BestB:      bestB,
	}

	switch {
	case bestA != nil && bestB != nil:
		decision.Comparison = ComparisonBoth
		saving := bestA.Sub(*bestB).Abs()
		decision.Saving = &saving
		if bestA.LessThanOrEqual(*bestB) {
			decision.Cheaper = PortalA
		} else {
			decision.Cheaper = PortalB
		}
	case bestA != nil:
		decision.Comparison = ComparisonAOnly
		decision.Cheaper = PortalA
	default:
		decision.Comparison = ComparisonBOnly
		decision.Cheaper = PortalB
	}

	return decision, failures
}
