package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func assertPrices(t *testing.T, got []decimal.Decimal, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d prices, got %d: %v", len(want), len(got), got)
	}
	for i, raw := range want {
		expected := decimal.RequireFromString(raw)
		if !got[i].Equal(expected) {
			t.Fatalf("price[%d]: expected %s, got %s", i, expected, got[i])
		}
	}
}

func TestPricesAllNotationForms(t *testing.T) {
	text := "Hospitality from €150 per seat, or EUR 200 for category 1. Resale at 175€ and 225 EUR."
	assertPrices(t, Prices(text), "150", "175", "200", "225")
}

func TestPricesCaseInsensitiveCode(t *testing.T) {
	assertPrices(t, Prices("from eur 120 or 130 Eur"), "120", "130")
}

func TestPricesThousandsSeparatorsAndDecimals(t *testing.T) {
	text := "Premium box €1,299.50, standard EUR 2,000, upgrade 310.25€"
	assertPrices(t, Prices(text), "310.25", "1299.5", "2000")
}

func TestPricesPlausibilityBounds(t *testing.T) {
	text := "booking fee €9.99, cheapest seat €10, platinum €50,000, yacht package €50,001"
	assertPrices(t, Prices(text), "10", "50000")
}

func TestPricesDedupeAcrossForms(t *testing.T) {
	text := "€150 ticket, also listed as 150 EUR and EUR 150.00, plus €300"
	assertPrices(t, Prices(text), "150", "300")
}

func TestPricesDeterministic(t *testing.T) {
	text := "chaos: 450€ €120 EUR 310 177 EUR €120"
	first := Prices(text)
	second := Prices(text)
	assertPrices(t, first, "120", "177", "310", "450")
	assertPrices(t, second, "120", "177", "310", "450")
}

func TestPricesStableUnderReextraction(t *testing.T) {
	first := Prices("Hospitality €150, resale 175€, premium EUR 2,000")

	var rendered strings.Builder
	for _, p := range first {
		fmt.Fprintf(&rendered, "€%s ", p.String())
	}

	assertPrices(t, Prices(rendered.String()), "150", "175", "2000")
}

func TestPricesMalformedLiteralsSkipped(t *testing.T) {
	if got := Prices("€ ,,, and EUR , nothing usable"); len(got) != 0 {
		t.Fatalf("malformed literals should be skipped, got %v", got)
	}
}

func TestPricesNoMatches(t *testing.T) {
	if got := Prices("sold out, join the waiting list"); len(got) != 0 {
		t.Fatalf("expected no prices, got %v", got)
	}
	if got := Prices(""); len(got) != 0 {
		t.Fatalf("expected no prices for empty text, got %v", got)
	}
}
