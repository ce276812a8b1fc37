package alerting

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ticket-price-alerts/internal/compare"
)

func testBuilder() *Builder {
	return NewBuilder(BuilderOptions{
		Recipient:    "fan@example.com",
		PortalALabel: "P1 Travel",
		PortalBLabel: "Champions Travel",
		Low:          decimal.NewFromInt(100),
		High:         decimal.NewFromInt(500),
		MaxPerDay:    10,
		WindowLabel:  "09:00-17:00 America/Los_Angeles",
	})
}

func pricePtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return &v
}

func bothDecision(t *testing.T) compare.Decision {
	t.Helper()
	return compare.Decision{
		Fixture:    "Semifinal Leg 1",
		PortalAURL: "https://a.example/semi",
		PortalBURL: "https://b.example/semi",
		BestA:      pricePtr(t, "120"),
		BestB:      pricePtr(t, "140"),
		Comparison: compare.ComparisonBoth,
		Cheaper:    compare.PortalA,
		Saving:     pricePtr(t, "20"),
	}
}

func bOnlyDecision(t *testing.T) compare.Decision {
	t.Helper()
	return compare.Decision{
		Fixture:    "Final",
		PortalAURL: "https://a.example/final",
		PortalBURL: "https://b.example/final",
		BestB:      pricePtr(t, "450"),
		Comparison: compare.ComparisonBOnly,
		Cheaper:    compare.PortalB,
	}
}

func timeoutFailure() compare.Failure {
	return compare.Failure{
		Fixture: "Quarterfinal",
		Portal:  compare.PortalA,
		URL:     "https://a.example/quarter",
		Reason:  "page load timed out",
	}
}

func TestBuildSubjectCountsBothSections(t *testing.T) {
	msg, err := testBuilder().Build(
		[]compare.Decision{bothDecision(t), bOnlyDecision(t)},
		[]compare.Failure{timeoutFailure()},
	)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := "🎟️ Ticket Alert — 2 game(s) in range · 1 URL(s) failed"
	if msg.Subject != want {
		t.Fatalf("subject = %q, want %q", msg.Subject, want)
	}
	if msg.Recipient != "fan@example.com" {
		t.Fatalf("recipient = %q", msg.Recipient)
	}
}

func TestBuildSubjectDecisionsOnly(t *testing.T) {
	msg, err := testBuilder().Build([]compare.Decision{bothDecision(t)}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if msg.Subject != "🎟️ Ticket Alert — 1 game(s) in range" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if strings.Contains(msg.HTMLBody, "could not be checked") {
		t.Fatal("failures section should be absent")
	}
}

func TestBuildSubjectFailuresOnly(t *testing.T) {
	msg, err := testBuilder().Build(nil, []compare.Failure{timeoutFailure()})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if msg.Subject != "🎟️ Ticket Alert — 1 URL(s) failed" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if strings.Contains(msg.HTMLBody, "tickets in range") {
		t.Fatal("price section should be absent")
	}
}

func TestBuildHTMLComparisonRow(t *testing.T) {
	msg, err := testBuilder().Build([]compare.Decision{bothDecision(t)}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, want := range []string{
		"Semifinal Leg 1",
		"€120",
		"€140",
		"✅ P1 Travel cheaper by €20",
		"https://a.example/semi",
		"https://b.example/semi",
		"#27ae60",
	} {
		if !strings.Contains(msg.HTMLBody, want) {
			t.Fatalf("html body missing %q", want)
		}
	}
}

func TestBuildHTMLSinglePortalRow(t *testing.T) {
	msg, err := testBuilder().Build([]compare.Decision{bOnlyDecision(t)}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !strings.Contains(msg.HTMLBody, "⚠️ Only Champions Travel available") {
		t.Fatal("html body missing single-portal verdict")
	}
	if !strings.Contains(msg.HTMLBody, "Not available") {
		t.Fatal("missing portal should render as not available")
	}
	if !strings.Contains(msg.HTMLBody, "#2980b9") {
		t.Fatal("only-portal price should use the blue accent")
	}
}

func TestBuildHTMLEscapesContent(t *testing.T) {
	d := bothDecision(t)
	d.Fixture = `Derby <Home> & "Away"`

	msg, err := testBuilder().Build([]compare.Decision{d}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Contains(msg.HTMLBody, "<Home>") {
		t.Fatal("fixture name was not escaped")
	}
	if !strings.Contains(msg.HTMLBody, "&lt;Home&gt;") {
		t.Fatal("escaped fixture name missing")
	}
	if !strings.Contains(msg.TextBody, `Derby <Home> & "Away"`) {
		t.Fatal("text body should keep the raw fixture name")
	}
}

func TestBuildTextBody(t *testing.T) {
	msg, err := testBuilder().Build(
		[]compare.Decision{bOnlyDecision(t)},
		[]compare.Failure{timeoutFailure()},
	)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, want := range []string{
		"TICKET PRICE ALERT",
		"GAMES WITH TICKETS IN RANGE (€100–€500)",
		"Not available",
		"€450",
		"FAILED URLS — CHECK MANUALLY",
		"Reason:  page load timed out",
	} {
		if !strings.Contains(msg.TextBody, want) {
			t.Fatalf("text body missing %q", want)
		}
	}
}

func TestBuildFooterReflectsLimits(t *testing.T) {
	msg, err := testBuilder().Build([]compare.Decision{bothDecision(t)}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(msg.HTMLBody, "max 10/day") {
		t.Fatal("footer missing daily cap")
	}
	if !strings.Contains(msg.HTMLBody, "09:00-17:00 America/Los_Angeles") {
		t.Fatal("footer missing send window")
	}
}
