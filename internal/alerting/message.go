package alerting

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"ticket-price-alerts/internal/compare"
)

// Message is one fully rendered alert, ready for any delivery channel.
type Message struct {
	Recipient string
	Subject   string
	HTMLBody  string
	TextBody  string
}

// BuilderOptions fixes the deployment-specific strings rendered into every
// message. WindowLabel and MaxPerDay only feed the footer line.
type BuilderOptions struct {
	Recipient    string
	PortalALabel string
	PortalBLabel string
	Low          decimal.Decimal
	High         decimal.Decimal
	MaxPerDay    int
	WindowLabel  string
}

// Builder renders decisions and failures into an alert message. The HTML
// body is a two-section email (price comparison table, failed URLs table),
// the text body mirrors it for clients that strip markup.
type Builder struct {
	opts BuilderOptions
	tmpl *template.Template
}

// NewBuilder parses the HTML template once and returns a reusable builder.
func NewBuilder(opts BuilderOptions) *Builder {
	return &Builder{
		opts: opts,
		tmpl: template.Must(template.New("alert").Parse(alertTemplate)),
	}
}

// Build composes the message for one run. Callers should not invoke it with
// both slices empty; the send decision happens upstream.
func (b *Builder) Build(decisions []compare.Decision, failures []compare.Failure) (Message, error) {
	var parts []string
	if len(decisions) > 0 {
		parts = append(parts, fmt.Sprintf("%d game(s) in range", len(decisions)))
	}
	if len(failures) > 0 {
		parts = append(parts, fmt.Sprintf("%d URL(s) failed", len(failures)))
	}

	view := b.buildView(decisions, failures)
	var html bytes.Buffer
	if err := b.tmpl.Execute(&html, view); err != nil {
		return Message{}, fmt.Errorf("render alert html: %w", err)
	}

	return Message{
		Recipient: b.opts.Recipient,
		Subject:   "🎟️ Ticket Alert — " + strings.Join(parts, " · "),
		HTMLBody:  html.String(),
		TextBody:  b.buildText(decisions, failures),
	}, nil
}

type alertView struct {
	RangeLow     string
	RangeHigh    string
	PortalALabel string
	PortalBLabel string
	Rows         []rowView
	Failures     []failureView
	Footer       string
}

type rowView struct {
	Fixture string
	CellA   cellView
	CellB   cellView
	Verdict string
}

type cellView struct {
	Price  string
	URL    string
	Label  string
	Color  string
	Weight string
}

type failureView struct {
	Fixture string
	Portal  string
	URL     string
	Reason  string
}

func (b *Builder) buildView(decisions []compare.Decision, failures []compare.Failure) alertView {
	view := alertView{
		RangeLow:     b.opts.Low.String(),
		RangeHigh:    b.opts.High.String(),
		PortalALabel: b.opts.PortalALabel,
		PortalBLabel: b.opts.PortalBLabel,
		Footer:       fmt.Sprintf("Automated alert · max %d/day · %s only.", b.opts.MaxPerDay, b.opts.WindowLabel),
	}

	for _, d := range decisions {
		view.Rows = append(view.Rows, rowView{
			Fixture: d.Fixture,
			CellA:   b.priceCell(d.BestA, d.PortalAURL, b.opts.PortalALabel, d, compare.PortalA),
			CellB:   b.priceCell(d.BestB, d.PortalBURL, b.opts.PortalBLabel, d, compare.PortalB),
			Verdict: b.verdict(d),
		})
	}
	for _, f := range failures {
		view.Failures = append(view.Failures, failureView{
			Fixture: f.Fixture,
			Portal:  b.portalLabel(f.Portal),
			URL:     f.URL,
			Reason:  f.Reason,
		})
	}
	return view
}

// priceCell picks the colour scheme of one portal cell: green for the
// cheaper of two prices, blue for the only available price, grey otherwise.
func (b *Builder) priceCell(best *decimal.Decimal, url, label string, d compare.Decision, portal compare.Portal) cellView {
	cell := cellView{URL: url, Label: label}
	if best == nil {
		return cell
	}

	cell.Price = best.StringFixed(0)
	switch {
	case d.Comparison != compare.ComparisonBoth:
		cell.Color = "#2980b9"
		cell.Weight = "bold"
	case d.Cheaper == portal:
		cell.Color = "#27ae60"
		cell.Weight = "bold"
	default:
		cell.Color = "#555"
		cell.Weight = "normal"
	}
	return cell
}

func (b *Builder) verdict(d compare.Decision) string {
	switch d.Comparison {
	case compare.ComparisonBoth:
		return fmt.Sprintf("✅ %s cheaper by €%s", b.portalLabel(d.Cheaper), d.Saving.StringFixed(0))
	case compare.ComparisonAOnly:
		return fmt.Sprintf("⚠️ Only %s available", b.opts.PortalALabel)
	default:
		return fmt.Sprintf("⚠️ Only %s available", b.opts.PortalBLabel)
	}
}

func (b *Builder) portalLabel(p compare.Portal) string {
	if p == compare.PortalA {
		return b.opts.PortalALabel
	}
	return b.opts.PortalBLabel
}

func (b *Builder) buildText(decisions []compare.Decision, failures []compare.Failure) string {
	builder := strings.Builder{}
	builder.WriteString("TICKET PRICE ALERT\n")
	builder.WriteString(strings.Repeat("=", 50) + "\n\n")

	if len(decisions) > 0 {
		builder.WriteString(fmt.Sprintf("GAMES WITH TICKETS IN RANGE (€%s–€%s)\n", b.opts.Low.String(), b.opts.High.String()))
		builder.WriteString(strings.Repeat("-", 50) + "\n")
		for _, d := range decisions {
			builder.WriteString(fmt.Sprintf("%-18s %s\n", "Game:", d.Fixture))
			builder.WriteString(fmt.Sprintf("%-18s %s  →  %s\n", b.opts.PortalALabel+":", textPrice(d.BestA), d.PortalAURL))
			builder.WriteString(fmt.Sprintf("%-18s %s  →  %s\n", b.opts.PortalBLabel+":", textPrice(d.BestB), d.PortalBURL))
			builder.WriteString(fmt.Sprintf("%-18s %s\n\n", "Verdict:", b.verdict(d)))
		}
	}

	if len(failures) > 0 {
		builder.WriteString("FAILED URLS — CHECK MANUALLY\n")
		builder.WriteString(strings.Repeat("-", 50) + "\n")
		for _, f := range failures {
			builder.WriteString(fmt.Sprintf("Game:    %s\n", f.Fixture))
			builder.WriteString(fmt.Sprintf("Portal:  %s\n", b.portalLabel(f.Portal)))
			builder.WriteString(fmt.Sprintf("URL:     %s\n", f.URL))
			builder.WriteString(fmt.Sprintf("Reason:  %s\n\n", f.Reason))
		}
	}

	return builder.String()
}

func textPrice(best *decimal.Decimal) string {
	if best == nil {
		return "Not available"
	}
	return "€" + best.StringFixed(0)
}

const alertTemplate = `<html><body style="font-family:Arial,sans-serif;max-width:800px;margin:auto;color:#2c3e50">
  <h2 style="color:#2c3e50">🎟️ Ticket Price Alert</h2>
{{- if .Rows}}
  <h3 style="color:#2c3e50;margin-top:0">🟢 Games with tickets in range</h3>
  <p style="color:#555;margin-top:-8px">
    Showing cheapest available price per portal within €{{.RangeLow}}–€{{.RangeHigh}}.
    Green = cheaper of the two · Blue = only portal available · Grey = not available.
  </p>
  <table width="100%" cellspacing="0" style="border-collapse:collapse;margin-bottom:32px">
    <thead>
      <tr style="background:#2c3e50;color:#fff;text-align:left">
        <th style="padding:12px 10px">Game</th>
        <th style="padding:12px 10px">{{.PortalALabel}}</th>
        <th style="padding:12px 10px">{{.PortalBLabel}}</th>
        <th style="padding:12px 10px">Verdict</th>
      </tr>
    </thead>
    <tbody>
{{- range .Rows}}
      <tr style="border-bottom:1px solid #eee">
        <td style="padding:14px 10px;font-weight:bold;vertical-align:top">{{.Fixture}}</td>
        {{template "cell" .CellA}}
        {{template "cell" .CellB}}
        <td style="padding:14px 10px;vertical-align:top;font-size:13px">{{.Verdict}}</td>
      </tr>
{{- end}}
    </tbody>
  </table>
{{- end}}
{{- if .Failures}}
  <h3 style="color:#c0392b">🔴 URLs that could not be checked</h3>
  <p style="color:#555;margin-top:-8px">These pages failed to load or returned no prices. Check the links manually or update the URL in the config.</p>
  <table width="100%" cellspacing="0" style="border-collapse:collapse">
    <thead>
      <tr style="background:#c0392b;color:#fff;text-align:left">
        <th style="padding:10px">Game</th>
        <th style="padding:10px">Portal</th>
        <th style="padding:10px">URL</th>
        <th style="padding:10px">Reason</th>
      </tr>
    </thead>
    <tbody>
{{- range .Failures}}
      <tr style="border-bottom:1px solid #fde">
        <td style="padding:12px 10px;font-weight:bold">{{.Fixture}}</td>
        <td style="padding:12px 10px;color:#c0392b">{{.Portal}}</td>
        <td style="padding:12px 10px"><a href="{{.URL}}" style="color:#2980b9;font-size:12px">{{.URL}}</a></td>
        <td style="padding:12px 10px;color:#888;font-size:12px">{{.Reason}}</td>
      </tr>
{{- end}}
    </tbody>
  </table>
{{- end}}
  <p style="color:#aaa;font-size:11px;margin-top:32px">{{.Footer}}</p>
</body></html>
{{define "cell"}}{{if .Price}}<td style="padding:14px 10px;vertical-align:top"><span style="color:{{.Color}};font-weight:{{.Weight}}">€{{.Price}}</span><br><a href="{{.URL}}" style="font-size:11px;color:#2980b9">{{.Label}} →</a></td>{{else}}<td style="padding:14px 10px;vertical-align:top;color:#aaa;font-style:italic">Not available<br><a href="{{.URL}}" style="font-size:11px;color:#2980b9">{{.Label}} →</a></td>{{end}}{{end}}`
