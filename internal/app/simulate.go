package app

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"ticket-price-alerts/internal/compare"
	"ticket-price-alerts/internal/config"
	"ticket-price-alerts/internal/fetcher"
)

// SimulateAlert 以给定的两个门户价格走一遍评估与投递流程, 用于验证告警通道配置。
// 不经过发送窗口与每日上限门控, 也不累加发送计数器。价格为 0 表示该门户无票。
func (a *App) SimulateAlert(ctx context.Context, priceA, priceB decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	fixture := config.FixtureConfig{
		Name:       "Simulated fixture",
		PortalAURL: "https://example.com/portal-a",
		PortalBURL: "https://example.com/portal-b",
	}
	if len(a.Config.Fixtures) > 0 {
		fixture = a.Config.Fixtures[0]
	}

	outA := fetcher.Outcome{Fixture: fixture.Name, Portal: a.Config.Portals.ALabel, URL: fixture.PortalAURL}
	if priceA.IsPositive() {
		outA.Prices = []decimal.Decimal{priceA}
	}
	outB := fetcher.Outcome{Fixture: fixture.Name, Portal: a.Config.Portals.BLabel, URL: fixture.PortalBURL}
	if priceB.IsPositive() {
		outB.Prices = []decimal.Decimal{priceB}
	}

	rng := compare.Range{
		Low:  decimal.NewFromFloat(a.Config.Range.Low),
		High: decimal.NewFromFloat(a.Config.Range.High),
	}
	decision, failures := compare.Evaluate(outA, outB, rng)
	if decision == nil {
		return errors.New("给定价格不在配置区间内, 不会产生告警")
	}

	msg, err := a.newBuilder().Build([]compare.Decision{*decision}, failures)
	if err != nil {
		return err
	}

	if err := notifier.Notify(ctx, msg); err != nil {
		return err
	}

	a.Logger.Info().Str("subject", msg.Subject).Str("fixture", fixture.Name).Msg("模拟告警已发送")
	return nil
}
