package fetcher

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

type renderResult struct {
	text string
	err  error
}

type fakeRenderer struct {
	calls   []WaitMode
	results map[WaitMode]renderResult
}

func (f *fakeRenderer) Render(ctx context.Context, url string, mode WaitMode) (string, error) {
	f.calls = append(f.calls, mode)
	res := f.results[mode]
	return res.text, res.err
}

type fakePolicy struct {
	allowed bool
	calls   int
}

func (f *fakePolicy) Allowed(ctx context.Context, url string) bool {
	f.calls++
	return f.allowed
}

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func timeoutErr(stage string) error {
	return fmt.Errorf("%s: %w", stage, context.DeadlineExceeded)
}

func TestPortalFetchSuccess(t *testing.T) {
	renderer := &fakeRenderer{results: map[WaitMode]renderResult{
		WaitNetworkIdle: {text: "Hospitality €450, resale from 150€"},
	}}
	policy := &fakePolicy{allowed: true}

	out := NewPortal(renderer, policy, noopLogger()).Fetch(context.Background(), "Arsenal vs TBC", "P1 Travel", "https://example.com/a")
	if out.Failed() {
		t.Fatalf("成功抓取不应带失败原因: %q", out.Reason)
	}
	if len(out.Prices) != 2 {
		t.Fatalf("期望 2 个价格, 实际 %v", out.Prices)
	}
	if !out.Prices[0].LessThan(out.Prices[1]) {
		t.Fatalf("价格应升序排列: %v", out.Prices)
	}
	if policy.calls != 1 {
		t.Fatalf("robots 检查应执行一次, 实际 %d", policy.calls)
	}
}

func TestPortalFetchBlockedByPolicy(t *testing.T) {
	renderer := &fakeRenderer{results: map[WaitMode]renderResult{}}
	policy := &fakePolicy{allowed: false}

	out := NewPortal(renderer, policy, noopLogger()).Fetch(context.Background(), "f", "p", "https://example.com/a")
	if out.Reason != ReasonBlocked {
		t.Fatalf("期望 reason %q, 实际 %q", ReasonBlocked, out.Reason)
	}
	if len(renderer.calls) != 0 {
		t.Fatal("被 robots.txt 拦截时不应渲染页面")
	}
}

func TestPortalFetchNilPolicySkipsGate(t *testing.T) {
	renderer := &fakeRenderer{results: map[WaitMode]renderResult{
		WaitNetworkIdle: {text: "EUR 200"},
	}}

	out := NewPortal(renderer, nil, noopLogger()).Fetch(context.Background(), "f", "p", "https://example.com/a")
	if out.Failed() {
		t.Fatalf("未配置 policy 时应直接渲染: %q", out.Reason)
	}
	if len(renderer.calls) != 1 {
		t.Fatalf("期望渲染一次, 实际 %d", len(renderer.calls))
	}
}

func TestPortalFetchTimeoutFallsBackToContentLoaded(t *testing.T) {
	renderer := &fakeRenderer{results: map[WaitMode]renderResult{
		WaitNetworkIdle:   {err: timeoutErr("wait for network idle")},
		WaitContentLoaded: {text: "€320 per seat"},
	}}

	out := NewPortal(renderer, &fakePolicy{allowed: true}, noopLogger()).Fetch(context.Background(), "f", "p", "https://example.com/a")
	if out.Failed() {
		t.Fatalf("回退成功后不应失败: %q", out.Reason)
	}
	if len(renderer.calls) != 2 || renderer.calls[0] != WaitNetworkIdle || renderer.calls[1] != WaitContentLoaded {
		t.Fatalf("期望先 network idle 后 content loaded, 实际 %v", renderer.calls)
	}
	if len(out.Prices) != 1 {
		t.Fatalf("期望 1 个价格, 实际 %v", out.Prices)
	}
}

func TestPortalFetchDoubleTimeout(t *testing.T) {
	renderer := &fakeRenderer{results: map[WaitMode]renderResult{
		WaitNetworkIdle:   {err: timeoutErr("wait for network idle")},
		WaitContentLoaded: {err: timeoutErr("wait for document load")},
	}}

	out := NewPortal(renderer, &fakePolicy{allowed: true}, noopLogger()).Fetch(context.Background(), "f", "p", "https://example.com/a")
	if out.Reason != ReasonTimeout {
		t.Fatalf("两次超时应返回 %q, 实际 %q", ReasonTimeout, out.Reason)
	}
	if len(out.Prices) != 0 {
		t.Fatalf("超时不应产出价格: %v", out.Prices)
	}
}

func TestPortalFetchRenderFaultNoFallback(t *testing.T) {
	fault := errors.New("browser crashed")
	renderer := &fakeRenderer{results: map[WaitMode]renderResult{
		WaitNetworkIdle: {err: fault},
	}}

	out := NewPortal(renderer, &fakePolicy{allowed: true}, noopLogger()).Fetch(context.Background(), "f", "p", "https://example.com/a")
	if out.Reason != fault.Error() {
		t.Fatalf("非超时错误应原样透出: %q", out.Reason)
	}
	if len(renderer.calls) != 1 {
		t.Fatalf("非超时错误不应触发回退, 实际渲染 %d 次", len(renderer.calls))
	}
}

func TestPortalFetchEmptyTextIsSuccess(t *testing.T) {
	renderer := &fakeRenderer{results: map[WaitMode]renderResult{
		WaitNetworkIdle: {text: "sold out, join the waiting list"},
	}}

	out := NewPortal(renderer, &fakePolicy{allowed: true}, noopLogger()).Fetch(context.Background(), "f", "p", "https://example.com/a")
	if out.Failed() {
		t.Fatalf("无价格的成功抓取不应失败: %q", out.Reason)
	}
	if len(out.Prices) != 0 {
		t.Fatalf("期望空价格集, 实际 %v", out.Prices)
	}
}
