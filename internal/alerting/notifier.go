package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// ResendNotifier 通过 Resend API 发送邮件告警。
type ResendNotifier struct {
	apiKey  string
	sender  string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewResendNotifier 构造邮件告警器。
func NewResendNotifier(apiKey, sender, baseURL string, timeout time.Duration, logger zerolog.Logger) *ResendNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}

	return &ResendNotifier{
		apiKey:  apiKey,
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "alert_email").Logger(),
	}
}

// Notify 调用 /emails 接口投递 HTML 与纯文本版本。
func (n *ResendNotifier) Notify(ctx context.Context, msg Message) error {
	payload := struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
		Text    string   `json:"text"`
	}{
		From:    n.sender,
		To:      []string{msg.Recipient},
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		Text:    msg.TextBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal resend payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send resend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("resend 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if result.ID == "" {
			return fmt.Errorf("resend 未返回邮件 id")
		}
	}

	n.logger.Info().Str("id", result.ID).
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Msg("告警已发送 (Resend)")
	return nil
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送主题与纯文本正文。
func (n *TelegramNotifier) Notify(ctx context.Context, msg Message) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    msg.Subject + "\n\n" + msg.TextBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("subject", msg.Subject).Msg("告警已发送 (Telegram)")
	return nil
}

// MultiNotifier 将同一条告警推送到全部已配置通道, 任一通道失败即视为投递失败。
type MultiNotifier struct {
	targets []Notifier
}

// NewMultiNotifier 组合多个通道。
func NewMultiNotifier(targets ...Notifier) *MultiNotifier {
	return &MultiNotifier{targets: targets}
}

// Notify 顺序投递到每个通道。
func (n *MultiNotifier) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, target := range n.targets {
		if err := target.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Notifier = (*ResendNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*MultiNotifier)(nil)
)
