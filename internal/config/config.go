package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"ticket-price-alerts/internal/logging"
)

// Channel names accepted in alerting.channels.
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig       `mapstructure:"app"`
	Logging  logging.Config  `mapstructure:"logging"`
	Fixtures []FixtureConfig `mapstructure:"fixtures"`
	Range    RangeConfig     `mapstructure:"range"`
	Window   WindowConfig    `mapstructure:"window"`
	Alerting AlertingConfig  `mapstructure:"alerting"`
	Portals  PortalsConfig   `mapstructure:"portals"`
	Browser  BrowserConfig   `mapstructure:"browser"`
	Robots   RobotsConfig    `mapstructure:"robots"`
	State    StateConfig     `mapstructure:"state"`
	Database DatabaseConfig  `mapstructure:"database"`
	Schedule ScheduleConfig  `mapstructure:"schedule"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// FixtureConfig names one game and its listing page on each portal.
type FixtureConfig struct {
	Name       string `mapstructure:"name"`
	PortalAURL string `mapstructure:"portal_a_url"`
	PortalBURL string `mapstructure:"portal_b_url"`
}

// RangeConfig bounds the acceptable ticket price band in EUR.
type RangeConfig struct {
	Low  float64 `mapstructure:"low"`
	High float64 `mapstructure:"high"`
}

// WindowConfig restricts alert delivery to local daytime hours.
type WindowConfig struct {
	StartHour int    `mapstructure:"start_hour"`
	EndHour   int    `mapstructure:"end_hour"`
	Timezone  string `mapstructure:"timezone"`
}

// Location resolves the configured timezone.
func (w WindowConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return nil, fmt.Errorf("window.timezone: %w", err)
	}
	return loc, nil
}

// Label renders the window for human-facing text such as the alert footer.
func (w WindowConfig) Label() string {
	return fmt.Sprintf("%02d:00-%02d:00 %s", w.StartHour, w.EndHour, w.Timezone)
}

// AlertingConfig defines delivery routing and the daily send cap.
type AlertingConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	Recipient string         `mapstructure:"recipient"`
	MaxPerDay int            `mapstructure:"max_per_day"`
	Channels  []string       `mapstructure:"channels"`
	Resend    ResendConfig   `mapstructure:"resend"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// HasChannel reports whether a channel name is routed.
func (a AlertingConfig) HasChannel(name string) bool {
	for _, ch := range a.Channels {
		if strings.EqualFold(strings.TrimSpace(ch), name) {
			return true
		}
	}
	return false
}

// ResendConfig captures Resend email API access.
type ResendConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Sender  string `mapstructure:"sender"`
	APIBase string `mapstructure:"api_base"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// PortalsConfig holds the display labels for the two portals.
type PortalsConfig struct {
	ALabel string `mapstructure:"a_label"`
	BLabel string `mapstructure:"b_label"`
}

// BrowserConfig tunes the headless Chromium renderer.
type BrowserConfig struct {
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout"`
	SettleWait      time.Duration `mapstructure:"settle_wait"`
	UserAgent       string        `mapstructure:"user_agent"`
	ControlURL      string        `mapstructure:"control_url"`
	Bin             string        `mapstructure:"bin"`
}

// RobotsConfig governs the crawl-policy check.
type RobotsConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StateConfig locates the daily send counter file.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig encapsulates optional PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ScheduleConfig governs the watch-mode cron loop.
type ScheduleConfig struct {
	Cron            string `mapstructure:"cron"`
	Immediate       bool   `mapstructure:"immediate"`
	AdvisoryLockKey int64  `mapstructure:"advisory_lock_key"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TICKETWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ticketwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("range.low", 100.0)
	v.SetDefault("range.high", 500.0)

	v.SetDefault("window.start_hour", 9)
	v.SetDefault("window.end_hour", 17)
	v.SetDefault("window.timezone", "America/Los_Angeles")

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.max_per_day", 10)
	v.SetDefault("alerting.channels", []string{ChannelEmail})
	v.SetDefault("alerting.resend.api_base", "https://api.resend.com")
	v.SetDefault("alerting.resend.sender", "Ticket Alert <onboarding@resend.dev>")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("portals.a_label", "P1 Travel")
	v.SetDefault("portals.b_label", "Champions Travel")

	v.SetDefault("browser.page_load_timeout", "30s")
	v.SetDefault("browser.settle_wait", "3s")
	v.SetDefault("browser.user_agent", "ticketwatcher/1.0 (personal ticket price monitor) rod/Chromium")

	v.SetDefault("robots.enabled", true)
	v.SetDefault("robots.timeout", "10s")

	v.SetDefault("state.path", "data/daily_sends.json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("schedule.cron", "*/30 9-16 * * *")
	v.SetDefault("schedule.immediate", true)
	v.SetDefault("schedule.advisory_lock_key", int64(0x7469636b))

	v.SetDefault("fixtures", defaultFixtures())
}

func defaultFixtures() []map[string]string {
	return []map[string]string{
		{
			"name":         "Arsenal vs TBC",
			"portal_a_url": "https://www.p1travel.com/en/football/champions-league/arsenal-vs-tbc-date-tbc",
			"portal_b_url": "https://champions-travel.com/tickets/uefa-champions-league?arsenal-v-tbc",
		},
		{
			"name":         "Manchester City vs TBC",
			"portal_a_url": "https://www.p1travel.com/en/football/champions-league/manchester-city-vs-tbc-date-tbc",
			"portal_b_url": "https://champions-travel.com/tickets/uefa-champions-league?manchester-city-v-tbc",
		},
		{
			"name":         "Chelsea vs TBC",
			"portal_a_url": "https://www.p1travel.com/en/football/champions-league/chelsea-vs-tbc-date-tbc",
			"portal_b_url": "https://champions-travel.com/tickets/uefa-champions-league?chelsea-v-tbc",
		},
	}
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Range.Low < 0 {
		return fmt.Errorf("range.low cannot be negative")
	}
	if c.Range.High <= c.Range.Low {
		return fmt.Errorf("range.high must be greater than range.low")
	}

	if c.Window.StartHour < 0 || c.Window.StartHour > 23 {
		return fmt.Errorf("window.start_hour must be within [0,23]")
	}
	if c.Window.EndHour < 1 || c.Window.EndHour > 24 {
		return fmt.Errorf("window.end_hour must be within [1,24]")
	}
	if c.Window.EndHour <= c.Window.StartHour {
		return fmt.Errorf("window.end_hour must be greater than window.start_hour")
	}
	if _, err := c.Window.Location(); err != nil {
		return err
	}

	if c.Alerting.MaxPerDay <= 0 {
		return fmt.Errorf("alerting.max_per_day must be greater than zero")
	}
	for _, ch := range c.Alerting.Channels {
		name := strings.ToLower(strings.TrimSpace(ch))
		if name != ChannelEmail && name != ChannelTelegram {
			return fmt.Errorf("alerting.channels: unknown channel %q", ch)
		}
	}
	if c.Alerting.Enabled && c.Alerting.HasChannel(ChannelEmail) {
		if c.Alerting.Recipient == "" {
			return fmt.Errorf("alerting.recipient is required for the email channel")
		}
		if c.Alerting.Resend.APIKey == "" {
			return fmt.Errorf("alerting.resend.api_key is required for the email channel")
		}
	}
	if c.Alerting.Telegram.Enabled || (c.Alerting.Enabled && c.Alerting.HasChannel(ChannelTelegram)) {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}

	if c.Browser.PageLoadTimeout <= 0 {
		return fmt.Errorf("browser.page_load_timeout must be greater than zero")
	}
	if c.Browser.SettleWait < 0 {
		return fmt.Errorf("browser.settle_wait cannot be negative")
	}

	if c.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}

	if strings.TrimSpace(c.Schedule.Cron) == "" {
		return fmt.Errorf("schedule.cron is required")
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron is not a valid cron spec: %w", err)
	}

	for i, fixture := range c.Fixtures {
		if strings.TrimSpace(fixture.Name) == "" {
			return fmt.Errorf("fixtures[%d]: name is required", i)
		}
		if fixture.PortalAURL == "" || fixture.PortalBURL == "" {
			return fmt.Errorf("fixtures[%d] (%s): both portal URLs are required", i, fixture.Name)
		}
	}

	return nil
}
