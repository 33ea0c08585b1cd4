package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config is read once at startup.
type Config struct {
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8080"`
	AppEnv      string   `env:"APP_ENV" envDefault:"production"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	CatalogPath string   `env:"CATALOG_PATH"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	RateLimitBurst     int `env:"RATE_LIMIT_BURST" envDefault:"5"`

	// TrustedProxies lists the CIDR ranges or addresses of reverse proxies
	// whose X-Forwarded-For header is believed. When empty the client IP is
	// the TCP peer address.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Redis is optional; when set, rate limits are shared between instances.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SentryDSN string `env:"SENTRY_DSN"`

	TelegramTimeout     time.Duration `env:"TELEGRAM_TIMEOUT" envDefault:"5s"`
	TelegramAPIEndpoint string        `env:"TELEGRAM_API_ENDPOINT" envDefault:"https://api.telegram.org/bot%s/%s"`
	EmailTimeout        time.Duration `env:"EMAIL_TIMEOUT" envDefault:"5s"`
	SendGridHost        string        `env:"SENDGRID_HOST" envDefault:"https://api.sendgrid.com"`
	PhoneRegion         string        `env:"PHONE_REGION" envDefault:"MD"`
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.RateLimitPerMinute <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("rate limit values must be positive")
	}
	if cfg.TelegramTimeout <= 0 || cfg.EmailTimeout <= 0 {
		return nil, fmt.Errorf("delivery timeouts must be positive")
	}
	if _, err := cfg.TrustedProxyRanges(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// TrustedProxyRanges parses TrustedProxies. A bare address is treated as a
// single host range.
func (c Config) TrustedProxyRanges() ([]*net.IPNet, error) {
	var ranges []*net.IPNet
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			ranges = append(ranges, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		ranges = append(ranges, n)
	}
	return ranges, nil
}

// DefaultChatIDs receive leads when TELEGRAM_CHAT_ID is unset.
var DefaultChatIDs = []string{
	"-1002000000001",
	"-1002000000002",
	"-1002000000003",
	"-1002000000004",
}

const DefaultEmailRecipient = "leads@adtime.agency"

// Notify holds the lead delivery settings. It is read from the environment
// on every lead request so that credential rotation needs no restart.
type Notify struct {
	BotToken       string `env:"TELEGRAM_BOT_TOKEN"`
	RawChatIDs     string `env:"TELEGRAM_CHAT_ID"`
	EmailRecipient string `env:"EMAIL_TO"`
	EmailAPIKey    string `env:"SENDGRID_API_KEY"`
	EmailFrom      string `env:"EMAIL_FROM" envDefault:"noreply@adtime.agency"`
	EmailFromName  string `env:"EMAIL_FROM_NAME" envDefault:"ADTIME website"`

	ChatIDs []string
}

func LoadNotify() (Notify, error) {
	var n Notify
	if err := env.Parse(&n); err != nil {
		return Notify{}, fmt.Errorf("failed to parse notify config: %w", err)
	}
	return n.WithDefaults(), nil
}

// WithDefaults resolves the chat ID list and the email recipient.
func (n Notify) WithDefaults() Notify {
	n.BotToken = strings.TrimSpace(n.BotToken)
	n.EmailAPIKey = strings.TrimSpace(n.EmailAPIKey)

	n.ChatIDs = ParseChatIDs(n.RawChatIDs)
	if len(n.ChatIDs) == 0 {
		n.ChatIDs = append([]string(nil), DefaultChatIDs...)
	}

	n.EmailRecipient = strings.TrimSpace(n.EmailRecipient)
	if n.EmailRecipient == "" {
		n.EmailRecipient = DefaultEmailRecipient
	}
	return n
}

// ParseChatIDs splits a comma separated list, trimming entries and dropping
// empty ones.
func ParseChatIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
