package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/sigtrader/internal/services/risk"
)

const (
	LedgerBackendWAL    = "wal"
	LedgerBackendSQLite = "sqlite"

	QuotesYahoo       = "yahoo"
	QuotesBinance     = "binance"
	QuotesBybit       = "bybit"
	QuotesHyperliquid = "hyperliquid"
	QuotesStatic      = "static"

	DefaultEnvFile = ".env"

	redacted = "***"
)

// Config application settings.
type Config struct {
	Env            string
	BaseCapital    decimal.Decimal
	MaxExposurePct float64
	MaxTradeAmount decimal.Decimal
	LogLevel       string

	Ledger       LedgerConfig
	DecisionsDir string
	SnapshotsDir string
	Quotes       QuotesConfig
	HTTP         HTTPConfig
	Telegram     TelegramConfig

	WebhookSecret string
	HMACSecret    string
}

type LedgerConfig struct {
	Backend string
	Dir     string
	Path    string
}

type QuotesConfig struct {
	Provider string
	Static   map[string]decimal.Decimal
}

type HTTPConfig struct {
	Addr string
	// TLSDomain enables ACME certificates for the domain when set.
	TLSDomain string
	CertDir   string
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// ConfigTmp yaml representation; decimals are kept as strings.
type ConfigTmp struct {
	Env               string            `yaml:"env,omitempty"`
	BaseCapitalStr    string            `yaml:"base_capital,omitempty"`
	MaxExposurePctStr string            `yaml:"max_exposure_pct,omitempty"`
	MaxTradeAmountStr string            `yaml:"max_trade_amount,omitempty"`
	LogLevel          string            `yaml:"log_level,omitempty"`
	LedgerBackend     string            `yaml:"ledger_backend,omitempty"`
	LedgerDir         string            `yaml:"ledger_dir,omitempty"`
	LedgerPath        string            `yaml:"ledger_path,omitempty"`
	DecisionsDir      string            `yaml:"decisions_dir,omitempty"`
	SnapshotsDir      string            `yaml:"snapshots_dir,omitempty"`
	QuotesProvider    string            `yaml:"quotes_provider,omitempty"`
	StaticPrices      map[string]string `yaml:"static_prices,omitempty"`
	HTTPAddr          string            `yaml:"http_addr,omitempty"`
	TLSDomain         string            `yaml:"tls_domain,omitempty"`
	CertDir           string            `yaml:"cert_dir,omitempty"`
	WebhookSecret     string            `yaml:"webhook_secret,omitempty"`
	HMACSecret        string            `yaml:"hmac_secret,omitempty"`
	TelegramBotToken  string            `yaml:"telegram_bot_token,omitempty"`
	TelegramChatID    string            `yaml:"telegram_chat_id,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Env:            "paper",
		BaseCapital:    decimal.NewFromInt(10000),
		MaxExposurePct: 0.3,
		MaxTradeAmount: decimal.NewFromInt(500),
		LogLevel:       "info",
		Ledger: LedgerConfig{
			Backend: LedgerBackendWAL,
			Dir:     "./wal/ledger",
			Path:    "./data/ledger.db",
		},
		DecisionsDir: "./wal/decisions",
		SnapshotsDir: "./wal/portfolio",
		Quotes:       QuotesConfig{Provider: QuotesYahoo},
		HTTP:         HTTPConfig{Addr: ":8000", CertDir: "./certs"},
	}
}

// Load builds the configuration from defaults, the yaml file at path (optional),
// the env file (optional) and the process environment, in that order.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config")
		}
		var tmp ConfigTmp
		if err := yaml.Unmarshal(data, &tmp); err != nil {
			return Config{}, errors.Wrap(err, "parse config")
		}
		if err := tmp.apply(&cfg); err != nil {
			return Config{}, err
		}
	}

	if envFile != "" {
		// existing environment variables take precedence over the file
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "load env file %s", envFile)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c ConfigTmp) apply(cfg *Config) error {
	setString(&cfg.Env, c.Env)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.Ledger.Backend, c.LedgerBackend)
	setString(&cfg.Ledger.Dir, c.LedgerDir)
	setString(&cfg.Ledger.Path, c.LedgerPath)
	setString(&cfg.DecisionsDir, c.DecisionsDir)
	setString(&cfg.SnapshotsDir, c.SnapshotsDir)
	setString(&cfg.Quotes.Provider, c.QuotesProvider)
	setString(&cfg.HTTP.Addr, c.HTTPAddr)
	setString(&cfg.HTTP.TLSDomain, c.TLSDomain)
	setString(&cfg.HTTP.CertDir, c.CertDir)
	setString(&cfg.WebhookSecret, c.WebhookSecret)
	setString(&cfg.HMACSecret, c.HMACSecret)
	setString(&cfg.Telegram.BotToken, c.TelegramBotToken)
	setString(&cfg.Telegram.ChatID, c.TelegramChatID)

	if err := setDecimal(&cfg.BaseCapital, c.BaseCapitalStr, "base_capital"); err != nil {
		return err
	}
	if err := setDecimal(&cfg.MaxTradeAmount, c.MaxTradeAmountStr, "max_trade_amount"); err != nil {
		return err
	}
	if err := setFloat(&cfg.MaxExposurePct, c.MaxExposurePctStr, "max_exposure_pct"); err != nil {
		return err
	}

	if len(c.StaticPrices) > 0 {
		cfg.Quotes.Static = make(map[string]decimal.Decimal, len(c.StaticPrices))
		for symbol, raw := range c.StaticPrices {
			price, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("incorrect 'static_prices.%s' param in yaml config (must be a decimal), error: %w", symbol, err)
			}
			cfg.Quotes.Static[strings.ToUpper(strings.TrimSpace(symbol))] = price
		}
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	setString(&cfg.Env, strings.ToLower(get("SIGTRADER_ENV")))
	setString(&cfg.LogLevel, get("LOG_LEVEL"))
	setString(&cfg.Ledger.Backend, get("LEDGER_BACKEND"))
	setString(&cfg.Quotes.Provider, get("QUOTES_PROVIDER"))
	setString(&cfg.HTTP.Addr, get("HTTP_ADDR"))
	setString(&cfg.WebhookSecret, get("WEBHOOK_SECRET"))
	setString(&cfg.HMACSecret, get("HMAC_SECRET"))
	setString(&cfg.Telegram.BotToken, get("TELEGRAM_BOT_TOKEN"))
	setString(&cfg.Telegram.ChatID, get("TELEGRAM_CHAT_ID"))

	if err := setDecimal(&cfg.BaseCapital, get("BASE_CAPITAL"), "BASE_CAPITAL"); err != nil {
		return err
	}
	if err := setDecimal(&cfg.MaxTradeAmount, get("MAX_TRADE_AMOUNT"), "MAX_TRADE_AMOUNT"); err != nil {
		return err
	}
	return setFloat(&cfg.MaxExposurePct, get("MAX_PORTFOLIO_EXPOSURE_PCT"), "MAX_PORTFOLIO_EXPOSURE_PCT")
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	if c.Env == "" {
		return errors.New("env must not be empty")
	}
	if !c.BaseCapital.IsPositive() {
		return errors.Errorf("base capital must be positive, got %s", c.BaseCapital)
	}
	if c.MaxExposurePct <= 0 || c.MaxExposurePct > 1 {
		return errors.Errorf("max exposure pct must be in (0, 1], got %v", c.MaxExposurePct)
	}
	if !c.MaxTradeAmount.IsPositive() {
		return errors.Errorf("max trade amount must be positive, got %s", c.MaxTradeAmount)
	}

	switch c.Ledger.Backend {
	case LedgerBackendWAL:
		if c.Ledger.Dir == "" {
			return errors.New("ledger dir is required for the wal backend")
		}
	case LedgerBackendSQLite:
		if c.Ledger.Path == "" {
			return errors.New("ledger path is required for the sqlite backend")
		}
	default:
		return errors.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}

	switch c.Quotes.Provider {
	case QuotesYahoo, QuotesBinance, QuotesBybit, QuotesHyperliquid:
	case QuotesStatic:
		if len(c.Quotes.Static) == 0 {
			return errors.New("static quotes provider needs static_prices")
		}
	default:
		return errors.Errorf("unknown quotes provider %q", c.Quotes.Provider)
	}

	if c.HTTP.Addr == "" {
		return errors.New("http addr must not be empty")
	}
	return nil
}

// Limits exposure limits for the executor.
func (c Config) Limits() risk.Limits {
	return risk.Limits{BaseCapital: c.BaseCapital, MaxExposurePct: c.MaxExposurePct}
}

// Redacted returns a copy safe to log or print.
func (c Config) Redacted() Config {
	out := c
	for _, s := range []*string{&out.WebhookSecret, &out.HMACSecret, &out.Telegram.BotToken} {
		if *s != "" {
			*s = redacted
		}
	}
	return out
}

// ToTmp converts settings back to the yaml representation.
func (c Config) ToTmp() ConfigTmp {
	tmp := ConfigTmp{
		Env:               c.Env,
		BaseCapitalStr:    c.BaseCapital.String(),
		MaxExposurePctStr: strconv.FormatFloat(c.MaxExposurePct, 'f', -1, 64),
		MaxTradeAmountStr: c.MaxTradeAmount.String(),
		LogLevel:          c.LogLevel,
		LedgerBackend:     c.Ledger.Backend,
		LedgerDir:         c.Ledger.Dir,
		LedgerPath:        c.Ledger.Path,
		DecisionsDir:      c.DecisionsDir,
		SnapshotsDir:      c.SnapshotsDir,
		QuotesProvider:    c.Quotes.Provider,
		HTTPAddr:          c.HTTP.Addr,
		TLSDomain:         c.HTTP.TLSDomain,
		CertDir:           c.HTTP.CertDir,
		WebhookSecret:     c.WebhookSecret,
		HMACSecret:        c.HMACSecret,
		TelegramBotToken:  c.Telegram.BotToken,
		TelegramChatID:    c.Telegram.ChatID,
	}
	if len(c.Quotes.Static) > 0 {
		tmp.StaticPrices = make(map[string]string, len(c.Quotes.Static))
		for s, p := range c.Quotes.Static {
			tmp.StaticPrices[s] = p.String()
		}
	}
	return tmp
}

// Save writes the settings as yaml.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c.ToTmp())
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o600), "failed to save config file")
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDecimal(dst *decimal.Decimal, raw, name string) error {
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("incorrect '%s' param (must be a decimal), error: %w", name, err)
	}
	*dst = d
	return nil
}

func setFloat(dst *float64, raw, name string) error {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("incorrect '%s' param (must be a number), error: %w", name, err)
	}
	*dst = f
	return nil
}
