package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "paper", cfg.Env)
	assert.True(t, decimal.NewFromInt(10000).Equal(cfg.BaseCapital))
	assert.Equal(t, 0.3, cfg.MaxExposurePct)
	assert.True(t, decimal.NewFromInt(500).Equal(cfg.MaxTradeAmount))
	assert.Equal(t, LedgerBackendWAL, cfg.Ledger.Backend)
	assert.Equal(t, "./wal/ledger", cfg.Ledger.Dir)
	assert.Equal(t, QuotesYahoo, cfg.Quotes.Provider)
	assert.Equal(t, ":8000", cfg.HTTP.Addr)
}

func TestLoad_YamlThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_capital: "20000"
max_exposure_pct: "0.5"
quotes_provider: static
static_prices:
  aapl: "190.5"
ledger_backend: sqlite
ledger_path: `+filepath.Join(dir, "ledger.db")+`
webhook_secret: from-file
`), 0o600))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TELEGRAM_CHAT_ID=99\n"), 0o600))

	t.Setenv("MAX_TRADE_AMOUNT", "750")
	t.Setenv("WEBHOOK_SECRET", "from-env")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	t.Cleanup(func() { os.Unsetenv("TELEGRAM_CHAT_ID") })

	assert.Equal(t, "20000", cfg.BaseCapital.String())
	assert.Equal(t, 0.5, cfg.MaxExposurePct)
	assert.Equal(t, "750", cfg.MaxTradeAmount.String())
	assert.Equal(t, QuotesStatic, cfg.Quotes.Provider)
	assert.Equal(t, "190.5", cfg.Quotes.Static["AAPL"].String())
	assert.Equal(t, LedgerBackendSQLite, cfg.Ledger.Backend)
	assert.Equal(t, "from-env", cfg.WebhookSecret)
	assert.Equal(t, "99", cfg.Telegram.ChatID)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)

	t.Setenv("BASE_CAPITAL", "lots")
	_, err = Load("", "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capital", func(c *Config) { c.BaseCapital = decimal.Zero }},
		{"exposure above one", func(c *Config) { c.MaxExposurePct = 1.5 }},
		{"zero exposure", func(c *Config) { c.MaxExposurePct = 0 }},
		{"negative trade amount", func(c *Config) { c.MaxTradeAmount = decimal.NewFromInt(-1) }},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "redis" }},
		{"static without prices", func(c *Config) { c.Quotes.Provider = QuotesStatic }},
		{"unknown provider", func(c *Config) { c.Quotes.Provider = "alpaca" }},
		{"empty addr", func(c *Config) { c.HTTP.Addr = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.WebhookSecret = "s1"
	cfg.HMACSecret = "s2"
	cfg.Telegram.BotToken = "s3"
	cfg.Telegram.ChatID = "42"

	r := cfg.Redacted()
	assert.Equal(t, "***", r.WebhookSecret)
	assert.Equal(t, "***", r.HMACSecret)
	assert.Equal(t, "***", r.Telegram.BotToken)
	assert.Equal(t, "42", r.Telegram.ChatID)
	assert.Equal(t, "s1", cfg.WebhookSecret)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.gen.yaml")
	cfg := Default()
	cfg.Quotes.Provider = QuotesStatic
	cfg.Quotes.Static = map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(190)}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, QuotesStatic, loaded.Quotes.Provider)
	assert.Equal(t, "190", loaded.Quotes.Static["AAPL"].String())
}

func TestLimits(t *testing.T) {
	cfg := Default()
	cfg.BaseCapital = decimal.NewFromInt(20000)
	cfg.MaxExposurePct = 0.25

	limits := cfg.Limits()

	assert.True(t, decimal.NewFromInt(5000).Equal(limits.Ceiling()))
}
