package setup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sigtrader/config"
)

// DefaultConfigFile file the wizard writes to.
const DefaultConfigFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers raw wizard input.
type answers struct {
	baseCapital    string
	maxExposurePct string
	maxTradeAmount string
	quotesProvider string
	staticPrices   string
	ledgerBackend  string
	httpAddr       string
	tlsDomain      string
	webhookSecret  string
	hmacSecret     string
	telegramToken  string
	telegramChatID string
}

func defaultAnswers() answers {
	d := config.Default()
	return answers{
		baseCapital:    d.BaseCapital.String(),
		maxExposurePct: strconv.FormatFloat(d.MaxExposurePct, 'f', -1, 64),
		maxTradeAmount: d.MaxTradeAmount.String(),
		quotesProvider: d.Quotes.Provider,
		ledgerBackend:  d.Ledger.Backend,
		httpAddr:       d.HTTP.Addr,
	}
}

func step(title string) {
	fmt.Print("\033[H\033[2J") // clear screen
	fmt.Println(headerStyle.Render("SIGTRADER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(title))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	if path == "" {
		path = DefaultConfigFile
	}
	a := defaultAnswers()
	var confirm bool

	step("STEP 1: CAPITAL & RISK")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Paper trading only: no real orders are ever sent.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Base capital").
				Description("Starting paper cash (e.g. 10000)").
				Value(&a.baseCapital).
				Validate(validatePositive),
			huh.NewInput().
				Title("Max portfolio exposure").
				Description("Fraction of capital all buys may use, (0, 1]").
				Value(&a.maxExposurePct).
				Validate(validateFraction),
			huh.NewInput().
				Title("Max trade amount").
				Description("Notional cap for signal-sized orders").
				Value(&a.maxTradeAmount).
				Validate(validatePositive),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 2: MARKET DATA")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Quote provider").
				Options(
					huh.NewOption("Yahoo Finance (stocks)", config.QuotesYahoo),
					huh.NewOption("Binance (crypto)", config.QuotesBinance),
					huh.NewOption("Bybit (crypto)", config.QuotesBybit),
					huh.NewOption("Hyperliquid (crypto mids)", config.QuotesHyperliquid),
					huh.NewOption("Static prices (offline)", config.QuotesStatic),
				).
				Value(&a.quotesProvider),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.quotesProvider == config.QuotesStatic {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Static prices").
					Description("SYMBOL=PRICE pairs separated by commas (e.g. AAPL=190,TSLA=250)").
					Value(&a.staticPrices).
					Validate(func(s string) error {
						_, err := parseStaticPrices(s)
						return err
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	step("STEP 3: STORAGE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Ledger backend").
				Options(
					huh.NewOption("Write-ahead log", config.LedgerBackendWAL),
					huh.NewOption("SQLite", config.LedgerBackendSQLite),
				).
				Value(&a.ledgerBackend),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 4: HTTP & WEBHOOKS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&a.httpAddr).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("address cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("TLS domain").
				Description("Leave empty to serve plain HTTP").
				Value(&a.tlsDomain),
			huh.NewInput().
				Title("Webhook secret").
				Value(&a.webhookSecret).
				EchoMode(huh.EchoModePassword),
			huh.NewInput().
				Title("HMAC secret").
				Description("Optional body signature key").
				Value(&a.hmacSecret).
				EchoMode(huh.EchoModePassword),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 5: TELEGRAM")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				Description("Leave empty to disable notifications").
				Value(&a.telegramToken).
				EchoMode(huh.EchoModePassword),
			huh.NewInput().
				Title("Chat ID").
				Value(&a.telegramChatID),
		),
	).Run()
	if err != nil {
		return err
	}

	cfg, err := buildConfig(a)
	if err != nil {
		return err
	}

	step("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Capital: %s\nExposure: %v\nTrade cap: %s\nQuotes: %s\nLedger: %s\nHTTP: %s\n",
		cfg.BaseCapital, cfg.MaxExposurePct, cfg.MaxTradeAmount, cfg.Quotes.Provider, cfg.Ledger.Backend, cfg.HTTP.Addr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

// buildConfig turns wizard answers into a validated config.
func buildConfig(a answers) (config.Config, error) {
	cfg := config.Default()

	var err error
	if cfg.BaseCapital, err = decimal.NewFromString(strings.TrimSpace(a.baseCapital)); err != nil {
		return cfg, errors.Wrap(err, "base capital")
	}
	if cfg.MaxExposurePct, err = strconv.ParseFloat(strings.TrimSpace(a.maxExposurePct), 64); err != nil {
		return cfg, errors.Wrap(err, "max exposure")
	}
	if cfg.MaxTradeAmount, err = decimal.NewFromString(strings.TrimSpace(a.maxTradeAmount)); err != nil {
		return cfg, errors.Wrap(err, "max trade amount")
	}

	cfg.Quotes.Provider = a.quotesProvider
	if a.quotesProvider == config.QuotesStatic {
		if cfg.Quotes.Static, err = parseStaticPrices(a.staticPrices); err != nil {
			return cfg, err
		}
	}

	cfg.Ledger.Backend = a.ledgerBackend
	cfg.HTTP.Addr = strings.TrimSpace(a.httpAddr)
	cfg.HTTP.TLSDomain = strings.TrimSpace(a.tlsDomain)
	cfg.WebhookSecret = a.webhookSecret
	cfg.HMACSecret = a.hmacSecret
	cfg.Telegram = config.TelegramConfig{BotToken: a.telegramToken, ChatID: a.telegramChatID}

	return cfg, cfg.Validate()
}

// parseStaticPrices parses "AAPL=190,TSLA=250".
func parseStaticPrices(s string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		symbol, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid pair %q: want SYMBOL=PRICE", pair)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("invalid price for %s", symbol)
		}
		out[strings.ToUpper(strings.TrimSpace(symbol))] = price
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one SYMBOL=PRICE pair is required")
	}
	return out, nil
}

func validatePositive(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateFraction(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if v <= 0 || v > 1 {
		return fmt.Errorf("must be in (0, 1]")
	}
	return nil
}
