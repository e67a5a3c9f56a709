package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal"
	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/services/strategy/rules"
)

func newTradeCmd(opts *rootOptions) *cobra.Command {
	var (
		price string
		note  string
	)

	cmd := &cobra.Command{
		Use:   "trade SYMBOL buy|sell QTY",
		Short: "Execute a manual paper order",
		Long: `Execute a paper order through the kill switch and exposure gates.
Without --price the fill price is the current quote.

Examples:
  sigtrader trade AAPL buy 10
  sigtrader trade TSLA sell 2 --price 251.3 --note "take profit"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := domain.ParseSide(args[1])
			if err != nil {
				return err
			}
			qty, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return errors.Errorf("quantity must be an integer, got %q", args[2])
			}
			order := domain.Order{Symbol: args[0], Side: side, Quantity: qty, Note: note}
			if price != "" {
				p, err := decimal.NewFromString(price)
				if err != nil {
					return errors.Wrap(err, "invalid price")
				}
				order.Price = &p
			}

			return withBot(opts, func(bot *internal.SignalBot, _ *zap.Logger) error {
				res, err := bot.Executor.Execute(cmd.Context(), order)
				if err != nil {
					return err
				}
				printTrades(cmd.OutOrStdout(), []domain.TradeRecord{res.Trade})
				fmt.Fprintf(cmd.OutOrStdout(), "order %s %s\n", res.Order.ID, res.Order.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&price, "price", "", "Explicit fill price")
	cmd.Flags().StringVar(&note, "note", "", "Free text stored with the trade")
	return cmd
}

type indicatorFlags struct {
	rsi, macd, macdSignal, emaFast, emaSlow, trend float64
}

func (f *indicatorFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.rsi, "rsi", 0, "RSI value")
	fs.Float64Var(&f.macd, "macd", 0, "MACD line")
	fs.Float64Var(&f.macdSignal, "macd-signal", 0, "MACD signal line")
	fs.Float64Var(&f.emaFast, "ema-fast", 0, "Fast EMA")
	fs.Float64Var(&f.emaSlow, "ema-slow", 0, "Slow EMA")
	fs.Float64Var(&f.trend, "trend", 0, "Trend strength")
}

// snapshot keeps only the indicators that were set on the command line.
func (f *indicatorFlags) snapshot(fs *pflag.FlagSet) domain.IndicatorSnapshot {
	pick := func(name string, v float64) *float64 {
		if !fs.Changed(name) {
			return nil
		}
		return domain.Float(v)
	}
	return domain.IndicatorSnapshot{
		RSI:           pick("rsi", f.rsi),
		MACD:          pick("macd", f.macd),
		MACDSignal:    pick("macd-signal", f.macdSignal),
		EMAFast:       pick("ema-fast", f.emaFast),
		EMASlow:       pick("ema-slow", f.emaSlow),
		TrendStrength: pick("trend", f.trend),
	}
}

func newDecideCmd(opts *rootOptions) *cobra.Command {
	var (
		ind         indicatorFlags
		historyDays int
		execute     bool
		maxAmount   string
		note        string
	)

	cmd := &cobra.Command{
		Use:   "decide SYMBOL",
		Short: "Decide buy/sell/hold from indicators",
		Long: `Run the rule-based decision on indicator values given as flags, or on
indicators computed from --history days of daily closes. With --execute the
decision goes through the execution pipeline like a webhook signal.

Examples:
  sigtrader decide AAPL --rsi 25 --ema-fast 11 --ema-slow 10
  sigtrader decide AAPL --history 120 --execute`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig := domain.Signal{Symbol: args[0], Snapshot: ind.snapshot(cmd.Flags()), Note: note}
			if maxAmount != "" {
				v, err := decimal.NewFromString(maxAmount)
				if err != nil {
					return errors.Wrap(err, "invalid max trade amount")
				}
				sig.MaxTradeAmount = &v
			}

			return withBot(opts, func(bot *internal.SignalBot, _ *zap.Logger) error {
				if historyDays > 0 {
					fromHistory, err := bot.SignalFromHistory(cmd.Context(), sig.Symbol, historyDays)
					if err != nil {
						return err
					}
					sig.Snapshot = fromHistory.Snapshot
					sig.Timeframe = fromHistory.Timeframe
				}

				out := cmd.OutOrStdout()
				if !execute {
					printDecision(out, domain.NormalizeSymbol(sig.Symbol), rules.Decide(sig.Snapshot))
					return nil
				}

				res, err := bot.Executor.ExecuteSignal(cmd.Context(), sig)
				printDecision(out, domain.NormalizeSymbol(sig.Symbol), res.Decision)
				if err != nil {
					return err
				}
				if res.Execution != nil {
					printTrades(out, []domain.TradeRecord{res.Execution.Trade})
				}
				return nil
			})
		},
	}

	ind.register(cmd.Flags())
	cmd.Flags().IntVar(&historyDays, "history", 0, "Compute indicators from this many days of closes")
	cmd.Flags().BoolVar(&execute, "execute", false, "Execute buy/sell decisions")
	cmd.Flags().StringVar(&maxAmount, "max-trade-amount", "", "Notional cap for this signal")
	cmd.Flags().StringVar(&note, "note", "", "Trade note (defaults to the decision reason)")
	return cmd
}
