package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func printTrades(w io.Writer, trades []domain.TradeRecord) {
	if len(trades) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no trades"))
		return
	}
	t := newTable("#", "TIME (UTC)", "SYMBOL", "SIDE", "QTY", "PRICE", "NOTE")
	for _, tr := range trades {
		t.Row(
			strconv.FormatUint(tr.Seq, 10),
			tr.Time.UTC().Format("2006-01-02 15:04:05"),
			tr.Symbol,
			tr.Side.String(),
			strconv.FormatInt(tr.Quantity, 10),
			tr.Price.StringFixed(2),
			tr.Note,
		)
	}
	fmt.Fprintln(w, t.Render())
}

func printPositions(w io.Writer, views []domain.PositionView) {
	if len(views) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no open positions"))
		return
	}
	t := newTable("SYMBOL", "QTY", "AVG COST", "LAST", "PNL", "PNL %")
	for _, v := range views {
		t.Row(
			v.Symbol,
			strconv.FormatInt(v.Quantity, 10),
			v.AverageCost.StringFixed(4),
			v.Last.StringFixed(4),
			signed(v.PnL),
			signed(v.PnLPercent),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func printPortfolio(w io.Writer, p domain.Portfolio, exposure, ceiling decimal.Decimal) {
	t := newTable("BASE", "CASH", "MARKET VALUE", "EQUITY", "PNL", "PNL %", "EXPOSURE")
	t.Row(
		p.BaseCapital.StringFixed(2),
		p.Cash.StringFixed(2),
		p.MarketValue.StringFixed(2),
		p.Equity.StringFixed(2),
		signed(p.PnL),
		signed(p.PnLPercent),
		exposure.StringFixed(2)+" / "+ceiling.StringFixed(2),
	)
	fmt.Fprintln(w, t.Render())
}

func printDecision(w io.Writer, symbol string, d domain.Decision) {
	style := mutedStyle
	switch d.Action {
	case domain.ActionBuy:
		style = goodStyle
	case domain.ActionSell:
		style = badStyle
	}
	fmt.Fprintf(w, "%s %s confidence=%.2f reason=%q\n", symbol, style.Render(string(d.Action)), d.Confidence, d.Reason)
}

func printLiquidation(w io.Writer, res domain.LiquidationResult) {
	if len(res.Closed) == 0 && len(res.Failed) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("nothing to liquidate"))
		return
	}
	t := newTable("SYMBOL", "SOLD", "PRICE", "RESULT")
	for _, c := range res.Closed {
		t.Row(c.Symbol, strconv.FormatInt(c.SoldQty, 10), c.Price.StringFixed(2), "closed")
	}
	for _, f := range res.Failed {
		t.Row(f.Symbol, "-", "-", f.Error)
	}
	fmt.Fprintln(w, t.Render())
}

func signed(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if d.IsPositive() {
		return goodStyle.Render("+" + s)
	}
	if d.IsNegative() {
		return badStyle.Render(s)
	}
	return s
}
