package web

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/services/pricer"
	"github.com/vadiminshakov/sigtrader/internal/services/state"
	"github.com/vadiminshakov/sigtrader/internal/storage/ledger"
)

type dashboardData struct {
	Portfolio domain.Portfolio
	Positions []domain.PositionView
	Trades    []domain.TradeRecord
	Watchlist domain.Watchlist
	KillOn    bool
}

var dashboardFuncs = template.FuncMap{
	"ts": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05") },
}

func (s *Server) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	agg := s.cfg.Executor.Positions()

	killOn, err := s.cfg.Executor.KillSwitchOn(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	open, err := agg.OpenPositions(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	prices := pricer.Prices(ctx, s.cfg.Quotes, symbolsOf(open))

	portfolio, err := agg.Portfolio(ctx, s.cfg.Executor.Limits().BaseCapital, prices)
	if err != nil {
		s.fail(c, err)
		return
	}
	views, err := agg.PositionViews(ctx, prices)
	if err != nil {
		s.fail(c, err)
		return
	}
	trades, err := s.cfg.Ledger.Recent(ctx, ledger.DefaultRecentLimit)
	if err != nil {
		s.fail(c, err)
		return
	}
	watchlist, err := state.Watchlist(ctx, s.cfg.Ledger)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.HTML(http.StatusOK, "dashboard", dashboardData{
		Portfolio: portfolio,
		Positions: views,
		Trades:    trades,
		Watchlist: watchlist,
		KillOn:    killOn,
	})
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>sigtrader</title>
<style>
body { font-family: -apple-system, sans-serif; margin: 24px; background: #0f1115; color: #e6e6e6; }
table { border-collapse: collapse; width: 100%; margin-bottom: 24px; }
th, td { border-bottom: 1px solid #2a2e36; padding: 6px 10px; text-align: left; }
.cards span { display: inline-block; margin-right: 24px; }
.buy { color: #3fb950; } .sell { color: #f85149; }
.kill { padding: 4px 10px; border-radius: 4px; background: {{if .KillOn}}#f85149{{else}}#3fb950{{end}}; }
</style>
</head>
<body>
<h1>sigtrader paper book</h1>
<div class="cards">
<span>Base capital: {{.Portfolio.BaseCapital}}</span>
<span>Cash: {{.Portfolio.Cash}}</span>
<span>Market value: {{.Portfolio.MarketValue}}</span>
<span>Equity: {{.Portfolio.Equity}}</span>
<span>PnL: {{.Portfolio.PnL}} ({{.Portfolio.PnLPercent}}%)</span>
<span class="kill">Kill switch: {{if .KillOn}}ON{{else}}OFF{{end}}</span>
</div>

<h2>Manual order</h2>
<form method="post" action="/manual">
<input name="symbol" placeholder="AAPL" required>
<select name="side"><option value="buy">buy</option><option value="sell">sell</option></select>
<input name="qty_shares" type="number" min="1" value="1" required>
<input name="note" placeholder="note">
<button type="submit">Execute</button>
</form>

<h2>Open positions</h2>
<table>
<tr><th>Symbol</th><th>Qty</th><th>Avg cost</th><th>Last</th><th>PnL</th><th>PnL %</th></tr>
{{range .Positions}}<tr><td>{{.Symbol}}</td><td>{{.Quantity}}</td><td>{{.AverageCost}}</td><td>{{.Last}}</td><td>{{.PnL}}</td><td>{{.PnLPercent}}</td></tr>
{{else}}<tr><td colspan="6">No open positions</td></tr>
{{end}}</table>

<h2>Trades</h2>
<table>
<tr><th>#</th><th>Time (UTC)</th><th>Symbol</th><th>Side</th><th>Qty</th><th>Price</th><th>Note</th></tr>
{{range .Trades}}<tr><td>{{.Seq}}</td><td>{{ts .Time}}</td><td>{{.Symbol}}</td><td class="{{.Side}}">{{.Side}}</td><td>{{.Quantity}}</td><td>{{.Price}}</td><td>{{.Note}}</td></tr>
{{else}}<tr><td colspan="7">No trades yet</td></tr>
{{end}}</table>

<h2>Watchlist</h2>
<p>{{range $i, $s := .Watchlist}}{{if $i}}, {{end}}{{$s}}{{end}}</p>
</body>
</html>
`
