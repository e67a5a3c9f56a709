package web

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/services/pricer"
	"github.com/vadiminshakov/sigtrader/internal/services/state"
	"github.com/vadiminshakov/sigtrader/internal/storage/ledger"
)

const pingMessage = "Test notification from sigtrader"

// alertRequest explicit order from the generic webhook.
type alertRequest struct {
	Symbol   string           `json:"symbol"`
	Side     string           `json:"side"`
	Quantity int64            `json:"qty_shares"`
	Note     string           `json:"note"`
	Price    *decimal.Decimal `json:"price"`
}

// tradingViewRequest indicator alert from a charting platform.
type tradingViewRequest struct {
	Symbol         string           `json:"symbol"`
	Price          *decimal.Decimal `json:"price"`
	RSI            *float64         `json:"rsi"`
	MACD           *float64         `json:"macd"`
	MACDSignal     *float64         `json:"macd_signal"`
	EMAFast        *float64         `json:"ema_fast"`
	EMASlow        *float64         `json:"ema_slow"`
	TrendStrength  *float64         `json:"trend_strength"`
	Timeframe      string           `json:"timeframe"`
	Note           string           `json:"note"`
	MaxTradeAmount *decimal.Decimal `json:"max_trade_amount"`
}

func (r tradingViewRequest) signal() domain.Signal {
	return domain.Signal{
		Symbol: r.Symbol,
		Snapshot: domain.IndicatorSnapshot{
			RSI:           r.RSI,
			MACD:          r.MACD,
			MACDSignal:    r.MACDSignal,
			EMAFast:       r.EMAFast,
			EMASlow:       r.EMASlow,
			TrendStrength: r.TrendStrength,
		},
		Price:          r.Price,
		MaxTradeAmount: r.MaxTradeAmount,
		Timeframe:      r.Timeframe,
		Note:           r.Note,
	}
}

func (s *Server) handleWebhook(c *gin.Context) {
	var req alertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload: " + err.Error()})
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "side must be 'buy' or 'sell'"})
		return
	}

	res, err := s.cfg.Executor.Execute(c.Request.Context(), domain.Order{
		Symbol:   req.Symbol,
		Side:     side,
		Quantity: req.Quantity,
		Price:    req.Price,
		Note:     req.Note,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, executionBody(res))
}

func (s *Server) handleTradingView(c *gin.Context) {
	var req tradingViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload: " + err.Error()})
		return
	}

	res, err := s.cfg.Executor.ExecuteSignal(c.Request.Context(), req.signal())
	if err != nil {
		s.fail(c, err)
		return
	}

	confidence := round2(res.Decision.Confidence)
	if res.Execution == nil {
		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"action":     res.Decision.Action,
			"reason":     res.Decision.Reason,
			"confidence": confidence,
		})
		return
	}

	body := executionBody(*res.Execution)
	body["ai_confidence"] = confidence
	body["ai_reason"] = res.Decision.Reason
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleManual(c *gin.Context) {
	side, err := domain.ParseSide(c.PostForm("side"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "side must be 'buy' or 'sell'"})
		return
	}
	qty, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("qty_shares")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "qty_shares must be an integer"})
		return
	}

	_, err = s.cfg.Executor.Execute(c.Request.Context(), domain.Order{
		Symbol:   c.PostForm("symbol"),
		Side:     side,
		Quantity: qty,
		Note:     c.PostForm("note"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) handleKillStatus(c *gin.Context) {
	on, err := s.cfg.Executor.KillSwitchOn(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kill_on": on})
}

func (s *Server) handleKillToggle(c *gin.Context) {
	on, err := s.cfg.Executor.ToggleKillSwitch(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kill_on": on})
}

func (s *Server) handleLiquidateAll(c *gin.Context) {
	res, err := s.cfg.Executor.LiquidateAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":     len(res.Failed) == 0,
		"closed": res.Closed,
		"failed": res.Failed,
	})
}

func (s *Server) handlePingTelegram(c *gin.Context) {
	if s.cfg.Telegram == nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "telegram_enabled": false, "error": "telegram not configured"})
		return
	}
	if err := s.cfg.Telegram.Send(c.Request.Context(), pingMessage); err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "telegram_enabled": s.cfg.Telegram.Enabled(), "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "telegram_enabled": s.cfg.Telegram.Enabled()})
}

func (s *Server) handlePortfolio(c *gin.Context) {
	ctx := c.Request.Context()
	agg := s.cfg.Executor.Positions()

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
	c.JSON(http.StatusOK, portfolio)
}

func (s *Server) handleOpenPositions(c *gin.Context) {
	ctx := c.Request.Context()
	agg := s.cfg.Executor.Positions()

	open, err := agg.OpenPositions(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	views, err := agg.PositionViews(ctx, pricer.Prices(ctx, s.cfg.Quotes, symbolsOf(open)))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": views})
}

func (s *Server) handleQuotes(c *gin.Context) {
	symbols, err := s.requestedSymbols(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": pricer.Prices(c.Request.Context(), s.cfg.Quotes, symbols)})
}

func (s *Server) handleQuotesList(c *gin.Context) {
	symbols, err := s.requestedSymbols(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	quotes := make([]domain.QuoteDetail, 0, len(symbols))
	for _, sym := range symbols {
		q, err := pricer.Detail(c.Request.Context(), s.cfg.Quotes, sym)
		if err != nil {
			s.logger.Debug("quote detail skipped", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		quotes = append(quotes, q)
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

func (s *Server) handleTrades(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(ledger.DefaultRecentLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be an integer"})
		return
	}
	trades, err := s.cfg.Ledger.Recent(c.Request.Context(), ledger.ClampLimit(limit))
	if err != nil {
		s.logger.Error("load trades", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load trades: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleWatchlist(c *gin.Context) {
	w, err := state.Watchlist(c.Request.Context(), s.cfg.Ledger)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": w})
}

func (s *Server) handleWatchlistReplace(c *gin.Context) {
	var req struct {
		Watchlist []string `json:"watchlist"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload: " + err.Error()})
		return
	}
	s.saveWatchlist(c, domain.NewWatchlist(req.Watchlist))
}

func (s *Server) handleWatchlistAdd(c *gin.Context) {
	s.updateWatchlist(c, domain.Watchlist.Add)
}

func (s *Server) handleWatchlistRemove(c *gin.Context) {
	s.updateWatchlist(c, domain.Watchlist.Remove)
}

func (s *Server) updateWatchlist(c *gin.Context, op func(domain.Watchlist, string) domain.Watchlist) {
	symbol := domain.NormalizeSymbol(c.PostForm("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "symbol is required"})
		return
	}
	w, err := state.Watchlist(c.Request.Context(), s.cfg.Ledger)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.saveWatchlist(c, op(w, symbol))
}

func (s *Server) saveWatchlist(c *gin.Context, w domain.Watchlist) {
	if err := state.SetWatchlist(c.Request.Context(), s.cfg.Ledger, w); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": w})
}

// requestedSymbols parses ?symbols=A,B and falls back to the watchlist.
func (s *Server) requestedSymbols(c *gin.Context) ([]string, error) {
	var symbols []string
	for _, raw := range strings.Split(c.Query("symbols"), ",") {
		if sym := domain.NormalizeSymbol(raw); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	if len(symbols) > 0 {
		return symbols, nil
	}
	w, err := state.Watchlist(c.Request.Context(), s.cfg.Ledger)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// fail writes err with the status of its kind.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	detail := err.Error()

	var execErr *domain.ExecutionError
	if errors.As(err, &execErr) {
		detail = execErr.Err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"detail": detail})
}

// statusFor maps an execution error kind to an HTTP status.
func statusFor(err error) int {
	var execErr *domain.ExecutionError
	if !errors.As(err, &execErr) {
		return http.StatusInternalServerError
	}
	switch execErr.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindPolicy:
		if execErr.Gate == domain.GateKillSwitch {
			return http.StatusForbidden
		}
		return http.StatusBadRequest
	case domain.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func executionBody(res domain.ExecutionResult) gin.H {
	return gin.H{
		"status": "ok",
		"qty":    res.Quantity,
		"price":  res.Price,
		"order":  res.Order,
		"trade":  res.Trade,
	}
}

func symbolsOf(positions []domain.Position) []string {
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		out = append(out, p.Symbol)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
