package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/metrics"
	"github.com/vadiminshakov/sigtrader/internal/services/execution"
	"github.com/vadiminshakov/sigtrader/internal/services/pricer"
	"github.com/vadiminshakov/sigtrader/internal/services/risk"
	"github.com/vadiminshakov/sigtrader/internal/services/trader"
	"github.com/vadiminshakov/sigtrader/internal/storage/decisions"
	"github.com/vadiminshakov/sigtrader/internal/storage/ledger"
	"github.com/vadiminshakov/sigtrader/internal/storage/snapshots"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTelegram struct {
	mu      sync.Mutex
	sent    []string
	enabled bool
	err     error
}

func (f *fakeTelegram) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.err
}

func (f *fakeTelegram) Enabled() bool { return f.enabled }

type testEnv struct {
	server   *Server
	ledger   *ledger.WALStore
	telegram *fakeTelegram
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := ledger.NewWALStore(filepath.Join(dir, "ledger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	decisionStore, err := decisions.NewWALStore(filepath.Join(dir, "decisions"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = decisionStore.Close() })

	snapshotStore, err := snapshots.NewWALStore(filepath.Join(dir, "snapshots"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = snapshotStore.Close() })

	quotes := pricer.NewStaticPricer(map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(190),
		"TSLA": decimal.NewFromInt(250),
	})
	reg := metrics.NewRegistry()
	tg := &fakeTelegram{enabled: true}

	exec := execution.NewExecutor(execution.Config{
		Limits: risk.Limits{BaseCapital: decimal.NewFromInt(10000), MaxExposurePct: 0.05},
	}, store, trader.NewPaperBroker(nil), quotes,
		execution.WithMetrics(reg),
		execution.WithDecisionRecorder(decisionStore),
		execution.WithSnapshotRecorder(snapshotStore),
	)

	cfg := Config{
		Addr:          ":0",
		Executor:      exec,
		Ledger:        store,
		Quotes:        quotes,
		Decisions:     decisionStore,
		Snapshots:     snapshotStore,
		Telegram:      tg,
		Metrics:       reg,
		WebhookSecret: "s3cret",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	return &testEnv{server: srv, ledger: store, telegram: tg}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return e.do(t, req)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req)
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var secretHeaders = map[string]string{secretHeader: "s3cret"}

func buyAlert(qty int64) map[string]any {
	return map[string]any{"symbol": "aapl", "side": "BUY", "qty_shares": qty, "note": "test"}
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	_, err := NewServer(Config{})
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(t, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestWebhookSecret(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.postJSON(t, "/webhook", buyAlert(1), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.postJSON(t, "/webhook", buyAlert(1), map[string]string{secretHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.postJSON(t, "/webhook?secret=s3cret", buyAlert(1), nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	trades, err := env.ledger.Trades(context.Background())
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestWebhookHMAC(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.WebhookSecret = ""
		c.HMACSecret = "mac-key"
	})

	payload, err := json.Marshal(buyAlert(1))
	require.NoError(t, err)

	send := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if sig != "" {
			req.Header.Set(signatureHeader, sig)
		}
		return env.do(t, req)
	}

	assert.Equal(t, http.StatusUnauthorized, send("").Code)
	assert.Equal(t, http.StatusUnauthorized, send("deadbeef").Code)
	assert.Equal(t, http.StatusOK, send(Sign("mac-key", payload)).Code)
}

func TestWebhookExecutes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.postJSON(t, "/webhook", buyAlert(2), secretHeaders)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["qty"])
	assert.Equal(t, "190", body["price"])

	order, ok := body["order"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AAPL", order["symbol"])
	assert.Equal(t, "accepted", order["status"])
}

func TestWebhookRejections(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"bad side", map[string]any{"symbol": "AAPL", "side": "hold", "qty_shares": 1}, http.StatusBadRequest},
		{"zero qty", map[string]any{"symbol": "AAPL", "side": "buy", "qty_shares": 0}, http.StatusBadRequest},
		{"blank symbol", map[string]any{"symbol": " ", "side": "buy", "qty_shares": 1}, http.StatusBadRequest},
		{"negative price", map[string]any{"symbol": "AAPL", "side": "buy", "qty_shares": 1, "price": -5}, http.StatusBadRequest},
		{"unknown symbol", map[string]any{"symbol": "NOPE", "side": "buy", "qty_shares": 1}, http.StatusBadRequest},
		{"over exposure", map[string]any{"symbol": "AAPL", "side": "buy", "qty_shares": 3}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)

			rec := env.postJSON(t, "/webhook", tt.body, secretHeaders)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["detail"])

			trades, err := env.ledger.Trades(context.Background())
			require.NoError(t, err)
			assert.Empty(t, trades)
		})
	}
}

func TestKillSwitchBlocksBuysOnly(t *testing.T) {
	env := newTestEnv(t, nil)

	require.Equal(t, http.StatusOK, env.postJSON(t, "/webhook", buyAlert(2), secretHeaders).Code)

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/kill/toggle", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["kill_on"])
	assert.Equal(t, true, decode(t, env.get(t, "/kill"))["kill_on"])

	rec = env.postJSON(t, "/webhook", buyAlert(1), secretHeaders)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	sell := map[string]any{"symbol": "AAPL", "side": "sell", "qty_shares": 1}
	rec = env.postJSON(t, "/webhook", sell, secretHeaders)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/kill/toggle", nil))
	assert.Equal(t, false, decode(t, rec)["kill_on"])
}

func TestTradingViewWebhook(t *testing.T) {
	env := newTestEnv(t, nil)

	hold := map[string]any{"symbol": "AAPL", "rsi": 50}
	rec := env.postJSON(t, "/webhook-tv", hold, secretHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "hold", body["action"])
	assert.Equal(t, "No strong signal", body["reason"])
	assert.InDelta(t, 0.2, body["confidence"], 1e-9)

	buy := map[string]any{
		"symbol": "AAPL", "rsi": 25, "ema_fast": 11, "ema_slow": 10,
		"timeframe": "1h",
	}
	rec = env.postJSON(t, "/webhook-tv", buy, secretHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.EqualValues(t, 2, body["qty"]) // floor(500 / 190)
	assert.InDelta(t, 0.9, body["ai_confidence"], 1e-9)
	assert.Equal(t, "RSI<=30(25.0) & EMA fast>slow", body["ai_reason"])

	trades, err := env.ledger.Trades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "RSI<=30(25.0) & EMA fast>slow", trades[0].Note)
}

func TestManualRedirects(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.postForm(t, "/manual", url.Values{
		"symbol": {"tsla"}, "side": {"buy"}, "qty_shares": {"1"}, "note": {"manual"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = env.postForm(t, "/manual", url.Values{"symbol": {"TSLA"}, "side": {"buy"}, "qty_shares": {"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolioAndPositions(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.postJSON(t, "/webhook", buyAlert(2), secretHeaders).Code)

	body := decode(t, env.get(t, "/api/portfolio"))
	assert.Equal(t, "10000", body["base_capital"])
	assert.Equal(t, "9620", body["cash"])
	assert.Equal(t, "380", body["market_value"])
	assert.Equal(t, "10000", body["equity"])
	assert.Equal(t, "0", body["pnl"])

	body = decode(t, env.get(t, "/api/open-positions"))
	positions, ok := body["positions"].([]any)
	require.True(t, ok)
	require.Len(t, positions, 1)
	pos := positions[0].(map[string]any)
	assert.Equal(t, "AAPL", pos["symbol"])
	assert.EqualValues(t, 2, pos["qty"])
}

func TestTradesEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, env.postJSON(t, "/webhook", buyAlert(1), secretHeaders).Code)
	}

	body := decode(t, env.get(t, "/api/trades?limit=1"))
	trades, ok := body["trades"].([]any)
	require.True(t, ok)
	require.Len(t, trades, 1)
	assert.EqualValues(t, 2, trades[0].(map[string]any)["seq"])

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/trades?limit=abc").Code)
}

func TestWatchlistEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	body := decode(t, env.get(t, "/api/watchlist"))
	assert.Equal(t, []any{"AAPL", "TSLA"}, body["watchlist"])

	body = decode(t, env.postForm(t, "/api/watchlist/add", url.Values{"symbol": {" msft "}}))
	assert.Equal(t, []any{"AAPL", "TSLA", "MSFT"}, body["watchlist"])

	body = decode(t, env.postForm(t, "/api/watchlist/add", url.Values{"symbol": {"aapl"}}))
	assert.Equal(t, []any{"AAPL", "TSLA", "MSFT"}, body["watchlist"])

	body = decode(t, env.postForm(t, "/api/watchlist/remove", url.Values{"symbol": {"tsla"}}))
	assert.Equal(t, []any{"AAPL", "MSFT"}, body["watchlist"])

	body = decode(t, env.postJSON(t, "/api/watchlist", map[string]any{"watchlist": []string{"nvda", "NVDA", ""}}, nil))
	assert.Equal(t, []any{"NVDA"}, body["watchlist"])

	assert.Equal(t, http.StatusBadRequest, env.postForm(t, "/api/watchlist/add", url.Values{}).Code)
}

func TestQuotesEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	body := decode(t, env.get(t, "/api/quotes?symbols=aapl,,nope"))
	assert.Equal(t, map[string]any{"AAPL": "190"}, body["quotes"])

	body = decode(t, env.get(t, "/api/quotes"))
	assert.Equal(t, map[string]any{"AAPL": "190", "TSLA": "250"}, body["quotes"])

	body = decode(t, env.get(t, "/api/quotes/list?symbols=TSLA"))
	quotes, ok := body["quotes"].([]any)
	require.True(t, ok)
	require.Len(t, quotes, 1)
	assert.Equal(t, "TSLA", quotes[0].(map[string]any)["symbol"])
}

func TestLiquidateAll(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.postJSON(t, "/webhook", buyAlert(2), secretHeaders).Code)

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/liquidate-all", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	closed, ok := body["closed"].([]any)
	require.True(t, ok)
	require.Len(t, closed, 1)
	assert.EqualValues(t, 2, closed[0].(map[string]any)["sold_qty"])

	body = decode(t, env.get(t, "/api/open-positions"))
	assert.Empty(t, body["positions"])
}

func TestPingTelegram(t *testing.T) {
	env := newTestEnv(t, nil)

	body := decode(t, env.get(t, "/ping-telegram"))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, []string{pingMessage}, env.telegram.sent)

	env.telegram.err = errors.New("telegram api error: chat not found")
	body = decode(t, env.get(t, "/ping-telegram"))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "telegram api error: chat not found", body["error"])
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.postJSON(t, "/webhook", buyAlert(1), secretHeaders).Code)

	rec := env.get(t, "/dashboard")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<td>AAPL</td>")
	assert.Contains(t, rec.Body.String(), "Kill switch: OFF")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.postJSON(t, "/webhook", buyAlert(1), secretHeaders).Code)

	rec := env.get(t, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sigtrader_executions_total{result="ok",side="buy"} 1`)
}

func TestDecisionStream(t *testing.T) {
	env := newTestEnv(t, nil)
	hold := map[string]any{"symbol": "AAPL", "rsi": 50}
	require.Equal(t, http.StatusOK, env.postJSON(t, "/webhook-tv", hold, secretHeaders).Code)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/decisions/stream", nil).WithContext(ctx)

	rec := env.do(t, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: decision")
	assert.Contains(t, rec.Body.String(), `"outcome":"hold"`)
}

func TestPortfolioStreamEmpty(t *testing.T) {
	env := newTestEnv(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/portfolio/stream", nil).WithContext(ctx)

	rec := env.do(t, req)

	assert.Contains(t, rec.Body.String(), "event: no_data")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewExecutionError(domain.KindValidation, domain.GateValidation, domain.ErrInvalidQuantity), http.StatusBadRequest},
		{domain.NewExecutionError(domain.KindPolicy, domain.GateKillSwitch, domain.ErrKillSwitchOn), http.StatusForbidden},
		{domain.NewExecutionError(domain.KindPolicy, domain.GateRisk, domain.ErrExposureLimit), http.StatusBadRequest},
		{domain.NewExecutionError(domain.KindUpstream, domain.GateBroker, errors.New("down")), http.StatusBadGateway},
		{domain.NewExecutionError(domain.KindStorage, domain.GateLedger, errors.New("disk")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestResumeIndex(t *testing.T) {
	assert.Equal(t, uint64(7), resumeIndex("7", "3"))
	assert.Equal(t, uint64(3), resumeIndex("", " 3 "))
	assert.Equal(t, uint64(0), resumeIndex("x", "3"))
	assert.Equal(t, uint64(0), resumeIndex("", ""))
}

func TestThinHistory(t *testing.T) {
	records := make([]domain.PortfolioSnapshotRecord, 300)
	for i := range records {
		records[i].Index = uint64(i + 1)
	}

	thinned := thinHistory(records, thinKeepLast)

	require.Less(t, len(thinned), len(records))
	assert.Equal(t, records[len(records)-thinKeepLast:], thinned[len(thinned)-thinKeepLast:])
	assert.Equal(t, uint64(1), thinned[0].Index)

	// walking back from the tail, the gap between kept records doubles every bucket
	head := thinned[:len(thinned)-thinKeepLast]
	var gaps []uint64
	for i := len(head) - 1; i > 0; i-- {
		gaps = append(gaps, head[i].Index-head[i-1].Index)
	}
	require.Greater(t, len(gaps), 3*thinBucket)
	assert.Equal(t, uint64(1), gaps[0])
	assert.Equal(t, uint64(1), gaps[thinBucket-2])
	assert.Equal(t, uint64(2), gaps[thinBucket-1])
	assert.Equal(t, uint64(4), gaps[2*thinBucket-1])
	assert.Equal(t, uint64(8), gaps[3*thinBucket-1])

	short := records[:thinKeepLast]
	assert.Equal(t, short, thinHistory(short, thinKeepLast))
}
