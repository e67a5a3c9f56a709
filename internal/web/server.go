// Package web exposes the trading pipeline over HTTP: webhooks, manual orders,
// read-only portfolio APIs, the dashboard and SSE streams.
package web

import (
	"context"
	"crypto/tls"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/sigtrader/internal/domain"
	"github.com/vadiminshakov/sigtrader/internal/metrics"
	"github.com/vadiminshakov/sigtrader/internal/services/execution"
	"github.com/vadiminshakov/sigtrader/internal/services/pricer"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 15 * time.Second
	idleTimeout       = 120 * time.Second
)

// Ledger is the read side of the trade journal plus keyed state.
type Ledger interface {
	Recent(ctx context.Context, limit int) ([]domain.TradeRecord, error)
	Flag(ctx context.Context, key string) (string, bool, error)
	SetFlag(ctx context.Context, key, value string) error
}

type decisionReader interface {
	EventsAfter(index uint64) ([]domain.DecisionEventRecord, error)
}

type snapshotReader interface {
	SnapshotsAfter(index uint64) ([]domain.PortfolioSnapshotRecord, error)
}

// Pinger delivers the test notification of /ping-telegram.
type Pinger interface {
	Send(ctx context.Context, text string) error
	Enabled() bool
}

// Config wires the server to the pipeline.
type Config struct {
	Addr      string
	Executor  *execution.Executor
	Ledger    Ledger
	Quotes    pricer.Pricer
	Decisions decisionReader
	Snapshots snapshotReader
	Telegram  Pinger
	Metrics   *metrics.Registry
	Logger    *zap.Logger

	// WebhookSecret when set, webhooks must carry it in X-Hook-Secret or ?secret=.
	WebhookSecret string
	// HMACSecret when set, webhooks must carry a hex HMAC-SHA256 of the body in X-Signature.
	HMACSecret string
}

// Server HTTP front of the trading pipeline.
type Server struct {
	addr   string
	cfg    Config
	logger *zap.Logger
	router *gin.Engine
}

// NewServer builds the router. Executor, Ledger and Quotes are required.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Executor == nil || cfg.Ledger == nil || cfg.Quotes == nil {
		return nil, errors.New("web server requires executor, ledger and quotes")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		addr:   cfg.Addr,
		cfg:    cfg,
		logger: cfg.Logger.Named("web"),
	}
	s.router = s.newRouter()
	return s, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), s.requestLogger())
	router.SetHTMLTemplate(template.Must(template.New("dashboard").Funcs(dashboardFuncs).Parse(dashboardHTML)))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(s.cfg.Metrics.Handler()))

	hooks := router.Group("/", s.webhookAuth())
	hooks.POST("/webhook", s.handleWebhook)
	hooks.POST("/webhook-tv", s.handleTradingView)

	router.POST("/manual", s.handleManual)
	router.GET("/kill", s.handleKillStatus)
	router.POST("/kill/toggle", s.handleKillToggle)
	router.POST("/liquidate-all", s.handleLiquidateAll)
	router.GET("/ping-telegram", s.handlePingTelegram)
	router.GET("/dashboard", s.handleDashboard)
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})

	api := router.Group("/api")
	api.GET("/portfolio", s.handlePortfolio)
	api.GET("/open-positions", s.handleOpenPositions)
	api.GET("/quotes", s.handleQuotes)
	api.GET("/quotes/list", s.handleQuotesList)
	api.GET("/trades", s.handleTrades)
	api.GET("/watchlist", s.handleWatchlist)
	api.POST("/watchlist", s.handleWatchlistReplace)
	api.POST("/watchlist/add", s.handleWatchlistAdd)
	api.POST("/watchlist/remove", s.handleWatchlistRemove)

	router.GET("/decisions/stream", s.handleDecisionStream)
	router.GET("/portfolio/stream", s.handlePortfolioStream)

	return router
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown http server")
		}
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return errors.Wrap(err, "http server")
	}
}

// StartWithAutoTLS serves HTTPS on the configured address with certificates
// from Let's Encrypt. Port 80 answers ACME challenges and redirects to HTTPS.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("acme server shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("acme server", zap.Error(err))
		}
	}()

	s.logger.Info("https server listening", zap.String("addr", s.addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "https server")
	}
	return nil
}
