package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/mockmaker/internal/config"
	"github.com/efreitasn/mockmaker/internal/engine"
	"github.com/efreitasn/mockmaker/internal/events"
	"github.com/efreitasn/mockmaker/internal/handler"
	"github.com/efreitasn/mockmaker/internal/metrics"
	"github.com/efreitasn/mockmaker/internal/service"
	"github.com/efreitasn/mockmaker/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	universe, err := config.LoadUniverse(cfg.UniverseFile)
	if err != nil {
		logger.Error("failed to load universe", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Instantiate stores.
	marketStore := store.NewMarketStore()
	quoteStore := store.NewQuoteStore(store.DefaultQuoteHistory)
	sessionStore := store.NewSessionStore()
	fillStore := store.NewFillStore()

	m := metrics.New()

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:     cfg.KafkaBrokers,
			FillsTopic:  cfg.KafkaFillsTopic,
			QuotesTopic: cfg.KafkaQuotesTopic,
		}, logger, m)
		logger.Info("publishing events to kafka",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("fills_topic", cfg.KafkaFillsTopic),
			slog.String("quotes_topic", cfg.KafkaQuotesTopic),
		)
	}

	// Engine.
	matcher := engine.NewMatcher(marketStore)
	marketSvc := service.NewMarketService(marketStore, quoteStore, publisher, m, logger)

	quoter := engine.NewQuoteGenerator(engine.QuoteConfig{
		Symbols: cfg.QuoteSymbols,
		Spread:  cfg.QuoteSpread,
		SizeMin: cfg.QuoteSizeMin,
		SizeMax: cfg.QuoteSizeMax,
	}, marketStore, marketSvc.RecordQuote, m)
	quoteWorker := engine.NewPeriodicWorker("quoter", cfg.QuoteInterval, quoter.Cycle, logger, m)

	var feedWorker *engine.PeriodicWorker
	if cfg.FeedEnabled {
		feed := engine.NewFeedSimulator(universe, marketStore, nil, m)
		feedWorker = engine.NewPeriodicWorker("feed", cfg.FeedInterval, feed.Cycle, logger, m)
	}

	// Quoting follows the session lifecycle unless it is forced on.
	var sessionQuoter service.QuoteController = quoteWorker
	if cfg.QuoteAlways {
		sessionQuoter = nil
	}

	sessionSvc := service.NewSessionService(sessionStore, cfg.MaxSessions, sessionQuoter, m, logger)
	orderSvc := service.NewOrderService(matcher, fillStore, sessionStore, publisher, m, logger)

	// Router.
	router := handler.NewRouter(sessionSvc, orderSvc, marketSvc, m.Handler(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if feedWorker != nil {
		if err := feedWorker.Start(ctx); err != nil {
			logger.Error("failed to start feed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	if cfg.QuoteAlways {
		if err := quoteWorker.Start(ctx); err != nil {
			logger.Error("failed to start quoting", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.Int("instruments", universe.Len()),
			slog.Any("quote_symbols", cfg.QuoteSymbols),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, then the workers, then flush events.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	quoteWorker.Stop()
	if feedWorker != nil {
		feedWorker.Stop()
	}
	if err := publisher.Close(); err != nil {
		logger.Error("event publisher close error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
