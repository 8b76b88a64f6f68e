package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/ai"
	"financas/internal/amqp"
	"financas/internal/backend"
	"financas/internal/cache"
	"financas/internal/cli"
	"financas/internal/config"
	apphttp "financas/internal/http"
	"financas/internal/importer"
	"financas/internal/insights"
	"financas/internal/ledger"
	"financas/internal/log"
	"financas/internal/notify"
	"financas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	bootstrap := config.Load()
	logger := cli.SetupLogger(bootstrap.LogLevel, bootstrap.LogFormat)
	cfg := cli.LoadAndValidateConfig(logger)

	decimal.MarshalJSONWithoutQuotes = true

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid AI backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	aiBackend, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize AI backend", log.FieldError, err, log.FieldBackend, cfg.AIBackend)
		os.Exit(1)
	}

	extractions := cache.NewLRUCache[ai.Extraction](cfg.ExtractionCacheSize, cfg.ExtractionCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(extractions)
	caches.StartCleanup(5 * time.Minute)

	advisor := ai.NewService(aiBackend.Backend,
		ai.WithMaxConcurrency(cfg.AIMaxConcurrency),
		ai.WithExtractionCache(extractions),
		ai.WithServiceLogger(logger),
	)

	ledgerOpts := []ledger.Option{ledger.WithLogger(logger)}
	if cfg.SeedPeers {
		ledgerOpts = append(ledgerOpts, ledger.WithPeers(ledger.DefaultPeers()...))
	}
	l := ledger.New(ledgerOpts...)

	// a nil *amqp.Client must not reach the service as a non-nil Publisher
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("Ledger events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	controllerOpts := []insights.Option{
		insights.WithTimeout(cfg.InsightsTimeout),
		insights.WithLogger(logger),
	}
	var discord *notify.DiscordNotifier
	if cfg.DiscordBotToken != "" {
		discord, err = notify.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordChannelID, logger)
		if err != nil {
			logger.Error("Failed to initialize Discord notifier", log.FieldError, err)
			os.Exit(1)
		}
	}
	for _, n := range insightNotifiers(discord, publisher, logger) {
		controllerOpts = append(controllerOpts, insights.WithNotifier(n))
	}
	controller := insights.NewController(l, advisor, controllerOpts...)
	l.OnSizeChange(controller.Observe)

	svc := services.NewFinanceService(l, controller, advisor,
		importer.New(advisor, l, logger),
		importer.NewStaging(advisor, l, logger),
		services.WithPublisher(publisher),
		services.WithLogger(logger),
	)

	checks := map[string]apphttp.ReadinessCheck{}
	if amqpClient != nil {
		checks["amqp"] = amqpClient.Ready
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		Checks:             checks,
		Metrics: func() map[string]any {
			return map[string]any{
				"ledger": map[string]any{
					"transactions": l.Len(),
					"peers":        len(l.Peers()),
				},
				"extraction_cache": extractions.Stats(),
				"ai_backend":       advisor.Name(),
			}
		},
		Logger: logger,
	})
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 90 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Service shutdown error", log.FieldError, err)
		}
		if discord != nil {
			_ = discord.Close()
		}
		caches.Stop()
		if err := aiBackend.Close(); err != nil {
			logger.Error("AI backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting financas server",
		"port", cfg.Port,
		log.FieldBackend, advisor.Name(),
		"events", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// insightNotifiers returns every sink for refreshed insights: Discord when a
// bot is configured and the event bus when a publisher is present.
func insightNotifiers(discord *notify.DiscordNotifier, publisher services.Publisher, logger *log.Logger) []insights.Notifier {
	var out []insights.Notifier
	if discord != nil {
		out = append(out, discord)
	}
	if publisher != nil {
		out = append(out, services.NewEventNotifier(publisher, logger))
	}
	return out
}
