package main

import (
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
	"financas/internal/cli"
	"financas/internal/config"
	"financas/internal/log"
	"financas/internal/sheets"
	"financas/internal/worker"
)

const statsInterval = 10 * time.Minute

func main() {
	cli.LoadEnvFile()
	bootstrap := config.Load()
	logger := cli.SetupLogger(bootstrap.LogLevel, bootstrap.LogFormat)

	logger.Info("Starting financas-worker")
	cfg := cli.LoadAndValidateWorkerConfig(logger)

	journal := cli.InitJournal(logger, cfg.JournalDBPath)
	defer journal.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	var workerOpts []worker.Option
	if cfg.GoogleSpreadsheetID != "" {
		creds, err := sheets.CredentialsFromEnv()
		if err != nil {
			logger.Error("Google Sheets mirror misconfigured", log.FieldError, err)
			os.Exit(1)
		}
		mirror, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: creds,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		workerOpts = append(workerOpts, worker.WithMirror(mirror))
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	journalWorker := worker.NewJournalWorker(journal, cfg.WorkerPrefetch, logger, workerOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return journalWorker.Run(gctx, amqpClient)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := journal.Count(gctx)
				if err != nil {
					logger.Error("Failed to count journal entries", log.FieldError, err)
					continue
				}
				logger.Info("Journal stats", "entries", n)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Journal worker failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
