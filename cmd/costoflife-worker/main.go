package main

import (
	"context"
	"errors"
	"os"
	"time"

	"costoflife/internal/amqp"
	"costoflife/internal/cli"
	"costoflife/internal/log"
	"costoflife/internal/sheets"
	gsheet "costoflife/internal/sheets/google"
	memsheet "costoflife/internal/sheets/memory"
	"costoflife/internal/storage"
	"costoflife/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	logger.Info("Starting costoflife-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// The worker reads the sync bookkeeping, which only SQLite keeps.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var (
		writer   sheets.TransactionWriter
		exported sheets.ExportLister
	)
	if cfg.SheetsEnabled() {
		sheetsClient, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			OAuthClientJSON: cfg.GoogleOAuthClientJSON,
			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
			Logger:          logger,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		writer, exported = sheetsClient, sheetsClient
	} else {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, rows are kept in memory only")
		sheet := memsheet.New()
		writer, exported = sheet, sheet
	}

	syncWorker := worker.NewSyncWorker(repo, writer, exported, cfg.SyncBatchSize, logger)
	sweeper := worker.NewSweeper(syncWorker, cfg.SyncInterval)

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// The sweep still exports everything, only later.
			logger.Warn("Failed to initialize AMQP client, relying on the pending sweep", log.FieldError, err)
			amqpClient = nil
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			logger.Warn("Sweeper stop error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
	})

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
		// Don't exit - the sweep retries
	}

	if err := sweeper.Start(ctx); err != nil {
		logger.Error("Failed to start pending sweeper", log.FieldError, err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			if err := amqpClient.ConsumeWithRetry(ctx, syncWorker.HandleRecorded); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled, exporting through the pending sweep only")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
