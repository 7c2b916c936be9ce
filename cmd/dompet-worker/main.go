package main

import (
	"os"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/cli"
	"dompet/internal/config"
	"dompet/internal/log"
	"dompet/internal/sheets/google"
	"dompet/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout).WithComponent(log.ComponentWorker)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	sheet, err := google.New(ctx, google.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
		OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
		Location:           cfg.Location(),
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
		os.Exit(1)
	}

	consumer, err := amqp.DialWithBackoff(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 6)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer consumer.Close()

	logger.Info("Starting dompet mirror worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"sheet", cfg.GoogleSheetName)

	w := worker.NewMirrorWorker(sheet)
	if err := w.Run(ctx, consumer); err != nil {
		logger.Error("Mirror worker stopped", log.FieldError, err.Error())
		consumer.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	mirrored, failed := w.Stats()
	logger.Info("Mirror worker stopped gracefully", "mirrored", mirrored, "failed", failed)
}
