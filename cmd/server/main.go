package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/PhiFever/vision-bridge/internal/config"
	"github.com/PhiFever/vision-bridge/internal/logger"
	"github.com/PhiFever/vision-bridge/internal/morph"
	"github.com/PhiFever/vision-bridge/internal/ocr"
	"github.com/PhiFever/vision-bridge/internal/server"
	"github.com/PhiFever/vision-bridge/pkg/version"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	if _, err := logger.Setup(logger.INFO); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}

	err := run()
	if err != nil {
		logger.Errorf("%v", err)
	}
	logger.Close()

	if err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Get()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	logger.Infof("Starting %s (OCR engine %q, dilation backend %s)",
		version.GetFullName(), ocr.VersionOf(cfg.OCR.Driver), morph.Backend())

	// OCR is optional: without a driver or model the server still dilates
	var pool *ocr.Pool
	if ocr.Available() {
		pool, err = ocr.OpenPool(cfg.OCR.PoolSize, cfg.OCR.ModelPath, cfg.OCR.Language, ocr.WithDriver(cfg.OCR.Driver))
		if err != nil {
			logger.Warningf("OCR disabled (status %d): %v", ocr.StatusCode(err), err)
			pool = nil
		} else {
			defer pool.Close()
			logger.Infof("Started %d OCR engine(s)", pool.Size())
		}
	} else {
		logger.Warning("OCR disabled: " + ocr.ErrNoDriver.Error())
	}

	app := server.NewApp(cfg, server.New(cfg, pool))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Errorf("Server shutdown: %v", err)
		}
	}()

	logger.Infof("Server listening on %s", cfg.Server.Addr)
	if err := app.Listen(cfg.Server.Addr); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
