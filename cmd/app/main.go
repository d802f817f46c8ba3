package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/PhiFever/vision-bridge/internal/config"
	"github.com/PhiFever/vision-bridge/internal/detector"
	"github.com/PhiFever/vision-bridge/internal/logger"
	"github.com/PhiFever/vision-bridge/internal/morph"
	"github.com/PhiFever/vision-bridge/internal/ocr"
	"github.com/PhiFever/vision-bridge/internal/updater"
	"github.com/PhiFever/vision-bridge/pkg/screenshot"
	"github.com/PhiFever/vision-bridge/pkg/version"
)

func main() {
	imagePath := flag.String("image", "", "replay this image file instead of capturing the screen")
	once := flag.Bool("once", false, "run a single detection pass and exit")
	flag.Parse()

	fmt.Printf("Starting %s...\n", version.GetFullName())

	// Load .env file if it exists
	godotenv.Load()

	// Initialize logger
	if _, err := logger.Setup(logger.INFO); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}

	err := run(*imagePath, *once)
	if err != nil {
		logger.Errorf("%v", err)
	}
	logger.Close()

	if err != nil {
		os.Exit(1)
	}
}

// run 返回时所有 defer 的清理都已执行
func run(imagePath string, once bool) error {
	logger.Infof("Application: %s", version.GetFullName())
	logger.Infof("Author: %s", version.Author)

	// Write the default configuration on first run
	path := config.Path()
	if created, err := config.WriteDefault(path); err != nil {
		logger.Warningf("Failed to write default configuration: %v", err)
	} else if created {
		logger.Infof("Wrote default configuration to %s", path)
	}

	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if level, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		logger.Warningf("Ignoring log level: %v", err)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Configuration loaded successfully")
	logger.Debugf("Update interval: %.2f seconds", cfg.UpdateInterval)
	logger.Infof("OCR engine: %q (drivers: %v), dilation backend: %s",
		ocr.VersionOf(cfg.OCR.Driver), ocr.Drivers(), morph.Backend())

	// Start the OCR engines
	pool, err := ocr.OpenPool(cfg.OCR.PoolSize, cfg.OCR.ModelPath, cfg.OCR.Language, ocr.WithDriver(cfg.OCR.Driver))
	if err != nil {
		return fmt.Errorf("failed to start OCR engines (status %d): %w", ocr.StatusCode(err), err)
	}
	defer pool.Close()

	// Pick the frame source
	var capturer screenshot.Capturer
	if imagePath != "" {
		capturer = screenshot.File{Path: imagePath}
		logger.Infof("Replaying frames from %s", imagePath)
	} else {
		display, err := screenshot.NewDisplay(cfg.DisplayIndex)
		if err != nil {
			return fmt.Errorf("failed to open display: %w", err)
		}
		capturer = display
		logger.Infof("Capturing display %d (%v)", display.Index(), display.Bounds())
	}

	// Initialize detector registry
	registry := detector.NewDetectorRegistry()
	scaleDetector := detector.NewScaleDetector(cfg, pool)
	registry.Register(scaleDetector)

	logger.Info("Initializing detectors...")
	if err := registry.InitializeAll(); err != nil {
		return fmt.Errorf("failed to initialize detectors: %w", err)
	}
	defer func() {
		logger.Info("Cleaning up detectors...")
		if err := registry.CleanupAll(); err != nil {
			logger.Errorf("Error cleaning up detectors: %v", err)
		}
	}()

	upd := updater.NewUpdater(cfg, registry, capturer)

	// Accept SIGINT (Ctrl+C) and SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		upd.RunOnce(ctx)
		logger.Infof("%v", scaleDetector.LastResult())
		return nil
	}

	logger.Info("Starting updater...")
	if err := upd.Start(ctx); err != nil {
		return fmt.Errorf("failed to start updater: %w", err)
	}
	logger.Info("Application started successfully, press Ctrl+C to exit")

	<-ctx.Done()
	logger.Info("Shutting down gracefully...")
	<-upd.Done()

	logger.Info("Application stopped")
	return nil
}
