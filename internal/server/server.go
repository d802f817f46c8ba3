// Package server exposes the dilation and OCR bridges over HTTP.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/PhiFever/vision-bridge/internal/config"
	"github.com/PhiFever/vision-bridge/internal/logger"
	"github.com/PhiFever/vision-bridge/internal/ocr"
)

// Handler holds all handler dependencies
type Handler struct {
	cfg  *config.Config
	pool *ocr.Pool
}

// New creates a new Handler. pool may be nil when no OCR driver is
// available; the OCR endpoint then answers 503.
func New(cfg *config.Config, pool *ocr.Pool) *Handler {
	return &Handler{cfg: cfg, pool: pool}
}

// NewApp builds the fiber app with middleware and routes
func NewApp(cfg *config.Config, h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		BodyLimit:             cfg.Server.MaxUploadBytes,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[HTTP] ${status} - ${latency} ${method} ${path}\n",
		Output: logger.Writer(logger.INFO),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	app.Get("/health", h.Health)

	api := app.Group("/api")
	api.Get("/version", h.Version)
	api.Post("/ocr", h.Recognise)
	api.Post("/dilate", h.Dilate)

	return app
}

// ErrorHandler is a custom error handler for Fiber
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		logger.Errorf("[Server] %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

// APIResponse is a standard API response structure
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success returns a successful response
func Success(c *fiber.Ctx, data any) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// Error returns an error response
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}
