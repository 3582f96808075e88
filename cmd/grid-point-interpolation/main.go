package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/grid-point-interpolation/internal/api/http"
	"github.com/i474232898/grid-point-interpolation/internal/config"
	"github.com/i474232898/grid-point-interpolation/internal/grid"
	"github.com/i474232898/grid-point-interpolation/internal/interp"
	"github.com/i474232898/grid-point-interpolation/internal/scheduler"
	"github.com/i474232898/grid-point-interpolation/internal/store"
	"github.com/i474232898/grid-point-interpolation/internal/weather"
	"github.com/i474232898/grid-point-interpolation/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

// newRetriever builds the configured sample retriever and a function
// releasing its resources.
func newRetriever(cfg *config.AppConfig) (weather.Retriever, func() error, error) {
	switch cfg.Retriever {
	case config.RetrieverHTTP:
		httpClient := &http.Client{
			Timeout: cfg.HTTPTimeout,
		}
		return providers.NewHTTPRetriever(httpClient, cfg.RetrievalBaseURL), func() error { return nil }, nil
	default:
		archive, err := providers.OpenArchive(cfg.ArchivePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sample archive: %w", err)
		}
		return archive, archive.Close, nil
	}
}

// run serves until SIGINT or SIGTERM. Every resource it opens is released
// before it returns.
func run(cfg *config.AppConfig) error {
	retriever, closeRetriever, err := newRetriever(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRetriever(); err != nil {
			log.Printf("error closing %s retriever: %v", retriever.Name(), err)
		}
	}()
	log.Printf("INFO: using %s retriever", retriever.Name())

	// Grid geometry is loaded on first use.
	source := grid.NewFileSource(cfg.GridPath)

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	dispatcher := interp.NewDispatcher(source, retriever, cfg.Interp)
	service := interp.NewService(dispatcher, memStore, interp.Method(cfg.DefaultMethod), cfg.Interp.DefaultQuota)

	// Scheduler that periodically interpolates configured stations.
	sched := scheduler.New(cfg.Stations, cfg.FetchInterval, service)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "grid-point-interpolation",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "grid-point-interpolation",
			"retriever": retriever.Name(),
		})
	})

	httpapi.RegisterRoutes(app, service, cfg.Stations)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}
