package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	natsadapter "github.com/samirrijal/metromap/internal/adapters/nats"
	"github.com/samirrijal/metromap/internal/adapters/postgres"
	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/usecases"
	"github.com/samirrijal/metromap/internal/pkg/config"
	"github.com/samirrijal/metromap/internal/pkg/logging"
	"github.com/samirrijal/metromap/internal/pkg/metrics"
)

// autosave consumes the documents editor sessions publish and stores them
// as saved maps.
func main() {
	cfg, err := config.Load("metromap-autosave")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Persist does not touch editor sessions.
	maps := usecases.NewMapService(postgres.NewMapRepo(db), nil)

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeDocuments(ctx, func(ctx context.Context, m *domain.SavedMap) error {
		err := maps.Persist(ctx, m)
		if errors.Is(err, domain.ErrMalformedDocument) {
			// Redelivery cannot fix a broken document.
			slog.Error("discarding malformed document", "map_id", m.ID, "revision", m.Revision, "error", err)
			return nil
		}
		if err != nil {
			return err
		}
		slog.Debug("map autosaved", "map_id", m.ID, "revision", m.Revision)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe documents: %v", err)
	}

	// Metrics endpoint
	app := fiber.New(fiber.Config{DisableStartupMessage: true, AppName: "Metromap Autosave"})
	app.Get("/metrics", metrics.Handler())
	app.Get("/v1/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			slog.Warn("metrics listener stopped", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	slog.Info("autosave consumer started", "metrics_port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("received signal, shutting down autosave", "signal", sig.String())
	cancel()
	_ = app.ShutdownWithTimeout(5 * time.Second)
}
