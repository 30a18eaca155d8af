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
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/metromap/internal/adapters/assets"
	"github.com/samirrijal/metromap/internal/adapters/http"
	natsadapter "github.com/samirrijal/metromap/internal/adapters/nats"
	"github.com/samirrijal/metromap/internal/adapters/nominatim"
	"github.com/samirrijal/metromap/internal/adapters/postgres"
	"github.com/samirrijal/metromap/internal/adapters/temporal"
	"github.com/samirrijal/metromap/internal/adapters/valkey"
	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/ports"
	"github.com/samirrijal/metromap/internal/core/usecases"
	"github.com/samirrijal/metromap/internal/pkg/config"
	"github.com/samirrijal/metromap/internal/pkg/logging"
	"github.com/samirrijal/metromap/internal/pkg/metrics"
	"github.com/samirrijal/metromap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("metromap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database is optional: editing works without it, saving does not.
	var db *postgres.DB
	if d, err := postgres.New(ctx, cfg.Database.DSN()); err != nil {
		slog.Warn("database unavailable, saved maps disabled", "error", err)
	} else {
		db = d
		defer db.Close()
		go reportPoolStats(ctx, db)
	}

	// Cache
	var cache *valkey.Cache
	if c, err := valkey.New(cfg.Valkey.Addr, "metromap:"); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		cache = c
		defer cache.Close()
	}

	// NATS publisher (nil interface when unavailable, so the editor skips publishing)
	var events ports.EditorEventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, live updates and autosave disabled", "error", err)
	} else {
		events = publisher
		defer publisher.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Use cases
	editor := usecases.NewEditorService(events, usecases.EditorOptions{
		MaxSessions:   cfg.Editor.MaxSessions,
		AutoName:      cfg.Naming.Auto,
		AutosaveEvery: uint64(cfg.Editor.AutosaveEvery),
		GeoJSONSteps:  cfg.Editor.GeoJSONSteps,
	})

	var fetcher ports.AssetFetcher = assets.NewDirFetcher(cfg.Assets.Dir)
	if cfg.Assets.BaseURL != "" {
		fetcher = assets.NewHTTPFetcher(cfg.Assets.BaseURL, nil)
	}
	icons := usecases.NewIconService(fetcher, cfg.Assets.CacheSize)

	lookup := usecases.NewNameLookup(newGeocoder(cfg, cache), loadPlaces(ctx, db), cfg.Naming.MaxPlaceDistance)
	naming := usecases.NewNamingService(editor, lookup)

	var maps *usecases.MapService
	if db != nil {
		maps = usecases.NewMapService(postgres.NewMapRepo(db), editor)
	}

	// Automatic naming runs inline or on a Temporal worker, which answers
	// over the naming stream.
	switch cfg.Naming.Runner {
	case "temporal":
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			log.Fatalf("temporal client: %v", err)
		}
		defer tc.Close()
		editor.SetNamingScheduler(temporal.NewScheduler(tc, cfg.Temporal.TaskQueue))

		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats subscriber: %v", err)
		}
		defer sub.Close()
		if err := sub.SubscribeNameSuggestions(ctx, applySuggestion(naming)); err != nil {
			log.Fatalf("subscribe name suggestions: %v", err)
		}
	default:
		editor.SetNamingScheduler(naming)
	}

	deps := &http.Dependencies{
		Editor: editor,
		Maps:   maps,
		Icons:  icons,
		Naming: naming,
		NATS:   natsConn,
		DB:     db,
		Cache:  cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // imported documents can be large
		AppName:      "Metromap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "ETag, Link, Location, Deprecation, Sunset",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "naming_runner", cfg.Naming.Runner)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Closing sessions publishes their pending documents for autosave.
	for _, s := range editor.List(shutdownCtx) {
		if err := editor.Delete(shutdownCtx, s.ID); err != nil {
			slog.Warn("close session", "map_id", s.ID, "error", err)
		}
	}

	slog.Info("server stopped")
}

// newGeocoder returns the Nominatim client, or nil when no URL is configured.
func newGeocoder(cfg *config.Config, cache *valkey.Cache) ports.Geocoder {
	if cfg.Naming.NominatimURL == "" {
		return nil
	}
	var opts []nominatim.Option
	if cache != nil {
		opts = append(opts, nominatim.WithCache(cache, cfg.Naming.CacheTTL))
	}
	return nominatim.New(cfg.Naming.NominatimURL, cfg.Naming.UserAgent, opts...)
}

// loadPlaces reads the imported reference places. Naming falls back to the
// geocoder alone when there are none.
func loadPlaces(ctx context.Context, db *postgres.DB) []domain.NamedPlace {
	if db == nil {
		return nil
	}
	places, err := postgres.NewPlaceRepo(db).ListByLatitude(ctx)
	if err != nil {
		slog.Warn("load places failed", "error", err)
		return nil
	}
	slog.Info("reference places loaded", "count", len(places))
	return places
}

// applySuggestion applies names computed by the Temporal worker. Suggestions
// for sessions this process does not hold are acknowledged and dropped.
func applySuggestion(naming *usecases.NamingService) func(ctx context.Context, sug *domain.NameSuggestion) error {
	return func(ctx context.Context, sug *domain.NameSuggestion) error {
		res, err := naming.Apply(ctx, sug)
		if errors.Is(err, domain.ErrSessionNotFound) {
			slog.Debug("suggestion for closed session", "map_id", sug.MapID, "station_id", sug.StationID)
			return nil
		}
		if err != nil {
			return err
		}
		slog.Debug("suggestion applied", "map_id", sug.MapID, "station_id", sug.StationID, "outcome", res.Outcome)
		return nil
	}
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
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
}
