package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/metromap/internal/adapters/nats"
	"github.com/samirrijal/metromap/internal/adapters/nominatim"
	"github.com/samirrijal/metromap/internal/adapters/postgres"
	"github.com/samirrijal/metromap/internal/adapters/valkey"
	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/ports"
	"github.com/samirrijal/metromap/internal/core/usecases"
	"github.com/samirrijal/metromap/internal/pkg/config"
	"github.com/samirrijal/metromap/internal/pkg/logging"
	"github.com/samirrijal/metromap/internal/workflows"
)

// namer runs the station naming workflow. Names go back to the API
// process over the naming stream.
func main() {
	cfg, err := config.Load("metromap-namer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	var places []domain.NamedPlace
	if db, err := postgres.New(ctx, cfg.Database.DSN()); err != nil {
		slog.Warn("database unavailable, naming from geocoder only", "error", err)
	} else {
		places, err = postgres.NewPlaceRepo(db).ListByLatitude(ctx)
		if err != nil {
			slog.Warn("load places failed", "error", err)
		}
		db.Close()
	}

	var geocoder ports.Geocoder
	if cfg.Naming.NominatimURL != "" {
		var opts []nominatim.Option
		if cache, err := valkey.New(cfg.Valkey.Addr, "metromap:"); err != nil {
			slog.Warn("valkey unavailable, geocoding uncached", "error", err)
		} else {
			defer cache.Close()
			opts = append(opts, nominatim.WithCache(cache, cfg.Naming.CacheTTL))
		}
		geocoder = nominatim.New(cfg.Naming.NominatimURL, cfg.Naming.UserAgent, opts...)
	}

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.StationNamingWorkflow)
	w.RegisterActivity(&workflows.NamingActivities{
		Lookup: usecases.NewNameLookup(geocoder, places, cfg.Naming.MaxPlaceDistance),
		Events: publisher,
	})

	slog.Info("namer worker started", "task_queue", cfg.Temporal.TaskQueue, "places", len(places))
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
