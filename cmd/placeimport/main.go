package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/samirrijal/metromap/internal/adapters/postgres"
	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/pkg/config"
)

// batchSize bounds each pgx batch sent to the places table.
const batchSize = 500

func main() {
	cfg, err := config.Load("metromap-placeimport")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Sources: station lists (.json) or GTFS feeds (.zip), as paths or URLs.
	sources := []string{"stations.json"}
	if len(os.Args) > 1 {
		sources = os.Args[1:]
	}

	log.Printf("Metromap place import: %d sources", len(sources))

	client := &http.Client{Timeout: 120 * time.Second}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		places []domain.NamedPlace
	)
	sem := make(chan struct{}, 4) // max 4 concurrent downloads

	for _, src := range sources {
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			got, err := readSource(ctx, client, src)
			if err != nil {
				log.Printf("ERROR [%s]: %v", src, err)
				return
			}
			log.Printf("[%s] places: %d", src, len(got))

			mu.Lock()
			places = append(places, got...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	places = dedupePlaces(places)
	domain.SortPlaces(places)

	repo := postgres.NewPlaceRepo(db)
	for start := 0; start < len(places); start += batchSize {
		end := min(start+batchSize, len(places))
		if err := repo.UpsertBatch(ctx, places[start:end]); err != nil {
			log.Fatalf("upsert places %d-%d: %v", start, end, err)
		}
	}

	log.Printf("import complete: %d unique places", len(places))
}
