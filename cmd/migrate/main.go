package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/metromap/internal/pkg/config"
)

// migrations are applied in order by up and reverted in reverse by down.
var migrations = []string{
	"migrations/001_maps",
	"migrations/002_places",
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("metromap-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		runMigrations(ctx, pool, upFiles())
		log.Println("all migrations applied")
	case "down":
		runMigrations(ctx, pool, downFiles())
		log.Println("all migrations reverted")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func upFiles() []string {
	files := make([]string, len(migrations))
	for i, m := range migrations {
		files[i] = m + ".up.sql"
	}
	return files
}

func downFiles() []string {
	files := make([]string, len(migrations))
	for i, m := range migrations {
		files[len(migrations)-1-i] = m + ".down.sql"
	}
	return files
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		_, err = pool.Exec(ctx, string(data))
		if err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}
}
