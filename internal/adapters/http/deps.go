package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/metromap/internal/adapters/postgres"
	"github.com/samirrijal/metromap/internal/adapters/valkey"
	"github.com/samirrijal/metromap/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Editor *usecases.EditorService
	Maps   *usecases.MapService
	Icons  *usecases.IconService
	Naming *usecases.NamingService
	NATS   *nats.Conn
	DB     *postgres.DB
	Cache  *valkey.Cache
}
