package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/metromap/internal/pkg/metrics"
)

// requestTimeout bounds every v1 call. Station naming waits for its
// geocode slot and is the slowest of them.
const requestTimeout = 15 * time.Second

// deprecatedRoutes still answer but point clients at their successors.
var deprecatedRoutes = []DeprecatedRoute{
	{
		Path:        "/v1/sessions/:id/export",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/sessions/:id/document",
	},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Server span + request-scoped logger
	app.Use(RequestContextMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: dragging stations and handles sends bursts of intents,
	// so the budget is well above a read-only API's.
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics"
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware("/metrics", "/ws"))

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	app.Use(DeprecationMiddleware(deprecatedRoutes))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/line-types", LineTypesHandler(deps))
	v1.Get("/icons/:kind", timeout.NewWithContext(IconHandler(deps), requestTimeout))

	// Editor sessions
	v1.Post("/sessions", timeout.NewWithContext(CreateSessionHandler(deps), requestTimeout))
	v1.Get("/sessions", timeout.NewWithContext(ListSessionsHandler(deps), requestTimeout))
	v1.Get("/sessions/:id", timeout.NewWithContext(GetSessionHandler(deps), requestTimeout))
	v1.Patch("/sessions/:id", timeout.NewWithContext(UpdateSessionHandler(deps), requestTimeout))
	v1.Delete("/sessions/:id", timeout.NewWithContext(DeleteSessionHandler(deps), requestTimeout))
	v1.Post("/sessions/:id/save", timeout.NewWithContext(SaveSessionHandler(deps), requestTimeout))

	// Intents
	s := v1.Group("/sessions/:id")
	s.Post("/points", timeout.NewWithContext(PlacePointHandler(deps), requestTimeout))
	s.Post("/finish", timeout.NewWithContext(FinishLineHandler(deps), requestTimeout))
	s.Put("/line-type", timeout.NewWithContext(SelectLineTypeHandler(deps), requestTimeout))
	s.Put("/control-points", timeout.NewWithContext(ToggleControlPointsHandler(deps), requestTimeout))
	s.Post("/undo", timeout.NewWithContext(UndoHandler(deps), requestTimeout))
	s.Post("/redo", timeout.NewWithContext(RedoHandler(deps), requestTimeout))

	s.Post("/stations/:sid/click", timeout.NewWithContext(ClickStationHandler(deps), requestTimeout))
	s.Patch("/stations/:sid", timeout.NewWithContext(UpdateStationHandler(deps), requestTimeout))
	s.Delete("/stations/:sid", timeout.NewWithContext(RemoveStationHandler(deps), requestTimeout))
	s.Delete("/stations/:sid/lines/:lid", timeout.NewWithContext(UncrossStationHandler(deps), requestTimeout))
	s.Post("/stations/:sid/name", timeout.NewWithContext(SuggestNameHandler(deps), requestTimeout))

	s.Post("/lines/:lid/click", timeout.NewWithContext(ClickLineHandler(deps), requestTimeout))
	s.Post("/lines/:lid/continue", timeout.NewWithContext(ContinueLineHandler(deps), requestTimeout))
	s.Patch("/lines/:lid", timeout.NewWithContext(UpdateLineHandler(deps), requestTimeout))
	s.Delete("/lines/:lid", timeout.NewWithContext(RemoveLineHandler(deps), requestTimeout))
	s.Put("/lines/:lid/control-points/:index", timeout.NewWithContext(MoveControlPointHandler(deps), requestTimeout))

	// Views
	s.Get("/document", timeout.NewWithContext(ExportHandler(deps), requestTimeout))
	s.Get("/export", timeout.NewWithContext(ExportHandler(deps), requestTimeout))
	s.Post("/document", timeout.NewWithContext(ImportHandler(deps), requestTimeout))
	s.Get("/summary", timeout.NewWithContext(SummaryHandler(deps), requestTimeout))
	s.Get("/render", timeout.NewWithContext(RenderHandler(deps), requestTimeout))
	s.Get("/geojson", timeout.NewWithContext(GeoJSONHandler(deps), requestTimeout))

	// Saved maps
	v1.Get("/maps", timeout.NewWithContext(ListMapsHandler(deps), requestTimeout))
	v1.Get("/maps/:id", timeout.NewWithContext(GetMapHandler(deps), requestTimeout))
	v1.Delete("/maps/:id", timeout.NewWithContext(DeleteMapHandler(deps), requestTimeout))
	v1.Post("/maps/:id/open", timeout.NewWithContext(OpenMapHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
