package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cacheRule assigns a Cache-Control value to GET responses under a path.
// An exact rule matches only that path.
type cacheRule struct {
	path  string
	exact bool
	value string
}

// cacheRules are checked in order; the first match wins.
var cacheRules = []cacheRule{
	{path: "/v1/health", exact: true, value: "public, max-age=10"},
	{path: "/v1/ready", exact: true, value: "public, max-age=10"},
	{path: "/metrics", exact: true, value: "no-cache"},
	// presets only change with a release
	{path: "/v1/line-types", exact: true, value: "public, max-age=86400"},
	{path: "/v1/icons/", value: "public, max-age=86400, immutable"},
	// live editor state
	{path: "/v1/sessions", value: "no-store"},
	{path: "/v1/maps", value: "private, max-age=30"},
	{path: "/v1/", value: "private, max-age=0"},
}

func cacheControlFor(path string) string {
	for _, r := range cacheRules {
		if r.exact && path == r.path || !r.exact && strings.HasPrefix(path, r.path) {
			return r.value
		}
	}
	return ""
}

// CachingMiddleware sets Cache-Control on GET responses that did not set
// their own.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet || c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}
		if v := cacheControlFor(c.Path()); v != "" {
			c.Set(fiber.HeaderCacheControl, v)
		}
		return err
	}
}
