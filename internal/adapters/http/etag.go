package http

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gofiber/fiber/v2"
)

// ETagMiddleware tags successful GET bodies with a weak ETag and answers
// 304 when If-None-Match already names it. Handlers that set their own
// ETag keep it. Paths under any of skip are left alone.
func ETagMiddleware(skip ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		for _, prefix := range skip {
			if strings.HasPrefix(c.Path(), prefix) {
				return nil
			}
		}

		etag := c.GetRespHeader(fiber.HeaderETag)
		if etag == "" {
			body := c.Response().Body()
			if len(body) == 0 {
				return nil
			}
			etag = `W/"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
			c.Set(fiber.HeaderETag, etag)
		}

		if etagMatches(c.Get(fiber.HeaderIfNoneMatch), etag) {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}

// etagMatches applies the weak comparison of If-None-Match, which may list
// several tags or be "*".
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == want {
			return true
		}
	}
	return false
}
