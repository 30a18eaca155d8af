package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page wraps one slice of a listing with its pagination metadata.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// clampPage falls back to the first page and the default size for
// out-of-range values.
func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return offset, limit
}

// pageQuery reads ?offset= and ?limit=.
func pageQuery(c *fiber.Ctx) (offset, limit int) {
	return clampPage(c.QueryInt("offset", 0), c.QueryInt("limit", defaultPageSize))
}

func newPage[T any](data []T, offset, limit, total int) Page[T] {
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data: data,
		Pagination: Pagination{
			Offset:  offset,
			Limit:   limit,
			Total:   total,
			HasMore: offset+len(data) < total,
		},
	}
}

// SetLinkHeaders adds RFC 8288 Link headers for a paginated response. Other
// query parameters of the request are carried over.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	links := []string{pageLink(c, 0, p.Limit, "first")}
	if p.Offset > 0 {
		links = append(links, pageLink(c, max(0, p.Offset-p.Limit), p.Limit, "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, pageLink(c, p.Offset+p.Limit, p.Limit, "next"))
	}
	last := 0
	if p.Total > 0 {
		last = (p.Total - 1) / p.Limit * p.Limit
	}
	links = append(links, pageLink(c, last, p.Limit, "last"))

	c.Set("Link", strings.Join(links, ", "))
}

func pageLink(c *fiber.Ctx, offset, limit int, rel string) string {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	c.Context().QueryArgs().CopyTo(args)
	args.SetUint("offset", offset)
	args.SetUint("limit", limit)
	return fmt.Sprintf(`<%s?%s>; rel="%s"`, c.Path(), args.String(), rel)
}
