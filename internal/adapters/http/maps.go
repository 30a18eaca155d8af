package http

import (
	"github.com/gofiber/fiber/v2"
)

// SaveSessionHandler persists the session right away instead of waiting for
// the autosave worker.
func SaveSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Maps == nil {
			return errUnavailable(c, "map storage is not configured")
		}
		m, err := deps.Maps.Save(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{
			"id":         m.ID,
			"revision":   m.Revision,
			"updated_at": m.UpdatedAt,
		})
	}
}

// ListMapsHandler returns saved maps, most recently updated first.
func ListMapsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Maps == nil {
			return errUnavailable(c, "map storage is not configured")
		}
		offset, limit := pageQuery(c)

		maps, total, err := deps.Maps.List(c.UserContext(), offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		page := newPage(maps, offset, limit, total)
		SetLinkHeaders(c, page.Pagination)
		return c.JSON(page)
	}
}

// GetMapHandler returns a saved map with its document.
func GetMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Maps == nil {
			return errUnavailable(c, "map storage is not configured")
		}
		m, err := deps.Maps.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(m)
	}
}

// DeleteMapHandler removes a saved map. Open sessions are left alone.
func DeleteMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Maps == nil {
			return errUnavailable(c, "map storage is not configured")
		}
		if err := deps.Maps.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// OpenMapHandler loads a saved map into an editor session.
func OpenMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Maps == nil {
			return errUnavailable(c, "map storage is not configured")
		}
		info, err := deps.Maps.Open(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/sessions/" + info.ID)
		return c.Status(fiber.StatusCreated).JSON(info)
	}
}
