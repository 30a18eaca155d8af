package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// readyTimeout bounds all readiness probes together.
const readyTimeout = 3 * time.Second

// probe reports whether one backend is usable. A nil check means the
// backend is not configured, which does not fail readiness since editing
// works without any of them.
type probe struct {
	name  string
	check func(ctx context.Context) error
}

func probes(deps *Dependencies) []probe {
	ps := []probe{{name: "database"}, {name: "nats"}, {name: "cache"}}
	if deps.DB != nil {
		ps[0].check = deps.DB.Ping
	}
	if deps.NATS != nil {
		ps[1].check = func(context.Context) error {
			if !deps.NATS.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}
	}
	if deps.Cache != nil {
		ps[2].check = deps.Cache.Ping
	}
	return ps
}

// HealthHandler is the liveness check. It also reports which optional
// features are wired.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": "dev",
			"features": fiber.Map{
				"saved_maps": deps.Maps != nil,
				"naming":     deps.Naming != nil,
				"icons":      deps.Icons != nil,
				"live":       deps.NATS != nil,
			},
		}
		if deps.Editor != nil {
			resp["sessions"] = len(deps.Editor.List(c.UserContext()))
		}
		return c.JSON(resp)
	}
}

// ReadyHandler probes every configured backend.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		checks := make(map[string]string)
		ready := true
		for _, p := range probes(deps) {
			if p.check == nil {
				checks[p.name] = "not configured"
				continue
			}
			if err := p.check(ctx); err != nil {
				checks[p.name] = "error: " + err.Error()
				ready = false
				continue
			}
			checks[p.name] = "ok"
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
