package controller

import (
	"context"
	"time"

	"owlynn-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthController(checks map[string]HealthCheck) IHealthController {
	return &healthController{checks: checks, timeout: 2 * time.Second}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

// Health reports "healthy" when every check passes and "degraded" with 503
// otherwise. The body is not wrapped so health checkers can read status directly.
func (c *healthController) Health(ctx *fiber.Ctx) error {
	res := dto.HealthResponse{Status: "healthy"}
	if len(c.checks) == 0 {
		return ctx.JSON(res)
	}

	checkCtx, cancel := context.WithTimeout(ctx.UserContext(), c.timeout)
	defer cancel()

	res.Checks = make(map[string]string, len(c.checks))
	for name, check := range c.checks {
		if err := check(checkCtx); err != nil {
			res.Checks[name] = err.Error()
			res.Status = "degraded"
			continue
		}
		res.Checks[name] = "ok"
	}

	if res.Status != "healthy" {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(res)
	}
	return ctx.JSON(res)
}
