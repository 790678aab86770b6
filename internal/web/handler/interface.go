package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datacentricdesign/profile-api/internal/config"
)

// Service is the interface for a web handler service. Init registers the
// routes of the service on router.
type Service interface {
	Init(router fiber.Router, cfg *config.Config) error
}

// Health answers StatusOK.
func Health(c *fiber.Ctx) error {
	return c.JSON(StatusOK)
}
