package controllers

import (
	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/services"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports readiness of the backing stores.
func HealthCheck(c *fiber.Ctx) error {
	svc := services.NewHealthService(database.GetDB(), database.GetRedisClient())
	status := svc.Check(c.Context())

	code := fiber.StatusOK
	if status.Status == "down" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(status)
}
