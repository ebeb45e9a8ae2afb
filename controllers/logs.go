package controllers

import (
	"strconv"

	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"

	"github.com/gofiber/fiber/v2"
)

// GetActivityLogs lists recent audit entries. Master only.
func GetActivityLogs(c *fiber.Ctx) error {
	limit := 100
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 1000 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit"})
		}
		limit = n
	}

	q := database.GetDB().Model(&models.ActivityLog{}).
		Preload("User").
		Order("id DESC").
		Limit(limit)
	if action := c.Query("action"); action != "" {
		q = q.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		q = q.Where("resource = ?", resource)
	}

	var logs []models.ActivityLog
	if err := q.Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch logs"})
	}
	return c.JSON(fiber.Map{"logs": logs})
}

// GetLogArchives lists completed and failed archive runs. Master only.
func GetLogArchives(c *fiber.Ctx) error {
	var archives []models.LogArchive
	err := database.GetDB().Order("id DESC").Limit(100).Find(&archives).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch archives"})
	}
	return c.JSON(fiber.Map{"archives": archives})
}
