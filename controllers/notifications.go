package controllers

import (
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications lists the caller's notifications, unread first.
func GetNotifications(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return err
	}

	var notifications []models.Notification
	err = database.GetDB().
		Where("user_id = ?", user.ID).
		Order("`read` ASC, id DESC").
		Limit(100).
		Find(&notifications).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch notifications"})
	}
	return c.JSON(fiber.Map{"notifications": notifications})
}

// MarkNotificationRead marks one of the caller's notifications read.
func MarkNotificationRead(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification id"})
	}

	now := time.Now()
	res := database.GetDB().Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, user.ID).
		Updates(map[string]interface{}{"read": true, "read_at": now})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notification"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	return c.JSON(fiber.Map{"message": "Notification marked read"})
}

// MarkAllNotificationsRead marks every unread notification read.
func MarkAllNotificationsRead(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return err
	}

	now := time.Now()
	err = database.GetDB().Model(&models.Notification{}).
		Where("user_id = ? AND `read` = ?", user.ID, false).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notifications"})
	}
	return c.JSON(fiber.Map{"message": "All notifications marked read"})
}
