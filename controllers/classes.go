package controllers

import (
	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"github.com/gofiber/fiber/v2"
)

// GetClasses lists the classes of the caller's scope, time slots
// included.
func GetClasses(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	var classes []models.Class
	err = scope.ScopeClasses(database.GetDB().Model(&models.Class{})).
		Preload("TimeSlots").
		Preload("Branch").
		Order("branch_id ASC, name ASC").
		Find(&classes).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch classes"})
	}
	return c.JSON(fiber.Map{"classes": classes})
}

// CreateClass adds a class with optional time slots.
func CreateClass(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	var req struct {
		Name      string   `json:"name"`
		BranchID  uint     `json:"branch_id"`
		Durations string   `json:"durations"`
		TimeSlots []string `json:"time_slots"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.BranchID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and branch_id are required"})
	}
	if !scope.CanMutate() || !scope.AllowsBranch(req.BranchID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Branch outside your scope"})
	}

	class := models.Class{
		Name:      utils.SanitizeString(req.Name),
		BranchID:  req.BranchID,
		Durations: req.Durations,
	}
	for _, t := range req.TimeSlots {
		if t != "" {
			class.TimeSlots = append(class.TimeSlots, models.TimeSlot{Time: t})
		}
	}

	if err := database.GetDB().Create(&class).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create class"})
	}

	middleware.LogActivity(c, "CREATE", "classes", class.ID, fiber.Map{"name": class.Name})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"class": class})
}

// AddTimeSlot appends a slot to an existing class.
func AddTimeSlot(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class id"})
	}

	var req struct {
		Time string `json:"time"`
	}
	if err := c.BodyParser(&req); err != nil || req.Time == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "time is required"})
	}

	db := database.GetDB()
	var class models.Class
	if err := db.First(&class, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class not found"})
	}
	if !scope.CanMutate() || !scope.AllowsClass(&class) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Class outside your scope"})
	}

	slot := models.TimeSlot{Time: req.Time, ClassID: class.ID}
	if err := db.Create(&slot).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to add time slot"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"time_slot": slot})
}

// DeleteClass removes a class and its slots.
func DeleteClass(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class id"})
	}

	db := database.GetDB()
	var class models.Class
	if err := db.First(&class, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class not found"})
	}
	if !scope.CanMutate() || !scope.AllowsClass(&class) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Class outside your scope"})
	}

	if err := db.Where("class_id = ?", class.ID).Delete(&models.TimeSlot{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete time slots"})
	}
	if err := db.Delete(&class).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete class"})
	}

	middleware.LogActivity(c, "DELETE", "classes", class.ID, nil)
	return c.JSON(fiber.Map{"message": "Class deleted"})
}
