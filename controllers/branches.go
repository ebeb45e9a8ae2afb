package controllers

import (
	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"github.com/gofiber/fiber/v2"
)

// GetBranches lists all branches. Registration uses this without
// authentication, so only names and ids leave the handler.
func GetBranches(c *fiber.Ctx) error {
	var branches []models.Branch
	if err := database.GetDB().Order("name ASC").Find(&branches).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch branches"})
	}
	return c.JSON(fiber.Map{"branches": branches})
}

// GetBranch returns one branch with its classes and vehicles.
func GetBranch(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid branch id"})
	}

	var branch models.Branch
	err = database.GetDB().
		Preload("Classes").
		Preload("Classes.TimeSlots").
		Preload("Vehicles").
		First(&branch, id).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Branch not found"})
	}
	return c.JSON(fiber.Map{"branch": branch})
}

// CreateBranch adds a branch. Master only.
func CreateBranch(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	name := utils.SanitizeString(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	branch := models.Branch{Name: name}
	if err := database.GetDB().Create(&branch).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Branch already exists"})
	}

	middleware.LogActivity(c, "CREATE", "branches", branch.ID, fiber.Map{"name": branch.Name})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"branch": branch})
}

// UpdateBranch renames a branch. Master only. Student label columns are
// left as registered; the id keeps them attached.
func UpdateBranch(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid branch id"})
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	name := utils.SanitizeString(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	db := database.GetDB()
	var branch models.Branch
	if err := db.First(&branch, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Branch not found"})
	}
	if err := db.Model(&branch).Update("name", name).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Branch name already in use"})
	}
	branch.Name = name

	middleware.LogActivity(c, "UPDATE", "branches", branch.ID, fiber.Map{"name": name})
	return c.JSON(fiber.Map{"branch": branch})
}

// DeleteBranch removes an empty branch. Master only.
func DeleteBranch(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid branch id"})
	}

	db := database.GetDB()
	var branch models.Branch
	if err := db.First(&branch, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Branch not found"})
	}

	var students int64
	db.Model(&models.Student{}).Where("branch_id = ?", branch.ID).Count(&students)
	if students > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Branch still has students"})
	}

	if err := db.Delete(&branch).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete branch"})
	}

	middleware.LogActivity(c, "DELETE", "branches", branch.ID, nil)
	return c.JSON(fiber.Map{"message": "Branch deleted"})
}
