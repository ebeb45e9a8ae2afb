package controllers

import (
	"strings"

	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	BranchID         uint   `json:"branch_id"`
	ClassName        string `json:"class_name"`
	TimeSlot         string `json:"time_slot"`
	Address          string `json:"address"`
	EmergencyContact string `json:"emergency_contact"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a student account with a pending transportation
// profile. An admin approves the profile before the student enters
// dispatch planning.
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" || req.Name == "" || req.BranchID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email, password, name and branch_id are required",
		})
	}
	if len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Password must be at least 8 characters"})
	}

	db := database.GetDB()

	var branch models.Branch
	if err := db.First(&branch, req.BranchID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown branch"})
	}

	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already registered"})
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process password"})
	}

	user := models.User{
		Email:    req.Email,
		Password: hashed,
		Name:     utils.SanitizeString(req.Name),
		Phone:    req.Phone,
		Role:     models.RoleStudent,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		student := models.Student{
			UserID:           user.ID,
			BranchID:         branch.ID,
			BranchName:       branch.Name,
			ClassName:        utils.SanitizeString(req.ClassName),
			TimeSlot:         req.TimeSlot,
			Address:          utils.SanitizeString(req.Address),
			EmergencyContact: req.EmergencyContact,
			Status:           models.StudentPending,
		}
		return tx.Create(&student).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}

	middleware.LogActivity(c, "REGISTER", "users", user.ID, fiber.Map{"email": user.Email})

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration submitted, awaiting approval",
		"token":   token,
		"user":    user,
	})
}

// Login authenticates any role and returns a JWT.
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var user models.User
	err := database.GetDB().
		Where("email = ?", strings.TrimSpace(strings.ToLower(req.Email))).
		First(&user).Error
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if err := utils.CheckPassword(req.Password, user.Password); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// GetProfile returns the authenticated user, with the student profile
// attached for the student role.
func GetProfile(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return err
	}

	resp := fiber.Map{"user": user}
	if user.Role == models.RoleStudent {
		var student models.Student
		if err := database.GetDB().Where("user_id = ?", user.ID).First(&student).Error; err == nil {
			resp["student"] = student
		}
	}
	return c.JSON(resp)
}

// ChangePassword updates the caller's own password.
func ChangePassword(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.CheckPassword(req.CurrentPassword, user.Password); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Current password is incorrect"})
	}
	if len(req.NewPassword) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Password must be at least 8 characters"})
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process password"})
	}
	if err := database.GetDB().Model(user).Update("password", hashed).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update password"})
	}

	return c.JSON(fiber.Map{"message": "Password updated"})
}
