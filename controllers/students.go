package controllers

import (
	"strconv"
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/config"
	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/services"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"github.com/gofiber/fiber/v2"
)

// GetStudents lists students in scope, optionally filtered by status.
func GetStudents(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	q := scope.ScopeStudents(database.GetDB().Model(&models.Student{})).
		Preload("User").
		Preload("Branch").
		Order("id ASC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if class := c.Query("class_name"); class != "" {
		q = q.Where("class_name = ?", class)
	}
	if slot := c.Query("time_slot"); slot != "" {
		q = q.Where("time_slot = ?", slot)
	}

	var students []models.Student
	if err := q.Find(&students).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch students"})
	}
	return c.JSON(fiber.Map{"students": students})
}

// GetStudent returns one student in scope.
func GetStudent(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	var student models.Student
	err = database.GetDB().Preload("User").Preload("Branch").First(&student, id).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}
	if !scope.AllowsStudent(&student) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Student outside your scope"})
	}
	return c.JSON(fiber.Map{"student": student})
}

// ApproveStudent approves a pending registration and, when dates are
// supplied, opens the subscription window.
func ApproveStudent(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	var req struct {
		StartDate string `json:"start_date"`
		Months    int    `json:"months"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	svc := services.NewSubscriptionService(database.GetDB())
	student, err := svc.Approve(scope, uint(id))
	if err != nil {
		return serviceError(c, err)
	}

	if req.StartDate != "" && req.Months > 0 {
		start, perr := utils.ParseDate(req.StartDate)
		if perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date, use YYYY-MM-DD"})
		}
		end := utils.AddMonths(start, req.Months)
		err = database.GetDB().Model(student).Updates(map[string]interface{}{
			"start_date": start,
			"end_date":   end,
		}).Error
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to set subscription window"})
		}
		student.StartDate = &start
		student.EndDate = &end
	}

	middleware.LogActivity(c, "APPROVE", "students", student.ID, nil)
	return c.JSON(fiber.Map{"student": student})
}

// RejectStudent rejects a registration.
func RejectStudent(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	svc := services.NewSubscriptionService(database.GetDB())
	student, err := svc.Reject(scope, uint(id))
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "REJECT", "students", student.ID, nil)
	return c.JSON(fiber.Map{"student": student})
}

// ExtendStudent pushes the subscription end date forward by whole
// months. Past roster rows are untouched.
func ExtendStudent(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	var req struct {
		Months int `json:"months"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Months < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "months must be at least 1"})
	}

	svc := services.NewSubscriptionService(database.GetDB())
	student, err := svc.Extend(scope, uint(id), req.Months)
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "EXTEND", "students", student.ID, fiber.Map{"months": req.Months})
	return c.JSON(fiber.Map{"student": student})
}

// GetExpiringStudents lists students whose window closes within the
// requested number of days (default from configuration).
func GetExpiringStudents(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	days := config.AppConfig.ExpiryNoticeDays
	if d := c.Query("within_days"); d != "" {
		n, perr := strconv.Atoi(d)
		if perr != nil || n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid within_days"})
		}
		days = n
	}

	svc := services.NewSubscriptionService(database.GetDB())
	students, err := svc.ExpiringWithin(scope, days, time.Now())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"students": students, "days": days})
}

// UpdateStudent edits contact details of one student.
func UpdateStudent(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student id"})
	}

	var req struct {
		Address          *string `json:"address"`
		EmergencyContact *string `json:"emergency_contact"`
		TimeSlot         *string `json:"time_slot"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	db := database.GetDB()
	var student models.Student
	if err := db.First(&student, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}
	if !scope.CanMutate() || !scope.AllowsStudent(&student) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Student outside your scope"})
	}

	updates := map[string]interface{}{}
	if req.Address != nil {
		updates["address"] = utils.SanitizeString(*req.Address)
	}
	if req.EmergencyContact != nil {
		updates["emergency_contact"] = *req.EmergencyContact
	}
	if req.TimeSlot != nil {
		updates["time_slot"] = *req.TimeSlot
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}
	if err := db.Model(&student).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update student"})
	}

	middleware.LogActivity(c, "UPDATE", "students", student.ID, updates)
	return c.JSON(fiber.Map{"message": "Student updated"})
}
