package controllers

import (
	"github.com/joynpoolmaster-tech/my-academy-bus/database"
	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"github.com/gofiber/fiber/v2"
)

// GetAbsences lists absence records for a date, scope applied through
// the student rows.
func GetAbsences(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	dateStr := c.Query("date")
	if dateStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date query parameter is required"})
	}
	date, err := utils.ParseDate(dateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, use YYYY-MM-DD"})
	}

	db := database.GetDB()
	var studentIDs []uint
	if err := scope.ScopeStudents(db.Model(&models.Student{})).Pluck("id", &studentIDs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve scope"})
	}
	if len(studentIDs) == 0 {
		return c.JSON(fiber.Map{"absences": []models.AbsenceRecord{}})
	}

	var absences []models.AbsenceRecord
	err = db.Where("absence_date = ? AND student_id IN ?", date, studentIDs).
		Preload("Student").
		Preload("Student.User").
		Order("student_id ASC").
		Find(&absences).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch absences"})
	}
	return c.JSON(fiber.Map{"absences": absences})
}

// CreateAbsence marks one student absent for one date. The unique
// index makes a repeat call a conflict, not a duplicate.
func CreateAbsence(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}

	var req struct {
		StudentID uint   `json:"student_id"`
		Date      string `json:"date"`
		Reason    string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.StudentID == 0 || req.Date == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "student_id and date are required"})
	}
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, use YYYY-MM-DD"})
	}

	db := database.GetDB()
	var student models.Student
	if err := db.First(&student, req.StudentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}
	if !scope.CanMutate() || !scope.AllowsStudent(&student) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Student outside your scope"})
	}

	absence := models.AbsenceRecord{
		StudentID:   student.ID,
		AbsenceDate: date,
		Reason:      utils.SanitizeString(req.Reason),
	}
	if err := db.Create(&absence).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Absence already recorded for this date"})
	}

	middleware.LogActivity(c, "CREATE", "absences", absence.ID, fiber.Map{
		"student_id": student.ID,
		"date":       req.Date,
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"absence": absence})
}

// DeleteAbsence removes an absence record.
func DeleteAbsence(c *fiber.Ctx) error {
	scope, err := requestScope(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid absence id"})
	}

	db := database.GetDB()
	var absence models.AbsenceRecord
	if err := db.Preload("Student").First(&absence, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Absence not found"})
	}
	if !scope.CanMutate() || !scope.AllowsStudent(&absence.Student) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Student outside your scope"})
	}

	// Hard delete so the student can be marked absent again for the
	// same date without tripping the unique index.
	if err := db.Unscoped().Delete(&absence).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete absence"})
	}

	middleware.LogActivity(c, "DELETE", "absences", absence.ID, nil)
	return c.JSON(fiber.Map{"message": "Absence deleted"})
}
