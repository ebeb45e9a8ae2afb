package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database per test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Student{},
		&models.Class{},
		&models.TimeSlot{},
		&models.Vehicle{},
		&models.DispatchAssignment{},
		&models.AbsenceRecord{},
		&models.SpecialRequest{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func makeBranch(t *testing.T, db *gorm.DB, name string) models.Branch {
	t.Helper()
	branch := models.Branch{Name: name}
	if err := db.Create(&branch).Error; err != nil {
		t.Fatalf("create branch: %v", err)
	}
	return branch
}

func makeUser(t *testing.T, db *gorm.DB, email, role string, branchID *uint) models.User {
	t.Helper()
	user := models.User{
		Email:    email,
		Password: "x",
		Name:     email,
		Role:     role,
	}
	switch role {
	case models.RoleAdmin:
		user.BranchID = branchID
	case models.RoleDriver:
		user.DriverBranchID = branchID
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// makeStudent creates an approved student with a window ending the
// given number of days from today.
func makeStudent(t *testing.T, db *gorm.DB, branch models.Branch, name string, endInDays int) models.Student {
	t.Helper()
	user := makeUser(t, db, name+"@test.local", models.RoleStudent, nil)

	start := utils.DateOnly(time.Now()).AddDate(0, -1, 0)
	end := utils.DateOnly(time.Now()).AddDate(0, 0, endInDays)
	student := models.Student{
		UserID:     user.ID,
		BranchID:   branch.ID,
		BranchName: branch.Name,
		Status:     models.StudentApproved,
		StartDate:  &start,
		EndDate:    &end,
	}
	if err := db.Create(&student).Error; err != nil {
		t.Fatalf("create student: %v", err)
	}
	return student
}

// makeVehicle creates a vehicle with a fresh driver attached.
func makeVehicle(t *testing.T, db *gorm.DB, branch models.Branch, number string, capacity int) models.Vehicle {
	t.Helper()
	driver := makeUser(t, db, number+"-driver@test.local", models.RoleDriver, &branch.ID)
	vehicle := models.Vehicle{
		VehicleNumber: number,
		Capacity:      capacity,
		BranchID:      branch.ID,
		DriverID:      &driver.ID,
	}
	if err := db.Create(&vehicle).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return vehicle
}

func today() time.Time {
	return utils.DateOnly(time.Now())
}
