package seeders

import (
	"fmt"
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Seed populates an empty database with a master account, two branches
// and enough students and vehicles to exercise dispatch planning.
// Seeding is idempotent: an existing master account skips everything.
func Seed(db *gorm.DB) error {
	var existing int64
	db.Model(&models.User{}).Where("role = ?", models.RoleMaster).Count(&existing)
	if existing > 0 {
		logrus.Info("Seed skipped, master account already exists")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		masterPw, err := utils.HashPassword("master1234")
		if err != nil {
			return err
		}
		master := models.User{
			Email:    "master@academy-bus.local",
			Password: masterPw,
			Name:     "Master",
			Role:     models.RoleMaster,
		}
		if err := tx.Create(&master).Error; err != nil {
			return err
		}

		branches := []models.Branch{{Name: "Gangnam"}, {Name: "Suwon"}}
		if err := tx.Create(&branches).Error; err != nil {
			return err
		}

		for i := range branches {
			branch := &branches[i]

			adminPw, err := utils.HashPassword("admin1234")
			if err != nil {
				return err
			}
			admin := models.User{
				Email:    fmt.Sprintf("admin.%d@academy-bus.local", branch.ID),
				Password: adminPw,
				Name:     branch.Name + " Admin",
				Role:     models.RoleAdmin,
				BranchID: &branch.ID,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return err
			}

			class := models.Class{
				Name:      "Regular",
				BranchID:  branch.ID,
				Durations: "1,3,6",
				TimeSlots: []models.TimeSlot{
					{Time: "08:00~10:00"},
					{Time: "14:00~16:00"},
				},
			}
			if err := tx.Create(&class).Error; err != nil {
				return err
			}

			for v := 1; v <= 2; v++ {
				driverPw, err := utils.HashPassword("driver1234")
				if err != nil {
					return err
				}
				driver := models.User{
					Email:          fmt.Sprintf("driver.%d.%d@academy-bus.local", branch.ID, v),
					Password:       driverPw,
					Name:           fmt.Sprintf("%s Driver %d", branch.Name, v),
					Role:           models.RoleDriver,
					DriverBranchID: &branch.ID,
				}
				if err := tx.Create(&driver).Error; err != nil {
					return err
				}
				vehicle := models.Vehicle{
					VehicleNumber: fmt.Sprintf("%s-%02d", branch.Name, v),
					Capacity:      3,
					BranchID:      branch.ID,
					DriverID:      &driver.ID,
				}
				if err := tx.Create(&vehicle).Error; err != nil {
					return err
				}
			}

			start := utils.DateOnly(time.Now())
			end := utils.AddMonths(start, 3)
			for st := 1; st <= 5; st++ {
				studentPw, err := utils.HashPassword("student1234")
				if err != nil {
					return err
				}
				user := models.User{
					Email:    fmt.Sprintf("student.%d.%d@academy-bus.local", branch.ID, st),
					Password: studentPw,
					Name:     fmt.Sprintf("%s Student %d", branch.Name, st),
					Role:     models.RoleStudent,
				}
				if err := tx.Create(&user).Error; err != nil {
					return err
				}
				student := models.Student{
					UserID:     user.ID,
					BranchID:   branch.ID,
					BranchName: branch.Name,
					ClassName:  class.Name,
					TimeSlot:   "08:00~10:00",
					Status:     models.StudentApproved,
					StartDate:  &start,
					EndDate:    &end,
				}
				if err := tx.Create(&student).Error; err != nil {
					return err
				}
			}
		}

		logrus.Info("Seed data created")
		return nil
	})
}
