package services

import (
	"testing"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"
)

func TestScopeForUser(t *testing.T) {
	db := newTestDB(t)
	gangnam := makeBranch(t, db, "Gangnam")
	suwon := makeBranch(t, db, "Suwon")

	gnStudent := makeStudent(t, db, gangnam, "gn-stu", 30)
	swStudent := makeStudent(t, db, suwon, "sw-stu", 30)
	gnVehicle := makeVehicle(t, db, gangnam, "GN-01", 3)
	swVehicle := makeVehicle(t, db, suwon, "SW-01", 3)

	t.Run("master sees everything", func(t *testing.T) {
		master := makeUser(t, db, "master@test.local", models.RoleMaster, nil)
		scope := ScopeForUser(db, &master)

		if !scope.CanMutate() {
			t.Error("master should mutate")
		}
		if !scope.AllowsStudent(&gnStudent) || !scope.AllowsStudent(&swStudent) {
			t.Error("master should see all students")
		}

		var students []models.Student
		scope.ScopeStudents(db.Model(&models.Student{})).Find(&students)
		if len(students) != 2 {
			t.Errorf("master sees %d students, want 2", len(students))
		}
	})

	t.Run("admin pinned to branch", func(t *testing.T) {
		admin := makeUser(t, db, "admin@test.local", models.RoleAdmin, &gangnam.ID)
		scope := ScopeForUser(db, &admin)

		if !scope.CanMutate() {
			t.Error("admin should mutate")
		}
		if !scope.AllowsStudent(&gnStudent) {
			t.Error("admin should see own branch student")
		}
		if scope.AllowsStudent(&swStudent) {
			t.Error("admin should not see other branch student")
		}
		if scope.AllowsVehicle(&swVehicle) {
			t.Error("admin should not see other branch vehicle")
		}
		if !scope.AllowsBranch(gangnam.ID) || scope.AllowsBranch(suwon.ID) {
			t.Error("admin branch check wrong")
		}

		var vehicles []models.Vehicle
		scope.ScopeVehicles(db.Model(&models.Vehicle{})).Find(&vehicles)
		if len(vehicles) != 1 || vehicles[0].ID != gnVehicle.ID {
			t.Errorf("admin vehicle scope = %v", vehicles)
		}
	})

	t.Run("admin without branch denied", func(t *testing.T) {
		admin := makeUser(t, db, "orphan-admin@test.local", models.RoleAdmin, nil)
		scope := ScopeForUser(db, &admin)
		if scope.CanMutate() || scope.AllowsStudent(&gnStudent) {
			t.Error("branchless admin should be denied")
		}
	})

	t.Run("driver read only on own vehicle", func(t *testing.T) {
		var driver models.User
		if err := db.First(&driver, *gnVehicle.DriverID).Error; err != nil {
			t.Fatalf("load driver: %v", err)
		}
		scope := ScopeForUser(db, &driver)

		if scope.CanMutate() {
			t.Error("driver should be read only")
		}
		if !scope.AllowsVehicle(&gnVehicle) {
			t.Error("driver should see own vehicle")
		}
		if scope.AllowsVehicle(&swVehicle) {
			t.Error("driver should not see other vehicle")
		}
		if !scope.AllowsStudent(&gnStudent) {
			t.Error("driver should see branch students")
		}
		if scope.AllowsStudent(&swStudent) {
			t.Error("driver should not see other branch students")
		}
		if scope.AllowsClass(&models.Class{BranchID: gangnam.ID}) {
			t.Error("driver has no class access")
		}
	})

	t.Run("driver without vehicle denied", func(t *testing.T) {
		driver := makeUser(t, db, "idle-driver@test.local", models.RoleDriver, &gangnam.ID)
		scope := ScopeForUser(db, &driver)
		if scope.AllowsStudent(&gnStudent) {
			t.Error("vehicleless driver should be denied")
		}

		var students []models.Student
		scope.ScopeStudents(db.Model(&models.Student{})).Find(&students)
		if len(students) != 0 {
			t.Errorf("denied scope returned %d students", len(students))
		}
	})

	t.Run("student role denied", func(t *testing.T) {
		var user models.User
		if err := db.First(&user, gnStudent.UserID).Error; err != nil {
			t.Fatalf("load user: %v", err)
		}
		scope := ScopeForUser(db, &user)
		if scope.CanMutate() || scope.AllowsVehicle(&gnVehicle) {
			t.Error("student role should be denied")
		}
	})
}

func TestScopedVehicleIDs(t *testing.T) {
	db := newTestDB(t)
	gangnam := makeBranch(t, db, "Gangnam")
	suwon := makeBranch(t, db, "Suwon")
	gn := makeVehicle(t, db, gangnam, "GN-01", 3)
	makeVehicle(t, db, suwon, "SW-01", 3)

	ids, err := scopedVehicleIDs(db, BranchScopeFor(gangnam.ID))
	if err != nil {
		t.Fatalf("scopedVehicleIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != gn.ID {
		t.Errorf("ids = %v, want [%d]", ids, gn.ID)
	}

	ids, err = scopedVehicleIDs(db, GlobalScope())
	if err != nil {
		t.Fatalf("scopedVehicleIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("global ids = %v, want 2 entries", ids)
	}
}
