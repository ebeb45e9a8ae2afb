package services

import (
	"errors"
	"testing"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"
)

func TestBuildWorklist(t *testing.T) {
	db := newTestDB(t)
	gangnam := makeBranch(t, db, "Gangnam")
	suwon := makeBranch(t, db, "Suwon")

	gnDriver := makeUser(t, db, "gn-drv@test.local", models.RoleDriver, &gangnam.ID)
	swDriver := makeUser(t, db, "sw-drv@test.local", models.RoleDriver, &suwon.ID)
	spareDriver := makeUser(t, db, "spare-drv@test.local", models.RoleDriver, &gangnam.ID)

	gnVehicle := models.Vehicle{VehicleNumber: "GN-01", Capacity: 3, BranchID: gangnam.ID}
	swVehicle := models.Vehicle{VehicleNumber: "SW-01", Capacity: 3, BranchID: suwon.ID}
	if err := db.Create(&gnVehicle).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	if err := db.Create(&swVehicle).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}

	svc := NewPairingService(db)
	wl, err := svc.BuildWorklist(GlobalScope())
	if err != nil {
		t.Fatalf("BuildWorklist: %v", err)
	}

	if len(wl.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(wl.Candidates))
	}
	for _, c := range wl.Candidates {
		if c.Driver.DriverBranchID == nil || *c.Driver.DriverBranchID != c.Vehicle.BranchID {
			t.Errorf("cross-branch candidate: driver %d vehicle %d", c.Driver.ID, c.Vehicle.ID)
		}
	}
	if len(wl.UnmatchedDrivers) != 1 || wl.UnmatchedDrivers[0].ID != spareDriver.ID {
		t.Errorf("unmatched drivers = %v, want spare only", wl.UnmatchedDrivers)
	}
	if len(wl.UnmatchedVehicles) != 0 {
		t.Errorf("unmatched vehicles = %v", wl.UnmatchedVehicles)
	}

	// Building does not write anything.
	var withDriver int64
	db.Model(&models.Vehicle{}).Where("driver_id IS NOT NULL").Count(&withDriver)
	if withDriver != 0 {
		t.Errorf("BuildWorklist assigned %d drivers", withDriver)
	}

	// Applying writes the matches.
	applied, err := svc.Apply(GlobalScope(), wl)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}

	var gn models.Vehicle
	db.First(&gn, gnVehicle.ID)
	if gn.DriverID == nil || *gn.DriverID != gnDriver.ID {
		t.Errorf("gangnam vehicle driver = %v, want %d", gn.DriverID, gnDriver.ID)
	}
	var sw models.Vehicle
	db.First(&sw, swVehicle.ID)
	if sw.DriverID == nil || *sw.DriverID != swDriver.ID {
		t.Errorf("suwon vehicle driver = %v, want %d", sw.DriverID, swDriver.ID)
	}
}

func TestBuildWorklistCrossBranchFallback(t *testing.T) {
	db := newTestDB(t)
	gangnam := makeBranch(t, db, "Gangnam")
	suwon := makeBranch(t, db, "Suwon")

	driver := makeUser(t, db, "gn-drv@test.local", models.RoleDriver, &gangnam.ID)
	vehicle := models.Vehicle{VehicleNumber: "SW-01", Capacity: 3, BranchID: suwon.ID}
	if err := db.Create(&vehicle).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}

	svc := NewPairingService(db)
	wl, err := svc.BuildWorklist(GlobalScope())
	if err != nil {
		t.Fatalf("BuildWorklist: %v", err)
	}

	// With no same-branch vehicle free, the driver takes the first
	// free vehicle of any branch.
	if len(wl.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(wl.Candidates))
	}
	if wl.Candidates[0].Driver.ID != driver.ID || wl.Candidates[0].Vehicle.ID != vehicle.ID {
		t.Errorf("candidate = driver %d vehicle %d", wl.Candidates[0].Driver.ID, wl.Candidates[0].Vehicle.ID)
	}
	if len(wl.UnmatchedDrivers) != 0 || len(wl.UnmatchedVehicles) != 0 {
		t.Errorf("unmatched = %d drivers, %d vehicles, want none",
			len(wl.UnmatchedDrivers), len(wl.UnmatchedVehicles))
	}
}

func TestBuildWorklistPrefersSameBranch(t *testing.T) {
	db := newTestDB(t)
	gangnam := makeBranch(t, db, "Gangnam")
	suwon := makeBranch(t, db, "Suwon")

	driver := makeUser(t, db, "gn-drv@test.local", models.RoleDriver, &gangnam.ID)
	foreign := models.Vehicle{VehicleNumber: "SW-01", Capacity: 3, BranchID: suwon.ID}
	if err := db.Create(&foreign).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	home := models.Vehicle{VehicleNumber: "GN-01", Capacity: 3, BranchID: gangnam.ID}
	if err := db.Create(&home).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}

	svc := NewPairingService(db)
	wl, err := svc.BuildWorklist(GlobalScope())
	if err != nil {
		t.Fatalf("BuildWorklist: %v", err)
	}

	// The foreign vehicle has the lower id but the home-branch
	// vehicle wins.
	if len(wl.Candidates) != 1 || wl.Candidates[0].Vehicle.ID != home.ID {
		t.Fatalf("candidates = %+v, want home vehicle for driver %d", wl.Candidates, driver.ID)
	}
	if len(wl.UnmatchedVehicles) != 1 || wl.UnmatchedVehicles[0].ID != foreign.ID {
		t.Errorf("unmatched vehicles = %+v, want foreign only", wl.UnmatchedVehicles)
	}
}

func TestAssignDriver(t *testing.T) {
	db := newTestDB(t)
	gangnam := makeBranch(t, db, "Gangnam")
	suwon := makeBranch(t, db, "Suwon")
	svc := NewPairingService(db)

	driver := makeUser(t, db, "drv@test.local", models.RoleDriver, &gangnam.ID)
	vehicle := models.Vehicle{VehicleNumber: "GN-01", Capacity: 3, BranchID: gangnam.ID}
	if err := db.Create(&vehicle).Error; err != nil {
		t.Fatalf("create vehicle: %v", err)
	}

	got, err := svc.AssignDriver(GlobalScope(), vehicle.ID, driver.ID)
	if err != nil {
		t.Fatalf("AssignDriver: %v", err)
	}
	if got.DriverID == nil || *got.DriverID != driver.ID {
		t.Errorf("driver id = %v", got.DriverID)
	}

	t.Run("vehicle already taken", func(t *testing.T) {
		other := makeUser(t, db, "drv2@test.local", models.RoleDriver, &gangnam.ID)
		if _, err := svc.AssignDriver(GlobalScope(), vehicle.ID, other.ID); !errors.Is(err, ErrVehicleTaken) {
			t.Errorf("err = %v, want ErrVehicleTaken", err)
		}
	})

	t.Run("driver already taken", func(t *testing.T) {
		second := models.Vehicle{VehicleNumber: "GN-02", Capacity: 3, BranchID: gangnam.ID}
		if err := db.Create(&second).Error; err != nil {
			t.Fatalf("create vehicle: %v", err)
		}
		if _, err := svc.AssignDriver(GlobalScope(), second.ID, driver.ID); !errors.Is(err, ErrDriverTaken) {
			t.Errorf("err = %v, want ErrDriverTaken", err)
		}
	})

	t.Run("branch mismatch", func(t *testing.T) {
		second := models.Vehicle{VehicleNumber: "GN-03", Capacity: 3, BranchID: gangnam.ID}
		if err := db.Create(&second).Error; err != nil {
			t.Fatalf("create vehicle: %v", err)
		}
		foreign := makeUser(t, db, "sw-drv@test.local", models.RoleDriver, &suwon.ID)
		if _, err := svc.AssignDriver(GlobalScope(), second.ID, foreign.ID); !errors.Is(err, ErrBranchMismatch) {
			t.Errorf("err = %v, want ErrBranchMismatch", err)
		}
	})

	t.Run("not a driver", func(t *testing.T) {
		second := models.Vehicle{VehicleNumber: "GN-04", Capacity: 3, BranchID: gangnam.ID}
		if err := db.Create(&second).Error; err != nil {
			t.Fatalf("create vehicle: %v", err)
		}
		admin := makeUser(t, db, "adm@test.local", models.RoleAdmin, &gangnam.ID)
		if _, err := svc.AssignDriver(GlobalScope(), second.ID, admin.ID); !errors.Is(err, ErrNotADriver) {
			t.Errorf("err = %v, want ErrNotADriver", err)
		}
	})

	t.Run("unassign frees both sides", func(t *testing.T) {
		freed, err := svc.UnassignDriver(GlobalScope(), vehicle.ID)
		if err != nil {
			t.Fatalf("UnassignDriver: %v", err)
		}
		if freed.DriverID != nil {
			t.Error("driver still attached")
		}

		second := models.Vehicle{VehicleNumber: "GN-05", Capacity: 3, BranchID: gangnam.ID}
		if err := db.Create(&second).Error; err != nil {
			t.Fatalf("create vehicle: %v", err)
		}
		if _, err := svc.AssignDriver(GlobalScope(), second.ID, driver.ID); err != nil {
			t.Errorf("reassign after unassign: %v", err)
		}
	})
}
