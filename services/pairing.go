package services

import (
	"errors"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PairingService matches drivers without a vehicle to vehicles without
// a driver. Pairing works off an explicit worklist so an operator can
// review the proposed matches before applying them.
type PairingService struct {
	db *gorm.DB
}

func NewPairingService(db *gorm.DB) *PairingService {
	return &PairingService{db: db}
}

// PairingCandidate is one proposed driver/vehicle match.
type PairingCandidate struct {
	Driver  models.User    `json:"driver"`
	Vehicle models.Vehicle `json:"vehicle"`
}

// Worklist lists the unmatched drivers and vehicles of the scope along
// with the matches pairing would make. Drivers take a free vehicle of
// their own branch first, then the first free vehicle of any branch,
// in id order; leftovers on either side stay listed so the operator
// can see what cannot be paired.
type Worklist struct {
	Candidates        []PairingCandidate `json:"candidates"`
	UnmatchedDrivers  []models.User      `json:"unmatched_drivers"`
	UnmatchedVehicles []models.Vehicle   `json:"unmatched_vehicles"`
}

// BuildWorklist computes the pairing proposal without writing anything.
func (s *PairingService) BuildWorklist(scope Scope) (*Worklist, error) {
	drivers, err := s.unassignedDrivers(scope)
	if err != nil {
		return nil, err
	}

	var vehicles []models.Vehicle
	err = scope.ScopeVehicles(s.db.Model(&models.Vehicle{})).
		Where("driver_id IS NULL").
		Order("id ASC").
		Find(&vehicles).Error
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	wl := &Worklist{}
	usedVehicle := make(map[uint]bool)
	for _, d := range drivers {
		pick := -1
		fallback := -1
		for i := range vehicles {
			if usedVehicle[vehicles[i].ID] {
				continue
			}
			if d.DriverBranchID != nil && vehicles[i].BranchID == *d.DriverBranchID {
				pick = i
				break
			}
			if fallback == -1 {
				fallback = i
			}
		}
		if pick == -1 {
			pick = fallback
		}
		if pick == -1 {
			wl.UnmatchedDrivers = append(wl.UnmatchedDrivers, d)
			continue
		}
		wl.Candidates = append(wl.Candidates, PairingCandidate{Driver: d, Vehicle: vehicles[pick]})
		usedVehicle[vehicles[pick].ID] = true
	}
	for _, v := range vehicles {
		if !usedVehicle[v.ID] {
			wl.UnmatchedVehicles = append(wl.UnmatchedVehicles, v)
		}
	}
	return wl, nil
}

// Apply writes the worklist's matches in one transaction and returns
// how many vehicles received a driver.
func (s *PairingService) Apply(scope Scope, wl *Worklist) (int, error) {
	if !scope.CanMutate() {
		return 0, ErrAuthorization
	}
	if wl == nil || len(wl.Candidates) == 0 {
		return 0, nil
	}

	applied := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, c := range wl.Candidates {
			res := tx.Model(&models.Vehicle{}).
				Where("id = ? AND driver_id IS NULL", c.Vehicle.ID).
				Update("driver_id", c.Driver.ID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				applied++
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.Join(ErrPersistence, err)
	}

	logrus.WithField("paired", applied).Info("Driver pairing applied")
	return applied, nil
}

// AutoPair builds and immediately applies the worklist.
func (s *PairingService) AutoPair(scope Scope) (*Worklist, int, error) {
	if !scope.CanMutate() {
		return nil, 0, ErrAuthorization
	}
	wl, err := s.BuildWorklist(scope)
	if err != nil {
		return nil, 0, err
	}
	applied, err := s.Apply(scope, wl)
	if err != nil {
		return nil, 0, err
	}
	return wl, applied, nil
}

// AssignDriver pairs one specific driver with one specific vehicle.
// The driver must hold the driver role and belong to the vehicle's
// branch, and neither side may already be paired.
func (s *PairingService) AssignDriver(scope Scope, vehicleID, driverID uint) (*models.Vehicle, error) {
	if !scope.CanMutate() {
		return nil, ErrAuthorization
	}

	var vehicle models.Vehicle
	if err := s.db.First(&vehicle, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	if !scope.AllowsVehicle(&vehicle) {
		return nil, ErrAuthorization
	}
	if vehicle.DriverID != nil {
		return nil, ErrVehicleTaken
	}

	var driver models.User
	if err := s.db.First(&driver, driverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	if driver.Role != models.RoleDriver {
		return nil, ErrNotADriver
	}
	if driver.DriverBranchID == nil || *driver.DriverBranchID != vehicle.BranchID {
		return nil, ErrBranchMismatch
	}

	var taken int64
	err := s.db.Model(&models.Vehicle{}).
		Where("driver_id = ?", driver.ID).
		Count(&taken).Error
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	if taken > 0 {
		return nil, ErrDriverTaken
	}

	if err := s.db.Model(&vehicle).Update("driver_id", driver.ID).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	vehicle.DriverID = &driver.ID
	vehicle.Driver = &driver
	return &vehicle, nil
}

// UnassignDriver detaches a vehicle's driver.
func (s *PairingService) UnassignDriver(scope Scope, vehicleID uint) (*models.Vehicle, error) {
	if !scope.CanMutate() {
		return nil, ErrAuthorization
	}

	var vehicle models.Vehicle
	if err := s.db.First(&vehicle, vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	if !scope.AllowsVehicle(&vehicle) {
		return nil, ErrAuthorization
	}

	if err := s.db.Model(&vehicle).Update("driver_id", nil).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	vehicle.DriverID = nil
	vehicle.Driver = nil
	return &vehicle, nil
}

// unassignedDrivers returns driver users without a vehicle, visible to
// the scope, in id order.
func (s *PairingService) unassignedDrivers(scope Scope) ([]models.User, error) {
	q := s.db.Model(&models.User{}).
		Where("role = ?", models.RoleDriver).
		Where("id NOT IN (?)", s.db.Model(&models.Vehicle{}).
			Select("driver_id").Where("driver_id IS NOT NULL")).
		Order("id ASC")
	if scope.Role() == models.RoleAdmin {
		var branchIDs []uint
		if err := scope.ScopeVehicles(s.db.Model(&models.Vehicle{})).
			Distinct("branch_id").Pluck("branch_id", &branchIDs).Error; err != nil {
			return nil, errors.Join(ErrPersistence, err)
		}
		if len(branchIDs) == 0 {
			return nil, nil
		}
		q = q.Where("driver_branch_id IN ?", branchIDs)
	} else if scope.Role() != models.RoleMaster {
		return nil, nil
	}

	var drivers []models.User
	if err := q.Find(&drivers).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	return drivers, nil
}
