package services

import (
	"errors"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"

	"gorm.io/gorm"
)

// Scope is the capability set of an authenticated operator. One
// implementation per role replaces per-call-site role string checks:
// the Allows* methods answer point authorization questions and the
// Scope* methods narrow queries to the rows the operator may see.
// Decisions are made on branch identifiers only, never on denormalized
// name labels.
type Scope interface {
	Role() string

	// CanMutate reports whether the operator may create, update or
	// delete dispatch state. Drivers and students are read-only.
	CanMutate() bool

	AllowsStudent(s *models.Student) bool
	AllowsVehicle(v *models.Vehicle) bool
	AllowsClass(cl *models.Class) bool
	AllowsBranch(branchID uint) bool

	ScopeStudents(tx *gorm.DB) *gorm.DB
	ScopeVehicles(tx *gorm.DB) *gorm.DB
	ScopeClasses(tx *gorm.DB) *gorm.DB
}

// ScopeForUser resolves the scope variant for a user. Drivers get their
// active vehicle loaded; a driver without a vehicle can see nothing.
func ScopeForUser(db *gorm.DB, user *models.User) Scope {
	switch user.Role {
	case models.RoleMaster:
		return globalScope{}
	case models.RoleAdmin:
		if user.BranchID == nil {
			return deniedScope{role: models.RoleAdmin}
		}
		return branchScope{branchID: *user.BranchID}
	case models.RoleDriver:
		var vehicle models.Vehicle
		if err := db.Where("driver_id = ?", user.ID).First(&vehicle).Error; err != nil {
			return deniedScope{role: models.RoleDriver}
		}
		return driverScope{vehicle: vehicle}
	default:
		return deniedScope{role: user.Role}
	}
}

// globalScope is the master operator: everything is visible.
type globalScope struct{}

func (globalScope) Role() string { return models.RoleMaster }
func (globalScope) CanMutate() bool { return true }
func (globalScope) AllowsStudent(*models.Student) bool { return true }
func (globalScope) AllowsVehicle(*models.Vehicle) bool { return true }
func (globalScope) AllowsClass(*models.Class) bool { return true }
func (globalScope) AllowsBranch(uint) bool { return true }
func (globalScope) ScopeStudents(tx *gorm.DB) *gorm.DB { return tx }
func (globalScope) ScopeVehicles(tx *gorm.DB) *gorm.DB { return tx }
func (globalScope) ScopeClasses(tx *gorm.DB) *gorm.DB { return tx }

// branchScope is a branch admin: rows of exactly one branch.
type branchScope struct {
	branchID uint
}

func (branchScope) Role() string { return models.RoleAdmin }
func (branchScope) CanMutate() bool { return true }

func (s branchScope) AllowsStudent(st *models.Student) bool {
	return st != nil && st.BranchID == s.branchID
}

func (s branchScope) AllowsVehicle(v *models.Vehicle) bool {
	return v != nil && v.BranchID == s.branchID
}

func (s branchScope) AllowsClass(cl *models.Class) bool {
	return cl != nil && cl.BranchID == s.branchID
}

func (s branchScope) AllowsBranch(branchID uint) bool {
	return branchID == s.branchID
}

func (s branchScope) ScopeStudents(tx *gorm.DB) *gorm.DB {
	return tx.Where("branch_id = ?", s.branchID)
}

func (s branchScope) ScopeVehicles(tx *gorm.DB) *gorm.DB {
	return tx.Where("branch_id = ?", s.branchID)
}

func (s branchScope) ScopeClasses(tx *gorm.DB) *gorm.DB {
	return tx.Where("branch_id = ?", s.branchID)
}

// driverScope is a driver with an active vehicle: own vehicle, plus
// students of the vehicle's branch. Read-only.
type driverScope struct {
	vehicle models.Vehicle
}

func (driverScope) Role() string { return models.RoleDriver }
func (driverScope) CanMutate() bool { return false }

func (s driverScope) AllowsStudent(st *models.Student) bool {
	return st != nil && st.BranchID == s.vehicle.BranchID
}

func (s driverScope) AllowsVehicle(v *models.Vehicle) bool {
	return v != nil && v.ID == s.vehicle.ID
}

func (driverScope) AllowsClass(*models.Class) bool { return false }
func (driverScope) AllowsBranch(uint) bool { return false }

func (s driverScope) ScopeStudents(tx *gorm.DB) *gorm.DB {
	return tx.Where("branch_id = ?", s.vehicle.BranchID)
}

func (s driverScope) ScopeVehicles(tx *gorm.DB) *gorm.DB {
	return tx.Where("id = ?", s.vehicle.ID)
}

func (driverScope) ScopeClasses(tx *gorm.DB) *gorm.DB {
	return tx.Where("1 = 0")
}

// deniedScope rejects everything; used for unknown roles and for roles
// missing their required association.
type deniedScope struct {
	role string
}

func (s deniedScope) Role() string { return s.role }
func (deniedScope) CanMutate() bool { return false }
func (deniedScope) AllowsStudent(*models.Student) bool { return false }
func (deniedScope) AllowsVehicle(*models.Vehicle) bool { return false }
func (deniedScope) AllowsClass(*models.Class) bool { return false }
func (deniedScope) AllowsBranch(uint) bool { return false }
func (deniedScope) ScopeStudents(tx *gorm.DB) *gorm.DB { return tx.Where("1 = 0") }
func (deniedScope) ScopeVehicles(tx *gorm.DB) *gorm.DB { return tx.Where("1 = 0") }
func (deniedScope) ScopeClasses(tx *gorm.DB) *gorm.DB { return tx.Where("1 = 0") }

// GlobalScope returns the master scope. Background jobs use it.
func GlobalScope() Scope { return globalScope{} }

// BranchScopeFor returns an admin scope pinned to one branch.
func BranchScopeFor(branchID uint) Scope { return branchScope{branchID: branchID} }

// scopedVehicleIDs collects the vehicle identifiers visible to the
// scope. The per-date duplicate check and the bulk delete both key on
// this set, mirroring how assignments are owned through vehicles.
func scopedVehicleIDs(tx *gorm.DB, scope Scope) ([]uint, error) {
	var ids []uint
	if err := scope.ScopeVehicles(tx.Model(&models.Vehicle{})).Pluck("id", &ids).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	return ids, nil
}
