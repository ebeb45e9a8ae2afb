package services

import (
	"errors"
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/middleware"
	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DispatchPlanner builds the day's roster: which student rides which
// vehicle and at which stop. A plan is produced per date and written
// atomically; repeat runs for the same date are rejected.
type DispatchPlanner struct {
	db   *gorm.DB
	subs *SubscriptionService
}

func NewDispatchPlanner(db *gorm.DB, subs *SubscriptionService) *DispatchPlanner {
	return &DispatchPlanner{db: db, subs: subs}
}

// PlanRequest selects the cohort for one planning run. Empty ClassName
// and TimeSlot mean every approved student in scope.
type PlanRequest struct {
	Date          time.Time
	ClassName     string
	TimeSlot      string
	ExcludeAbsent bool
}

// PlanResult summarizes one planning run.
type PlanResult struct {
	Date         time.Time                   `json:"date"`
	Assignments  []models.DispatchAssignment `json:"assignments"`
	Placed       int                         `json:"placed"`
	Unplaced     int                         `json:"unplaced"`
	UsedVehicles int                         `json:"used_vehicles"`
}

// seatPlan is one placement decision before it is persisted.
type seatPlan struct {
	StudentID uint
	VehicleID uint
	StopOrder int
}

// planSeats fills vehicles one by one, seat by seat, walking the
// student list in id order. Students left over when every seat is taken
// stay unplaced. Pure function so the placement rules can be tested
// without a database.
func planSeats(students []models.Student, vehicles []models.Vehicle) ([]seatPlan, int) {
	var plans []seatPlan
	next := 0
	for _, v := range vehicles {
		if v.Capacity <= 0 {
			continue
		}
		for order := 1; order <= v.Capacity && next < len(students); order++ {
			plans = append(plans, seatPlan{
				StudentID: students[next].ID,
				VehicleID: v.ID,
				StopOrder: order,
			})
			next++
		}
		if next >= len(students) {
			break
		}
	}
	return plans, len(students) - next
}

// CreateDispatch plans and persists the roster for one date.
// Preconditions are checked in a fixed order: an existing roster for
// the date wins over missing students, which wins over missing
// vehicles.
func (p *DispatchPlanner) CreateDispatch(scope Scope, req PlanRequest) (*PlanResult, error) {
	if !scope.CanMutate() {
		return nil, ErrAuthorization
	}
	day := utils.DateOnly(req.Date)

	vehicleIDs, err := scopedVehicleIDs(p.db, scope)
	if err != nil {
		return nil, err
	}

	var (
		assignments []models.DispatchAssignment
		unplaced    int
		usedCount   int
	)
	// The duplicate check and the insert share one transaction so a
	// concurrent run for the same date cannot slip between them.
	err = p.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		dup := tx.Model(&models.DispatchAssignment{}).Where("dispatch_date = ?", day)
		if len(vehicleIDs) > 0 {
			dup = dup.Where("vehicle_id IN ?", vehicleIDs)
		} else if scope.Role() != models.RoleMaster {
			dup = dup.Where("1 = 0")
		}
		if err := dup.Count(&existing).Error; err != nil {
			return errors.Join(ErrPersistence, err)
		}
		if existing > 0 {
			return ErrDuplicateDispatch
		}

		students, err := p.eligibleStudents(tx, scope, day, req)
		if err != nil {
			return err
		}
		if len(students) == 0 {
			return ErrNoEligibleStudents
		}

		var vehicles []models.Vehicle
		err = scope.ScopeVehicles(tx.Model(&models.Vehicle{})).
			Where("driver_id IS NOT NULL").
			Order("id ASC").
			Find(&vehicles).Error
		if err != nil {
			return errors.Join(ErrPersistence, err)
		}
		if len(vehicles) == 0 {
			return ErrNoAvailableVehicle
		}

		plans, overflow := planSeats(students, vehicles)
		unplaced = overflow

		used := make(map[uint]bool)
		assignments = make([]models.DispatchAssignment, 0, len(plans))
		for _, pl := range plans {
			used[pl.VehicleID] = true
			assignments = append(assignments, models.DispatchAssignment{
				DispatchDate: day,
				StudentID:    pl.StudentID,
				VehicleID:    pl.VehicleID,
				StopOrder:    pl.StopOrder,
				Status:       models.DispatchAssigned,
			})
		}
		usedCount = len(used)

		if err := tx.Create(&assignments).Error; err != nil {
			return errors.Join(ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.DispatchCreatedTotal.Add(float64(len(assignments)))
	logrus.WithFields(logrus.Fields{
		"date":     day.Format("2006-01-02"),
		"placed":   len(assignments),
		"unplaced": unplaced,
	}).Info("Dispatch roster created")

	return &PlanResult{
		Date:         day,
		Assignments:  assignments,
		Placed:       len(assignments),
		Unplaced:     unplaced,
		UsedVehicles: usedCount,
	}, nil
}

// eligibleStudents returns approved students whose subscription covers
// the date, narrowed by the cohort filters, in id order, minus those
// marked absent when requested.
func (p *DispatchPlanner) eligibleStudents(tx *gorm.DB, scope Scope, day time.Time, req PlanRequest) ([]models.Student, error) {
	q := scope.ScopeStudents(tx.Model(&models.Student{})).
		Where("status = ?", models.StudentApproved).
		Where("end_date IS NOT NULL AND end_date >= ?", day)
	if req.ClassName != "" {
		q = q.Where("class_name = ?", req.ClassName)
	}
	if req.TimeSlot != "" {
		q = q.Where("time_slot = ?", req.TimeSlot)
	}

	var students []models.Student
	if err := q.Order("id ASC").Find(&students).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	if !req.ExcludeAbsent || len(students) == 0 {
		return students, nil
	}

	var absentIDs []uint
	err := tx.Model(&models.AbsenceRecord{}).
		Where("absence_date = ?", day).
		Pluck("student_id", &absentIDs).Error
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	if len(absentIDs) == 0 {
		return students, nil
	}

	absent := make(map[uint]bool, len(absentIDs))
	for _, id := range absentIDs {
		absent[id] = true
	}
	filtered := students[:0]
	for _, st := range students {
		if !absent[st.ID] {
			filtered = append(filtered, st)
		}
	}
	return filtered, nil
}

// statusRank orders the forward-only lifecycle. Cancelled sits outside
// the forward chain and is handled separately.
var statusRank = map[string]int{
	models.DispatchAssigned:   1,
	models.DispatchInProgress: 2,
	models.DispatchCompleted:  3,
}

// allowedTransition reports whether a status change is legal. Forward
// jumps are fine; going backwards is not, and completed or cancelled
// assignments never change again.
func allowedTransition(from, to string) bool {
	if from == to {
		return false
	}
	if from == models.DispatchCompleted || from == models.DispatchCancelled {
		return false
	}
	if to == models.DispatchCancelled {
		return from == models.DispatchAssigned || from == models.DispatchInProgress
	}
	fr, fok := statusRank[from]
	tr, tok := statusRank[to]
	return fok && tok && tr > fr
}

// UpdateStatus moves one assignment through its lifecycle.
func (p *DispatchPlanner) UpdateStatus(scope Scope, assignmentID uint, status string) (*models.DispatchAssignment, error) {
	if !scope.CanMutate() {
		return nil, ErrAuthorization
	}
	if !utils.IsValidDispatchStatus(status) {
		return nil, ErrInvalidTransition
	}

	var assignment models.DispatchAssignment
	if err := p.db.Preload("Vehicle").First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	if assignment.Vehicle.ID != 0 && !scope.AllowsVehicle(&assignment.Vehicle) {
		return nil, ErrAuthorization
	}
	if !allowedTransition(assignment.Status, status) {
		return nil, ErrInvalidTransition
	}

	if err := p.db.Model(&assignment).Update("status", status).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	assignment.Status = status
	return &assignment, nil
}

// DeleteDispatch removes the whole roster for a date within the
// operator's scope and reports how many rows went away. A later
// CreateDispatch for the same date starts clean.
func (p *DispatchPlanner) DeleteDispatch(scope Scope, date time.Time) (int64, error) {
	if !scope.CanMutate() {
		return 0, ErrAuthorization
	}
	day := utils.DateOnly(date)

	vehicleIDs, err := scopedVehicleIDs(p.db, scope)
	if err != nil {
		return 0, err
	}

	// Hard delete: the composite unique indexes cover soft-deleted
	// rows too, and a recreated roster must be able to reuse them.
	q := p.db.Unscoped().Where("dispatch_date = ?", day)
	if len(vehicleIDs) > 0 {
		q = q.Where("vehicle_id IN ?", vehicleIDs)
	} else if scope.Role() != models.RoleMaster {
		return 0, nil
	}

	res := q.Delete(&models.DispatchAssignment{})
	if res.Error != nil {
		return 0, errors.Join(ErrPersistence, res.Error)
	}
	if res.RowsAffected > 0 {
		middleware.DispatchDeletedTotal.Add(float64(res.RowsAffected))
	}
	return res.RowsAffected, nil
}
