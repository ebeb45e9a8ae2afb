package services

import (
	"errors"
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"gorm.io/gorm"
)

// DispatchQueryService answers read queries over the roster: the full
// picture of one date, the set of dates that have rosters, and
// per-date history summaries.
type DispatchQueryService struct {
	db *gorm.DB
}

func NewDispatchQueryService(db *gorm.DB) *DispatchQueryService {
	return &DispatchQueryService{db: db}
}

// VehicleRoster is one vehicle's slice of a date's roster, assignments
// in stop order.
type VehicleRoster struct {
	Vehicle     models.Vehicle              `json:"vehicle"`
	Assignments []models.DispatchAssignment `json:"assignments"`
}

// DateRoster is everything planned for one date.
type DateRoster struct {
	Date     time.Time       `json:"date"`
	Vehicles []VehicleRoster `json:"vehicles"`
	Total    int             `json:"total"`
}

// HistoryEntry summarizes one past roster date. ByClass counts placed
// students per class label.
type HistoryEntry struct {
	Date      time.Time      `json:"date"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Cancelled int            `json:"cancelled"`
	Vehicles  int            `json:"vehicles"`
	ByClass   map[string]int `json:"by_class,omitempty"`
}

// ListForDate returns the roster for one date grouped by vehicle, in
// vehicle id then stop order.
func (s *DispatchQueryService) ListForDate(scope Scope, date time.Time) (*DateRoster, error) {
	day := utils.DateOnly(date)

	vehicleIDs, err := scopedVehicleIDs(s.db, scope)
	if err != nil {
		return nil, err
	}

	q := s.db.Model(&models.DispatchAssignment{}).
		Where("dispatch_date = ?", day).
		Preload("Student").
		Preload("Student.User").
		Preload("Vehicle").
		Preload("Vehicle.Driver").
		Order("vehicle_id ASC, stop_order ASC")
	if len(vehicleIDs) > 0 {
		q = q.Where("vehicle_id IN ?", vehicleIDs)
	} else if scope.Role() != models.RoleMaster {
		return &DateRoster{Date: day}, nil
	}

	var assignments []models.DispatchAssignment
	if err := q.Find(&assignments).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	roster := &DateRoster{Date: day, Total: len(assignments)}
	for _, a := range assignments {
		n := len(roster.Vehicles)
		if n == 0 || roster.Vehicles[n-1].Vehicle.ID != a.VehicleID {
			roster.Vehicles = append(roster.Vehicles, VehicleRoster{Vehicle: a.Vehicle})
			n++
		}
		roster.Vehicles[n-1].Assignments = append(roster.Vehicles[n-1].Assignments, a)
	}
	return roster, nil
}

// Dates returns the distinct dates that have at least one assignment
// visible to the scope, newest first.
func (s *DispatchQueryService) Dates(scope Scope) ([]time.Time, error) {
	vehicleIDs, err := scopedVehicleIDs(s.db, scope)
	if err != nil {
		return nil, err
	}

	q := s.db.Model(&models.DispatchAssignment{}).Distinct("dispatch_date")
	if len(vehicleIDs) > 0 {
		q = q.Where("vehicle_id IN ?", vehicleIDs)
	} else if scope.Role() != models.RoleMaster {
		return nil, nil
	}

	var dates []time.Time
	if err := q.Order("dispatch_date DESC").Pluck("dispatch_date", &dates).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	for i := range dates {
		dates[i] = utils.DateOnly(dates[i])
	}
	return dates, nil
}

// History returns per-date summaries for rosters inside [from, to],
// newest first. Zero bounds are open on that side.
func (s *DispatchQueryService) History(scope Scope, from, to time.Time) ([]HistoryEntry, error) {
	vehicleIDs, err := scopedVehicleIDs(s.db, scope)
	if err != nil {
		return nil, err
	}

	ranged := func(q *gorm.DB) *gorm.DB {
		if !from.IsZero() {
			q = q.Where("dispatch_date >= ?", utils.DateOnly(from))
		}
		if !to.IsZero() {
			q = q.Where("dispatch_date <= ?", utils.DateOnly(to))
		}
		if len(vehicleIDs) > 0 {
			q = q.Where("dispatch_assignments.vehicle_id IN ?", vehicleIDs)
		}
		return q
	}
	if len(vehicleIDs) == 0 && scope.Role() != models.RoleMaster {
		return nil, nil
	}

	type row struct {
		DispatchDate time.Time
		Total        int
		Completed    int
		Cancelled    int
		Vehicles     int
	}
	var rows []row
	err = ranged(s.db.Model(&models.DispatchAssignment{})).
		Select("dispatch_date, COUNT(*) AS total, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS cancelled, "+
			"COUNT(DISTINCT vehicle_id) AS vehicles",
			models.DispatchCompleted, models.DispatchCancelled).
		Group("dispatch_date").
		Order("dispatch_date DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	// Class labels come off the student rows; the relational student id
	// is the join key.
	type classRow struct {
		DispatchDate time.Time
		ClassName    string
		Count        int
	}
	var classRows []classRow
	err = ranged(s.db.Model(&models.DispatchAssignment{})).
		Select("dispatch_date, students.class_name AS class_name, COUNT(*) AS count").
		Joins("JOIN students ON students.id = dispatch_assignments.student_id").
		Group("dispatch_date, students.class_name").
		Scan(&classRows).Error
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	byClass := make(map[time.Time]map[string]int)
	for _, cr := range classRows {
		day := utils.DateOnly(cr.DispatchDate)
		if byClass[day] == nil {
			byClass[day] = make(map[string]int)
		}
		byClass[day][cr.ClassName] = cr.Count
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		day := utils.DateOnly(r.DispatchDate)
		entries = append(entries, HistoryEntry{
			Date:      day,
			Total:     r.Total,
			Completed: r.Completed,
			Cancelled: r.Cancelled,
			Vehicles:  r.Vehicles,
			ByClass:   byClass[day],
		})
	}
	return entries, nil
}

// Get returns one assignment by id if the scope can see its vehicle.
func (s *DispatchQueryService) Get(scope Scope, assignmentID uint) (*models.DispatchAssignment, error) {
	var assignment models.DispatchAssignment
	err := s.db.Preload("Student").Preload("Vehicle").First(&assignment, assignmentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	if !scope.AllowsVehicle(&assignment.Vehicle) {
		return nil, ErrAuthorization
	}
	return &assignment, nil
}
