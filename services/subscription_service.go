package services

import (
	"errors"
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SubscriptionService tracks student eligibility windows: who may ride
// on a given date, whose window is about to close and how windows are
// extended.
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// IsEligibleForDispatch reports whether a student may be placed on a
// vehicle for the given date: approved status and a subscription window
// covering the date.
func (s *SubscriptionService) IsEligibleForDispatch(student *models.Student, asOf time.Time) bool {
	if student == nil || student.Status != models.StudentApproved {
		return false
	}
	if student.EndDate == nil {
		return false
	}
	return !utils.DateOnly(asOf).After(utils.DateOnly(*student.EndDate))
}

// ExpiringWithin returns the students whose end date falls inside
// [asOf, asOf+days], restricted to the operator's scope.
func (s *SubscriptionService) ExpiringWithin(scope Scope, days int, asOf time.Time) ([]models.Student, error) {
	from := utils.DateOnly(asOf)
	to := from.AddDate(0, 0, days)

	var students []models.Student
	err := scope.ScopeStudents(s.db.Model(&models.Student{})).
		Where("end_date IS NOT NULL AND end_date >= ? AND end_date <= ?", from, to).
		Preload("User").
		Order("end_date ASC, id ASC").
		Find(&students).Error
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	return students, nil
}

// Extend advances a student's subscription window by whole calendar
// months and increments the extension counter. Assignments are never
// touched. Fails with ErrNoStartWindow when no end date was ever set.
func (s *SubscriptionService) Extend(scope Scope, studentID uint, months int) (*models.Student, error) {
	if !scope.CanMutate() {
		return nil, ErrAuthorization
	}

	var student models.Student
	if err := s.db.Preload("User").First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	if !scope.AllowsStudent(&student) {
		return nil, ErrAuthorization
	}
	if student.EndDate == nil {
		return nil, ErrNoStartWindow
	}

	s.warnOnLabelMismatch(&student)

	newEnd := utils.AddMonths(*student.EndDate, months)
	updates := map[string]interface{}{
		"end_date":        newEnd,
		"extension_count": gorm.Expr("extension_count + 1"),
	}
	if err := s.db.Model(&student).Updates(updates).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	student.EndDate = &newEnd
	student.ExtensionCount++
	return &student, nil
}

// Approve moves a student to the approved status, making the student
// eligible for dispatch once a subscription window is present.
func (s *SubscriptionService) Approve(scope Scope, studentID uint) (*models.Student, error) {
	return s.setStatus(scope, studentID, models.StudentApproved)
}

// Reject moves a student to the rejected status.
func (s *SubscriptionService) Reject(scope Scope, studentID uint) (*models.Student, error) {
	return s.setStatus(scope, studentID, models.StudentRejected)
}

func (s *SubscriptionService) setStatus(scope Scope, studentID uint, status string) (*models.Student, error) {
	if !scope.CanMutate() {
		return nil, ErrAuthorization
	}

	var student models.Student
	if err := s.db.Preload("User").First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	if !scope.AllowsStudent(&student) {
		return nil, ErrAuthorization
	}

	if err := s.db.Model(&student).Update("status", status).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	student.Status = status
	return &student, nil
}

// warnOnLabelMismatch surfaces disagreement between the relational
// branch identifier and the denormalized branch label. The identifier
// always wins; the mismatch is a data-integrity problem to fix, not a
// signal to fall back on label matching.
func (s *SubscriptionService) warnOnLabelMismatch(student *models.Student) {
	if student.BranchName == "" {
		return
	}
	var branch models.Branch
	if err := s.db.First(&branch, student.BranchID).Error; err != nil {
		return
	}
	if branch.Name != student.BranchName {
		logrus.WithFields(logrus.Fields{
			"student_id":  student.ID,
			"branch_id":   student.BranchID,
			"branch_name": branch.Name,
			"label":       student.BranchName,
		}).Warn("Student branch label disagrees with branch id; using id")
	}
}
