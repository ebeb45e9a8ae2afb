package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/utils"

	"gorm.io/gorm"
)

// RequestService manages special dispatch requests. Requests live in
// the database with their own identifiers and survive restarts, so an
// approval always references a concrete persisted record.
type RequestService struct {
	db *gorm.DB
}

func NewRequestService(db *gorm.DB) *RequestService {
	return &RequestService{db: db}
}

// CreateRequestInput carries a new special request.
type CreateRequestInput struct {
	RequestType string     `json:"request_type"`
	StudentIDs  []uint     `json:"student_ids"`
	Reason      string     `json:"reason"`
	Priority    string     `json:"priority"`
	RequestDate *time.Time `json:"request_date"`
	RequestTime string     `json:"request_time"`
}

// Create stores a pending special request for later review.
func (s *RequestService) Create(scope Scope, createdBy uint, in CreateRequestInput) (*models.SpecialRequest, error) {
	if !scope.CanMutate() {
		return nil, ErrAuthorization
	}
	if in.Reason == "" || len(in.StudentIDs) == 0 {
		return nil, ErrInvalidRequest
	}

	var count int64
	err := scope.ScopeStudents(s.db.Model(&models.Student{})).
		Where("id IN ?", in.StudentIDs).
		Count(&count).Error
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	if count != int64(len(in.StudentIDs)) {
		return nil, ErrNotFound
	}

	ids, err := json.Marshal(in.StudentIDs)
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	priority := in.Priority
	if priority == "" {
		priority = "normal"
	}
	var reqDate *time.Time
	if in.RequestDate != nil {
		d := utils.DateOnly(*in.RequestDate)
		reqDate = &d
	}

	req := models.SpecialRequest{
		RequestType: in.RequestType,
		StudentIDs:  models.JSON(ids),
		Reason:      utils.SanitizeString(in.Reason),
		Priority:    priority,
		RequestDate: reqDate,
		RequestTime: in.RequestTime,
		Status:      models.RequestPending,
		CreatedByID: createdBy,
	}
	if err := s.db.Create(&req).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	return &req, nil
}

// List returns requests visible to the scope, optionally filtered by
// status, newest first.
func (s *RequestService) List(scope Scope, status string) ([]models.SpecialRequest, error) {
	q := s.db.Model(&models.SpecialRequest{}).
		Preload("CreatedBy").
		Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var requests []models.SpecialRequest
	if err := q.Find(&requests).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	if scope.Role() == models.RoleMaster {
		return requests, nil
	}

	visible := requests[:0]
	for _, r := range requests {
		ids, err := r.StudentIDList()
		if err != nil {
			continue
		}
		if s.allStudentsVisible(scope, ids) {
			visible = append(visible, r)
		}
	}
	return visible, nil
}

// Resolve moves one pending request to approved or rejected. Resolved
// requests are immutable.
func (s *RequestService) Resolve(scope Scope, requestID uint, status string) (*models.SpecialRequest, error) {
	if !scope.CanMutate() {
		return nil, ErrAuthorization
	}
	if status != models.RequestApproved && status != models.RequestRejected {
		return nil, ErrInvalidRequest
	}

	var req models.SpecialRequest
	if err := s.db.First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	if req.Status != models.RequestPending {
		return nil, ErrRequestResolved
	}
	ids, err := req.StudentIDList()
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	if !s.allStudentsVisible(scope, ids) {
		return nil, ErrAuthorization
	}

	if err := s.db.Model(&req).Update("status", status).Error; err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	req.Status = status
	return &req, nil
}

func (s *RequestService) allStudentsVisible(scope Scope, ids []uint) bool {
	if len(ids) == 0 {
		return false
	}
	var count int64
	err := scope.ScopeStudents(s.db.Model(&models.Student{})).
		Where("id IN ?", ids).
		Count(&count).Error
	return err == nil && count == int64(len(ids))
}
