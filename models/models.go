package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		// sqlite and some mysql configurations hand TEXT columns
		// back as string.
		*j = append((*j)[0:0], v...)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// User roles
const (
	RoleMaster  = "master"
	RoleAdmin   = "admin"
	RoleDriver  = "driver"
	RoleStudent = "student"
)

// Student subscription statuses
const (
	StudentPending  = "pending"
	StudentApproved = "approved"
	StudentRejected = "rejected"
)

// Dispatch assignment statuses
const (
	DispatchAssigned   = "assigned"
	DispatchInProgress = "in_progress"
	DispatchCompleted  = "completed"
	DispatchCancelled  = "cancelled"
)

// Special request statuses
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// Branch model
type Branch struct {
	BaseModel
	Name string `json:"name" gorm:"size:100;not null;uniqueIndex"`

	// Relationships
	Classes  []Class   `json:"classes,omitempty" gorm:"foreignKey:BranchID"`
	Vehicles []Vehicle `json:"vehicles,omitempty" gorm:"foreignKey:BranchID"`
	Students []Student `json:"students,omitempty" gorm:"foreignKey:BranchID"`
	Admins   []User    `json:"admins,omitempty" gorm:"foreignKey:BranchID"`
	Drivers  []User    `json:"drivers,omitempty" gorm:"foreignKey:DriverBranchID"`
}

// User model. BranchID scopes branch admins; DriverBranchID scopes
// drivers. The two associations are deliberately separate fields
// because admins and drivers join a branch through different workflows.
type User struct {
	BaseModel
	Email    string `json:"email" gorm:"size:100;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	Name     string `json:"name" gorm:"size:50;not null"`
	Phone    string `json:"phone" gorm:"size:20"`
	Role     string `json:"role" gorm:"size:20;not null;default:'student'"` // master, admin, driver, student

	BranchID       *uint `json:"branch_id"`
	DriverBranchID *uint `json:"driver_branch_id"`

	// Relationships
	Branch  *Branch  `json:"branch,omitempty" gorm:"foreignKey:BranchID"`
	Vehicle *Vehicle `json:"vehicle,omitempty" gorm:"foreignKey:DriverID"`
}

// Student model. BranchID is the single relational source of truth;
// BranchName, ClassName and TimeSlot are display labels denormalized at
// registration time and never used for authorization or counting.
type Student struct {
	BaseModel
	UserID   uint `json:"user_id" gorm:"not null;index"`
	BranchID uint `json:"branch_id" gorm:"not null;index"`

	BranchName       string `json:"branch_name" gorm:"size:100"`
	ClassName        string `json:"class_name" gorm:"size:100"`
	TimeSlot         string `json:"time_slot" gorm:"size:50"`
	Address          string `json:"address" gorm:"size:200"`
	EmergencyContact string `json:"emergency_contact" gorm:"size:20"`

	Status         string     `json:"status" gorm:"size:20;default:'pending'"` // pending, approved, rejected
	StartDate      *time.Time `json:"start_date" gorm:"type:date"`
	EndDate        *time.Time `json:"end_date" gorm:"type:date"`
	ExtensionCount int        `json:"extension_count" gorm:"default:0"`

	// Relationships
	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Branch Branch `json:"branch,omitempty" gorm:"foreignKey:BranchID"`
}

// Class model. Durations holds the permitted subscription lengths in
// months as a comma separated list, e.g. "1,3,6".
type Class struct {
	BaseModel
	Name      string `json:"name" gorm:"size:100;not null"`
	BranchID  uint   `json:"branch_id" gorm:"not null;index"`
	Durations string `json:"durations" gorm:"size:100"`

	// Relationships
	Branch    Branch     `json:"branch,omitempty" gorm:"foreignKey:BranchID"`
	TimeSlots []TimeSlot `json:"time_slots,omitempty" gorm:"foreignKey:ClassID"`
}

// TimeSlot model. Time is either a start time ("08:00") or a
// start~end range ("08:00~10:00").
type TimeSlot struct {
	BaseModel
	Time    string `json:"time" gorm:"size:50;not null"`
	ClassID uint   `json:"class_id" gorm:"not null;index"`

	// Relationships
	Class Class `json:"class,omitempty" gorm:"foreignKey:ClassID"`
}

// StartTime returns the start portion of the slot label.
func (ts TimeSlot) StartTime() string {
	if i := strings.Index(ts.Time, "~"); i >= 0 {
		return ts.Time[:i]
	}
	return ts.Time
}

// EndTime returns the end portion of the slot label, or "" for a
// start-only slot.
func (ts TimeSlot) EndTime() string {
	if i := strings.Index(ts.Time, "~"); i >= 0 {
		return ts.Time[i+1:]
	}
	return ""
}

// DisplayTime returns the slot label formatted for presentation.
func (ts TimeSlot) DisplayTime() string {
	if i := strings.Index(ts.Time, "~"); i >= 0 {
		return ts.Time[:i] + " ~ " + ts.Time[i+1:]
	}
	return ts.Time
}

// Vehicle model. A vehicle with no driver is not eligible for dispatch.
type Vehicle struct {
	BaseModel
	VehicleNumber string `json:"vehicle_number" gorm:"size:50;not null;uniqueIndex"`
	Capacity      int    `json:"capacity" gorm:"not null"`
	BranchID      uint   `json:"branch_id" gorm:"not null;index"`
	DriverID      *uint  `json:"driver_id" gorm:"index"`

	// Relationships
	Branch Branch `json:"branch,omitempty" gorm:"foreignKey:BranchID"`
	Driver *User  `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// DispatchAssignment is the core scheduling record. The two composite
// unique indexes enforce one assignment per student per date and unique
// stop orders per vehicle per date, so a concurrent create for the same
// date fails as a constraint violation instead of inserting duplicates.
type DispatchAssignment struct {
	BaseModel
	DispatchDate time.Time `json:"dispatch_date" gorm:"type:date;not null;uniqueIndex:idx_dispatch_student;uniqueIndex:idx_dispatch_vehicle_stop"`
	StudentID    uint      `json:"student_id" gorm:"not null;uniqueIndex:idx_dispatch_student"`
	VehicleID    uint      `json:"vehicle_id" gorm:"not null;uniqueIndex:idx_dispatch_vehicle_stop"`
	StopOrder    int       `json:"stop_order" gorm:"not null;default:1;uniqueIndex:idx_dispatch_vehicle_stop"`
	Status       string    `json:"status" gorm:"size:20;default:'assigned'"` // assigned, in_progress, completed, cancelled

	PickupTime  *time.Time `json:"pickup_time"`
	ArrivalTime *time.Time `json:"arrival_time"`
	Notes       string     `json:"notes" gorm:"type:text"`

	// Relationships
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Vehicle Vehicle `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
}

// AbsenceRecord marks a student absent for one service date, removing
// the student from that date's planning entirely.
type AbsenceRecord struct {
	BaseModel
	StudentID   uint      `json:"student_id" gorm:"not null;uniqueIndex:idx_absence_student_date"`
	AbsenceDate time.Time `json:"absence_date" gorm:"type:date;not null;uniqueIndex:idx_absence_student_date;index"`
	Reason      string    `json:"reason" gorm:"size:200"`

	// Relationships
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// SpecialRequest is a persisted ad-hoc dispatch request with its own
// identifier and lifecycle.
type SpecialRequest struct {
	BaseModel
	RequestType string     `json:"request_type" gorm:"size:50;not null"`
	StudentIDs  JSON       `json:"student_ids" gorm:"type:json"`
	Reason      string     `json:"reason" gorm:"size:200;not null"`
	Priority    string     `json:"priority" gorm:"size:20;default:'normal'"`
	RequestDate *time.Time `json:"request_date" gorm:"type:date"`
	RequestTime string     `json:"request_time" gorm:"size:20"`
	Status      string     `json:"status" gorm:"size:20;default:'pending'"` // pending, approved, rejected
	CreatedByID uint       `json:"created_by_id" gorm:"not null"`

	// Relationships
	CreatedBy User `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID"`
}

// StudentIDList decodes the JSON id column.
func (r SpecialRequest) StudentIDList() ([]uint, error) {
	if r.StudentIDs.IsNull() {
		return nil, nil
	}
	var ids []uint
	if err := json.Unmarshal(r.StudentIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Notification model
type Notification struct {
	BaseModel
	UserID  uint       `json:"user_id" gorm:"not null;index"`
	Title   string     `json:"title" gorm:"size:255;not null"`
	Message string     `json:"message" gorm:"type:text;not null"`
	Type    string     `json:"type" gorm:"size:50;not null"` // info, warning, error, success
	Read    bool       `json:"read" gorm:"default:false"`
	ReadAt  *time.Time `json:"read_at"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// LogArchive model for tracking archived logs
type LogArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending'"` // pending, completed, failed
	Error       string    `json:"error" gorm:"type:text"`
}
