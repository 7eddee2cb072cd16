package model

import "time"

const (
	RoleStaff = "staff"
	RoleHR    = "hr"
	RoleAdmin = "admin"
)

const (
	WeekPending  = "PENDING"
	WeekApproved = "APPROVED"
)

const (
	AuditAdjust  = "ADJUST"
	AuditApprove = "APPROVE"
	AuditUnlock  = "UNLOCK"
)

const (
	SourceMobile  = "mobile"
	SourceWeb     = "web"
	SourceUnknown = "unknown"
)

// Staff is the slice of the employee record the time keeping module reads:
// login identity, display name, role and employment category.
type Staff struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64" json:"username"`
	Password  string    `json:"-"`
	Name      string    `gorm:"size:128" json:"name"`
	Role      string    `gorm:"size:16;default:staff" json:"role"`
	Category  string    `gorm:"size:32" json:"category"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceEvent is one check-in/check-out session.
// OpenStaffID carries StaffID while the session is open and is NULL once it
// is closed; its unique index allows a single open session per staff member.
type AttendanceEvent struct {
	ID               string    `gorm:"primaryKey;size:36"`
	StaffID          string    `gorm:"size:36;not null;index:idx_attendance_staff_in,priority:1"`
	CheckInAt        time.Time `gorm:"not null;index:idx_attendance_staff_in,priority:2;index:idx_attendance_in"`
	CheckOutAt       *time.Time
	CheckInLat       float64 `gorm:"not null"`
	CheckInLng       float64 `gorm:"not null"`
	CheckInAccuracy  float64 `gorm:"not null"`
	CheckOutLat      *float64
	CheckOutLng      *float64
	CheckOutAccuracy *float64
	TotalMinutes     *int
	Source           string `gorm:"size:16"`
	ClientCheckInAt  *time.Time
	ClientCheckOutAt *time.Time
	OpenStaffID      *string `gorm:"size:36;uniqueIndex:uk_attendance_open"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (e *AttendanceEvent) IsOpen() bool { return e.CheckOutAt == nil }

// WeekLock is the persisted approval state of one staff member's week.
// A week without a row is PENDING.
type WeekLock struct {
	ID              uint    `gorm:"primaryKey"`
	StaffID         string  `gorm:"size:36;not null;uniqueIndex:uk_week_lock,priority:1"`
	WeekStart       string  `gorm:"size:10;not null;uniqueIndex:uk_week_lock,priority:2;index:idx_week_lock_start"`
	WeekEnd         string  `gorm:"size:10;not null"`
	Status          string  `gorm:"size:16;not null;default:PENDING"`
	ApprovedBy      *string `gorm:"size:36"`
	ApprovedByName  *string `gorm:"size:128"`
	ApprovedAt      *time.Time
	ApprovedMinutes *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DayAdjustment is a supervisor override of one day's minutes.
type DayAdjustment struct {
	ID        uint   `gorm:"primaryKey"`
	StaffID   string `gorm:"size:36;not null;uniqueIndex:uk_day_adjustment,priority:1"`
	WorkDate  string `gorm:"size:10;not null;uniqueIndex:uk_day_adjustment,priority:2"`
	WeekStart string `gorm:"size:10;not null;index"`
	Minutes   int    `gorm:"not null"`
	UpdatedBy string `gorm:"size:36"`
	UpdatedAt time.Time
}

type AuditEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StaffID   string    `gorm:"size:36;not null;index:idx_audit_week,priority:1" json:"staff_id"`
	WeekStart string    `gorm:"size:10;not null;index:idx_audit_week,priority:2" json:"week_start"`
	Action    string    `gorm:"size:16;not null" json:"action"`
	ActorID   string    `gorm:"size:36;not null" json:"actor_id"`
	ActorName string    `gorm:"size:128" json:"actor_name"`
	ActorRole string    `gorm:"size:16" json:"actor_role"`
	Reason    string    `gorm:"type:text" json:"reason"`
	Detail    string    `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Staff) TableName() string           { return "staff" }
func (AttendanceEvent) TableName() string { return "attendance_events" }
func (WeekLock) TableName() string        { return "week_locks" }
func (DayAdjustment) TableName() string   { return "day_adjustments" }
func (AuditEntry) TableName() string      { return "audit_entries" }

// Tables lists every table for AutoMigrate.
func Tables() []any {
	return []any{&Staff{}, &AttendanceEvent{}, &WeekLock{}, &DayAdjustment{}, &AuditEntry{}}
}
