package model

import "time"

// Actor is the authenticated caller, injected by the auth middleware.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// IsReviewer reports whether the actor may adjust, approve and unlock weeks.
func (a Actor) IsReviewer() bool { return a.Role == RoleHR || a.Role == RoleAdmin }

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Category string `json:"category"`
}

// LocationInput is a GPS fix as sent by the client. Pointers keep a missing
// field distinguishable from a legitimate zero coordinate.
type LocationInput struct {
	Latitude       *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude      *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	AccuracyMeters *float64 `json:"accuracy_meters" validate:"required,gte=0"`
}

type Location struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
}

// PunchRequest is the body of check-in and check-out.
type PunchRequest struct {
	Location   *LocationInput `json:"location"`
	ClientTime *time.Time     `json:"client_time,omitempty"`
	Source     string         `json:"source,omitempty"`
}

type AttendanceStatus struct {
	StaffID        string     `json:"staff_id"`
	IsCheckedIn    bool       `json:"is_checked_in"`
	OpenEventID    *string    `json:"open_event_id,omitempty"`
	LastCheckInAt  *time.Time `json:"last_check_in_at"`
	LastCheckOutAt *time.Time `json:"last_check_out_at"`
	LastLocation   *Location  `json:"last_location"`
}

type Attendance struct {
	ID               string     `json:"id"`
	StaffID          string     `json:"staff_id"`
	WorkDate         string     `json:"work_date"`
	CheckInAt        time.Time  `json:"check_in_at"`
	CheckOutAt       *time.Time `json:"check_out_at"`
	CheckInLocation  Location   `json:"check_in_location"`
	CheckOutLocation *Location  `json:"check_out_location"`
	TotalMinutes     *int       `json:"total_minutes"`
	Source           string     `json:"source"`
	ClientCheckInAt  *time.Time `json:"client_check_in_at,omitempty"`
	ClientCheckOutAt *time.Time `json:"client_check_out_at,omitempty"`
	Flags            []string   `json:"flags"`
}

type PunchResult struct {
	Event  Attendance       `json:"event"`
	Status AttendanceStatus `json:"status"`
}

type DailySummary struct {
	Date            string   `json:"date"`
	Weekday         string   `json:"weekday"`
	ComputedMinutes int      `json:"computed_minutes"`
	AdjustedMinutes *int     `json:"adjusted_minutes"`
	ResultMinutes   int      `json:"result_minutes"`
	Sessions        int      `json:"sessions"`
	Flags           []string `json:"flags"`
}

type WeeklyApproval struct {
	StaffID         string     `json:"staff_id"`
	StaffName       string     `json:"staff_name"`
	WeekStart       string     `json:"week_start"`
	WeekEnd         string     `json:"week_end"`
	Status          string     `json:"status"`
	ComputedMinutes int        `json:"computed_minutes"`
	FinalMinutes    int        `json:"final_minutes"`
	ApprovedBy      *string    `json:"approved_by"`
	ApprovedByName  *string    `json:"approved_by_name"`
	ApprovedAt      *time.Time `json:"approved_at"`
	FlagsCount      int        `json:"flags_count"`
	OpenSessions    int        `json:"open_sessions"`
}

type WeeklyDetail struct {
	Approval WeeklyApproval `json:"approval"`
	Days     []DailySummary `json:"days"`
	Events   []Attendance   `json:"events"`
	Audit    []AuditEntry   `json:"audit"`
}

// DayMinutes is one day of an adjustment request. A nil or blank Minutes
// clears the day's override.
type DayMinutes struct {
	Date    string  `json:"date" binding:"required"`
	Minutes *string `json:"minutes"`
}

type WeekRequest struct {
	WeekStart string `json:"week_start" form:"week_start" binding:"required"`
	WeekEnd   string `json:"week_end" form:"week_end" binding:"required"`
}

type AdjustmentRequest struct {
	WeekRequest
	Days   []DayMinutes `json:"days" binding:"required,min=1,dive"`
	Reason string       `json:"reason"`
}

type ReviewRequest struct {
	WeekRequest
	Reason string `json:"reason"`
}

type ApprovalFilter struct {
	Status      string `form:"status"`
	StaffID     string `form:"staff_id"`
	FlaggedOnly bool   `form:"flagged"`
}

// PayrollRecord is what the payroll consumer reads: approved weeks only.
type PayrollRecord struct {
	StaffID        string    `json:"staff_id"`
	StaffName      string    `json:"staff_name"`
	WeekStart      string    `json:"week_start"`
	WeekEnd        string    `json:"week_end"`
	Status         string    `json:"status"`
	FinalMinutes   int       `json:"final_minutes"`
	ApprovedBy     string    `json:"approved_by"`
	ApprovedByName string    `json:"approved_by_name"`
	ApprovedAt     time.Time `json:"approved_at"`
}
