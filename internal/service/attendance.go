package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/logger"
	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceService owns the per-staff check-in/check-out state machine:
// NoActiveSession --CheckIn--> ActiveSession --CheckOut--> NoActiveSession.
type AttendanceService struct {
	db  *gorm.DB
	dir Directory
	cfg Settings
}

func NewAttendanceService(db *gorm.DB, dir Directory, cfg Settings) *AttendanceService {
	return &AttendanceService{db: db, dir: dir, cfg: cfg}
}

func (s *AttendanceService) Settings() Settings { return s.cfg }

// CheckIn opens a session stamped with the server clock. The client time is
// kept only as metadata.
func (s *AttendanceService) CheckIn(ctx context.Context, actor model.Actor, staffID string, req model.PunchRequest) (*model.PunchResult, error) {
	if err := requireSelf(actor, staffID); err != nil {
		return nil, err
	}
	loc, err := checkLocation(req.Location)
	if err != nil {
		return nil, err
	}
	if err := s.checkStaff(ctx, staffID); err != nil {
		return nil, err
	}

	now := s.cfg.clock()
	open := staffID
	ev := model.AttendanceEvent{
		ID:              uuid.NewString(),
		StaffID:         staffID,
		CheckInAt:       now,
		CheckInLat:      loc.Latitude,
		CheckInLng:      loc.Longitude,
		CheckInAccuracy: loc.AccuracyMeters,
		Source:          normalizeSource(req.Source),
		ClientCheckInAt: utcPtr(req.ClientTime),
		OpenStaffID:     &open,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.AttendanceEvent{}).Where("open_staff_id = ?", staffID).Count(&n).Error; err != nil {
			return fmt.Errorf("query open session: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: staff %s is already checked in", ErrConflict, staffID)
		}
		return tx.Create(&ev).Error
	})
	if err != nil {
		if IsClientError(err) {
			return nil, err
		}
		// A concurrent check-in won the unique open-session index.
		if errors.Is(err, gorm.ErrDuplicatedKey) || s.hasOpenSession(ctx, staffID) {
			return nil, fmt.Errorf("%w: staff %s is already checked in", ErrConflict, staffID)
		}
		return nil, fmt.Errorf("check in: %w", err)
	}

	logger.Info("attendance.checkin", "staff_id", staffID, "event_id", ev.ID, "source", ev.Source, "accuracy", loc.AccuracyMeters)
	return s.result(ctx, &ev)
}

// CheckOut closes the open session. It fails with ErrWeekLocked when the
// session's week has been approved: closing it would change payroll totals.
func (s *AttendanceService) CheckOut(ctx context.Context, actor model.Actor, staffID string, req model.PunchRequest) (*model.PunchResult, error) {
	if err := requireSelf(actor, staffID); err != nil {
		return nil, err
	}
	loc, err := checkLocation(req.Location)
	if err != nil {
		return nil, err
	}

	var closed model.AttendanceEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev model.AttendanceEvent
		err := forUpdate(tx).Where("open_staff_id = ?", staffID).First(&ev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: staff %s is not checked in", ErrNoOpenSession, staffID)
		}
		if err != nil {
			return fmt.Errorf("load open session: %w", err)
		}

		week := WeekOf(ev.CheckInAt, s.cfg.loc())
		lock, err := lockWeek(tx, staffID, week)
		if err != nil {
			return err
		}
		if lock.Status == model.WeekApproved {
			return fmt.Errorf("%w: week of %s is approved, ask a supervisor to unlock it", ErrWeekLocked, week.Key())
		}

		now := s.cfg.clock()
		if !now.After(ev.CheckInAt) {
			logger.Warn("attendance.checkout.clock_behind", "staff_id", staffID, "check_in_at", ev.CheckInAt, "now", now)
			now = ev.CheckInAt.Add(time.Second)
		}
		total := SessionMinutes(ev.CheckInAt, now)
		clientOut := utcPtr(req.ClientTime)

		res := tx.Model(&model.AttendanceEvent{}).
			Where("id = ? AND open_staff_id IS NOT NULL", ev.ID).
			Updates(map[string]any{
				"check_out_at":        now,
				"check_out_lat":       loc.Latitude,
				"check_out_lng":       loc.Longitude,
				"check_out_accuracy":  loc.AccuracyMeters,
				"total_minutes":       total,
				"client_check_out_at": clientOut,
				"open_staff_id":       nil,
			})
		if res.Error != nil {
			return fmt.Errorf("close session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: session %s already closed", ErrNoOpenSession, ev.ID)
		}

		ev.CheckOutAt = &now
		ev.CheckOutLat = &loc.Latitude
		ev.CheckOutLng = &loc.Longitude
		ev.CheckOutAccuracy = &loc.AccuracyMeters
		ev.TotalMinutes = &total
		ev.ClientCheckOutAt = clientOut
		ev.OpenStaffID = nil
		closed = ev
		return nil
	})
	if err != nil {
		if !IsClientError(err) {
			err = fmt.Errorf("check out: %w", err)
		}
		return nil, err
	}

	logger.Info("attendance.checkout", "staff_id", staffID, "event_id", closed.ID, "minutes", *closed.TotalMinutes)
	return s.result(ctx, &closed)
}

// GetStatus reports whether the staff member is checked in, without side effects.
func (s *AttendanceService) GetStatus(ctx context.Context, actor model.Actor, staffID string) (*model.AttendanceStatus, error) {
	if err := requireSelfOrReviewer(actor, staffID); err != nil {
		return nil, err
	}
	return s.status(ctx, staffID)
}

// ListAttendance returns the week's sessions with their current flags.
func (s *AttendanceService) ListAttendance(ctx context.Context, actor model.Actor, staffID string, week Week) ([]model.Attendance, error) {
	if err := requireSelfOrReviewer(actor, staffID); err != nil {
		return nil, err
	}
	events, err := loadEvents(s.db.WithContext(ctx), staffID, week)
	if err != nil {
		return nil, err
	}
	now := s.cfg.clock()
	out := make([]model.Attendance, 0, len(events))
	for i := range events {
		e := &events[i]
		out = append(out, toAttendance(e, EventFlags(e, s.cfg.Rules, s.cfg.loc(), now), s.cfg.loc()))
	}
	return out, nil
}

// SessionMinutes rounds a session's length to whole minutes.
func SessionMinutes(in, out time.Time) int {
	m := int(math.Round(out.Sub(in).Minutes()))
	if m < 0 {
		return 0
	}
	return m
}

func (s *AttendanceService) checkStaff(ctx context.Context, staffID string) error {
	st, err := s.dir.Lookup(ctx, staffID)
	if err != nil {
		return err
	}
	return s.dir.CheckEligible(st)
}

func (s *AttendanceService) hasOpenSession(ctx context.Context, staffID string) bool {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.AttendanceEvent{}).Where("open_staff_id = ?", staffID).Count(&n).Error
	return err == nil && n > 0
}

func (s *AttendanceService) result(ctx context.Context, ev *model.AttendanceEvent) (*model.PunchResult, error) {
	st, err := s.status(ctx, ev.StaffID)
	if err != nil {
		return nil, err
	}
	flags := EventFlags(ev, s.cfg.Rules, s.cfg.loc(), s.cfg.clock())
	return &model.PunchResult{Event: toAttendance(ev, flags, s.cfg.loc()), Status: *st}, nil
}

func (s *AttendanceService) status(ctx context.Context, staffID string) (*model.AttendanceStatus, error) {
	db := s.db.WithContext(ctx)
	st := &model.AttendanceStatus{StaffID: staffID}

	var latest []model.AttendanceEvent
	if err := db.Where("staff_id = ?", staffID).Order("check_in_at DESC").Limit(1).Find(&latest).Error; err != nil {
		return nil, fmt.Errorf("query latest session: %w", err)
	}
	if len(latest) == 0 {
		return st, nil
	}
	last := latest[0]
	in := last.CheckInAt.UTC()
	st.LastCheckInAt = &in
	st.IsCheckedIn = last.IsOpen()
	if st.IsCheckedIn {
		id := last.ID
		st.OpenEventID = &id
		st.LastLocation = &model.Location{Latitude: last.CheckInLat, Longitude: last.CheckInLng, AccuracyMeters: last.CheckInAccuracy}
	} else if last.CheckOutLat != nil && last.CheckOutLng != nil && last.CheckOutAccuracy != nil {
		st.LastLocation = &model.Location{Latitude: *last.CheckOutLat, Longitude: *last.CheckOutLng, AccuracyMeters: *last.CheckOutAccuracy}
	}

	var closed []model.AttendanceEvent
	err := db.Where("staff_id = ? AND check_out_at IS NOT NULL", staffID).
		Order("check_out_at DESC").Limit(1).Find(&closed).Error
	if err != nil {
		return nil, fmt.Errorf("query last checkout: %w", err)
	}
	if len(closed) > 0 {
		out := closed[0].CheckOutAt.UTC()
		st.LastCheckOutAt = &out
	}
	return st, nil
}
