package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/logger"
	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayrollPublisher receives approved and reopened weeks after commit.
type PayrollPublisher interface {
	PublishWeek(ctx context.Context, rec model.PayrollRecord)
}

// ApprovalService owns the weekly PENDING <-> APPROVED workflow, the day
// adjustments and the audit trail.
type ApprovalService struct {
	db      *gorm.DB
	dir     Directory
	cfg     Settings
	payroll PayrollPublisher
}

func NewApprovalService(db *gorm.DB, dir Directory, cfg Settings, payroll PayrollPublisher) *ApprovalService {
	return &ApprovalService{db: db, dir: dir, cfg: cfg, payroll: payroll}
}

func (s *ApprovalService) Settings() Settings { return s.cfg }

// GetWeeklyDetail returns the week's approval state, its seven days, its
// sessions and its audit trail.
func (s *ApprovalService) GetWeeklyDetail(ctx context.Context, actor model.Actor, staffID string, week Week) (*model.WeeklyDetail, error) {
	if err := requireSelfOrReviewer(actor, staffID); err != nil {
		return nil, err
	}
	st, err := s.dir.Lookup(ctx, staffID)
	if err != nil {
		return nil, err
	}

	var detail *model.WeeklyDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ws, err := loadWeek(tx, staffID, week, nil)
		if err != nil {
			return err
		}
		audit, err := listAudit(tx, staffID, week)
		if err != nil {
			return err
		}
		sum := Summarize(week, ws.events, ws.adjustments, s.cfg.Rules, s.cfg.clock())
		events := make([]model.Attendance, 0, len(ws.events))
		for i := range ws.events {
			e := &ws.events[i]
			events = append(events, toAttendance(e, sum.EventFlags[e.ID], s.cfg.loc()))
		}
		detail = &model.WeeklyDetail{
			Approval: buildApproval(staffID, st.Name, week, ws.lock, sum),
			Days:     sum.Days,
			Events:   events,
			Audit:    audit,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("weekly detail: %w", err)
	}
	return detail, nil
}

// ListAudit returns the week's audit entries, oldest first.
func (s *ApprovalService) ListAudit(ctx context.Context, actor model.Actor, staffID string, week Week) ([]model.AuditEntry, error) {
	if err := requireSelfOrReviewer(actor, staffID); err != nil {
		return nil, err
	}
	return listAudit(s.db.WithContext(ctx), staffID, week)
}

// ListWeeklyApprovals summarizes every staff member who has a session or a
// lock row in the week.
func (s *ApprovalService) ListWeeklyApprovals(ctx context.Context, actor model.Actor, week Week, filter model.ApprovalFilter) ([]model.WeeklyApproval, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	status := strings.ToUpper(strings.TrimSpace(filter.Status))
	if status != "" && status != model.WeekPending && status != model.WeekApproved {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, filter.Status)
	}

	db := s.db.WithContext(ctx)
	from, to := week.Bounds()
	eventQ := db.Where("check_in_at >= ? AND check_in_at < ?", from, to)
	lockQ := db.Where("week_start = ?", week.Key())
	adjQ := db.Where("week_start = ?", week.Key())
	if filter.StaffID != "" {
		eventQ = eventQ.Where("staff_id = ?", filter.StaffID)
		lockQ = lockQ.Where("staff_id = ?", filter.StaffID)
		adjQ = adjQ.Where("staff_id = ?", filter.StaffID)
	}

	var events []model.AttendanceEvent
	if err := eventQ.Order("check_in_at").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	var locks []model.WeekLock
	if err := lockQ.Find(&locks).Error; err != nil {
		return nil, fmt.Errorf("query week locks: %w", err)
	}
	var adjs []model.DayAdjustment
	if err := adjQ.Find(&adjs).Error; err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}

	byStaff := map[string]*weekState{}
	get := func(id string) *weekState {
		ws, ok := byStaff[id]
		if !ok {
			ws = &weekState{adjustments: map[string]int{}}
			byStaff[id] = ws
		}
		return ws
	}
	for _, e := range events {
		ws := get(e.StaffID)
		ws.events = append(ws.events, e)
	}
	for i := range locks {
		get(locks[i].StaffID).lock = &locks[i]
	}
	for _, a := range adjs {
		get(a.StaffID).adjustments[a.WorkDate] = a.Minutes
	}

	ids := make([]string, 0, len(byStaff))
	for id := range byStaff {
		ids = append(ids, id)
	}
	names, err := s.dir.Names(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.cfg.clock()
	out := make([]model.WeeklyApproval, 0, len(ids))
	for _, id := range ids {
		ws := byStaff[id]
		sum := Summarize(week, ws.events, ws.adjustments, s.cfg.Rules, now)
		wa := buildApproval(id, names[id], week, ws.lock, sum)
		if status != "" && wa.Status != status {
			continue
		}
		if filter.FlaggedOnly && wa.FlagsCount == 0 {
			continue
		}
		out = append(out, wa)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StaffName != out[j].StaffName {
			return out[i].StaffName < out[j].StaffName
		}
		return out[i].StaffID < out[j].StaffID
	})
	return out, nil
}

// SaveAdjustment sets or clears per-day overrides. Every value is parsed
// before anything is written, so a malformed value changes nothing.
func (s *ApprovalService) SaveAdjustment(ctx context.Context, actor model.Actor, staffID string, week Week, days []model.DayMinutes, reason string) (*model.WeeklyApproval, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	parsed, order, err := parseAdjustments(week, days)
	if err != nil {
		return nil, err
	}
	st, err := s.dir.Lookup(ctx, staffID)
	if err != nil {
		return nil, err
	}

	var result model.WeeklyApproval
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock, err := lockWeek(tx, staffID, week)
		if err != nil {
			return err
		}
		if lock.Status == model.WeekApproved {
			return fmt.Errorf("%w: unlock week %s before adjusting it", ErrWeekLocked, week.Key())
		}

		before, err := loadAdjustments(tx, staffID, week)
		if err != nil {
			return err
		}
		now := s.cfg.clock()
		changes := make([]dayChange, 0, len(order))
		for _, date := range order {
			after := parsed[date]
			var prev *int
			if m, ok := before[date]; ok {
				prev = &m
			}
			if after == nil {
				err = tx.Where("staff_id = ? AND work_date = ?", staffID, date).Delete(&model.DayAdjustment{}).Error
			} else {
				err = tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "staff_id"}, {Name: "work_date"}},
					DoUpdates: clause.AssignmentColumns([]string{"minutes", "updated_by", "updated_at"}),
				}).Create(&model.DayAdjustment{
					StaffID:   staffID,
					WorkDate:  date,
					WeekStart: week.Key(),
					Minutes:   *after,
					UpdatedBy: actor.ID,
					UpdatedAt: now,
				}).Error
			}
			if err != nil {
				return fmt.Errorf("write adjustment %s: %w", date, err)
			}
			changes = append(changes, dayChange{Date: date, Before: prev, After: after})
		}

		if err := appendAudit(tx, staffID, week, model.AuditAdjust, actor, strings.TrimSpace(reason), changes, now); err != nil {
			return err
		}

		ws, err := loadWeek(tx, staffID, week, lock)
		if err != nil {
			return err
		}
		result = buildApproval(staffID, st.Name, week, lock, Summarize(week, ws.events, ws.adjustments, s.cfg.Rules, now))
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("save adjustment", err)
	}

	logger.Info("approval.adjust", "staff_id", staffID, "week", week.Key(), "actor", actor.ID, "days", len(order), "final_minutes", result.FinalMinutes)
	return &result, nil
}

// Approve freezes the week's final minutes and hands them to payroll.
func (s *ApprovalService) Approve(ctx context.Context, actor model.Actor, staffID string, week Week, reason string) (*model.WeeklyApproval, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	st, err := s.dir.Lookup(ctx, staffID)
	if err != nil {
		return nil, err
	}

	var result model.WeeklyApproval
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock, err := lockWeek(tx, staffID, week)
		if err != nil {
			return err
		}
		if lock.Status == model.WeekApproved {
			return fmt.Errorf("%w: week %s was approved by %s", ErrAlreadyApproved, week.Key(), deref(lock.ApprovedByName))
		}

		ws, err := loadWeek(tx, staffID, week, lock)
		if err != nil {
			return err
		}
		now := s.cfg.clock()
		sum := Summarize(week, ws.events, ws.adjustments, s.cfg.Rules, now)

		res := tx.Model(&model.WeekLock{}).
			Where("id = ? AND status = ?", lock.ID, model.WeekPending).
			Updates(map[string]any{
				"status":           model.WeekApproved,
				"approved_by":      actor.ID,
				"approved_by_name": actor.Name,
				"approved_at":      now,
				"approved_minutes": sum.FinalMinutes,
			})
		if res.Error != nil {
			return fmt.Errorf("approve week: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: week %s", ErrAlreadyApproved, week.Key())
		}

		detail := map[string]int{
			"computed_minutes": sum.ComputedMinutes,
			"final_minutes":    sum.FinalMinutes,
			"flags_count":      sum.FlagsCount,
		}
		if err := appendAudit(tx, staffID, week, model.AuditApprove, actor, strings.TrimSpace(reason), detail, now); err != nil {
			return err
		}

		lock.Status = model.WeekApproved
		lock.ApprovedBy = &actor.ID
		lock.ApprovedByName = &actor.Name
		lock.ApprovedAt = &now
		lock.ApprovedMinutes = &sum.FinalMinutes
		result = buildApproval(staffID, st.Name, week, lock, sum)
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("approve", err)
	}

	logger.Info("approval.approve", "staff_id", staffID, "week", week.Key(), "actor", actor.ID, "final_minutes", result.FinalMinutes, "flags", result.FlagsCount)
	s.publish(ctx, result)
	return &result, nil
}

// Unlock returns an approved week to PENDING. It is the only operation that
// requires a reason. Adjustments are kept as the new pending baseline.
func (s *ApprovalService) Unlock(ctx context.Context, actor model.Actor, staffID string, week Week, reason string) (*model.WeeklyApproval, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	minLen := s.cfg.MinUnlockReason
	if minLen < 1 {
		minLen = 1
	}
	if len([]rune(reason)) < minLen {
		return nil, fmt.Errorf("%w: unlocking needs a reason of at least %d characters", ErrReasonRequired, minLen)
	}
	st, err := s.dir.Lookup(ctx, staffID)
	if err != nil {
		return nil, err
	}

	var result model.WeeklyApproval
	var frozen int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock, err := lockWeek(tx, staffID, week)
		if err != nil {
			return err
		}
		if lock.Status != model.WeekApproved {
			return fmt.Errorf("%w: week %s is pending", ErrNotApproved, week.Key())
		}
		if lock.ApprovedMinutes != nil {
			frozen = *lock.ApprovedMinutes
		}

		res := tx.Model(&model.WeekLock{}).
			Where("id = ? AND status = ?", lock.ID, model.WeekApproved).
			Updates(map[string]any{
				"status":           model.WeekPending,
				"approved_by":      nil,
				"approved_by_name": nil,
				"approved_at":      nil,
				"approved_minutes": nil,
			})
		if res.Error != nil {
			return fmt.Errorf("unlock week: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: week %s", ErrNotApproved, week.Key())
		}

		now := s.cfg.clock()
		detail := map[string]any{
			"previous_final_minutes": frozen,
			"previous_approved_by":   deref(lock.ApprovedBy),
		}
		if err := appendAudit(tx, staffID, week, model.AuditUnlock, actor, reason, detail, now); err != nil {
			return err
		}

		lock.Status = model.WeekPending
		lock.ApprovedBy, lock.ApprovedByName, lock.ApprovedAt, lock.ApprovedMinutes = nil, nil, nil, nil
		ws, err := loadWeek(tx, staffID, week, lock)
		if err != nil {
			return err
		}
		result = buildApproval(staffID, st.Name, week, lock, Summarize(week, ws.events, ws.adjustments, s.cfg.Rules, now))
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("unlock", err)
	}

	logger.Info("approval.unlock", "staff_id", staffID, "week", week.Key(), "actor", actor.ID, "reason", reason)
	reopened := result
	reopened.FinalMinutes = frozen
	s.publish(ctx, reopened)
	return &result, nil
}

// ListPayroll is the payroll read contract: approved weeks only, with the
// minutes frozen at approval.
func (s *ApprovalService) ListPayroll(ctx context.Context, actor model.Actor, week Week) ([]model.PayrollRecord, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	var locks []model.WeekLock
	err := s.db.WithContext(ctx).
		Where("week_start = ? AND status = ?", week.Key(), model.WeekApproved).
		Order("staff_id").Find(&locks).Error
	if err != nil {
		return nil, fmt.Errorf("query approved weeks: %w", err)
	}
	ids := make([]string, 0, len(locks))
	for _, l := range locks {
		ids = append(ids, l.StaffID)
	}
	names, err := s.dir.Names(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]model.PayrollRecord, 0, len(locks))
	for _, l := range locks {
		rec := model.PayrollRecord{
			StaffID:        l.StaffID,
			StaffName:      names[l.StaffID],
			WeekStart:      l.WeekStart,
			WeekEnd:        l.WeekEnd,
			Status:         l.Status,
			ApprovedBy:     deref(l.ApprovedBy),
			ApprovedByName: deref(l.ApprovedByName),
		}
		if l.ApprovedMinutes != nil {
			rec.FinalMinutes = *l.ApprovedMinutes
		}
		if l.ApprovedAt != nil {
			rec.ApprovedAt = l.ApprovedAt.UTC()
		}
		out = append(out, rec)
	}
	return out, nil
}

// publishTimeout bounds the payroll hand-off, which runs after the request's
// own context may already be gone.
const publishTimeout = 30 * time.Second

func (s *ApprovalService) publish(ctx context.Context, wa model.WeeklyApproval) {
	if s.payroll == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	rec := model.PayrollRecord{
		StaffID:        wa.StaffID,
		StaffName:      wa.StaffName,
		WeekStart:      wa.WeekStart,
		WeekEnd:        wa.WeekEnd,
		Status:         wa.Status,
		FinalMinutes:   wa.FinalMinutes,
		ApprovedBy:     deref(wa.ApprovedBy),
		ApprovedByName: deref(wa.ApprovedByName),
	}
	if wa.ApprovedAt != nil {
		rec.ApprovedAt = *wa.ApprovedAt
	}
	s.payroll.PublishWeek(ctx, rec)
}

// parseAdjustments validates all days up front. It returns the parsed values
// (nil = clear) and the dates in chronological order.
func parseAdjustments(week Week, days []model.DayMinutes) (map[string]*int, []string, error) {
	if len(days) == 0 {
		return nil, nil, fmt.Errorf("%w: no days supplied", ErrInvalidDuration)
	}
	parsed := make(map[string]*int, len(days))
	order := make([]string, 0, len(days))
	for _, d := range days {
		date := strings.TrimSpace(d.Date)
		if _, err := time.Parse(dateLayout, date); err != nil {
			return nil, nil, fmt.Errorf("%w: %q is not a date", ErrInvalidWeek, d.Date)
		}
		if !week.Contains(date) {
			return nil, nil, fmt.Errorf("%w: %s is outside week %s..%s", ErrInvalidWeek, date, week.Key(), week.EndKey())
		}
		if _, dup := parsed[date]; dup {
			return nil, nil, fmt.Errorf("%w: %s given twice", ErrInvalidWeek, date)
		}
		m, err := ParseDayMinutes(d.Minutes)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", date, err)
		}
		parsed[date] = m
		order = append(order, date)
	}
	sort.Strings(order)
	return parsed, order, nil
}

func buildApproval(staffID, name string, week Week, lock *model.WeekLock, sum WeekSummary) model.WeeklyApproval {
	wa := model.WeeklyApproval{
		StaffID:         staffID,
		StaffName:       name,
		WeekStart:       week.Key(),
		WeekEnd:         week.EndKey(),
		Status:          model.WeekPending,
		ComputedMinutes: sum.ComputedMinutes,
		FinalMinutes:    sum.FinalMinutes,
		FlagsCount:      sum.FlagsCount,
		OpenSessions:    sum.OpenSessions,
	}
	if lock != nil && lock.Status == model.WeekApproved {
		wa.Status = model.WeekApproved
		wa.ApprovedBy = lock.ApprovedBy
		wa.ApprovedByName = lock.ApprovedByName
		if lock.ApprovedAt != nil {
			at := lock.ApprovedAt.UTC()
			wa.ApprovedAt = &at
		}
	}
	return wa
}

func wrapStoreErr(op string, err error) error {
	if IsClientError(err) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
