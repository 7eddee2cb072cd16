package service

import (
	"fmt"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds SELECT ... FOR UPDATE. SQLite has no row locks and
// serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockWeek makes sure the week's lock row exists and locks it for the rest
// of the transaction. Every operation that reads or changes a week's lock
// state goes through here first, which gives them one consistent order.
func lockWeek(tx *gorm.DB, staffID string, week Week) (*model.WeekLock, error) {
	seed := model.WeekLock{
		StaffID:   staffID,
		WeekStart: week.Key(),
		WeekEnd:   week.EndKey(),
		Status:    model.WeekPending,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("ensure week row: %w", err)
	}

	var lock model.WeekLock
	err := forUpdate(tx).
		Where("staff_id = ? AND week_start = ?", staffID, week.Key()).
		First(&lock).Error
	if err != nil {
		return nil, fmt.Errorf("lock week %s/%s: %w", staffID, week.Key(), err)
	}
	return &lock, nil
}

// findWeekLock returns nil when the week has never been locked or adjusted.
func findWeekLock(db *gorm.DB, staffID string, week Week) (*model.WeekLock, error) {
	var locks []model.WeekLock
	err := db.Where("staff_id = ? AND week_start = ?", staffID, week.Key()).Limit(1).Find(&locks).Error
	if err != nil {
		return nil, fmt.Errorf("query week lock: %w", err)
	}
	if len(locks) == 0 {
		return nil, nil
	}
	return &locks[0], nil
}

func loadEvents(db *gorm.DB, staffID string, week Week) ([]model.AttendanceEvent, error) {
	from, to := week.Bounds()
	var events []model.AttendanceEvent
	err := db.Where("staff_id = ? AND check_in_at >= ? AND check_in_at < ?", staffID, from, to).
		Order("check_in_at").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return events, nil
}

func loadAdjustments(db *gorm.DB, staffID string, week Week) (map[string]int, error) {
	var rows []model.DayAdjustment
	err := db.Where("staff_id = ? AND week_start = ?", staffID, week.Key()).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.WorkDate] = r.Minutes
	}
	return out, nil
}

// weekState is everything Summarize needs plus the lock row.
type weekState struct {
	lock        *model.WeekLock
	events      []model.AttendanceEvent
	adjustments map[string]int
}

func loadWeek(db *gorm.DB, staffID string, week Week, lock *model.WeekLock) (*weekState, error) {
	var err error
	if lock == nil {
		if lock, err = findWeekLock(db, staffID, week); err != nil {
			return nil, err
		}
	}
	st := &weekState{lock: lock}
	if st.events, err = loadEvents(db, staffID, week); err != nil {
		return nil, err
	}
	if st.adjustments, err = loadAdjustments(db, staffID, week); err != nil {
		return nil, err
	}
	return st, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
