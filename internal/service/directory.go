package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"gorm.io/gorm"
)

// Directory resolves staff ids against the employee records.
type Directory interface {
	Lookup(ctx context.Context, staffID string) (*model.Staff, error)
	Names(ctx context.Context, staffIDs []string) (map[string]string, error)
	CheckEligible(st *model.Staff) error
}

// StaffDirectory reads the staff table. Only active staff in one of the
// eligible employment categories may use time keeping; an empty category
// list admits everyone.
type StaffDirectory struct {
	db       *gorm.DB
	eligible map[string]bool
}

func NewStaffDirectory(db *gorm.DB, categories []string) *StaffDirectory {
	eligible := make(map[string]bool, len(categories))
	for _, c := range categories {
		eligible[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return &StaffDirectory{db: db, eligible: eligible}
}

func (d *StaffDirectory) Lookup(ctx context.Context, staffID string) (*model.Staff, error) {
	var st model.Staff
	err := d.db.WithContext(ctx).Where("id = ?", staffID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrStaffNotFound, staffID)
	}
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	return &st, nil
}

func (d *StaffDirectory) Names(ctx context.Context, staffIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(staffIDs))
	if len(staffIDs) == 0 {
		return out, nil
	}
	var rows []model.Staff
	if err := d.db.WithContext(ctx).Select("id", "name").Where("id IN ?", staffIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query staff names: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}

func (d *StaffDirectory) CheckEligible(st *model.Staff) error {
	if !st.Active {
		return fmt.Errorf("%w: %s is inactive", ErrStaffIneligible, st.Name)
	}
	if len(d.eligible) > 0 && !d.eligible[strings.ToUpper(st.Category)] {
		return fmt.Errorf("%w: category %q", ErrStaffIneligible, st.Category)
	}
	return nil
}
