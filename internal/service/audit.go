package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"gorm.io/gorm"
)

// dayChange is one line of an ADJUST entry's detail.
type dayChange struct {
	Date   string `json:"date"`
	Before *int   `json:"before"`
	After  *int   `json:"after"`
}

// appendAudit writes the entry inside the caller's transaction so the state
// transition and its audit record commit or fail together.
func appendAudit(tx *gorm.DB, staffID string, week Week, action string, actor model.Actor, reason string, detail any, at time.Time) error {
	var raw string
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("encode audit detail: %w", err)
		}
		raw = string(b)
	}
	entry := model.AuditEntry{
		StaffID:   staffID,
		WeekStart: week.Key(),
		Action:    action,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Reason:    reason,
		Detail:    raw,
		CreatedAt: at,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("append audit %s: %w", action, err)
	}
	return nil
}

func listAudit(db *gorm.DB, staffID string, week Week) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	err := db.Where("staff_id = ? AND week_start = ?", staffID, week.Key()).Order("id").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	return entries, nil
}
