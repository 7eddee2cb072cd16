package service

import (
	"fmt"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/model"
)

// Settings are shared by the attendance and approval services.
type Settings struct {
	Location        *time.Location
	Rules           FlagRules
	MinUnlockReason int
	Now             func() time.Time
}

func (s Settings) clock() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s Settings) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// ParseWeek parses a week window in the agency time zone.
func (s Settings) ParseWeek(start, end string) (Week, error) {
	return ParseWeek(start, end, s.loc())
}

// CurrentWeek is the week containing the server clock's local date.
func (s Settings) CurrentWeek() Week {
	return WeekOf(s.clock(), s.loc())
}

func requireActor(a model.Actor) error {
	if a.ID == "" {
		return ErrActorRequired
	}
	return nil
}

// requireSelf allows only the staff member who owns the record.
func requireSelf(a model.Actor, staffID string) error {
	if err := requireActor(a); err != nil {
		return err
	}
	if a.ID != staffID {
		return fmt.Errorf("%w: attendance is self-service", ErrForbidden)
	}
	return nil
}

func requireSelfOrReviewer(a model.Actor, staffID string) error {
	if err := requireActor(a); err != nil {
		return err
	}
	if a.ID != staffID && !a.IsReviewer() {
		return fmt.Errorf("%w: not your record", ErrForbidden)
	}
	return nil
}

func requireReviewer(a model.Actor) error {
	if err := requireActor(a); err != nil {
		return err
	}
	if !a.IsReviewer() {
		return fmt.Errorf("%w: hr or admin role required", ErrForbidden)
	}
	return nil
}
