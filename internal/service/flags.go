package service

import (
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/model"
)

const (
	FlagMissingCheckout = "MISSING_CHECKOUT"
	FlagLowAccuracy     = "LOW_ACCURACY"
	FlagShortSession    = "SHORT_SESSION"
	FlagLongSession     = "LONG_SESSION"
	FlagCrossesMidnight = "CROSSES_MIDNIGHT"
)

// FlagRules are the reviewer-attention thresholds. Zero disables a rule.
type FlagRules struct {
	MaxAccuracyMeters float64
	MinSessionMinutes int
	MaxSessionMinutes int
}

// EventFlags annotates one event. Flags are advisory and recomputed on
// every read, so they always reflect the current data and clock.
func EventFlags(e *model.AttendanceEvent, rules FlagRules, loc *time.Location, now time.Time) []string {
	flags := []string{}
	inDate := LocalDate(e.CheckInAt, loc)

	if e.IsOpen() && inDate < LocalDate(now, loc) {
		flags = append(flags, FlagMissingCheckout)
	}

	if rules.MaxAccuracyMeters > 0 {
		low := e.CheckInAccuracy > rules.MaxAccuracyMeters
		if e.CheckOutAccuracy != nil && *e.CheckOutAccuracy > rules.MaxAccuracyMeters {
			low = true
		}
		if low {
			flags = append(flags, FlagLowAccuracy)
		}
	}

	if e.TotalMinutes != nil {
		if rules.MinSessionMinutes > 0 && *e.TotalMinutes < rules.MinSessionMinutes {
			flags = append(flags, FlagShortSession)
		}
		if rules.MaxSessionMinutes > 0 && *e.TotalMinutes > rules.MaxSessionMinutes {
			flags = append(flags, FlagLongSession)
		}
	}

	if e.CheckOutAt != nil && LocalDate(*e.CheckOutAt, loc) != inDate {
		flags = append(flags, FlagCrossesMidnight)
	}
	return flags
}
