package service

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Week is a Sunday..Saturday window in the agency time zone.
type Week struct {
	Start time.Time // local midnight of Sunday
	Loc   *time.Location
}

// ParseWeek validates a week window given as two local dates.
func ParseWeek(start, end string, loc *time.Location) (Week, error) {
	s, err := time.ParseInLocation(dateLayout, strings.TrimSpace(start), loc)
	if err != nil {
		return Week{}, fmt.Errorf("%w: week_start %q is not a date", ErrInvalidWeek, start)
	}
	e, err := time.ParseInLocation(dateLayout, strings.TrimSpace(end), loc)
	if err != nil {
		return Week{}, fmt.Errorf("%w: week_end %q is not a date", ErrInvalidWeek, end)
	}
	if s.Weekday() != time.Sunday {
		return Week{}, fmt.Errorf("%w: week_start %s is a %s, want Sunday", ErrInvalidWeek, start, s.Weekday())
	}
	if !e.Equal(s.AddDate(0, 0, 6)) {
		return Week{}, fmt.Errorf("%w: week_end %s must be the Saturday after %s", ErrInvalidWeek, end, start)
	}
	return Week{Start: s, Loc: loc}, nil
}

// WeekOf returns the week containing t's local calendar date.
func WeekOf(t time.Time, loc *time.Location) Week {
	l := t.In(loc)
	day := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
	return Week{Start: day.AddDate(0, 0, -int(day.Weekday())), Loc: loc}
}

func (w Week) Key() string    { return w.Start.Format(dateLayout) }
func (w Week) EndKey() string { return w.Start.AddDate(0, 0, 6).Format(dateLayout) }

// Bounds returns the half-open UTC instant range [Sunday 00:00, next Sunday 00:00).
// AddDate keeps wall-clock midnight across DST changes.
func (w Week) Bounds() (from, to time.Time) {
	return w.Start.UTC(), w.Start.AddDate(0, 0, 7).UTC()
}

func (w Week) Days() []string {
	days := make([]string, 7)
	for i := range days {
		days[i] = w.Start.AddDate(0, 0, i).Format(dateLayout)
	}
	return days
}

// Contains reports whether a local date key falls inside the week.
func (w Week) Contains(date string) bool {
	return date >= w.Key() && date <= w.EndKey()
}

// LocalDate is the agency-local calendar date of an instant.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}
