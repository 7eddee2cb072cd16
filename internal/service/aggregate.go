package service

import (
	"sort"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/model"
)

// WeekSummary is the derived view of one staff member's week.
type WeekSummary struct {
	Days            []model.DailySummary
	ComputedMinutes int
	FinalMinutes    int
	FlagsCount      int
	OpenSessions    int
	EventFlags      map[string][]string
}

// Summarize buckets events by the local calendar date of their check-in and
// overlays the supervisor adjustments (work date -> minutes). A session that
// crosses midnight counts entirely toward its start day. Events outside the
// week are ignored. The function is pure: same inputs, same output.
func Summarize(week Week, events []model.AttendanceEvent, adjustments map[string]int, rules FlagRules, now time.Time) WeekSummary {
	days := week.Days()
	index := make(map[string]int, len(days))
	out := WeekSummary{
		Days:       make([]model.DailySummary, len(days)),
		EventFlags: make(map[string][]string, len(events)),
	}
	for i, d := range days {
		index[d] = i
		out.Days[i] = model.DailySummary{
			Date:    d,
			Weekday: week.Start.AddDate(0, 0, i).Weekday().String(),
			Flags:   []string{},
		}
	}

	dayFlags := make([]map[string]bool, len(days))
	for n := range events {
		e := &events[n]
		i, ok := index[LocalDate(e.CheckInAt, week.Loc)]
		if !ok {
			continue
		}
		day := &out.Days[i]
		day.Sessions++
		if e.TotalMinutes != nil {
			day.ComputedMinutes += *e.TotalMinutes
		} else {
			out.OpenSessions++
		}

		flags := EventFlags(e, rules, week.Loc, now)
		out.EventFlags[e.ID] = flags
		out.FlagsCount += len(flags)
		for _, f := range flags {
			if dayFlags[i] == nil {
				dayFlags[i] = map[string]bool{}
			}
			dayFlags[i][f] = true
		}
	}

	for i := range out.Days {
		day := &out.Days[i]
		for f := range dayFlags[i] {
			day.Flags = append(day.Flags, f)
		}
		sort.Strings(day.Flags)

		day.ResultMinutes = day.ComputedMinutes
		if m, ok := adjustments[day.Date]; ok {
			adjusted := m
			day.AdjustedMinutes = &adjusted
			day.ResultMinutes = m
		}
		out.ComputedMinutes += day.ComputedMinutes
		out.FinalMinutes += day.ResultMinutes
	}
	return out
}

// toAttendance renders a stored event for callers.
func toAttendance(e *model.AttendanceEvent, flags []string, loc *time.Location) model.Attendance {
	if flags == nil {
		flags = []string{}
	}
	a := model.Attendance{
		ID:        e.ID,
		StaffID:   e.StaffID,
		WorkDate:  LocalDate(e.CheckInAt, loc),
		CheckInAt: e.CheckInAt.UTC(),
		CheckInLocation: model.Location{
			Latitude:       e.CheckInLat,
			Longitude:      e.CheckInLng,
			AccuracyMeters: e.CheckInAccuracy,
		},
		TotalMinutes:     e.TotalMinutes,
		Source:           e.Source,
		ClientCheckInAt:  e.ClientCheckInAt,
		ClientCheckOutAt: e.ClientCheckOutAt,
		Flags:            flags,
	}
	if e.CheckOutAt != nil {
		out := e.CheckOutAt.UTC()
		a.CheckOutAt = &out
	}
	if e.CheckOutLat != nil && e.CheckOutLng != nil && e.CheckOutAccuracy != nil {
		a.CheckOutLocation = &model.Location{
			Latitude:       *e.CheckOutLat,
			Longitude:      *e.CheckOutLng,
			AccuracyMeters: *e.CheckOutAccuracy,
		}
	}
	return a
}
