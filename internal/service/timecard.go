package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	timecardSummarySheet  = "Timecard"
	timecardSessionsSheet = "Sessions"
)

// Timecard renders the week as an .xlsx workbook and suggests a file name.
func (s *ApprovalService) Timecard(ctx context.Context, actor model.Actor, staffID string, week Week) ([]byte, string, error) {
	detail, err := s.GetWeeklyDetail(ctx, actor, staffID, week)
	if err != nil {
		return nil, "", err
	}
	data, err := BuildTimecard(detail, s.cfg.loc())
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("timecard_%s_%s.xlsx", fileSafe(detail.Approval.StaffName), week.Key())
	return data, name, nil
}

// BuildTimecard writes a summary sheet (one row per day) and a sessions sheet.
func BuildTimecard(d *model.WeeklyDetail, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", timecardSummarySheet); err != nil {
		return nil, fmt.Errorf("timecard: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("timecard style: %w", err)
	}

	sh := timecardSummarySheet
	wa := d.Approval
	cells := [][]any{
		{"Staff", wa.StaffName},
		{"Staff ID", wa.StaffID},
		{"Week", wa.WeekStart + " to " + wa.WeekEnd},
		{"Status", wa.Status},
	}
	if wa.ApprovedByName != nil && wa.ApprovedAt != nil {
		cells = append(cells, []any{"Approved", fmt.Sprintf("%s, %s", *wa.ApprovedByName, wa.ApprovedAt.In(loc).Format("2006-01-02 15:04"))})
	}
	row := 1
	for _, c := range cells {
		if err := setRow(f, sh, row, c); err != nil {
			return nil, err
		}
		row++
	}

	row++
	header := row
	if err := setRow(f, sh, row, []any{"Date", "Day", "Computed", "Adjusted", "Result", "Sessions", "Flags"}); err != nil {
		return nil, err
	}
	for _, day := range d.Days {
		row++
		adjusted := ""
		if day.AdjustedMinutes != nil {
			adjusted = FormatMinutes(*day.AdjustedMinutes)
		}
		vals := []any{day.Date, day.Weekday, FormatMinutes(day.ComputedMinutes), adjusted,
			FormatMinutes(day.ResultMinutes), day.Sessions, strings.Join(day.Flags, ", ")}
		if err := setRow(f, sh, row, vals); err != nil {
			return nil, err
		}
	}
	row++
	total := row
	if err := setRow(f, sh, row, []any{"Total", "", FormatMinutes(wa.ComputedMinutes), "", FormatMinutes(wa.FinalMinutes), "", fmt.Sprintf("%d flags", wa.FlagsCount)}); err != nil {
		return nil, err
	}
	for _, r := range []int{header, total} {
		if err := f.SetCellStyle(sh, fmt.Sprintf("A%d", r), fmt.Sprintf("G%d", r), bold); err != nil {
			return nil, fmt.Errorf("timecard style: %w", err)
		}
	}
	if err := f.SetColWidth(sh, "A", "G", 14); err != nil {
		return nil, fmt.Errorf("timecard: %w", err)
	}

	if _, err := f.NewSheet(timecardSessionsSheet); err != nil {
		return nil, fmt.Errorf("timecard: %w", err)
	}
	sh = timecardSessionsSheet
	if err := setRow(f, sh, 1, []any{"Date", "Check in", "Check out", "Minutes", "Source", "Flags", "In lat", "In lng", "In accuracy (m)"}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sh, "A1", "I1", bold); err != nil {
		return nil, fmt.Errorf("timecard style: %w", err)
	}
	for i, e := range d.Events {
		out, minutes := "", ""
		if e.CheckOutAt != nil {
			out = e.CheckOutAt.In(loc).Format("2006-01-02 15:04")
		}
		if e.TotalMinutes != nil {
			minutes = FormatMinutes(*e.TotalMinutes)
		}
		vals := []any{e.WorkDate, e.CheckInAt.In(loc).Format("2006-01-02 15:04"), out, minutes, e.Source,
			strings.Join(e.Flags, ", "), e.CheckInLocation.Latitude, e.CheckInLocation.Longitude, e.CheckInLocation.AccuracyMeters}
		if err := setRow(f, sh, i+2, vals); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("timecard write: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, vals []any) error {
	for i, v := range vals {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("timecard cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("timecard %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func fileSafe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "staff"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, s)
}
