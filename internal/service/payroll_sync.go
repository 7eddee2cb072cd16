package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/model"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

// PayrollSync appends approved and reopened weeks to the payroll table of a
// MatrixOne catalog. Payroll reads the latest row per (staff_id, week_start)
// and only pays rows whose status is APPROVED.
type PayrollSync struct {
	raw        *sdk.RawClient
	sdk        *sdk.SDKClient
	databaseID sdk.DatabaseID
	tableID    sdk.TableID
	now        func() time.Time
}

func NewPayrollSync(raw *sdk.RawClient, databaseID, tableID int64) *PayrollSync {
	return &PayrollSync{
		raw:        raw,
		sdk:        sdk.NewSDKClient(raw),
		databaseID: sdk.DatabaseID(databaseID),
		tableID:    sdk.TableID(tableID),
		now:        time.Now,
	}
}

const syncedAtLayout = "2006-01-02 15:04:05.000000"

// payrollColumns is the column order of the approved_weeks table.
var payrollColumns = []string{
	"staff_id", "staff_name", "week_start", "week_end", "status",
	"final_minutes", "approved_by", "approved_by_name", "approved_at", "synced_at",
}

// PublishWeek never fails the caller: the week is already committed. A sync
// miss is only logged and is not retried; ListPayroll stays the authoritative
// read for approved minutes.
func (s *PayrollSync) PublishWeek(ctx context.Context, rec model.PayrollRecord) {
	now := s.now()
	csv := payrollCSVRow(rec, now)
	name := fmt.Sprintf("payroll_%s_%s_%d.csv", rec.StaffID, rec.WeekStart, now.UnixNano())
	s.importCSV(ctx, csv, name, payrollMapping())
}

// payrollMapping maps CSV columns (1-based) onto approved_weeks.
func payrollMapping() []sdk.FileAndTableColumnMapping {
	mapping := make([]sdk.FileAndTableColumnMapping, len(payrollColumns))
	for i, col := range payrollColumns {
		mapping[i] = sdk.FileAndTableColumnMapping{TableColumn: col, Column: col, ColNumInFile: int32(i + 1)}
	}
	return mapping
}

func payrollCSVRow(rec model.PayrollRecord, syncedAt time.Time) string {
	approvedAt := ""
	if !rec.ApprovedAt.IsZero() {
		approvedAt = rec.ApprovedAt.UTC().Format("2006-01-02 15:04:05")
	}
	// synced_at orders the rows of one staff week; keep microseconds.
	return fmt.Sprintf("%s,%s,%s,%s,%s,%d,%s,%s,%s,%s\n",
		esc(rec.StaffID), esc(rec.StaffName), rec.WeekStart, rec.WeekEnd, rec.Status,
		rec.FinalMinutes, esc(rec.ApprovedBy), esc(rec.ApprovedByName), approvedAt,
		syncedAt.UTC().Format(syncedAtLayout))
}

func (s *PayrollSync) importCSV(ctx context.Context, csv, fileName string, mapping []sdk.FileAndTableColumnMapping) {
	resp, err := s.raw.UploadLocalFile(ctx, bytes.NewReader([]byte(csv)), fileName, []sdk.FileMeta{{Filename: fileName, Path: "/"}})
	if err != nil {
		slog.Warn("payroll sync: upload failed", "table", s.tableID, "file", fileName, "err", err)
		return
	}
	if len(resp.ConnFileIds) == 0 {
		slog.Warn("payroll sync: no conn_file_ids", "table", s.tableID, "file", fileName)
		return
	}

	_, err = s.sdk.ImportLocalFileToTable(ctx, &sdk.TableConfig{
		ConnFileIDs:      resp.ConnFileIds,
		NewTable:         false,
		DatabaseID:       s.databaseID,
		TableID:          s.tableID,
		IsColumnName:     false,
		RowStart:         1,
		Conflict:         1,
		ExistedTable:     mapping,
		ExistedTableOpts: sdk.ExistedTableOptions{Method: sdk.ExistedTableOptionAppend},
	})
	if err != nil {
		slog.Warn("payroll sync: import failed", "table", s.tableID, "file", fileName, "err", err)
		return
	}
	slog.Info("payroll sync: ok", "table", s.tableID, "file", fileName)
}

func esc(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
