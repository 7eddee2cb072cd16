package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/galvinchau/bac-hms-sub000/internal/logger"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

const payrollTable = "approved_weeks"

// approvedWeekColumns must match the CSV written by service.PayrollSync.
var approvedWeekColumns = []sdk.Column{
	{Name: "staff_id", Type: "VARCHAR(64)", Comment: "staff member id"},
	{Name: "staff_name", Type: "VARCHAR(128)", Comment: "staff member display name"},
	{Name: "week_start", Type: "DATE", Comment: "Sunday the week starts on, agency local"},
	{Name: "week_end", Type: "DATE", Comment: "Saturday the week ends on"},
	{Name: "status", Type: "VARCHAR(16)", Comment: "APPROVED, or PENDING once a week is unlocked"},
	{Name: "final_minutes", Type: "INT", Comment: "payable minutes frozen at approval"},
	{Name: "approved_by", Type: "VARCHAR(64)", Comment: "reviewer id"},
	{Name: "approved_by_name", Type: "VARCHAR(128)", Comment: "reviewer name"},
	{Name: "approved_at", Type: "DATETIME", Comment: "approval time, UTC"},
	{Name: "synced_at", Type: "DATETIME(6)", Comment: "time the row was appended, UTC, microseconds"},
}

func initCatalog(ctx context.Context, client *sdk.RawClient, catalogID sdk.CatalogID, dbName string) (sdk.DatabaseID, sdk.TableID, error) {
	dbID, err := ensureDatabase(ctx, client, catalogID, dbName)
	if err != nil {
		return 0, 0, err
	}

	resp, err := client.CreateTable(ctx, &sdk.TableCreateRequest{
		DatabaseID: dbID,
		Name:       payrollTable,
		Columns:    approvedWeekColumns,
		Comment:    "weekly approvals handed to payroll; latest row per staff and week wins",
	})
	if err != nil {
		if isDuplicate(err) {
			logger.Info("catalog: table already exists", "name", payrollTable)
			return dbID, 0, nil
		}
		return 0, 0, fmt.Errorf("create table %s: %w", payrollTable, err)
	}
	logger.Info("catalog: table created", "name", payrollTable, "id", resp.TableID)
	return dbID, resp.TableID, nil
}

func ensureDatabase(ctx context.Context, client *sdk.RawClient, catalogID sdk.CatalogID, dbName string) (sdk.DatabaseID, error) {
	resp, err := client.CreateDatabase(ctx, &sdk.DatabaseCreateRequest{
		CatalogID:    catalogID,
		DatabaseName: dbName,
		Comment:      "home care payroll: approved timesheets",
	})
	if err == nil {
		logger.Info("catalog: database created", "id", resp.DatabaseID)
		return resp.DatabaseID, nil
	}
	if !isDuplicate(err) {
		return 0, fmt.Errorf("create database: %w", err)
	}

	logger.Info("catalog: database already exists, discovering ID", "name", dbName)
	list, err := client.ListDatabases(ctx, &sdk.DatabaseListRequest{CatalogID: catalogID})
	if err != nil {
		return 0, fmt.Errorf("list databases: %w", err)
	}
	for _, db := range list.List {
		if db.DatabaseName == dbName {
			return db.DatabaseID, nil
		}
	}
	return 0, fmt.Errorf("database %s not found in catalog %d", dbName, catalogID)
}

func isDuplicate(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate") || strings.Contains(s, "already exist") || strings.Contains(s, "conflict")
}
