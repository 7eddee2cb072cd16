package main

import (
	"context"
	"fmt"

	"github.com/galvinchau/bac-hms-sub000/internal/logger"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

// latestRow restricts approved_weeks to the newest row of each staff week.
const latestRow = `JOIN (SELECT staff_id, week_start, MAX(synced_at) AS synced_at FROM approved_weeks GROUP BY staff_id, week_start) l ` +
	`ON a.staff_id = l.staff_id AND a.week_start = l.week_start AND a.synced_at = l.synced_at`

func initKnowledge(ctx context.Context, client *sdk.RawClient) error {
	knowledges := []sdk.NL2SQLKnowledgeCreateRequest{
		{Type: "glossary", Key: "approved week", Value: []string{"the latest approved_weeks row for a staff_id and week_start whose status is APPROVED"}},
		{Type: "glossary", Key: "payable hours", Value: []string{"approved_weeks.final_minutes divided by 60"}},
		{Type: "glossary", Key: "unlocked week", Value: []string{"a week whose latest approved_weeks row has status PENDING; it must not be paid"}},

		{Type: "synonyms", Key: "caregiver/aide/employee/staff", Value: []string{"the staff member"}, AssociateTables: []string{"approved_weeks,staff_name"}},
		{Type: "synonyms", Key: "hours/time worked/total", Value: []string{"minutes frozen at approval"}, AssociateTables: []string{"approved_weeks,final_minutes"}},
		{Type: "synonyms", Key: "approver/reviewer/supervisor", Value: []string{"who approved the week"}, AssociateTables: []string{"approved_weeks,approved_by_name"}},

		{Type: "logic", Key: "rows are append-only; always take the newest synced_at per (staff_id, week_start)", Value: []string{latestRow}},
		{Type: "logic", Key: "weeks run Sunday to Saturday; week_start is always a Sunday", Value: []string{"week boundary rule"}},

		{Type: "case_library", Key: "payable hours per caregiver for a week", Value: []string{
			fmt.Sprintf("SELECT a.staff_name, a.final_minutes / 60.0 AS hours FROM approved_weeks a %s WHERE a.status = 'APPROVED' AND a.week_start = '2026-01-04' ORDER BY a.staff_name", latestRow),
		}},
		{Type: "case_library", Key: "weeks unlocked after approval", Value: []string{
			fmt.Sprintf("SELECT a.staff_name, a.week_start FROM approved_weeks a %s WHERE a.status = 'PENDING'", latestRow),
		}},
	}

	for _, k := range knowledges {
		resp, err := client.CreateKnowledge(ctx, &k)
		if err != nil {
			if isDuplicate(err) {
				logger.Info("knowledge: already exists, skipping", "type", k.Type, "key", k.Key)
				continue
			}
			return err
		}
		logger.Info("knowledge: created", "type", k.Type, "key", k.Key, "id", resp.ID)
	}
	return nil
}
