package core

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"tfshrms.cloud/hrms/utils"
)

// ExportMonthlySummary writes a monthly view to an xlsx workbook with a
// "Summary" and a "Trackers" sheet.
func ExportMonthlySummary(view *MonthlyView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet("Trackers"); err != nil {
		return nil, err
	}

	summary := [][]interface{}{{
		"User ID", "User", "Month", "Monthly Target", "Extra Hours", "Total Target",
		"Billable Hours", "Pending Days", "Daily Required Hours",
	}}
	for _, s := range view.MonthSummary {
		summary = append(summary, []interface{}{
			s.UserID, s.UserName, s.MonthYear, s.MonthlyTarget, s.ExtraAssignedHours,
			s.MonthlyTotalTarget, s.TotalBillableHoursMonth, utils.Format(s.PendingDays),
			utils.Format(s.DailyRequiredHours),
		})
	}
	if err := writeRows(f, "Summary", summary); err != nil {
		return nil, err
	}

	trackers := [][]interface{}{{
		"Tracker ID", "Worked At", "User", "Team", "Project", "Task",
		"Production", "Actual Target", "Tenure Target", "Billable Hours", "File",
	}}
	for _, t := range view.Trackers {
		trackers = append(trackers, []interface{}{
			t.TrackerID, t.WorkedAt.Format("2006-01-02 15:04"), t.UserName, t.TeamName,
			t.ProjectName, t.TaskName, t.Production, t.ActualTarget, t.TenureTarget,
			t.BillableHours, utils.Format(t.FileURL),
		})
	}
	if err := writeRows(f, "Trackers", trackers); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
