package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"tfshrms.cloud/hrms/utils"
)

// ImportFailure is one spreadsheet row that was not imported. Row is 1-based
// and counts the header.
type ImportFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Inserted int             `json:"inserted"`
	Failed   []ImportFailure `json:"failed"`
}

var targetColumns = []string{"user_id", "month_year", "monthly_target", "extra_assigned_hours", "working_days"}

// readSheet returns the rows of a csv file or of the first sheet of an xlsx file.
func readSheet(name string, r io.Reader) ([][]string, error) {
	switch Extension(name) {
	case "csv":
		rows, err := utils.ParseCSV(r)
		if err != nil {
			return nil, validationf("invalid csv: %v", err)
		}
		return rows, nil
	case "xlsx":
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			return nil, err
		}
		f, err := excelize.OpenReader(&buf)
		if err != nil {
			return nil, validationf("invalid xlsx: %v", err)
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, validationf("workbook has no sheets")
		}
		return f.GetRows(sheets[0])
	default:
		return nil, validationf("only csv and xlsx files can be imported")
	}
}

// ImportUserTargets adds one user target per data row. The header row names the
// columns; user_id and month_year are required, the rest default to 0. Each row is
// added on its own so one bad row does not block the rest.
func (s *TargetService) ImportUserTargets(ctx context.Context, name string, r io.Reader) (*ImportResult, error) {
	rows, err := readSheet(name, r)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, validationf("file has no data rows")
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range targetColumns[:2] {
		if _, ok := index[col]; !ok {
			return nil, validationf("missing column %q", col)
		}
	}

	result := &ImportResult{Failed: []ImportFailure{}}
	for n, row := range rows[1:] {
		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if strings.Join(row, "") == "" {
			continue
		}

		in, err := parseTargetRow(cell)
		if err == nil {
			_, err = s.AddUserTarget(ctx, in)
		}
		if err != nil {
			if !errors.Is(err, ErrValidation) && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) {
				return nil, err
			}
			result.Failed = append(result.Failed, ImportFailure{Row: n + 2, Reason: err.Error()})
			continue
		}
		result.Inserted++
	}
	return result, nil
}

func parseTargetRow(cell func(string) string) (UserTargetInput, error) {
	var in UserTargetInput
	var err error
	if in.UserID, err = strconv.Atoi(cell("user_id")); err != nil {
		return in, validationf("user_id %q is not a number", cell("user_id"))
	}
	in.MonthYear = cell("month_year")
	if in.MonthlyTarget, err = parseFloatCell(cell("monthly_target")); err != nil {
		return in, err
	}
	if in.ExtraAssignedHours, err = parseFloatCell(cell("extra_assigned_hours")); err != nil {
		return in, err
	}
	if v := cell("working_days"); v != "" {
		if in.WorkingDays, err = strconv.Atoi(v); err != nil {
			return in, validationf("working_days %q is not a number", v)
		}
	}
	return in, nil
}

func parseFloatCell(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, validationf("%q is not a number", v)
	}
	return f, nil
}
