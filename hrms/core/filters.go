package core

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"tfshrms.cloud/hrms/utils"
)

const dateLayout = "2006-01-02"

// Filters narrow tracker rows. Zero values mean "not set".
type Filters struct {
	UserID    int    `json:"userId,omitempty"`
	ProjectID int    `json:"projectId,omitempty"`
	TaskID    int    `json:"taskId,omitempty"`
	TeamID    int    `json:"teamId,omitempty"`
	Date      string `json:"date,omitempty"`
	DateFrom  string `json:"dateFrom,omitempty"`
	DateTo    string `json:"dateTo,omitempty"`
	IsActive  *bool  `json:"isActive,omitempty"`
	Month     string `json:"monthYear,omitempty"`
}

// timeWindow is the validated form of the date filters.
type timeWindow struct {
	from *time.Time
	to   *time.Time
	day  *time.Time
}

// ParseBound parses a filter bound. A date-only start widens to 00:00:00 and a
// date-only end to 23:59:59 of the same day.
func ParseBound(s string, end bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if len(s) == len(dateLayout) {
		d, err := time.ParseInLocation(dateLayout, s, time.UTC)
		if err != nil {
			return nil, validationf("invalid date %q", s)
		}
		if end {
			d = d.Add(24*time.Hour - time.Second)
		}
		return &d, nil
	}
	t, err := utils.ParseISOTime(s)
	if err != nil {
		return nil, validationf("invalid date %q", s)
	}
	utc := t.UTC()
	return &utc, nil
}

// ParseDay parses a YYYY-MM-DD calendar day.
func ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, validationf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// Validate checks every filter before any storage access.
func (f Filters) Validate() error {
	_, err := f.window()
	if err != nil {
		return err
	}
	if f.UserID < 0 || f.ProjectID < 0 || f.TaskID < 0 || f.TeamID < 0 {
		return validationf("ids must be positive")
	}
	if f.Month != "" {
		if _, err := ParseMonth(f.Month); err != nil {
			return err
		}
	}
	return nil
}

func (f Filters) window() (timeWindow, error) {
	var w timeWindow
	var err error
	if f.Date != "" {
		d, err := ParseDay(f.Date)
		if err != nil {
			return w, err
		}
		w.day = &d
	}
	if w.from, err = ParseBound(f.DateFrom, false); err != nil {
		return w, err
	}
	if w.to, err = ParseBound(f.DateTo, true); err != nil {
		return w, err
	}
	return w, nil
}

// MonthOrCurrent returns the filter month, or the month of now.
func (f Filters) MonthOrCurrent(now time.Time) Month {
	if m, err := ParseMonth(f.Month); err == nil {
		return m
	}
	return MonthOf(now.UTC())
}

// apply adds the id and date filters to a query over "trackers AS t" joined with "users AS u".
func (f Filters) apply(q *gorm.DB, w timeWindow) *gorm.DB {
	if f.UserID > 0 {
		q = q.Where("t.user_id = ?", f.UserID)
	}
	if f.ProjectID > 0 {
		q = q.Where("t.project_id = ?", f.ProjectID)
	}
	if f.TaskID > 0 {
		q = q.Where("t.task_id = ?", f.TaskID)
	}
	if f.TeamID > 0 {
		q = q.Where("u.team_id = ?", f.TeamID)
	}
	if w.day != nil {
		q = q.Where("t.worked_at >= ? AND t.worked_at < ?", *w.day, w.day.AddDate(0, 0, 1))
	}
	if w.from != nil {
		q = q.Where("t.worked_at >= ?", *w.from)
	}
	if w.to != nil {
		q = q.Where("t.worked_at <= ?", *w.to)
	}
	return q
}

// applyQC maps the user and date filters onto "qc_scores AS q".
func (f Filters) applyQC(q *gorm.DB, w timeWindow) *gorm.DB {
	if f.UserID > 0 {
		q = q.Where("q.user_id = ?", f.UserID)
	}
	if w.day != nil {
		q = q.Where("q.qc_date = ?", w.day.Format(dateLayout))
	}
	if w.from != nil {
		q = q.Where("q.qc_date >= ?", w.from.Format(dateLayout))
	}
	if w.to != nil {
		q = q.Where("q.qc_date <= ?", w.to.Format(dateLayout))
	}
	return q
}
