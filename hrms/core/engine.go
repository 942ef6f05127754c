package core

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/infrastructure/metrics"
)

// TrackerRow is one tracker joined with its user, team, project and task names.
type TrackerRow struct {
	TrackerID     int       `gorm:"column:tracker_id" json:"trackerId"`
	UserID        int       `gorm:"column:user_id" json:"userId"`
	UserName      string    `gorm:"column:user_name" json:"userName"`
	TeamName      string    `gorm:"column:team_name" json:"teamName"`
	ProjectID     int       `gorm:"column:project_id" json:"projectId"`
	ProjectName   string    `gorm:"column:project_name" json:"projectName"`
	TaskID        int       `gorm:"column:task_id" json:"taskId"`
	TaskName      string    `gorm:"column:task_name" json:"taskName"`
	Production    float64   `gorm:"column:production" json:"production"`
	ActualTarget  float64   `gorm:"column:actual_target" json:"actualTarget"`
	TenureTarget  float64   `gorm:"column:tenure_target" json:"tenureTarget"`
	BillableHours float64   `gorm:"-" json:"billableHours"`
	File          *string   `gorm:"column:tracker_file" json:"-"`
	FileURL       *string   `gorm:"-" json:"trackerFile"`
	WorkedAt      time.Time `gorm:"column:worked_at" json:"workedAt"`
	IsActive      bool      `gorm:"column:is_active" json:"isActive"`
}

type MonthSummary struct {
	UserID                  int      `json:"userId"`
	UserName                string   `json:"userName"`
	MonthYear               string   `json:"monthYear"`
	TargetID                *int     `json:"userMonthlyTrackerId"`
	MonthlyTarget           float64  `json:"monthlyTarget"`
	ExtraAssignedHours      float64  `json:"extraAssignedHours"`
	MonthlyTotalTarget      float64  `json:"monthlyTotalTarget"`
	TotalBillableHoursMonth float64  `json:"totalBillableHoursMonth"`
	PendingDays             *int     `json:"pendingDays"`
	DailyRequiredHours      *float64 `json:"dailyRequiredHours"`
}

type MonthlyView struct {
	Count        int            `json:"count"`
	MonthYear    string         `json:"monthYear"`
	Trackers     []TrackerRow   `json:"trackers"`
	MonthSummary []MonthSummary `json:"monthSummary"`
}

type DailyRow struct {
	UserID                  int      `json:"userId"`
	UserName                string   `json:"userName"`
	WorkDate                string   `json:"workDate"`
	TotalBillableHoursDay   float64  `json:"totalBillableHoursDay"`
	TrackersCountDay        int      `json:"trackersCountDay"`
	CumulativeBillableHours float64  `json:"cumulativeBillableTillDay"`
	WorkedDaysTillDay       int      `json:"workedDaysTillDay"`
	QCScore                 *float64 `json:"qcScore"`
	AssignedHours           *float64 `json:"assignedHours"`
	TargetID                *int     `json:"userMonthlyTrackerId"`
	MonthlyTarget           float64  `json:"monthlyTarget"`
	ExtraAssignedHours      float64  `json:"extraAssignedHours"`
	MonthlyTotalTarget      float64  `json:"monthlyTotalTarget"`
	WorkingDays             *int     `json:"workingDays"`
	PendingDaysAfterThisDay int      `json:"pendingDaysAfterThisDay"`
	DailyRequiredHours      *float64 `json:"dailyRequiredHours"`
}

type DailyView struct {
	Count     int        `json:"count"`
	MonthYear string     `json:"monthYear"`
	Rows      []DailyRow `json:"rows"`
}

// Engine computes tracker views from one fetched row-set per request.
type Engine struct {
	db    *gorm.DB
	files FileStore
}

func NewEngine(db *gorm.DB, files FileStore) *Engine {
	return &Engine{db: db, files: files}
}

func observe(view string) func() {
	start := time.Now()
	return func() {
		metrics.AggregationDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
	}
}

// rowQuery selects tracker rows. strict drops rows of inactive users and projects,
// which the dashboard never shows.
type rowQuery struct {
	scope   Scope
	filters Filters
	window  timeWindow
	month   *Month
	strict  bool
	limit   int
}

func fetchRows(ctx context.Context, db *gorm.DB, rq rowQuery) ([]TrackerRow, error) {
	q := db.WithContext(ctx).
		Table("trackers AS t").
		Select(`t.tracker_id, t.user_id, COALESCE(u.user_name, '') AS user_name,
			COALESCE(tm.team_name, '') AS team_name, t.project_id,
			COALESCE(p.project_name, '') AS project_name, t.task_id,
			COALESCE(k.task_name, '') AS task_name, t.production, t.actual_target,
			t.tenure_target, t.tracker_file, t.worked_at, t.is_active`).
		Joins("LEFT JOIN users u ON u.user_id = t.user_id").
		Joins("LEFT JOIN teams tm ON tm.team_id = u.team_id").
		Joins("LEFT JOIN projects p ON p.project_id = t.project_id").
		Joins("LEFT JOIN tasks k ON k.task_id = t.task_id")

	if rq.strict {
		q = q.Where("t.is_active = ? AND u.is_active = ? AND u.is_deleted = ? AND p.is_active = ?", true, true, false, true)
	} else {
		active := true
		if rq.filters.IsActive != nil {
			active = *rq.filters.IsActive
		}
		q = q.Where("t.is_active = ?", active)
	}
	if rq.month != nil {
		q = q.Where("t.worked_at >= ? AND t.worked_at < ?", rq.month.First(), rq.month.End())
	}
	q = rq.scope.apply(q, "t.user_id")
	q = rq.filters.apply(q, rq.window)
	q = q.Order("t.worked_at DESC").Order("t.tracker_id DESC")
	if rq.limit > 0 {
		q = q.Limit(rq.limit)
	}

	rows := []TrackerRow{}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].WorkedAt = rows[i].WorkedAt.UTC()
		rows[i].BillableHours = Round(BillableHours(rows[i].Production, rows[i].TenureTarget), 4)
	}
	return rows, nil
}

// scopeFor resolves the caller's role and visible users.
func scopeFor(ctx context.Context, db *gorm.DB, callerID int) (string, Scope, error) {
	role, err := ResolveRole(ctx, db, callerID)
	if err != nil {
		return "", Scope{}, err
	}
	scope, err := SubordinateUserIDs(ctx, db, role, callerID)
	if err != nil {
		return "", Scope{}, err
	}
	return role, scope, nil
}

// userMonthStats is one user's month-wide progress regardless of view filters.
type userMonthStats struct {
	billable float64
	worked   int
}

func monthStats(ctx context.Context, db *gorm.DB, userIDs []int, month Month, cutoff time.Time) (map[int]userMonthStats, error) {
	stats := map[int]userMonthStats{}
	if len(userIDs) == 0 {
		return stats, nil
	}

	var trackers []model.Tracker
	err := db.WithContext(ctx).
		Select("user_id", "production", "tenure_target", "worked_at").
		Where("is_active = ? AND user_id IN ?", true, userIDs).
		Where("worked_at >= ? AND worked_at < ?", month.First(), month.End()).
		Find(&trackers).Error
	if err != nil {
		return nil, err
	}

	billable := map[int][]float64{}
	times := map[int][]time.Time{}
	for _, t := range trackers {
		billable[t.UserID] = append(billable[t.UserID], BillableHours(t.Production, t.TenureTarget))
		times[t.UserID] = append(times[t.UserID], t.WorkedAt)
	}
	for id := range billable {
		stats[id] = userMonthStats{
			billable: Round(Sum(billable[id]), 4),
			worked:   WorkedDays(times[id], cutoff),
		}
	}
	return stats, nil
}

// monthTargets returns the active target of each user for month. With duplicate
// rows the oldest wins.
func monthTargets(ctx context.Context, db *gorm.DB, userIDs []int, month Month) (map[int]model.UserMonthlyTarget, error) {
	targets := map[int]model.UserMonthlyTarget{}
	if len(userIDs) == 0 {
		return targets, nil
	}

	var rows []model.UserMonthlyTarget
	err := db.WithContext(ctx).
		Where("is_active = ? AND month_year = ? AND user_id IN ?", true, month.String(), userIDs).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if _, ok := targets[r.UserID]; !ok {
			targets[r.UserID] = r
		}
	}
	return targets, nil
}

type qcKey struct {
	userID int
	date   string
}

func monthQC(ctx context.Context, db *gorm.DB, userIDs []int, month Month) (map[qcKey]model.QCScore, error) {
	out := map[qcKey]model.QCScore{}
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []model.QCScore
	err := db.WithContext(ctx).
		Where("user_id IN ? AND qc_date >= ? AND qc_date <= ?",
			userIDs, month.First().Format(dateLayout), month.Last().Format(dateLayout)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[qcKey{r.UserID, r.Date}] = r
	}
	return out, nil
}

// usersOf returns the distinct user ids of rows, and their names.
func usersOf(rows []TrackerRow) ([]int, map[int]string) {
	names := map[int]string{}
	ids := []int{}
	for _, r := range rows {
		if _, ok := names[r.UserID]; !ok {
			names[r.UserID] = r.UserName
			ids = append(ids, r.UserID)
		}
	}
	sort.Ints(ids)
	return ids, names
}

func (e *Engine) fileURLs(rows []TrackerRow) {
	if e.files == nil {
		return
	}
	for i := range rows {
		if rows[i].File != nil && *rows[i].File != "" {
			url := e.files.URL(TrackerFilesDir, *rows[i].File)
			rows[i].FileURL = &url
		}
	}
}

// MonthlyView lists the caller's visible tracker rows for the filter month with one
// summary per user present.
func (e *Engine) MonthlyView(ctx context.Context, callerID int, f Filters, now time.Time) (*MonthlyView, error) {
	defer observe("monthly")()

	if err := f.Validate(); err != nil {
		return nil, err
	}
	w, _ := f.window()
	month := f.MonthOrCurrent(now)

	view := &MonthlyView{MonthYear: month.String(), Trackers: []TrackerRow{}, MonthSummary: []MonthSummary{}}

	_, scope, err := scopeFor(ctx, e.db, callerID)
	if err != nil {
		return nil, err
	}
	if f.UserID > 0 && !scope.Contains(f.UserID) {
		return view, nil
	}

	rows, err := fetchRows(ctx, e.db, rowQuery{scope: scope, filters: f, window: w, month: &month})
	if err != nil {
		return nil, err
	}
	e.fileURLs(rows)
	view.Trackers = rows
	view.Count = len(rows)

	userIDs, names := usersOf(rows)
	stats, err := monthStats(ctx, e.db, userIDs, month, month.Cutoff(now))
	if err != nil {
		return nil, err
	}
	targets, err := monthTargets(ctx, e.db, userIDs, month)
	if err != nil {
		return nil, err
	}

	for _, id := range userIDs {
		view.MonthSummary = append(view.MonthSummary, BuildMonthSummary(id, names[id], month, targets, stats[id]))
	}
	sort.SliceStable(view.MonthSummary, func(i, j int) bool {
		return view.MonthSummary[i].UserName < view.MonthSummary[j].UserName
	})
	return view, nil
}

// BuildMonthSummary applies the pending-days and required-pace rules to one user.
// Without a target row both are null.
func BuildMonthSummary(userID int, name string, month Month, targets map[int]model.UserMonthlyTarget, st userMonthStats) MonthSummary {
	s := MonthSummary{
		UserID:                  userID,
		UserName:                name,
		MonthYear:               month.String(),
		TotalBillableHoursMonth: st.billable,
	}
	target, ok := targets[userID]
	if !ok {
		return s
	}

	id := target.ID
	s.TargetID = &id
	s.MonthlyTarget = target.MonthlyTarget
	s.ExtraAssignedHours = target.ExtraAssignedHours
	s.MonthlyTotalTarget = MonthlyTotal(target.MonthlyTarget, target.ExtraAssignedHours)

	pending := PendingDays(target.WorkingDays, st.worked)
	s.PendingDays = &pending
	s.DailyRequiredHours = RequiredPace(s.MonthlyTotalTarget, st.billable, pending)
	return s
}

// DailyView buckets the filtered rows by user and UTC day with running totals.
func (e *Engine) DailyView(ctx context.Context, callerID int, f Filters, now time.Time) (*DailyView, error) {
	defer observe("daily")()

	if err := f.Validate(); err != nil {
		return nil, err
	}
	w, _ := f.window()
	month := f.MonthOrCurrent(now)

	view := &DailyView{MonthYear: month.String(), Rows: []DailyRow{}}

	_, scope, err := scopeFor(ctx, e.db, callerID)
	if err != nil {
		return nil, err
	}
	if f.UserID > 0 && !scope.Contains(f.UserID) {
		return view, nil
	}

	rows, err := fetchRows(ctx, e.db, rowQuery{scope: scope, filters: f, window: w, month: &month})
	if err != nil {
		return nil, err
	}
	userIDs, _ := usersOf(rows)
	targets, err := monthTargets(ctx, e.db, userIDs, month)
	if err != nil {
		return nil, err
	}
	qc, err := monthQC(ctx, e.db, userIDs, month)
	if err != nil {
		return nil, err
	}

	view.Rows = BuildDailyRows(rows, targets, qc)
	view.Count = len(view.Rows)
	return view, nil
}

// BuildDailyRows groups rows into (user, day) buckets ordered by day descending
// then user name. For every user the cumulative value of their latest day equals
// the sum of their day totals.
func BuildDailyRows(rows []TrackerRow, targets map[int]model.UserMonthlyTarget, qc map[qcKey]model.QCScore) []DailyRow {
	type key struct {
		userID int
		day    time.Time
	}
	index := map[key]int{}
	names := map[int]string{}
	buckets := []DailyBucket{}
	billable := [][]float64{}
	for _, r := range rows {
		k := key{r.UserID, Day(r.WorkedAt)}
		names[r.UserID] = r.UserName
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, DailyBucket{UserID: k.userID, Date: k.day})
			billable = append(billable, nil)
		}
		buckets[i].Count++
		billable[i] = append(billable[i], r.BillableHours)
	}
	for i := range buckets {
		buckets[i].Billable = Sum(billable[i])
	}

	out := make([]DailyRow, 0, len(buckets))
	for _, p := range Cumulate(buckets) {
		date := p.Date.Format(dateLayout)
		row := DailyRow{
			UserID:                  p.UserID,
			UserName:                names[p.UserID],
			WorkDate:                date,
			TotalBillableHoursDay:   Round(p.Billable, 4),
			TrackersCountDay:        p.Count,
			CumulativeBillableHours: Round(p.Cumulative, 4),
			WorkedDaysTillDay:       p.WorkedDaysTillDay,
		}
		if score, ok := qc[qcKey{p.UserID, date}]; ok {
			row.QCScore = score.Score
			row.AssignedHours = score.AssignedHours
		}

		workingDays := 0
		if target, ok := targets[p.UserID]; ok {
			id, wd := target.ID, target.WorkingDays
			row.TargetID = &id
			row.WorkingDays = &wd
			row.MonthlyTarget = target.MonthlyTarget
			row.ExtraAssignedHours = target.ExtraAssignedHours
			row.MonthlyTotalTarget = MonthlyTotal(target.MonthlyTarget, target.ExtraAssignedHours)
			workingDays = wd
		}
		row.PendingDaysAfterThisDay = PendingDays(workingDays, p.WorkedDaysTillDay)
		if row.TargetID != nil {
			row.DailyRequiredHours = RequiredPace(row.MonthlyTotalTarget, p.Cumulative, row.PendingDaysAfterThisDay)
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WorkDate != out[j].WorkDate {
			return out[i].WorkDate > out[j].WorkDate
		}
		if out[i].UserName != out[j].UserName {
			return out[i].UserName < out[j].UserName
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
