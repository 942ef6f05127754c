package core

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/utils"
)

const dashboardTrackerLimit = 500

type DashboardSummary struct {
	UserCount          int      `json:"userCount"`
	ProjectCount       int      `json:"projectCount"`
	TaskCount          int      `json:"taskCount"`
	TrackerRows        int      `json:"trackerRows"`
	TotalProduction    float64  `json:"totalProduction"`
	TotalBillableHours float64  `json:"totalBillableHours"`
	AvgQCScore         *float64 `json:"avgQcScore"`
	QCDaysCount        int      `json:"qcDaysCount"`
}

type DashboardUser struct {
	UserID      int      `gorm:"column:user_id" json:"userId"`
	Name        string   `gorm:"column:user_name" json:"name"`
	Email       string   `gorm:"column:user_email" json:"email"`
	Number      string   `gorm:"column:user_number" json:"number"`
	Address     string   `gorm:"column:user_address" json:"address"`
	Tenure      float64  `gorm:"column:user_tenure" json:"tenure"`
	RoleName    string   `gorm:"column:role_name" json:"role"`
	Designation string   `gorm:"column:designation" json:"designation"`
	TeamName    string   `gorm:"column:team_name" json:"teamName"`
	AvgQCScore  *float64 `gorm:"-" json:"avgQcScore"`
	QCDaysCount int      `gorm:"-" json:"qcDaysCount"`
}

type DashboardProject struct {
	ProjectID          int     `json:"projectId"`
	ProjectName        string  `json:"projectName"`
	ProjectCode        string  `json:"projectCode"`
	ManagerIDs         []int   `json:"managerIds"`
	AssistantIDs       []int   `json:"assistantManagerIds"`
	QAIDs              []int   `json:"qaIds"`
	TeamIDs            []int   `json:"teamIds"`
	TotalBillableHours float64 `json:"totalBillableHours"`
}

type DashboardTask struct {
	TaskID    int     `json:"taskId"`
	ProjectID int     `json:"projectId"`
	TaskName  string  `json:"taskName"`
	Target    float64 `json:"taskTarget"`
	TeamIDs   []int   `json:"teamIds"`
}

type Dashboard struct {
	Role           string             `json:"loggedInRole"`
	FiltersApplied Filters            `json:"filtersApplied"`
	Summary        DashboardSummary   `json:"summary"`
	Users          []DashboardUser    `json:"users"`
	Projects       []DashboardProject `json:"projects"`
	Tasks          []DashboardTask    `json:"tasks"`
	Trackers       []TrackerRow       `json:"tracker"`
}

// Assembler builds the role-scoped dashboard.
type Assembler struct {
	db    *gorm.DB
	files FileStore
}

func NewAssembler(db *gorm.DB, files FileStore) *Assembler {
	return &Assembler{db: db, files: files}
}

func emptyDashboard(role string, f Filters) *Dashboard {
	return &Dashboard{
		Role:           role,
		FiltersApplied: f,
		Users:          []DashboardUser{},
		Projects:       []DashboardProject{},
		Tasks:          []DashboardTask{},
		Trackers:       []TrackerRow{},
	}
}

// Filter assembles the dashboard for callerID. Every total comes from one
// row-set, so project totals always add up to the summary total.
func (a *Assembler) Filter(ctx context.Context, callerID int, f Filters) (*Dashboard, error) {
	defer observe("dashboard")()

	if err := f.Validate(); err != nil {
		return nil, err
	}
	w, _ := f.window()

	role, scope, err := scopeFor(ctx, a.db, callerID)
	if err != nil {
		return nil, err
	}
	if f.UserID > 0 && !scope.Contains(f.UserID) {
		return emptyDashboard(role, f), nil
	}

	rows, err := fetchRows(ctx, a.db, rowQuery{scope: scope, filters: f, window: w, strict: true})
	if err != nil {
		return nil, err
	}
	users, err := dashboardUsers(ctx, a.db, rows)
	if err != nil {
		return nil, err
	}
	qc, err := qcByUser(ctx, a.db, scope, f, w)
	if err != nil {
		return nil, err
	}
	projects, err := VisibleProjects(ctx, a.db, role, callerID)
	if err != nil {
		return nil, err
	}
	tasks, err := VisibleTasks(ctx, a.db, ProjectIDs(projects))
	if err != nil {
		return nil, err
	}

	d := emptyDashboard(role, f)
	d.Users = users
	for i := range d.Users {
		d.Users[i].AvgQCScore, d.Users[i].QCDaysCount = QCAverage(qc[d.Users[i].UserID])
	}
	d.Projects = projectTotals(projects, rows)
	for _, t := range tasks {
		d.Tasks = append(d.Tasks, DashboardTask{
			TaskID:    t.ID,
			ProjectID: t.ProjectID,
			TaskName:  t.Name,
			Target:    t.Target,
			TeamIDs:   t.MemberIDs(),
		})
	}

	var all []*float64
	for _, scores := range qc {
		all = append(all, scores...)
	}
	production := make([]float64, 0, len(rows))
	billable := make([]float64, 0, len(rows))
	for _, r := range rows {
		production = append(production, r.Production)
		billable = append(billable, r.BillableHours)
	}
	d.Summary = DashboardSummary{
		UserCount:          len(d.Users),
		ProjectCount:       len(utils.GroupBy(rows, func(r TrackerRow) int { return r.ProjectID })),
		TaskCount:          len(utils.GroupBy(rows, func(r TrackerRow) int { return r.TaskID })),
		TrackerRows:        len(rows),
		TotalProduction:    Round(Sum(production), 2),
		TotalBillableHours: Round(Sum(billable), 4),
	}
	d.Summary.AvgQCScore, d.Summary.QCDaysCount = QCAverage(all)

	if len(rows) > dashboardTrackerLimit {
		rows = rows[:dashboardTrackerLimit]
	}
	if a.files != nil {
		for i := range rows {
			if rows[i].File != nil && *rows[i].File != "" {
				url := a.files.URL(TrackerFilesDir, *rows[i].File)
				rows[i].FileURL = &url
			}
		}
	}
	d.Trackers = rows
	return d, nil
}

// dashboardUsers loads profile fields of the distinct users in rows, newest id first.
func dashboardUsers(ctx context.Context, db *gorm.DB, rows []TrackerRow) ([]DashboardUser, error) {
	ids, _ := usersOf(rows)
	users := []DashboardUser{}
	if len(ids) == 0 {
		return users, nil
	}
	err := db.WithContext(ctx).
		Table("users AS u").
		Select(`u.user_id, u.user_name, u.user_email, COALESCE(u.user_number, '') AS user_number,
			COALESCE(u.user_address, '') AS user_address, u.user_tenure,
			COALESCE(r.role_name, '') AS role_name, COALESCE(d.designation, '') AS designation,
			COALESCE(tm.team_name, '') AS team_name`).
		Joins("LEFT JOIN roles r ON r.role_id = u.role_id").
		Joins("LEFT JOIN designations d ON d.designation_id = u.designation_id").
		Joins("LEFT JOIN teams tm ON tm.team_id = u.team_id").
		Where("u.user_id IN ?", ids).
		Order("u.user_id DESC").
		Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// qcByUser returns the non-null QC scores per user within scope and the date filters.
func qcByUser(ctx context.Context, db *gorm.DB, scope Scope, f Filters, w timeWindow) (map[int][]*float64, error) {
	q := db.WithContext(ctx).
		Table("qc_scores AS q").
		Select("q.user_id, q.qc_date, q.qc_score").
		Where("q.qc_score IS NOT NULL")
	q = scope.apply(q, "q.user_id")
	q = f.applyQC(q, w)

	var rows []model.QCScore
	if err := q.Order("q.user_id").Order("q.qc_date").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[int][]*float64{}
	for _, r := range rows {
		out[r.UserID] = append(out[r.UserID], r.Score)
	}
	return out, nil
}

// projectTotals attaches billable totals from rows to each visible project.
func projectTotals(projects []model.Project, rows []TrackerRow) []DashboardProject {
	byProject := utils.GroupBy(rows, func(r TrackerRow) int { return r.ProjectID })

	out := make([]DashboardProject, 0, len(projects))
	for _, p := range projects {
		out = append(out, DashboardProject{
			ProjectID:          p.ID,
			ProjectName:        p.Name,
			ProjectCode:        p.Code,
			ManagerIDs:         p.MemberIDs(model.RelationManager),
			AssistantIDs:       p.MemberIDs(model.RelationAssistantManager),
			QAIDs:              p.MemberIDs(model.RelationQA),
			TeamIDs:            p.MemberIDs(model.RelationTeam),
			TotalBillableHours: Round(Sum(utils.Map(byProject[p.ID], func(r TrackerRow) float64 { return r.BillableHours })), 4),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProjectID > out[j].ProjectID })
	return out
}
