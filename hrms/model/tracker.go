package model

import "time"

// Tracker is one daily work entry. BillableHours is derived from
// Production / TenureTarget on every write.
type Tracker struct {
	ID            int       `gorm:"primaryKey;column:tracker_id" json:"trackerId"`
	UserID        int       `gorm:"column:user_id;not null;index:idx_trackers_user_worked" json:"userId"`
	ProjectID     int       `gorm:"column:project_id;not null;index" json:"projectId"`
	TaskID        int       `gorm:"column:task_id;not null;index" json:"taskId"`
	Production    float64   `gorm:"column:production;type:decimal(12,2);not null" json:"production"`
	ActualTarget  float64   `gorm:"column:actual_target;type:decimal(12,2);not null" json:"actualTarget"`
	TenureTarget  float64   `gorm:"column:tenure_target;type:decimal(12,2);not null" json:"tenureTarget"`
	BillableHours float64   `gorm:"column:billable_hours;type:decimal(14,4);not null" json:"billableHours"`
	File          *string   `gorm:"column:tracker_file;type:varchar(255)" json:"trackerFile"`
	WorkedAt      time.Time `gorm:"column:worked_at;not null;index:idx_trackers_user_worked" json:"workedAt"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Tracker) TableName() string {
	return "trackers"
}

type UserMonthlyTarget struct {
	ID                 int       `gorm:"primaryKey;column:id" json:"id"`
	UserID             int       `gorm:"column:user_id;not null;index:idx_umt_user_month" json:"userId"`
	MonthYear          string    `gorm:"column:month_year;type:varchar(7);not null;index:idx_umt_user_month" json:"monthYear"`
	MonthlyTarget      float64   `gorm:"column:monthly_target;type:decimal(10,2);not null;default:0" json:"monthlyTarget"`
	ExtraAssignedHours float64   `gorm:"column:extra_assigned_hours;type:decimal(10,2);not null;default:0" json:"extraAssignedHours"`
	WorkingDays        int       `gorm:"column:working_days;not null;default:0" json:"workingDays"`
	IsActive           bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt          time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (UserMonthlyTarget) TableName() string {
	return "user_monthly_targets"
}

// TotalTarget is the monthly target plus extra assigned hours.
func (t *UserMonthlyTarget) TotalTarget() float64 {
	return t.MonthlyTarget + t.ExtraAssignedHours
}

type ProjectMonthlyTarget struct {
	ID            int       `gorm:"primaryKey;column:id" json:"id"`
	ProjectID     int       `gorm:"column:project_id;not null;index:idx_pmt_project_month" json:"projectId"`
	MonthYear     string    `gorm:"column:month_year;type:varchar(7);not null;index:idx_pmt_project_month" json:"monthYear"`
	MonthlyTarget float64   `gorm:"column:monthly_target;type:decimal(10,2);not null;default:0" json:"monthlyTarget"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (ProjectMonthlyTarget) TableName() string {
	return "project_monthly_targets"
}

// QCScore is keyed by (user, day). Either value may be missing.
type QCScore struct {
	UserID        int       `gorm:"primaryKey;column:user_id;autoIncrement:false" json:"userId"`
	Date          string    `gorm:"primaryKey;column:qc_date;type:varchar(10)" json:"date"`
	Score         *float64  `gorm:"column:qc_score;type:decimal(6,2)" json:"qcScore"`
	AssignedHours *float64  `gorm:"column:assigned_hours;type:decimal(6,2)" json:"assignedHours"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (QCScore) TableName() string {
	return "qc_scores"
}

// All lists every table for AutoMigrate in tests and tooling.
func All() []interface{} {
	return []interface{}{
		&Role{}, &Team{}, &Designation{}, &User{}, &UserSupervisor{},
		&Project{}, &ProjectMember{}, &Task{}, &TaskMember{},
		&Tracker{}, &UserMonthlyTarget{}, &ProjectMonthlyTarget{}, &QCScore{},
	}
}
