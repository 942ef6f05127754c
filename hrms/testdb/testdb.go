// Package testdb opens throwaway SQLite databases with the hrms schema for tests.
package testdb

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tfshrms.cloud/hrms/hrms/model"
)

// Role ids seeded by Open, in the order of the roles migration.
const (
	RoleSuperAdmin = iota + 1
	RoleAdmin
	RoleManager
	RoleAssistantManager
	RoleQA
	RoleAgent
)

var roleNames = []string{"super admin", "admin", "project manager", "assistant manager", "qa", "agent"}

// Open returns a private in-memory database with every table and the default roles.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	for _, name := range roleNames {
		require.NoError(t, db.Create(&model.Role{Name: name, IsActive: true}).Error)
	}
	return db
}

// User creates an active user with the given role.
func User(t testing.TB, db *gorm.DB, name string, roleID int, opts ...func(*model.User)) model.User {
	t.Helper()
	u := model.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		RoleID:   roleID,
		Tenure:   1,
		IsActive: true,
	}
	for _, opt := range opts {
		opt(&u)
	}
	require.NoError(t, db.Omit("Role", "Team", "Designation", "Supervisors").Create(&u).Error)
	return u
}

// Supervise records supervisorID as a supervisor of userID.
func Supervise(t testing.TB, db *gorm.DB, userID, supervisorID int, relation string) {
	t.Helper()
	require.NoError(t, db.Create(&model.UserSupervisor{UserID: userID, SupervisorID: supervisorID, Relation: relation}).Error)
}

func Team(t testing.TB, db *gorm.DB, name string) model.Team {
	t.Helper()
	team := model.Team{Name: name, IsActive: true}
	require.NoError(t, db.Create(&team).Error)
	return team
}

// Project creates an active project with the given members.
func Project(t testing.TB, db *gorm.DB, name string, members ...model.ProjectMember) model.Project {
	t.Helper()
	p := model.Project{Name: name, Code: name, IsActive: true}
	require.NoError(t, db.Omit("Members").Create(&p).Error)
	for _, m := range members {
		m.ProjectID = p.ID
		require.NoError(t, db.Create(&m).Error)
	}
	return p
}

func Member(userID int, relation string) model.ProjectMember {
	return model.ProjectMember{UserID: userID, Relation: relation}
}

func Task(t testing.TB, db *gorm.DB, projectID int, name string, target float64, memberIDs ...int) model.Task {
	t.Helper()
	task := model.Task{ProjectID: projectID, Name: name, Target: target, IsActive: true}
	require.NoError(t, db.Omit("Members").Create(&task).Error)
	for _, id := range memberIDs {
		require.NoError(t, db.Create(&model.TaskMember{TaskID: task.ID, UserID: id}).Error)
	}
	return task
}

// Tracker logs an active tracker at workedAt. Billable hours are stored as
// production / tenure target.
func Tracker(t testing.TB, db *gorm.DB, userID, projectID, taskID int, production, tenureTarget float64, workedAt time.Time) model.Tracker {
	t.Helper()
	billable := 0.0
	if tenureTarget != 0 {
		billable = production / tenureTarget
	}
	tr := model.Tracker{
		UserID:        userID,
		ProjectID:     projectID,
		TaskID:        taskID,
		Production:    production,
		ActualTarget:  tenureTarget,
		TenureTarget:  tenureTarget,
		BillableHours: billable,
		WorkedAt:      workedAt.UTC(),
		IsActive:      true,
	}
	require.NoError(t, db.Create(&tr).Error)
	return tr
}

func UserTarget(t testing.TB, db *gorm.DB, userID int, month string, target, extra float64, workingDays int) model.UserMonthlyTarget {
	t.Helper()
	row := model.UserMonthlyTarget{
		UserID:             userID,
		MonthYear:          month,
		MonthlyTarget:      target,
		ExtraAssignedHours: extra,
		WorkingDays:        workingDays,
		IsActive:           true,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

// Deactivate sets is_active to false. Create cannot do it because the column
// defaults to true.
func Deactivate(t testing.TB, db *gorm.DB, value interface{}) {
	t.Helper()
	require.NoError(t, db.Model(value).Update("is_active", false).Error)
}

// Day is midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
