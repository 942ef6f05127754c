package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/hrms/testdb"
)

func TestDashboardFilter(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	store := newMemStore()
	assembler := NewAssembler(db, store)

	admin := testdb.User(t, db, "admin", testdb.RoleAdmin)
	manager := testdb.User(t, db, "manager", testdb.RoleManager)
	agent := testdb.User(t, db, "agent", testdb.RoleAgent)
	loner := testdb.User(t, db, "loner", testdb.RoleAgent)
	testdb.Supervise(t, db, agent.ID, manager.ID, model.RelationManager)

	p1 := testdb.Project(t, db, "P1", testdb.Member(manager.ID, model.RelationManager), testdb.Member(agent.ID, model.RelationTeam))
	p2 := testdb.Project(t, db, "P2")
	t1 := testdb.Task(t, db, p1.ID, "T1", 10, agent.ID)
	t2 := testdb.Task(t, db, p2.ID, "T2", 20)

	tr := testdb.Tracker(t, db, agent.ID, p1.ID, t1.ID, 25, 10, at(2, 9))
	require.NoError(t, db.Model(&tr).Update("tracker_file", "sheet.pdf").Error)
	testdb.Tracker(t, db, agent.ID, p2.ID, t2.ID, 30, 20, at(3, 9))
	testdb.Tracker(t, db, loner.ID, p2.ID, t2.ID, 40, 20, at(3, 9))

	s1, s2 := 8.0, 9.0
	_, err := UpsertQC(ctx, db, QCInput{UserID: agent.ID, Date: "2026-02-02", Score: &s1})
	require.NoError(t, err)
	_, err = UpsertQC(ctx, db, QCInput{UserID: loner.ID, Date: "2026-02-03", Score: &s2})
	require.NoError(t, err)

	t.Run("admin sees everything and totals add up", func(t *testing.T) {
		d, err := assembler.Filter(ctx, admin.ID, Filters{})
		require.NoError(t, err)
		assert.Equal(t, "admin", d.Role)
		assert.Equal(t, 3, d.Summary.TrackerRows)
		assert.Equal(t, 95.0, d.Summary.TotalProduction)
		assert.Equal(t, 6.0, d.Summary.TotalBillableHours)
		assert.Equal(t, 8.5, *d.Summary.AvgQCScore)
		assert.Equal(t, 2, d.Summary.QCDaysCount)
		assert.Equal(t, 2, d.Summary.UserCount)
		assert.Equal(t, 2, d.Summary.ProjectCount)
		assert.Equal(t, 2, d.Summary.TaskCount)

		var total float64
		for _, p := range d.Projects {
			total += p.TotalBillableHours
		}
		assert.Equal(t, d.Summary.TotalBillableHours, total)
		require.Len(t, d.Projects, 2)
		assert.Equal(t, p2.ID, d.Projects[0].ProjectID)
		assert.Equal(t, []int{manager.ID}, d.Projects[1].ManagerIDs)

		var withFile *TrackerRow
		for i := range d.Trackers {
			if d.Trackers[i].TrackerID == tr.ID {
				withFile = &d.Trackers[i]
			}
		}
		require.NotNil(t, withFile)
		require.NotNil(t, withFile.FileURL)
		assert.Equal(t, store.URL(TrackerFilesDir, "sheet.pdf"), *withFile.FileURL)
	})

	t.Run("counts follow the filtered rows", func(t *testing.T) {
		d, err := assembler.Filter(ctx, admin.ID, Filters{ProjectID: p1.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, d.Summary.TrackerRows)
		assert.Equal(t, 1, d.Summary.UserCount)
		assert.Equal(t, 1, d.Summary.ProjectCount)
		assert.Equal(t, 1, d.Summary.TaskCount)
		assert.Len(t, d.Projects, 2)
	})

	t.Run("manager sees the team only", func(t *testing.T) {
		d, err := assembler.Filter(ctx, manager.ID, Filters{})
		require.NoError(t, err)
		assert.Equal(t, 2, d.Summary.TrackerRows)
		assert.Equal(t, 4.0, d.Summary.TotalBillableHours)
		require.Len(t, d.Projects, 1)
		assert.Equal(t, p1.ID, d.Projects[0].ProjectID)
		assert.Equal(t, 2.5, d.Projects[0].TotalBillableHours)
		assert.Equal(t, 8.0, *d.Summary.AvgQCScore)
	})

	t.Run("user outside scope gives an empty dashboard", func(t *testing.T) {
		f := Filters{UserID: loner.ID}
		d, err := assembler.Filter(ctx, manager.ID, f)
		require.NoError(t, err)
		assert.Equal(t, "project manager", d.Role)
		assert.Equal(t, f, d.FiltersApplied)
		assert.Equal(t, 0, d.Summary.TrackerRows)
		assert.Nil(t, d.Summary.AvgQCScore)
		assert.Empty(t, d.Users)
		assert.Empty(t, d.Projects)
		assert.Empty(t, d.Tasks)
		assert.Empty(t, d.Trackers)
	})

	t.Run("inactive users drop out", func(t *testing.T) {
		testdb.Deactivate(t, db, &loner)
		d, err := assembler.Filter(ctx, admin.ID, Filters{Date: "2026-02-03"})
		require.NoError(t, err)
		assert.Equal(t, 1, d.Summary.TrackerRows)
		assert.Equal(t, agent.ID, d.Trackers[0].UserID)
	})

	t.Run("invalid filters", func(t *testing.T) {
		_, err := assembler.Filter(ctx, admin.ID, Filters{DateTo: "03/02/2026"})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestDashboardTrackerCap(t *testing.T) {
	db := testdb.Open(t)
	admin := testdb.User(t, db, "admin", testdb.RoleAdmin)
	agent := testdb.User(t, db, "agent", testdb.RoleAgent)
	project := testdb.Project(t, db, "P1")
	task := testdb.Task(t, db, project.ID, "T1", 1)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]model.Tracker, 0, dashboardTrackerLimit+5)
	for i := 0; i < dashboardTrackerLimit+5; i++ {
		rows = append(rows, model.Tracker{
			UserID: agent.ID, ProjectID: project.ID, TaskID: task.ID,
			Production: 1, ActualTarget: 1, TenureTarget: 1, BillableHours: 1,
			WorkedAt: start.Add(time.Duration(i) * time.Hour), IsActive: true,
		})
	}
	require.NoError(t, db.CreateInBatches(&rows, 100).Error)

	d, err := NewAssembler(db, nil).Filter(context.Background(), admin.ID, Filters{})
	require.NoError(t, err)
	assert.Len(t, d.Trackers, dashboardTrackerLimit)
	assert.Equal(t, dashboardTrackerLimit+5, d.Summary.TrackerRows)
	assert.Equal(t, float64(dashboardTrackerLimit+5), d.Summary.TotalBillableHours)
	assert.True(t, d.Trackers[0].WorkedAt.After(d.Trackers[1].WorkedAt))
}
