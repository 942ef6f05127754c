package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/hrms/testdb"
	"tfshrms.cloud/hrms/infrastructure/logging"
	"tfshrms.cloud/hrms/utils"
)

type trackerFixture struct {
	db      *gorm.DB
	store   *memStore
	log     *logging.TestLogger
	svc     *TrackerService
	user    model.User
	project model.Project
	task    model.Task
}

func newTrackerFixture(t *testing.T) trackerFixture {
	db := testdb.Open(t)
	store := newMemStore()
	log := logging.NewTestLogger()
	f := trackerFixture{db: db, store: store, log: log, svc: NewTrackerService(db, store, log.Logger)}
	f.user = testdb.User(t, db, "Jane Doe", testdb.RoleAgent, func(u *model.User) { u.Tenure = 0.5 })
	f.project = testdb.Project(t, db, "PRJ-1")
	f.task = testdb.Task(t, db, f.project.ID, "Data entry", 10)
	return f
}

func (f trackerFixture) input(production float64, file string) TrackerInput {
	in := TrackerInput{
		ProjectID:    f.project.ID,
		TaskID:       f.task.ID,
		UserID:       f.user.ID,
		Production:   production,
		TenureTarget: utils.Ptr(5.0),
	}
	if file != "" {
		in.File = &Upload{Name: file, Body: strings.NewReader("content")}
	}
	return in
}

func failCreates(t *testing.T, db *gorm.DB) {
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_create", func(tx *gorm.DB) {
		tx.AddError(errors.New("insert rejected"))
	}))
}

func TestTrackerCreate(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 3, 14, 20, 0, 0, time.UTC)

	tracker, err := f.svc.Create(ctx, f.input(12, "report.PDF"), now)
	require.NoError(t, err)
	assert.Equal(t, 10.0, tracker.ActualTarget)
	assert.Equal(t, 5.0, tracker.TenureTarget)
	assert.Equal(t, 2.4, tracker.BillableHours)
	assert.Equal(t, now, tracker.WorkedAt)
	require.NotNil(t, tracker.File)
	assert.True(t, strings.HasPrefix(*tracker.File, "PRJ1_Data_entry_Jane_Doe_03-Feb-2026_02PM_"), *tracker.File)
	assert.True(t, f.store.has(TrackerFilesDir, *tracker.File))

	tests := []struct {
		name string
		in   func() TrackerInput
		want error
	}{
		{"missing tenure target", func() TrackerInput { in := f.input(1, ""); in.TenureTarget = nil; return in }, ErrValidation},
		{"negative production", func() TrackerInput { return f.input(-1, "") }, ErrValidation},
		{"task of another project", func() TrackerInput { in := f.input(1, ""); in.ProjectID = f.project.ID + 1; return in }, ErrValidation},
		{"unknown task", func() TrackerInput { in := f.input(1, ""); in.TaskID = 999; return in }, ErrNotFound},
		{"unknown user", func() TrackerInput { in := f.input(1, ""); in.UserID = 999; return in }, ErrNotFound},
		{"file type not allowed", func() TrackerInput { return f.input(1, "run.exe") }, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.in(), now)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 1, f.store.count())
}

func TestTrackerCreateRemovesFileWhenInsertFails(t *testing.T) {
	f := newTrackerFixture(t)
	failCreates(t, f.db)

	_, err := f.svc.Create(context.Background(), f.input(12, "report.pdf"), time.Now())
	require.Error(t, err)
	assert.Equal(t, 0, f.store.count())
}

func TestTrackerCreateLogsFailedCleanup(t *testing.T) {
	f := newTrackerFixture(t)
	f.svc.files = failingDelete{f.store}
	failCreates(t, f.db)

	_, err := f.svc.Create(context.Background(), f.input(12, "report.pdf"), time.Now())
	require.Error(t, err)
	f.log.AssertLogged(t, zapcore.WarnLevel, "failed to remove stored file")
}

type failingDelete struct {
	*memStore
}

func (failingDelete) Delete(ctx context.Context, dir, name string) error {
	return errors.New("delete refused")
}

func TestTrackerUpdate(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	first := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	later := time.Date(2026, 2, 4, 16, 0, 0, 0, time.UTC)

	tracker, err := f.svc.Create(ctx, f.input(12, "a.csv"), first)
	require.NoError(t, err)
	oldFile := *tracker.File

	updated, err := f.svc.Update(ctx, f.user.ID, tracker.ID, TrackerUpdate{
		Production: utils.Ptr(20.0),
		File:       &Upload{Name: "b.xlsx", Body: strings.NewReader("new")},
	}, later)
	require.NoError(t, err)
	assert.Equal(t, 10.0, updated.ActualTarget)
	assert.Equal(t, 5.0, updated.TenureTarget)
	assert.Equal(t, 4.0, updated.BillableHours)
	require.NotNil(t, updated.File)
	assert.NotEqual(t, oldFile, *updated.File)
	assert.True(t, f.store.has(TrackerFilesDir, *updated.File))
	assert.False(t, f.store.has(TrackerFilesDir, oldFile))

	updated, err = f.svc.Update(ctx, f.user.ID, tracker.ID, TrackerUpdate{BaseTarget: utils.Ptr(8.0)}, later)
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.TenureTarget)
	assert.Equal(t, 5.0, updated.BillableHours)

	_, err = f.svc.Update(ctx, f.user.ID, 999, TrackerUpdate{}, later)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrackerDelete(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()

	tracker, err := f.svc.Create(ctx, f.input(12, "a.txt"), time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, f.store.count())

	require.NoError(t, f.svc.Delete(ctx, f.user.ID, tracker.ID))
	assert.Equal(t, 0, f.store.count())

	var stored model.Tracker
	require.NoError(t, f.db.Take(&stored, tracker.ID).Error)
	assert.False(t, stored.IsActive)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.user.ID, tracker.ID), ErrNotFound)
}

func TestTrackerWritesOutsideScope(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	other := testdb.User(t, f.db, "Other Agent", testdb.RoleAgent)
	manager := testdb.User(t, f.db, "Manager", testdb.RoleManager)
	testdb.Supervise(t, f.db, f.user.ID, manager.ID, model.RelationManager)
	admin := testdb.User(t, f.db, "Admin", testdb.RoleAdmin)

	tracker, err := f.svc.Create(ctx, f.input(12, "a.pdf"), time.Now())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, other.ID, tracker.ID, TrackerUpdate{Production: utils.Ptr(999.0)}, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, other.ID, tracker.ID), ErrNotFound)

	var stored model.Tracker
	require.NoError(t, f.db.Take(&stored, tracker.ID).Error)
	assert.Equal(t, 12.0, stored.Production)
	assert.True(t, stored.IsActive)
	assert.True(t, f.store.has(TrackerFilesDir, *tracker.File))

	updated, err := f.svc.Update(ctx, manager.ID, tracker.ID, TrackerUpdate{Production: utils.Ptr(20.0)}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 20.0, updated.Production)
	require.NoError(t, f.svc.Delete(ctx, admin.ID, tracker.ID))
}

func TestTrackerFilesInSameHourAreKeptApart(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 19, 5, 10, 0, 0, time.UTC)

	first, err := f.svc.Create(ctx, f.input(1, "report.pdf"), at)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, f.input(2, "report.pdf"), at.Add(20*time.Minute))
	require.NoError(t, err)

	assert.NotEqual(t, *first.File, *second.File)
	assert.Equal(t, 2, f.store.count())

	require.NoError(t, f.svc.Delete(ctx, f.user.ID, second.ID))
	assert.True(t, f.store.has(TrackerFilesDir, *first.File))
	assert.False(t, f.store.has(TrackerFilesDir, *second.File))
}
