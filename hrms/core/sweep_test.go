package core

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/hrms/testdb"
	"tfshrms.cloud/hrms/infrastructure/logging"
)

func (m *memStore) ListFiles(ctx context.Context, dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := []string{}
	for key := range m.files {
		if name, ok := strings.CutPrefix(key, dir+"/"); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func TestSweepFiles(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	store := newMemStore()
	user := testdb.User(t, db, "Ann", testdb.RoleAgent)
	project := testdb.Project(t, db, "Alpha")
	task := testdb.Task(t, db, project.ID, "Entry", 10)

	kept := testdb.Tracker(t, db, user.ID, project.ID, task.ID, 10, 5, testdb.Day(2026, 2, 3))
	require.NoError(t, db.Model(&kept).Update("tracker_file", "kept.pdf").Error)
	gone := testdb.Tracker(t, db, user.ID, project.ID, task.ID, 10, 5, testdb.Day(2026, 2, 4))
	require.NoError(t, db.Model(&gone).Update("tracker_file", "gone.pdf").Error)
	testdb.Deactivate(t, db, &gone)
	require.NoError(t, db.Model(&model.Project{}).Where("project_id = ?", project.ID).
		Update("files", `["brief.pdf"]`).Error)

	for _, key := range []string{"kept.pdf", "gone.pdf", "stray.png"} {
		_, err := store.Put(ctx, TrackerFilesDir, key, strings.NewReader("x"))
		require.NoError(t, err)
	}
	for _, key := range []string{"brief.pdf", "old.pdf"} {
		_, err := store.Put(ctx, ProjectFilesDir, key, strings.NewReader("x"))
		require.NoError(t, err)
	}

	log := logging.NewTestLogger()
	report, err := SweepFiles(ctx, db, store, log.Logger, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"gone.pdf", "stray.png"}, report[TrackerFilesDir])
	assert.Equal(t, []string{"old.pdf"}, report[ProjectFilesDir])
	assert.Equal(t, 5, store.count())

	_, err = SweepFiles(ctx, db, store, log.Logger, false)
	require.NoError(t, err)
	assert.Equal(t, 2, store.count())
	assert.True(t, store.has(TrackerFilesDir, "kept.pdf"))
	assert.True(t, store.has(ProjectFilesDir, "brief.pdf"))
}
