package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/hrms/testdb"
	"tfshrms.cloud/hrms/infrastructure/logging"
	"tfshrms.cloud/hrms/utils"
)

func TestProjectService(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	store := newMemStore()
	svc := NewProjectService(db, store, logging.Nop())

	admin := testdb.User(t, db, "admin", testdb.RoleAdmin)
	manager := testdb.User(t, db, "manager", testdb.RoleManager)
	agent := testdb.User(t, db, "agent", testdb.RoleAgent)

	view, err := svc.Create(ctx, ProjectInput{
		Name:    "Claims Intake",
		Code:    "CLM",
		Members: ProjectMembers{ManagerIDs: []int{manager.ID}, TeamIDs: []int{agent.ID}},
		Files:   []Upload{{Name: "brief.pdf", Body: strings.NewReader("pdf")}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{manager.ID}, view.MemberIDs(model.RelationManager))
	require.Len(t, view.Files, 1)
	assert.True(t, strings.HasPrefix(view.Files[0], "brief_"))
	assert.Equal(t, []string{store.URL(ProjectFilesDir, view.Files[0])}, view.FileURLs)
	assert.Equal(t, 1, store.count())

	t.Run("duplicate name", func(t *testing.T) {
		_, err := svc.Create(ctx, ProjectInput{Name: "claims intake", Files: []Upload{{Name: "x.pdf", Body: strings.NewReader("x")}}})
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, 1, store.count())
	})

	t.Run("update replaces files and members", func(t *testing.T) {
		oldFile := view.Files[0]
		updated, err := svc.Update(ctx, view.ID, ProjectUpdate{
			Description: utils.Ptr("intake of claims"),
			Members:     ProjectMembers{TeamIDs: []int{}},
			Files:       []Upload{{Name: "brief v2.pdf", Body: strings.NewReader("v2")}},
		})
		require.NoError(t, err)
		assert.Equal(t, "intake of claims", updated.Description)
		assert.Empty(t, updated.MemberIDs(model.RelationTeam))
		assert.Equal(t, []int{manager.ID}, updated.MemberIDs(model.RelationManager))
		require.Len(t, updated.Files, 1)
		assert.True(t, strings.HasPrefix(updated.Files[0], "brief_v2_"))
		assert.False(t, store.has(ProjectFilesDir, oldFile))
		assert.Equal(t, 1, store.count())
	})

	t.Run("list respects visibility", func(t *testing.T) {
		other := testdb.Project(t, db, "Other")

		all, err := svc.List(ctx, admin.ID, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		mine, err := svc.List(ctx, manager.ID, "")
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, view.ID, mine[0].ID)

		found, err := svc.List(ctx, admin.ID, "oth")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, other.ID, found[0].ID)
	})

	t.Run("delete removes files", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, view.ID))
		assert.Equal(t, 0, store.count())
		assert.ErrorIs(t, svc.Delete(ctx, view.ID), ErrNotFound)
	})
}

func TestTaskService(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	svc := NewTaskService(db)

	manager := testdb.User(t, db, "manager", testdb.RoleManager)
	agent := testdb.User(t, db, "agent", testdb.RoleAgent)
	mine := testdb.Project(t, db, "Mine", testdb.Member(manager.ID, model.RelationManager))
	theirs := testdb.Project(t, db, "Theirs")

	task, err := svc.Create(ctx, TaskInput{ProjectID: mine.ID, Name: "Indexing", Target: 12, TeamIDs: []int{agent.ID}})
	require.NoError(t, err)
	assert.Equal(t, []int{agent.ID}, task.MemberIDs())

	_, err = svc.Create(ctx, TaskInput{ProjectID: mine.ID, Name: "indexing"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Create(ctx, TaskInput{ProjectID: 999, Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Create(ctx, TaskInput{ProjectID: mine.ID, Name: "x", Target: -1})
	assert.ErrorIs(t, err, ErrValidation)

	testdb.Task(t, db, theirs.ID, "Elsewhere", 1)

	updated, err := svc.Update(ctx, task.ID, TaskUpdate{Target: utils.Ptr(15.0), TeamIDs: []int{}})
	require.NoError(t, err)
	assert.Equal(t, 15.0, updated.Target)
	assert.Empty(t, updated.MemberIDs())

	tasks, err := svc.List(ctx, manager.ID, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	tasks, err = svc.List(ctx, manager.ID, theirs.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	require.NoError(t, svc.Delete(ctx, task.ID))
	_, err = svc.Update(ctx, task.ID, TaskUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}
