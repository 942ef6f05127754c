package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/hrms/testdb"
)

func TestDropdowns(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	d := NewDropdowns(db)

	admin := testdb.User(t, db, "admin", testdb.RoleAdmin)
	manager := testdb.User(t, db, "manager", testdb.RoleManager)
	a1 := testdb.User(t, db, "a1", testdb.RoleAgent)
	a2 := testdb.User(t, db, "a2", testdb.RoleAgent)
	testdb.Team(t, db, "night shift")

	p1 := testdb.Project(t, db, "P1", testdb.Member(manager.ID, model.RelationManager), testdb.Member(a1.ID, model.RelationTeam))
	p2 := testdb.Project(t, db, "P2", testdb.Member(a2.ID, model.RelationTeam))
	t1 := testdb.Task(t, db, p1.ID, "T1", 1, a1.ID)
	testdb.Task(t, db, p1.ID, "T2", 1)
	testdb.Task(t, db, p2.ID, "T3", 1, a2.ID)

	t.Run("titled options", func(t *testing.T) {
		teams, err := d.Teams(ctx)
		require.NoError(t, err)
		require.Len(t, teams, 1)
		assert.Equal(t, "Night Shift", teams[0].Label)

		roles, err := d.Roles(ctx)
		require.NoError(t, err)
		assert.Len(t, roles, 6)
	})

	t.Run("users by role", func(t *testing.T) {
		agents, err := d.UsersByRole(ctx, " Agent ", 0)
		require.NoError(t, err)
		assert.Len(t, agents, 2)

		agents, err = d.UsersByRole(ctx, "agent", p1.ID)
		require.NoError(t, err)
		assert.Equal(t, []Option{{ID: a1.ID, Label: "a1"}}, agents)

		managers, err := d.UsersByRole(ctx, "project manager", p2.ID)
		require.NoError(t, err)
		assert.Empty(t, managers)
	})

	t.Run("projects with tasks", func(t *testing.T) {
		all, err := d.ProjectsWithTasks(ctx, admin.ID, 0)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, p2.ID, all[0].ProjectID)
		assert.Len(t, all[1].Tasks, 2)

		agent, err := d.ProjectsWithTasks(ctx, a1.ID, 0)
		require.NoError(t, err)
		require.Len(t, agent, 1)
		assert.Equal(t, []Option{{ID: t1.ID, Label: "T1"}}, agent[0].Tasks)

		member, err := d.ProjectsWithTasks(ctx, admin.ID, a2.ID)
		require.NoError(t, err)
		require.Len(t, member, 1)
		assert.Equal(t, p2.ID, member[0].ProjectID)
	})
}
