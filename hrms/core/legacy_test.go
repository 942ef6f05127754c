package core

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/hrms/testdb"
)

func TestLoadLegacyMapping(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, m LegacyMapping)
	}{
		{
			name: "empty keeps defaults",
			yaml: "",
			check: func(t *testing.T, m LegacyMapping) {
				assert.Equal(t, DefaultLegacyMapping(), m)
			},
		},
		{
			name: "override one column",
			yaml: "users:\n  columns:\n    qa: tfs_user.asst_manager_id\n",
			check: func(t *testing.T, m LegacyMapping) {
				assert.Equal(t, "tfs_user.asst_manager_id", m.Users.Columns["qa"])
				assert.Equal(t, "tfs_user", m.Users.Table)
				assert.Equal(t, "project", m.Projects.Table)
			},
		},
		{
			name:    "column outside the legacy schema",
			yaml:    "users:\n  table: tfs_user\n  id: user_id\n  columns:\n    qa: tfs_user.password\n",
			wantErr: true,
		},
		{
			name:    "column of another table",
			yaml:    "tasks:\n  table: task\n  id: task_id\n  columns:\n    team: project.project_team_id\n",
			wantErr: true,
		},
		{
			name:    "injected table name",
			yaml:    "tasks:\n  table: \"task; drop table users\"\n  id: task_id\n",
			wantErr: true,
		},
		{
			name:    "not yaml",
			yaml:    "users: [",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := LoadLegacyMapping(strings.NewReader(tt.yaml))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			tt.check(t, m)
		})
	}
}

func TestImportLegacyMembers(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	manager := testdb.User(t, db, "manager", testdb.RoleManager)
	qa := testdb.User(t, db, "qa", testdb.RoleQA)
	agent := testdb.User(t, db, "agent", testdb.RoleAgent)
	project := testdb.Project(t, db, "P1")
	task := testdb.Task(t, db, project.ID, "T1", 1)

	require.NoError(t, db.Exec(`CREATE TABLE tfs_user (user_id INTEGER, project_manager_id TEXT, asst_manager_id TEXT, qa_id TEXT)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE project (project_id INTEGER, project_manager_id TEXT, asst_project_manager_id TEXT, project_qa_id TEXT, project_team_id TEXT)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE task (task_id INTEGER, task_team_id TEXT)`).Error)

	require.NoError(t, db.Exec(`INSERT INTO tfs_user VALUES (?, ?, NULL, ?)`,
		agent.ID, itoaList(manager.ID), itoaList(qa.ID, qa.ID)).Error)
	require.NoError(t, db.Exec(`INSERT INTO project VALUES (?, ?, '', ?, ?)`,
		project.ID, itoaList(manager.ID), itoaList(qa.ID), itoaList(agent.ID, 77)).Error)
	require.NoError(t, db.Exec(`INSERT INTO task VALUES (?, ?)`, task.ID, itoaList(agent.ID)).Error)

	report, err := ImportLegacy(ctx, db, db, DefaultLegacyMapping())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Supervisors)
	assert.Equal(t, 3, report.ProjectMembers)
	assert.Equal(t, 1, report.TaskMembers)
	assert.Len(t, report.Unresolved, 1)

	var p model.Project
	require.NoError(t, db.Preload("Members").Take(&p, project.ID).Error)
	assert.Equal(t, []int{manager.ID}, p.MemberIDs(model.RelationManager))
	assert.Equal(t, []int{agent.ID}, p.MemberIDs(model.RelationTeam))

	again, err := ImportLegacy(ctx, db, db, DefaultLegacyMapping())
	require.NoError(t, err)
	assert.Equal(t, report.Supervisors, again.Supervisors)

	var count int64
	require.NoError(t, db.Model(&model.UserSupervisor{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestDiffIDs(t *testing.T) {
	onlyA, onlyB := diffIDs([]int{3, 1, 2, 2}, []int{2, 4})
	assert.Equal(t, []int{1, 3}, onlyA)
	assert.Equal(t, []int{4}, onlyB)
}

// itoaList renders ids the way the legacy columns store them, e.g. ["3","5"].
func itoaList(ids ...int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, `"`+strconv.Itoa(id)+`"`)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
