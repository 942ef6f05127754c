package core

import (
	"context"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
)

type Option struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

type ProjectWithTasks struct {
	ProjectID   int      `json:"projectId"`
	ProjectName string   `json:"projectName"`
	ProjectCode string   `json:"projectCode"`
	Tasks       []Option `json:"tasks"`
}

// Dropdowns serves the option lists used by client forms.
type Dropdowns struct {
	db *gorm.DB
}

func NewDropdowns(db *gorm.DB) *Dropdowns {
	return &Dropdowns{db: db}
}

func titleOptions(ctx context.Context, db *gorm.DB, table, idColumn, labelColumn string) ([]Option, error) {
	var rows []struct {
		ID    int
		Label string
	}
	err := db.WithContext(ctx).
		Table(table).
		Select(idColumn+" AS id, "+labelColumn+" AS label").
		Where("is_active = ?", true).
		Order(labelColumn).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	title := cases.Title(language.English)
	out := make([]Option, 0, len(rows))
	for _, r := range rows {
		out = append(out, Option{ID: r.ID, Label: title.String(r.Label)})
	}
	return out, nil
}

func (d *Dropdowns) Designations(ctx context.Context) ([]Option, error) {
	return titleOptions(ctx, d.db, "designations", "designation_id", "designation")
}

func (d *Dropdowns) Roles(ctx context.Context) ([]Option, error) {
	return titleOptions(ctx, d.db, "roles", "role_id", "role_name")
}

func (d *Dropdowns) Teams(ctx context.Context) ([]Option, error) {
	return titleOptions(ctx, d.db, "teams", "team_id", "team_name")
}

// UsersByRole lists active users holding role. With a project id, agents are
// limited to the project team and assistant managers to the project's assistant
// managers.
func (d *Dropdowns) UsersByRole(ctx context.Context, role string, projectID int) ([]Option, error) {
	kind := KindOf(role)
	q := d.db.WithContext(ctx).
		Table("users AS u").
		Select("u.user_id AS id, u.user_name AS label").
		Joins("JOIN roles r ON r.role_id = u.role_id").
		Where("u.is_active = ? AND u.is_deleted = ?", true, false).
		Where("LOWER(TRIM(r.role_name)) = ?", NormalizeRole(role))

	if projectID > 0 {
		relation := model.RelationTeam
		if r, ok := kind.relation(); ok {
			relation = r
		}
		q = q.Where("u.user_id IN (?)",
			d.db.Model(&model.ProjectMember{}).
				Select("user_id").
				Where("project_id = ? AND relation = ?", projectID, relation))
	}

	out := []Option{}
	if err := q.Order("u.user_name").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ProjectsWithTasks lists projects with their active tasks. With a user id the
// projects are those the user is a team member of. Otherwise an agent caller gets
// the tasks they are a member of and any other caller their visible projects.
func (d *Dropdowns) ProjectsWithTasks(ctx context.Context, callerID, userID int) ([]ProjectWithTasks, error) {
	var projects []model.Project
	agentID := 0

	if userID > 0 {
		err := d.db.WithContext(ctx).
			Where("is_active = ?", true).
			Where("project_id IN (?)",
				d.db.Model(&model.ProjectMember{}).
					Select("project_id").
					Where("user_id = ? AND relation = ?", userID, model.RelationTeam)).
			Order("project_id DESC").
			Find(&projects).Error
		if err != nil {
			return nil, err
		}
	} else {
		role, err := ResolveRole(ctx, d.db, callerID)
		if err != nil {
			return nil, err
		}
		if KindOf(role) == RoleAgent {
			agentID = callerID
			projects, err = agentProjects(ctx, d.db, callerID)
		} else {
			projects, err = VisibleProjects(ctx, d.db, role, callerID)
		}
		if err != nil {
			return nil, err
		}
	}

	tasks, err := VisibleTasks(ctx, d.db, ProjectIDs(projects))
	if err != nil {
		return nil, err
	}
	byProject := map[int][]Option{}
	for _, t := range tasks {
		if agentID > 0 && !slices.Contains(t.MemberIDs(), agentID) {
			continue
		}
		byProject[t.ProjectID] = append(byProject[t.ProjectID], Option{ID: t.ID, Label: t.Name})
	}

	out := make([]ProjectWithTasks, 0, len(projects))
	for _, p := range projects {
		opts := byProject[p.ID]
		if opts == nil {
			opts = []Option{}
		}
		out = append(out, ProjectWithTasks{ProjectID: p.ID, ProjectName: p.Name, ProjectCode: p.Code, Tasks: opts})
	}
	return out, nil
}

// agentProjects lists the active projects holding a task the agent is a member of.
func agentProjects(ctx context.Context, db *gorm.DB, agentID int) ([]model.Project, error) {
	projects := []model.Project{}
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("project_id IN (?)",
			db.Table("tasks AS k").
				Select("k.project_id").
				Joins("JOIN task_members m ON m.task_id = k.task_id").
				Where("m.user_id = ? AND k.is_active = ?", agentID, true)).
		Order("project_id DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}
