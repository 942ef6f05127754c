package core

import (
	"context"
	"slices"
	"sort"

	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
)

// Scope is the set of user ids a caller may see. All means no restriction.
type Scope struct {
	All     bool
	UserIDs []int
}

func (s Scope) Contains(userID int) bool {
	return s.All || slices.Contains(s.UserIDs, userID)
}

// apply restricts column to the scope.
func (s Scope) apply(q *gorm.DB, column string) *gorm.DB {
	if s.All {
		return q
	}
	if len(s.UserIDs) == 0 {
		return q.Where("1 = 0")
	}
	return q.Where(column+" IN ?", s.UserIDs)
}

// SubordinateUserIDs resolves the users role may see. Admins see everyone,
// supervisors see the active users they supervise plus themselves, and every
// other role sees only itself.
func SubordinateUserIDs(ctx context.Context, db *gorm.DB, role string, callerID int) (Scope, error) {
	kind := KindOf(role)
	if kind == RoleAdmin {
		return Scope{All: true}, nil
	}
	relation, ok := kind.relation()
	if !ok {
		return Scope{UserIDs: []int{callerID}}, nil
	}

	var ids []int
	err := db.WithContext(ctx).
		Table("user_supervisors AS us").
		Joins("JOIN users u ON u.user_id = us.user_id").
		Where("us.supervisor_id = ? AND us.relation = ?", callerID, relation).
		Where("u.is_active = ? AND u.is_deleted = ?", true, false).
		Distinct().
		Pluck("us.user_id", &ids).Error
	if err != nil {
		return Scope{}, err
	}
	if !slices.Contains(ids, callerID) {
		ids = append(ids, callerID)
	}
	sort.Ints(ids)
	return Scope{UserIDs: ids}, nil
}

// VisibleProjects lists the active projects role may see, newest first.
// Supervisors match on their own project membership; agents and unknown roles
// see the projects they have logged active work on.
func VisibleProjects(ctx context.Context, db *gorm.DB, role string, callerID int) ([]model.Project, error) {
	q := db.WithContext(ctx).
		Model(&model.Project{}).
		Preload("Members").
		Where("is_active = ?", true)

	kind := KindOf(role)
	if relation, ok := kind.relation(); ok {
		q = q.Where("project_id IN (?)",
			db.Model(&model.ProjectMember{}).
				Select("project_id").
				Where("user_id = ? AND relation = ?", callerID, relation))
	} else if kind != RoleAdmin {
		q = q.Where("project_id IN (?)",
			db.Model(&model.Tracker{}).
				Select("project_id").
				Where("user_id = ? AND is_active = ?", callerID, true))
	}

	projects := []model.Project{}
	if err := q.Order("project_id DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// VisibleTasks lists the active tasks of the given projects, newest first.
func VisibleTasks(ctx context.Context, db *gorm.DB, projectIDs []int) ([]model.Task, error) {
	tasks := []model.Task{}
	if len(projectIDs) == 0 {
		return tasks, nil
	}
	err := db.WithContext(ctx).
		Preload("Members").
		Where("is_active = ? AND project_id IN ?", true, projectIDs).
		Order("task_id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ProjectIDs returns the ids of projects in order.
func ProjectIDs(projects []model.Project) []int {
	ids := make([]int, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids
}

// ScopeOf resolves the caller's role and returns the users they may see.
func ScopeOf(ctx context.Context, db *gorm.DB, callerID int) (Scope, error) {
	_, scope, err := scopeFor(ctx, db, callerID)
	return scope, err
}
