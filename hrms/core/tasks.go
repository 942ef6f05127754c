package core

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
)

type TaskInput struct {
	ProjectID   int
	Name        string
	Description string
	Target      float64
	TeamIDs     []int
}

type TaskUpdate struct {
	Name        *string
	Description *string
	Target      *float64
	// TeamIDs replaces the task members when not nil.
	TeamIDs []int
}

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

func taskNameTaken(tx *gorm.DB, projectID int, name string, exceptID int) error {
	var count int64
	err := tx.Model(&model.Task{}).
		Where("project_id = ? AND LOWER(task_name) = ? AND is_active = ? AND task_id <> ?",
			projectID, strings.ToLower(name), true, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return conflictf("task %q already exists in project %d", name, projectID)
	}
	return nil
}

func replaceTaskMembers(tx *gorm.DB, taskID int, ids []int) error {
	if ids == nil {
		return nil
	}
	if err := activeUsersExist(tx, ids); err != nil {
		return err
	}
	if err := tx.Where("task_id = ?", taskID).Delete(&model.TaskMember{}).Error; err != nil {
		return err
	}
	rows := []model.TaskMember{}
	for _, id := range uniqueIDs(ids) {
		rows = append(rows, model.TaskMember{TaskID: taskID, UserID: id})
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func (s *TaskService) Create(ctx context.Context, in TaskInput) (*model.Task, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.ProjectID <= 0 || in.Name == "" {
		return nil, validationf("project and task name are required")
	}
	if in.Target < 0 {
		return nil, validationf("task target must not be negative")
	}

	task := model.Task{
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		Target:      in.Target,
		IsActive:    true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := projectExists(tx, in.ProjectID)
		if err != nil {
			return err
		}
		if !ok {
			return notFoundf("project %d", in.ProjectID)
		}
		if err := taskNameTaken(tx, in.ProjectID, in.Name, 0); err != nil {
			return err
		}
		if err := tx.Omit("Members").Create(&task).Error; err != nil {
			return err
		}
		if err := replaceTaskMembers(tx, task.ID, in.TeamIDs); err != nil {
			return err
		}
		return tx.Preload("Members").Take(&task, task.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Update(ctx context.Context, id int, in TaskUpdate) (*model.Task, error) {
	var task model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("task_id = ? AND is_active = ?", id, true).Take(&task).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("task %d", id)
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"updated_at": time.Now().UTC()}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return validationf("task name is required")
			}
			if err := taskNameTaken(tx, task.ProjectID, name, id); err != nil {
				return err
			}
			updates["task_name"] = name
		}
		if in.Description != nil {
			updates["task_description"] = *in.Description
		}
		if in.Target != nil {
			if *in.Target < 0 {
				return validationf("task target must not be negative")
			}
			updates["task_target"] = *in.Target
		}
		if err := tx.Model(&model.Task{}).Where("task_id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if err := replaceTaskMembers(tx, id, in.TeamIDs); err != nil {
			return err
		}
		return tx.Preload("Members").Take(&task, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Delete(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).
		Model(&model.Task{}).
		Where("task_id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFoundf("task %d", id)
	}
	return nil
}

// List returns the active tasks of the caller's visible projects, optionally of one project.
func (s *TaskService) List(ctx context.Context, callerID, projectID int) ([]model.Task, error) {
	role, err := ResolveRole(ctx, s.db, callerID)
	if err != nil {
		return nil, err
	}
	projects, err := VisibleProjects(ctx, s.db, role, callerID)
	if err != nil {
		return nil, err
	}
	ids := ProjectIDs(projects)
	if projectID > 0 {
		if !slices.Contains(ids, projectID) {
			return []model.Task{}, nil
		}
		ids = []int{projectID}
	}
	return VisibleTasks(ctx, s.db, ids)
}
