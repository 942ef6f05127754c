package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/infrastructure/logging"
	"tfshrms.cloud/hrms/utils"
)

// ProjectMembers lists user ids per relation. A nil slice leaves the relation
// unchanged on update.
type ProjectMembers struct {
	ManagerIDs   []int
	AssistantIDs []int
	QAIDs        []int
	TeamIDs      []int
}

func (m ProjectMembers) byRelation() map[string][]int {
	return map[string][]int{
		model.RelationManager:          m.ManagerIDs,
		model.RelationAssistantManager: m.AssistantIDs,
		model.RelationQA:               m.QAIDs,
		model.RelationTeam:             m.TeamIDs,
	}
}

type ProjectInput struct {
	Name        string
	Code        string
	Description string
	Members     ProjectMembers
	Files       []Upload
}

type ProjectUpdate struct {
	Name        *string
	Code        *string
	Description *string
	Members     ProjectMembers
	// Files replaces every stored file when not empty.
	Files      []Upload
	ClearFiles bool
}

type ProjectView struct {
	model.Project
	FileURLs []string `json:"fileUrls"`
}

type ProjectService struct {
	db    *gorm.DB
	files FileStore
	log   *logging.Logger
}

func NewProjectService(db *gorm.DB, files FileStore, log *logging.Logger) *ProjectService {
	return &ProjectService{db: db, files: files, log: log}
}

// activeUsersExist fails with ErrValidation when any id is not an active user.
func activeUsersExist(tx *gorm.DB, ids []int) error {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil
	}
	var count int64
	err := tx.Model(&model.User{}).
		Where("user_id IN ? AND is_active = ? AND is_deleted = ?", unique, true, false).
		Count(&count).Error
	if err != nil {
		return err
	}
	if int(count) != len(unique) {
		return validationf("unknown or inactive user in %v", unique)
	}
	return nil
}

func uniqueIDs(ids []int) []int {
	seen := map[int]bool{}
	out := []int{}
	for _, id := range ids {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func projectNameTaken(tx *gorm.DB, name string, exceptID int) error {
	var count int64
	err := tx.Model(&model.Project{}).
		Where("LOWER(project_name) = ? AND is_active = ? AND project_id <> ?", strings.ToLower(name), true, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return conflictf("project %q already exists", name)
	}
	return nil
}

// replaceMembers rewrites every relation given in members.
func replaceMembers(tx *gorm.DB, projectID int, members ProjectMembers) error {
	for relation, ids := range members.byRelation() {
		if ids == nil {
			continue
		}
		if err := activeUsersExist(tx, ids); err != nil {
			return err
		}
		err := tx.Where("project_id = ? AND relation = ?", projectID, relation).Delete(&model.ProjectMember{}).Error
		if err != nil {
			return err
		}
		rows := []model.ProjectMember{}
		for _, id := range uniqueIDs(ids) {
			rows = append(rows, model.ProjectMember{ProjectID: projectID, UserID: id, Relation: relation})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// putFiles stores uploads, removing what was already stored if one fails.
func (s *ProjectService) putFiles(ctx context.Context, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if s.files == nil {
		return nil, validationf("file uploads are not configured")
	}
	stored := []string{}
	for _, u := range uploads {
		name, err := s.files.Put(ctx, ProjectFilesDir, ProjectFileName(u.Name), u.Body)
		if err != nil {
			s.removeFiles(ctx, stored)
			return nil, err
		}
		stored = append(stored, name)
	}
	return stored, nil
}

func (s *ProjectService) removeFiles(ctx context.Context, names []string) {
	for _, name := range names {
		removeFile(ctx, s.files, s.log, ProjectFilesDir, name)
	}
}

func (s *ProjectService) view(p model.Project) ProjectView {
	v := ProjectView{Project: p, FileURLs: []string{}}
	if s.files != nil {
		for _, f := range p.Files {
			v.FileURLs = append(v.FileURLs, s.files.URL(ProjectFilesDir, f))
		}
	}
	return v
}

func (s *ProjectService) Create(ctx context.Context, in ProjectInput) (*ProjectView, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validationf("project name is required")
	}

	stored, err := s.putFiles(ctx, in.Files)
	if err != nil {
		return nil, err
	}

	project := model.Project{
		Name:        in.Name,
		Code:        strings.TrimSpace(in.Code),
		Description: in.Description,
		Files:       datatypes.JSONSlice[string](stored),
		IsActive:    true,
	}
	if project.Files == nil {
		project.Files = datatypes.JSONSlice[string]{}
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := projectNameTaken(tx, in.Name, 0); err != nil {
			return err
		}
		if err := tx.Omit("Members").Create(&project).Error; err != nil {
			return err
		}
		if err := replaceMembers(tx, project.ID, in.Members); err != nil {
			return err
		}
		return tx.Preload("Members").Take(&project, project.ID).Error
	})
	if err != nil {
		s.removeFiles(ctx, stored)
		return nil, err
	}
	v := s.view(project)
	return &v, nil
}

func (s *ProjectService) Update(ctx context.Context, id int, in ProjectUpdate) (*ProjectView, error) {
	stored, err := s.putFiles(ctx, in.Files)
	if err != nil {
		return nil, err
	}

	var project model.Project
	var previous []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("project_id = ? AND is_active = ?", id, true).Take(&project).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("project %d", id)
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"updated_at": time.Now().UTC()}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return validationf("project name is required")
			}
			if err := projectNameTaken(tx, name, id); err != nil {
				return err
			}
			updates["project_name"] = name
		}
		if in.Code != nil {
			updates["project_code"] = strings.TrimSpace(*in.Code)
		}
		if in.Description != nil {
			updates["project_description"] = *in.Description
		}
		if len(stored) > 0 || in.ClearFiles {
			previous = project.Files
			files := datatypes.JSONSlice[string](stored)
			if files == nil {
				files = datatypes.JSONSlice[string]{}
			}
			updates["files"] = files
		}

		if err := tx.Model(&model.Project{}).Where("project_id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if err := replaceMembers(tx, id, in.Members); err != nil {
			return err
		}
		return tx.Preload("Members").Take(&project, id).Error
	})
	if err != nil {
		s.removeFiles(ctx, stored)
		return nil, err
	}

	s.removeFiles(ctx, previous)
	v := s.view(project)
	return &v, nil
}

// Delete deactivates a project and removes its files after the commit.
func (s *ProjectService) Delete(ctx context.Context, id int) error {
	var project model.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("project_id = ? AND is_active = ?", id, true).Take(&project).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("project %d", id)
		}
		if err != nil {
			return err
		}
		return tx.Model(&model.Project{}).
			Where("project_id = ?", id).
			Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now().UTC()}).Error
	})
	if err != nil {
		return err
	}
	s.removeFiles(ctx, project.Files)
	return nil
}

// List returns the caller's visible projects whose name or code contains search.
func (s *ProjectService) List(ctx context.Context, callerID int, search string) ([]ProjectView, error) {
	role, err := ResolveRole(ctx, s.db, callerID)
	if err != nil {
		return nil, err
	}
	projects, err := VisibleProjects(ctx, s.db, role, callerID)
	if err != nil {
		return nil, err
	}

	search = strings.ToLower(strings.TrimSpace(search))
	if search != "" {
		projects = utils.Filter(projects, func(p model.Project) bool {
			return strings.Contains(strings.ToLower(p.Name), search) || strings.Contains(strings.ToLower(p.Code), search)
		})
	}
	out := utils.Map(projects, s.view)
	return out, nil
}
