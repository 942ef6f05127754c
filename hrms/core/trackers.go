package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/infrastructure/logging"
)

type TrackerInput struct {
	ProjectID    int
	TaskID       int
	UserID       int
	Production   float64
	TenureTarget *float64
	WorkedAt     *time.Time
	File         *Upload
}

type TrackerUpdate struct {
	Production *float64
	BaseTarget *float64
	File       *Upload
}

// TrackerService writes tracker rows and their attached files. A file is written
// before the row that references it is committed, and a replaced file is removed
// only after the commit.
type TrackerService struct {
	db    *gorm.DB
	files FileStore
	log   *logging.Logger
}

func NewTrackerService(db *gorm.DB, files FileStore, log *logging.Logger) *TrackerService {
	return &TrackerService{db: db, files: files, log: log}
}

// removeFile deletes a stored file. Failures are logged and otherwise ignored.
func removeFile(ctx context.Context, files FileStore, log *logging.Logger, dir, name string) {
	if files == nil || name == "" {
		return
	}
	if err := files.Delete(ctx, dir, name); err != nil {
		log.Warn(ctx, "failed to remove stored file", zap.String("dir", dir), zap.String("file", name), zap.Error(err))
	}
}

type trackerRefs struct {
	project model.Project
	task    model.Task
	user    model.User
}

func loadTrackerRefs(ctx context.Context, db *gorm.DB, projectID, taskID, userID int) (*trackerRefs, error) {
	var refs trackerRefs
	err := db.WithContext(ctx).Where("task_id = ? AND is_active = ?", taskID, true).Take(&refs.task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("task %d", taskID)
	}
	if err != nil {
		return nil, err
	}
	if refs.task.ProjectID != projectID {
		return nil, validationf("task %d does not belong to project %d", taskID, projectID)
	}

	err = db.WithContext(ctx).Where("project_id = ? AND is_active = ?", projectID, true).Take(&refs.project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("project %d", projectID)
	}
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND is_deleted = ?", userID, true, false).
		Take(&refs.user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("user %d", userID)
	}
	if err != nil {
		return nil, err
	}
	return &refs, nil
}

func (s *TrackerService) putFile(ctx context.Context, refs *trackerRefs, upload *Upload, now time.Time) (string, error) {
	if upload == nil {
		return "", nil
	}
	if s.files == nil {
		return "", validationf("file uploads are not configured")
	}
	name, err := TrackerFileName(refs.project.Code, refs.task.Name, refs.user.Name, upload.Name, now)
	if err != nil {
		return "", err
	}
	return s.files.Put(ctx, TrackerFilesDir, name, upload.Body)
}

// Create logs a tracker. The actual target is copied from the task and
// billable hours are derived from production and the tenure target.
func (s *TrackerService) Create(ctx context.Context, in TrackerInput, now time.Time) (*model.Tracker, error) {
	if in.ProjectID <= 0 || in.TaskID <= 0 || in.UserID <= 0 {
		return nil, validationf("project, task and user are required")
	}
	if in.TenureTarget == nil {
		return nil, validationf("tenure target is required")
	}
	if in.Production < 0 || *in.TenureTarget < 0 {
		return nil, validationf("production and tenure target must not be negative")
	}

	refs, err := loadTrackerRefs(ctx, s.db, in.ProjectID, in.TaskID, in.UserID)
	if err != nil {
		return nil, err
	}

	stored, err := s.putFile(ctx, refs, in.File, now)
	if err != nil {
		return nil, err
	}

	workedAt := now.UTC()
	if in.WorkedAt != nil {
		workedAt = in.WorkedAt.UTC()
	}
	tracker := model.Tracker{
		UserID:        in.UserID,
		ProjectID:     in.ProjectID,
		TaskID:        in.TaskID,
		Production:    in.Production,
		ActualTarget:  refs.task.Target,
		TenureTarget:  *in.TenureTarget,
		BillableHours: Round(BillableHours(in.Production, *in.TenureTarget), 4),
		WorkedAt:      workedAt,
		IsActive:      true,
	}
	if stored != "" {
		tracker.File = &stored
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tracker).Error
	})
	if err != nil {
		removeFile(ctx, s.files, s.log, TrackerFilesDir, stored)
		return nil, err
	}
	return &tracker, nil
}

// visibleTracker loads an active tracker owned by a user in the caller's scope.
// Trackers outside the scope are reported as not found.
func (s *TrackerService) visibleTracker(ctx context.Context, callerID, id int) (model.Tracker, error) {
	var current model.Tracker
	err := s.db.WithContext(ctx).Where("tracker_id = ? AND is_active = ?", id, true).Take(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return current, notFoundf("tracker %d", id)
	}
	if err != nil {
		return current, err
	}
	scope, err := ScopeOf(ctx, s.db, callerID)
	if err != nil {
		return current, err
	}
	if !scope.Contains(current.UserID) {
		return current, notFoundf("tracker %d", id)
	}
	return current, nil
}

// Update recomputes the targets from the base target and the user's tenure.
// Production and base target default to the stored values.
func (s *TrackerService) Update(ctx context.Context, callerID, id int, in TrackerUpdate, now time.Time) (*model.Tracker, error) {
	if (in.Production != nil && *in.Production < 0) || (in.BaseTarget != nil && *in.BaseTarget < 0) {
		return nil, validationf("production and base target must not be negative")
	}

	current, err := s.visibleTracker(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	refs, err := loadTrackerRefs(ctx, s.db, current.ProjectID, current.TaskID, current.UserID)
	if err != nil {
		return nil, err
	}

	stored, err := s.putFile(ctx, refs, in.File, now)
	if err != nil {
		return nil, err
	}

	production := current.Production
	if in.Production != nil {
		production = *in.Production
	}
	base := current.ActualTarget
	if in.BaseTarget != nil {
		base = *in.BaseTarget
	}
	tenure := TenureTarget(base, refs.user.Tenure)

	updates := map[string]interface{}{
		"production":     production,
		"actual_target":  base,
		"tenure_target":  tenure,
		"billable_hours": Round(BillableHours(production, tenure), 4),
		"updated_at":     now.UTC(),
	}
	if stored != "" {
		updates["tracker_file"] = stored
	}

	var updated model.Tracker
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Tracker{}).Where("tracker_id = ? AND is_active = ?", id, true).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFoundf("tracker %d", id)
		}
		return tx.Where("tracker_id = ?", id).Take(&updated).Error
	})
	if err != nil {
		removeFile(ctx, s.files, s.log, TrackerFilesDir, stored)
		return nil, err
	}

	if stored != "" && current.File != nil && *current.File != stored {
		removeFile(ctx, s.files, s.log, TrackerFilesDir, *current.File)
	}
	return &updated, nil
}

// Delete deactivates a tracker and removes its file after the commit.
func (s *TrackerService) Delete(ctx context.Context, callerID, id int) error {
	current, err := s.visibleTracker(ctx, callerID, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Tracker{}).
			Where("tracker_id = ? AND is_active = ?", id, true).
			Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFoundf("tracker %d", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if current.File != nil {
		removeFile(ctx, s.files, s.log, TrackerFilesDir, *current.File)
	}
	return nil
}
