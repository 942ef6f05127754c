package core

import (
	"context"
	"slices"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/infrastructure/logging"
)

// FileLister is a FileStore that can enumerate a directory.
type FileLister interface {
	FileStore
	ListFiles(ctx context.Context, dir string) ([]string, error)
}

// SweepReport lists the unreferenced files per directory.
type SweepReport map[string][]string

func referencedFiles(ctx context.Context, db *gorm.DB) (map[string]map[string]bool, error) {
	refs := map[string]map[string]bool{TrackerFilesDir: {}, ProjectFilesDir: {}}

	var trackerFiles []string
	err := db.WithContext(ctx).
		Model(&model.Tracker{}).
		Where("is_active = ? AND tracker_file IS NOT NULL", true).
		Pluck("tracker_file", &trackerFiles).Error
	if err != nil {
		return nil, err
	}
	for _, name := range trackerFiles {
		refs[TrackerFilesDir][name] = true
	}

	var projects []model.Project
	if err := db.WithContext(ctx).Select("project_id", "files").Where("is_active = ?", true).Find(&projects).Error; err != nil {
		return nil, err
	}
	for _, p := range projects {
		for _, name := range p.Files {
			refs[ProjectFilesDir][name] = true
		}
	}
	return refs, nil
}

// SweepFiles finds stored files no active tracker or project references and,
// unless dryRun, deletes them. A failed delete is logged and the sweep goes on.
func SweepFiles(ctx context.Context, db *gorm.DB, store FileLister, log *logging.Logger, dryRun bool) (SweepReport, error) {
	refs, err := referencedFiles(ctx, db)
	if err != nil {
		return nil, err
	}

	report := SweepReport{}
	for _, dir := range []string{TrackerFilesDir, ProjectFilesDir} {
		names, err := store.ListFiles(ctx, dir)
		if err != nil {
			return nil, err
		}
		orphans := []string{}
		for _, name := range names {
			if name != "" && !refs[dir][name] {
				orphans = append(orphans, name)
			}
		}
		slices.Sort(orphans)
		report[dir] = orphans

		if dryRun {
			continue
		}
		for _, name := range orphans {
			if err := store.Delete(ctx, dir, name); err != nil {
				log.Warn(ctx, "failed to remove orphaned file", zap.String("dir", dir), zap.String("file", name), zap.Error(err))
			}
		}
	}
	return report, nil
}
