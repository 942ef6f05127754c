package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
)

type ProjectTargetInput struct {
	ProjectID     int
	MonthYear     string
	MonthlyTarget float64
}

type ProjectTargetUpdate struct {
	ProjectID     *int
	MonthYear     *string
	MonthlyTarget *float64
}

// SkippedTarget is a record AddProjectTargets did not insert.
type SkippedTarget struct {
	Index     int    `json:"index"`
	ProjectID int    `json:"projectId"`
	MonthYear string `json:"monthYear"`
	Reason    string `json:"reason"`
}

type ProjectTargetResult struct {
	Inserted []model.ProjectMonthlyTarget `json:"inserted"`
	Skipped  []SkippedTarget              `json:"skipped"`
}

func projectTargetTaken(tx *gorm.DB, projectID int, month string, exceptID int) (bool, error) {
	var count int64
	err := tx.Model(&model.ProjectMonthlyTarget{}).
		Where("project_id = ? AND month_year = ? AND is_active = ? AND id <> ?", projectID, month, true, exceptID).
		Count(&count).Error
	return count > 0, err
}

func projectExists(tx *gorm.DB, projectID int) (bool, error) {
	var count int64
	err := tx.Model(&model.Project{}).Where("project_id = ? AND is_active = ?", projectID, true).Count(&count).Error
	return count > 0, err
}

// AddProjectTargets inserts each valid record. Records naming a missing project
// or an existing (project, month) are skipped and reported; when every record is
// skipped nothing is written and ErrConflict is returned.
func (s *TargetService) AddProjectTargets(ctx context.Context, inputs []ProjectTargetInput) (*ProjectTargetResult, error) {
	if len(inputs) == 0 {
		return nil, validationf("at least one project target is required")
	}
	for i := range inputs {
		if inputs[i].ProjectID <= 0 {
			return nil, validationf("record %d: project id is required", i)
		}
		month, err := NormalizeMonth(inputs[i].MonthYear)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		inputs[i].MonthYear = month
		if inputs[i].MonthlyTarget < 0 {
			return nil, validationf("record %d: monthly target must not be negative", i)
		}
	}

	result := &ProjectTargetResult{Inserted: []model.ProjectMonthlyTarget{}, Skipped: []SkippedTarget{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := map[string]bool{}
		for i, in := range inputs {
			skip := func(reason string) {
				result.Skipped = append(result.Skipped, SkippedTarget{Index: i, ProjectID: in.ProjectID, MonthYear: in.MonthYear, Reason: reason})
			}

			key := fmt.Sprintf("%d/%s", in.ProjectID, in.MonthYear)
			if seen[key] {
				skip("duplicate in request")
				continue
			}
			seen[key] = true

			ok, err := projectExists(tx, in.ProjectID)
			if err != nil {
				return err
			}
			if !ok {
				skip("project not found")
				continue
			}
			taken, err := projectTargetTaken(tx, in.ProjectID, in.MonthYear, 0)
			if err != nil {
				return err
			}
			if taken {
				skip("target already exists")
				continue
			}

			row := model.ProjectMonthlyTarget{
				ProjectID:     in.ProjectID,
				MonthYear:     in.MonthYear,
				MonthlyTarget: in.MonthlyTarget,
				IsActive:      true,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			result.Inserted = append(result.Inserted, row)
		}
		if len(result.Inserted) == 0 {
			return conflictf("no project target was added")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *TargetService) UpdateProjectTarget(ctx context.Context, id int, in ProjectTargetUpdate) (*model.ProjectMonthlyTarget, error) {
	var row model.ProjectMonthlyTarget
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND is_active = ?", id, true).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("project target %d", id)
		}
		if err != nil {
			return err
		}

		if in.ProjectID != nil && *in.ProjectID != row.ProjectID {
			ok, err := projectExists(tx, *in.ProjectID)
			if err != nil {
				return err
			}
			if !ok {
				return notFoundf("project %d", *in.ProjectID)
			}
			row.ProjectID = *in.ProjectID
		}
		if in.MonthYear != nil {
			month, err := NormalizeMonth(*in.MonthYear)
			if err != nil {
				return err
			}
			row.MonthYear = month
		}
		if in.MonthlyTarget != nil {
			if *in.MonthlyTarget < 0 {
				return validationf("monthly target must not be negative")
			}
			row.MonthlyTarget = *in.MonthlyTarget
		}

		taken, err := projectTargetTaken(tx, row.ProjectID, row.MonthYear, id)
		if err != nil {
			return err
		}
		if taken {
			return conflictf("project %d already has a target for %s", row.ProjectID, row.MonthYear)
		}
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *TargetService) DeleteProjectTarget(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).
		Model(&model.ProjectMonthlyTarget{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFoundf("project target %d", id)
	}
	return nil
}

type ProjectTargetRow struct {
	ID            int     `gorm:"column:id" json:"id"`
	ProjectID     int     `gorm:"column:project_id" json:"projectId"`
	ProjectName   string  `gorm:"column:project_name" json:"projectName"`
	MonthYear     string  `gorm:"column:month_year" json:"monthYear"`
	MonthlyTarget float64 `gorm:"column:monthly_target" json:"monthlyTarget"`
}

type ProjectTargetQuery struct {
	ProjectID int
	MonthYear string
	Limit     int
	Offset    int
}

// ListProjectTargets pages through active targets, newest first. Limit defaults to 200.
func (s *TargetService) ListProjectTargets(ctx context.Context, q ProjectTargetQuery) ([]ProjectTargetRow, int64, error) {
	if q.Limit <= 0 {
		q.Limit = 200
	}
	if q.Offset < 0 {
		return nil, 0, validationf("offset must not be negative")
	}

	base := s.db.WithContext(ctx).
		Table("project_monthly_targets AS pmt").
		Joins("JOIN projects p ON p.project_id = pmt.project_id").
		Where("pmt.is_active = ?", true)
	if q.ProjectID > 0 {
		base = base.Where("pmt.project_id = ?", q.ProjectID)
	}
	if q.MonthYear != "" {
		month, err := NormalizeMonth(q.MonthYear)
		if err != nil {
			return nil, 0, err
		}
		base = base.Where("pmt.month_year = ?", month)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []ProjectTargetRow{}
	err := base.Session(&gorm.Session{}).
		Select("pmt.id, pmt.project_id, p.project_name, pmt.month_year, pmt.monthly_target").
		Order("pmt.id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
