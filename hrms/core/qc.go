package core

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tfshrms.cloud/hrms/hrms/model"
)

type QCInput struct {
	UserID        int
	Date          string
	Score         *float64
	AssignedHours *float64
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// UpsertQC stores the QC score and assigned hours of one user on one day.
// A value left out keeps whatever is already stored.
func UpsertQC(ctx context.Context, db *gorm.DB, in QCInput) (*model.QCScore, error) {
	if in.UserID <= 0 {
		return nil, validationf("user id is required")
	}
	day, err := ParseDay(in.Date)
	if err != nil {
		return nil, err
	}
	if in.Score == nil && in.AssignedHours == nil {
		return nil, validationf("qc score or assigned hours is required")
	}
	if (in.Score != nil && *in.Score < 0) || (in.AssignedHours != nil && *in.AssignedHours < 0) {
		return nil, validationf("qc values must not be negative")
	}

	row := model.QCScore{
		UserID:        in.UserID,
		Date:          day.Format(dateLayout),
		Score:         in.Score,
		AssignedHours: in.AssignedHours,
		UpdatedAt:     time.Now().UTC(),
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Select("user_id").
			Where("user_id = ? AND is_active = ? AND is_deleted = ?", in.UserID, true, false).
			Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("user %d", in.UserID)
		}
		if err != nil {
			return err
		}

		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "qc_date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"qc_score":       gorm.Expr("COALESCE(?, qc_score)", nullable(in.Score)),
				"assigned_hours": gorm.Expr("COALESCE(?, assigned_hours)", nullable(in.AssignedHours)),
				"updated_at":     row.UpdatedAt,
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Where("user_id = ? AND qc_date = ?", row.UserID, row.Date).Take(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}
