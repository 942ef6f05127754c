package core

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
)

type UserTargetInput struct {
	UserID             int
	MonthYear          string
	MonthlyTarget      float64
	ExtraAssignedHours float64
	WorkingDays        int
}

func (in *UserTargetInput) normalize() error {
	if in.UserID <= 0 {
		return validationf("user id is required")
	}
	month, err := NormalizeMonth(in.MonthYear)
	if err != nil {
		return err
	}
	in.MonthYear = month
	if in.MonthlyTarget < 0 || in.ExtraAssignedHours < 0 || in.WorkingDays < 0 {
		return validationf("targets and working days must not be negative")
	}
	if in.WorkingDays > 31 {
		return validationf("working days must not exceed 31")
	}
	return nil
}

type UserTargetUpdate struct {
	UserID             *int
	MonthYear          *string
	MonthlyTarget      *float64
	ExtraAssignedHours *float64
	WorkingDays        *int
}

// TargetService manages monthly targets of users and projects.
type TargetService struct {
	db *gorm.DB
}

func NewTargetService(db *gorm.DB) *TargetService {
	return &TargetService{db: db}
}

func userExists(tx *gorm.DB, userID int) error {
	var count int64
	err := tx.Model(&model.User{}).
		Where("user_id = ? AND is_active = ? AND is_deleted = ?", userID, true, false).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return notFoundf("user %d", userID)
	}
	return nil
}

// userTargetTaken reports another active target for the same user and month.
func userTargetTaken(tx *gorm.DB, userID int, month string, exceptID int) error {
	var count int64
	err := tx.Model(&model.UserMonthlyTarget{}).
		Where("user_id = ? AND month_year = ? AND is_active = ? AND id <> ?", userID, month, true, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return conflictf("user %d already has a target for %s", userID, month)
	}
	return nil
}

func (s *TargetService) AddUserTarget(ctx context.Context, in UserTargetInput) (*model.UserMonthlyTarget, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	row := model.UserMonthlyTarget{
		UserID:             in.UserID,
		MonthYear:          in.MonthYear,
		MonthlyTarget:      in.MonthlyTarget,
		ExtraAssignedHours: in.ExtraAssignedHours,
		WorkingDays:        in.WorkingDays,
		IsActive:           true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, in.UserID); err != nil {
			return err
		}
		if err := userTargetTaken(tx, in.UserID, in.MonthYear, 0); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateUserTarget applies the given fields, then checks the resulting
// (user, month) pair against the other active targets.
func (s *TargetService) UpdateUserTarget(ctx context.Context, id int, in UserTargetUpdate) (*model.UserMonthlyTarget, error) {
	var row model.UserMonthlyTarget
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND is_active = ?", id, true).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("user target %d", id)
		}
		if err != nil {
			return err
		}

		next := UserTargetInput{
			UserID:             row.UserID,
			MonthYear:          row.MonthYear,
			MonthlyTarget:      row.MonthlyTarget,
			ExtraAssignedHours: row.ExtraAssignedHours,
			WorkingDays:        row.WorkingDays,
		}
		if in.UserID != nil {
			next.UserID = *in.UserID
		}
		if in.MonthYear != nil {
			next.MonthYear = *in.MonthYear
		}
		if in.MonthlyTarget != nil {
			next.MonthlyTarget = *in.MonthlyTarget
		}
		if in.ExtraAssignedHours != nil {
			next.ExtraAssignedHours = *in.ExtraAssignedHours
		}
		if in.WorkingDays != nil {
			next.WorkingDays = *in.WorkingDays
		}
		if err := next.normalize(); err != nil {
			return err
		}
		if next.UserID != row.UserID {
			if err := userExists(tx, next.UserID); err != nil {
				return err
			}
		}
		if err := userTargetTaken(tx, next.UserID, next.MonthYear, id); err != nil {
			return err
		}

		row.UserID = next.UserID
		row.MonthYear = next.MonthYear
		row.MonthlyTarget = next.MonthlyTarget
		row.ExtraAssignedHours = next.ExtraAssignedHours
		row.WorkingDays = next.WorkingDays
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *TargetService) DeleteUserTarget(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).
		Model(&model.UserMonthlyTarget{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFoundf("user target %d", id)
	}
	return nil
}

type UserTargetSummary struct {
	UserID             int      `json:"userId"`
	UserName           string   `json:"userName"`
	TeamName           string   `json:"teamName"`
	TargetID           *int     `json:"userMonthlyTrackerId"`
	MonthYear          string   `json:"monthYear"`
	MonthlyTarget      float64  `json:"monthlyTarget"`
	ExtraAssignedHours float64  `json:"extraAssignedHours"`
	MonthlyTotalTarget float64  `json:"monthlyTotalTarget"`
	WorkingDays        int      `json:"workingDays"`
	TotalBillableHours float64  `json:"totalBillableHours"`
	TotalProduction    float64  `json:"totalProduction"`
	TrackerRows        int      `json:"trackerRows"`
	AvgQCScore         *float64 `json:"avgQcScore"`
	QCDaysCount        int      `json:"qcDaysCount"`
	PendingDays        *int     `json:"pendingDays"`
	PendingTarget      float64  `json:"pendingTarget"`
}

type UserTargetQuery struct {
	Month  string
	UserID int
	TeamID int
}

// UserTargetSummaries lists visible agents with their target and progress for a
// month. With an explicit month only agents holding a target are listed; without
// one the current month is used and agents without a target show zeros.
func (e *Engine) UserTargetSummaries(ctx context.Context, callerID int, q UserTargetQuery, now time.Time) ([]UserTargetSummary, error) {
	defer observe("user_targets")()

	month := CurrentMonth(now)
	if q.Month != "" {
		m, err := ParseMonth(q.Month)
		if err != nil {
			return nil, err
		}
		month = m
	}
	if q.UserID < 0 || q.TeamID < 0 {
		return nil, validationf("ids must be positive")
	}

	_, scope, err := scopeFor(ctx, e.db, callerID)
	if err != nil {
		return nil, err
	}
	out := []UserTargetSummary{}
	if q.UserID > 0 && !scope.Contains(q.UserID) {
		return out, nil
	}

	var agents []struct {
		UserID   int    `gorm:"column:user_id"`
		UserName string `gorm:"column:user_name"`
		TeamName string `gorm:"column:team_name"`
	}
	uq := e.db.WithContext(ctx).
		Table("users AS u").
		Select("u.user_id, u.user_name, COALESCE(tm.team_name, '') AS team_name").
		Joins("JOIN roles r ON r.role_id = u.role_id").
		Joins("LEFT JOIN teams tm ON tm.team_id = u.team_id").
		Where("u.is_active = ? AND u.is_deleted = ?", true, false).
		Where("LOWER(TRIM(r.role_name)) = ?", "agent")
	uq = scope.apply(uq, "u.user_id")
	if q.UserID > 0 {
		uq = uq.Where("u.user_id = ?", q.UserID)
	}
	if q.TeamID > 0 {
		uq = uq.Where("u.team_id = ?", q.TeamID)
	}
	if err := uq.Order("u.user_name ASC").Order("u.user_id ASC").Scan(&agents).Error; err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.UserID)
	}
	targets, err := monthTargets(ctx, e.db, ids, month)
	if err != nil {
		return nil, err
	}
	totals, err := monthTotals(ctx, e.db, ids, month)
	if err != nil {
		return nil, err
	}
	stats, err := monthStats(ctx, e.db, ids, month, month.Cutoff(now))
	if err != nil {
		return nil, err
	}
	qc, err := monthQC(ctx, e.db, ids, month)
	if err != nil {
		return nil, err
	}
	scores := map[int][]*float64{}
	for k, v := range qc {
		if v.Score != nil {
			scores[k.userID] = append(scores[k.userID], v.Score)
		}
	}

	for _, a := range agents {
		target, ok := targets[a.UserID]
		if q.Month != "" && !ok {
			continue
		}
		t := totals[a.UserID]
		s := UserTargetSummary{
			UserID:             a.UserID,
			UserName:           a.UserName,
			TeamName:           a.TeamName,
			MonthYear:          month.String(),
			TotalBillableHours: t.billable,
			TotalProduction:    t.production,
			TrackerRows:        t.rows,
		}
		if ok {
			id := target.ID
			s.TargetID = &id
			s.MonthlyTarget = target.MonthlyTarget
			s.ExtraAssignedHours = target.ExtraAssignedHours
			s.MonthlyTotalTarget = MonthlyTotal(target.MonthlyTarget, target.ExtraAssignedHours)
			s.WorkingDays = target.WorkingDays
			pending := PendingDays(target.WorkingDays, stats[a.UserID].worked)
			s.PendingDays = &pending
		}
		s.PendingTarget = Round(math.Max(s.MonthlyTotalTarget-s.TotalBillableHours, 0), 4)
		s.AvgQCScore, s.QCDaysCount = QCAverage(scores[a.UserID])
		out = append(out, s)
	}
	return out, nil
}

type userMonthTotals struct {
	billable   float64
	production float64
	rows       int
}

func monthTotals(ctx context.Context, db *gorm.DB, userIDs []int, month Month) (map[int]userMonthTotals, error) {
	out := map[int]userMonthTotals{}
	if len(userIDs) == 0 {
		return out, nil
	}

	var trackers []model.Tracker
	err := db.WithContext(ctx).
		Select("tracker_id", "user_id", "production", "tenure_target").
		Where("is_active = ? AND user_id IN ?", true, userIDs).
		Where("worked_at >= ? AND worked_at < ?", month.First(), month.End()).
		Order("tracker_id").
		Find(&trackers).Error
	if err != nil {
		return nil, err
	}

	billable := map[int][]float64{}
	production := map[int][]float64{}
	for _, t := range trackers {
		billable[t.UserID] = append(billable[t.UserID], BillableHours(t.Production, t.TenureTarget))
		production[t.UserID] = append(production[t.UserID], t.Production)
	}
	for id := range billable {
		out[id] = userMonthTotals{
			billable:   Round(Sum(billable[id]), 4),
			production: Round(Sum(production[id]), 2),
			rows:       len(billable[id]),
		}
	}
	return out, nil
}
