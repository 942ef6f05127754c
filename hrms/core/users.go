package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
)

// Sealer turns passwords into stored values and checks candidates against them.
type Sealer interface {
	Seal(plain string) (string, error)
	Matches(sealed, candidate string) bool
}

const minPasswordLength = 6

// Supervisors lists supervisor ids per relation. A nil slice leaves the relation
// unchanged on update.
type Supervisors struct {
	ManagerIDs   []int
	AssistantIDs []int
	QAIDs        []int
}

func (s Supervisors) byRelation() map[string][]int {
	return map[string][]int{
		model.RelationManager:          s.ManagerIDs,
		model.RelationAssistantManager: s.AssistantIDs,
		model.RelationQA:               s.QAIDs,
	}
}

type UserInput struct {
	Name          string
	Email         string
	Number        string
	Address       string
	RoleID        int
	TeamID        *int
	DesignationID *int
	Tenure        *float64
	Password      string
	Supervisors   Supervisors
}

type UserUpdate struct {
	Name          *string
	Email         *string
	Number        *string
	Address       *string
	RoleID        *int
	TeamID        *int
	DesignationID *int
	Tenure        *float64
	Password      *string
	Supervisors   Supervisors
}

type UserService struct {
	db     *gorm.DB
	sealer Sealer
}

func NewUserService(db *gorm.DB, sealer Sealer) *UserService {
	return &UserService{db: db, sealer: sealer}
}

func emailTaken(tx *gorm.DB, email string, exceptID int) error {
	var count int64
	err := tx.Model(&model.User{}).
		Where("LOWER(user_email) = ? AND is_deleted = ? AND user_id <> ?", strings.ToLower(email), false, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return conflictf("email %q is already registered", email)
	}
	return nil
}

func roleExists(tx *gorm.DB, roleID int) error {
	var count int64
	if err := tx.Model(&model.Role{}).Where("role_id = ? AND is_active = ?", roleID, true).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFoundf("role %d", roleID)
	}
	return nil
}

func replaceSupervisors(tx *gorm.DB, userID int, supervisors Supervisors) error {
	for relation, ids := range supervisors.byRelation() {
		if ids == nil {
			continue
		}
		if err := activeUsersExist(tx, ids); err != nil {
			return err
		}
		err := tx.Where("user_id = ? AND relation = ?", userID, relation).Delete(&model.UserSupervisor{}).Error
		if err != nil {
			return err
		}
		rows := []model.UserSupervisor{}
		for _, id := range uniqueIDs(ids) {
			rows = append(rows, model.UserSupervisor{UserID: userID, SupervisorID: id, Relation: relation})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *UserService) seal(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", validationf("password must have at least %d characters", minPasswordLength)
	}
	return s.sealer.Seal(password)
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.RoleID <= 0 {
		return nil, validationf("name, email and role are required")
	}
	tenure := 1.0
	if in.Tenure != nil {
		tenure = *in.Tenure
	}
	if tenure <= 0 {
		return nil, validationf("tenure must be positive")
	}
	sealed, err := s.seal(in.Password)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Name:           in.Name,
		Email:          in.Email,
		Number:         in.Number,
		Address:        in.Address,
		RoleID:         in.RoleID,
		TeamID:         in.TeamID,
		DesignationID:  in.DesignationID,
		Tenure:         tenure,
		PasswordSealed: sealed,
		IsActive:       true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := emailTaken(tx, in.Email, 0); err != nil {
			return err
		}
		if err := roleExists(tx, in.RoleID); err != nil {
			return err
		}
		if err := tx.Omit("Role", "Team", "Designation", "Supervisors").Create(&user).Error; err != nil {
			return err
		}
		if err := replaceSupervisors(tx, user.ID, in.Supervisors); err != nil {
			return err
		}
		return tx.Preload("Role").Preload("Supervisors").Take(&user, user.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update changes the given fields. A new password bumps the password version,
// which invalidates outstanding reset tokens.
func (s *UserService) Update(ctx context.Context, id int, in UserUpdate) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND is_deleted = ?", id, false).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("user %d", id)
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"updated_at": time.Now().UTC()}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return validationf("name is required")
			}
			updates["user_name"] = name
		}
		if in.Email != nil {
			email := strings.TrimSpace(*in.Email)
			if email == "" {
				return validationf("email is required")
			}
			if err := emailTaken(tx, email, id); err != nil {
				return err
			}
			updates["user_email"] = email
		}
		if in.Number != nil {
			updates["user_number"] = *in.Number
		}
		if in.Address != nil {
			updates["user_address"] = *in.Address
		}
		if in.RoleID != nil {
			if err := roleExists(tx, *in.RoleID); err != nil {
				return err
			}
			updates["role_id"] = *in.RoleID
		}
		if in.TeamID != nil {
			updates["team_id"] = *in.TeamID
		}
		if in.DesignationID != nil {
			updates["designation_id"] = *in.DesignationID
		}
		if in.Tenure != nil {
			if *in.Tenure <= 0 {
				return validationf("tenure must be positive")
			}
			updates["user_tenure"] = *in.Tenure
		}
		if in.Password != nil {
			sealed, err := s.seal(*in.Password)
			if err != nil {
				return err
			}
			updates["password_sealed"] = sealed
			updates["password_version"] = gorm.Expr("password_version + 1")
		}

		if err := tx.Model(&model.User{}).Where("user_id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if err := replaceSupervisors(tx, id, in.Supervisors); err != nil {
			return err
		}
		return tx.Preload("Role").Preload("Supervisors").Take(&user, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete marks a user deleted and inactive.
func (s *UserService) Delete(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFoundf("user %d", id)
	}
	return nil
}

type UserQuery struct {
	TeamID int
	RoleID int
	Search string
}

// List returns the active, non-deleted users in the caller's scope. Agents get an empty list.
func (s *UserService) List(ctx context.Context, callerID int, q UserQuery) ([]model.User, error) {
	role, scope, err := scopeFor(ctx, s.db, callerID)
	if err != nil {
		return nil, err
	}
	users := []model.User{}
	if KindOf(role) == RoleAgent {
		return users, nil
	}

	uq := s.db.WithContext(ctx).
		Preload("Role").Preload("Team").Preload("Designation").Preload("Supervisors").
		Where("is_active = ? AND is_deleted = ?", true, false)
	uq = scope.apply(uq, "user_id")
	if q.TeamID > 0 {
		uq = uq.Where("team_id = ?", q.TeamID)
	}
	if q.RoleID > 0 {
		uq = uq.Where("role_id = ?", q.RoleID)
	}
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		like := "%" + search + "%"
		uq = uq.Where("(LOWER(user_name) LIKE ? OR LOWER(user_email) LIKE ?)", like, like)
	}
	if err := uq.Order("user_id DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
