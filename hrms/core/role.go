package core

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type RoleKind int

const (
	RoleOther RoleKind = iota
	RoleAdmin
	RoleManager
	RoleAssistantManager
	RoleQA
	RoleAgent
)

func NormalizeRole(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// KindOf buckets a role name into one of the fixed scoping rules.
func KindOf(role string) RoleKind {
	switch NormalizeRole(role) {
	case "admin", "super admin":
		return RoleAdmin
	case "manager", "project manager", "product manager":
		return RoleManager
	case "assistant manager":
		return RoleAssistantManager
	case "qa":
		return RoleQA
	case "agent":
		return RoleAgent
	default:
		return RoleOther
	}
}

// relation is the supervisor/member relation a role scopes by.
func (k RoleKind) relation() (string, bool) {
	switch k {
	case RoleManager:
		return "manager", true
	case RoleAssistantManager:
		return "assistant_manager", true
	case RoleQA:
		return "qa", true
	}
	return "", false
}

// ResolveRole returns the normalized role name of an active, non-deleted user.
// It is read on every call.
func ResolveRole(ctx context.Context, db *gorm.DB, userID int) (string, error) {
	if userID <= 0 {
		return "", validationf("user id is required")
	}

	var row struct {
		RoleName string
	}
	err := db.WithContext(ctx).
		Table("users AS u").
		Select("r.role_name AS role_name").
		Joins("JOIN roles r ON r.role_id = u.role_id").
		Where("u.user_id = ? AND u.is_active = ? AND u.is_deleted = ?", userID, true, false).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", notFoundf("user %d", userID)
	}
	if err != nil {
		return "", err
	}
	return NormalizeRole(row.RoleName), nil
}
