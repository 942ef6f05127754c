package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/security"
)

type LoginResult struct {
	Token    string `json:"token"`
	UserID   int    `json:"userId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

// Credentials checks passwords and issues identity tokens.
type Credentials struct {
	db       *gorm.DB
	sealer   Sealer
	secret   []byte
	tokenTTL time.Duration
}

func NewCredentials(db *gorm.DB, sealer Sealer, secret []byte, tokenTTL time.Duration) *Credentials {
	return &Credentials{db: db, sealer: sealer, secret: secret, tokenTTL: tokenTTL}
}

// Login returns ErrUnauthorized for an unknown email, an inactive user and a wrong
// password alike.
func (c *Credentials) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationf("email and password are required")
	}

	var user model.User
	err := c.db.WithContext(ctx).
		Preload("Role").
		Where("LOWER(user_email) = ? AND is_active = ? AND is_deleted = ?", strings.ToLower(email), true, false).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !c.sealer.Matches(user.PasswordSealed, password) {
		return nil, ErrUnauthorized
	}

	role := ""
	if user.Role != nil {
		role = NormalizeRole(user.Role.Name)
	}
	token, err := security.SignIdentityToken(&security.HrmsIdentity{
		Id:       user.ID,
		UserName: user.Name,
		Email:    user.Email,
		Role:     role,
	}, c.secret, c.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, UserID: user.ID, UserName: user.Name, Role: role}, nil
}
