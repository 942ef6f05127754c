package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/infrastructure/communication"
	"tfshrms.cloud/hrms/infrastructure/logging"
	"tfshrms.cloud/hrms/infrastructure/metrics"
	"tfshrms.cloud/hrms/security"
)

const mailTimeout = 30 * time.Second

// MailDispatcher sends mail in the background. Failures are logged and never
// reach the caller.
type MailDispatcher struct {
	mailer Mailer
	log    *logging.Logger
	wg     sync.WaitGroup
}

func NewMailDispatcher(mailer Mailer, log *logging.Logger) *MailDispatcher {
	return &MailDispatcher{mailer: mailer, log: log}
}

func (d *MailDispatcher) Send(ctx context.Context, info *communication.EmailInfo) {
	if d.mailer == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, mailTimeout)
		defer cancel()

		err := d.mailer.SendEmail(ctx, info)
		metrics.MailSentTotal.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			d.log.Error(ctx, "failed to send email", zap.Strings("to", info.To), zap.String("subject", info.Subject), zap.Error(err))
		}
	}()
}

// Wait blocks until every queued mail has been attempted.
func (d *MailDispatcher) Wait() {
	d.wg.Wait()
}

// PasswordReset runs the request, verify and confirm steps of a password reset.
// Tokens carry the password version so a token stops working once used.
type PasswordReset struct {
	db          *gorm.DB
	tokens      security.ResetTokens
	sealer      Sealer
	mail        *MailDispatcher
	frontendURL string
}

func NewPasswordReset(db *gorm.DB, tokens security.ResetTokens, sealer Sealer, mail *MailDispatcher, frontendURL string) *PasswordReset {
	return &PasswordReset{db: db, tokens: tokens, sealer: sealer, mail: mail, frontendURL: frontendURL}
}

// Request mails a reset link to an active user. The result is the same whether
// or not the email is registered.
func (p *PasswordReset) Request(ctx context.Context, email string, now time.Time) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return validationf("email is required")
	}

	var user model.User
	err := p.db.WithContext(ctx).
		Where("LOWER(user_email) = ? AND is_active = ? AND is_deleted = ?", strings.ToLower(email), true, false).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := p.tokens.Issue(user.ID, user.Email, user.PasswordVersion, now)
	if err != nil {
		return err
	}
	link := p.frontendURL + "?token=" + url.QueryEscape(token)
	p.mail.Send(ctx, &communication.EmailInfo{
		To:      []string{user.Email},
		Subject: "Reset your password",
		Text:    fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password. It expires in %s.\n\n%s\n",
			user.Name, p.tokens.TTL, link),
	})
	return nil
}

// claims checks the token and that the user's password has not changed since it was issued.
func (p *PasswordReset) claims(ctx context.Context, tx *gorm.DB, token string, now time.Time) (*model.User, error) {
	claims, err := p.tokens.Parse(token, now)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired reset token", ErrUnauthorized)
	}

	var user model.User
	err = tx.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND is_deleted = ?", claims.UserID, true, false).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invalid or expired reset token", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordVersion != claims.PasswordVersion || !strings.EqualFold(user.Email, claims.Email) {
		return nil, fmt.Errorf("%w: reset token was already used", ErrUnauthorized)
	}
	return &user, nil
}

// Verify returns the email a valid token was issued for.
func (p *PasswordReset) Verify(ctx context.Context, token string, now time.Time) (string, error) {
	user, err := p.claims(ctx, p.db, token, now)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func (p *PasswordReset) Confirm(ctx context.Context, token, password string, now time.Time) error {
	if len(password) < minPasswordLength {
		return validationf("password must have at least %d characters", minPasswordLength)
	}
	sealed, err := p.sealer.Seal(password)
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := p.claims(ctx, tx, token, now)
		if err != nil {
			return err
		}
		res := tx.Model(&model.User{}).
			Where("user_id = ? AND password_version = ?", user.ID, user.PasswordVersion).
			Updates(map[string]interface{}{
				"password_sealed":  sealed,
				"password_version": user.PasswordVersion + 1,
				"updated_at":       now.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: reset token was already used", ErrUnauthorized)
		}
		return nil
	})
}
