package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const resetAudience = "password-reset"

type ResetClaims struct {
	UserID          int    `json:"user_id"`
	Email           string `json:"email"`
	PasswordVersion int    `json:"pwd_version"`
	jwt.RegisteredClaims
}

// ResetTokens issues short-lived password reset tokens with their own secret.
type ResetTokens struct {
	Secret []byte
	TTL    time.Duration
}

func (r ResetTokens) Issue(userID int, email string, passwordVersion int, now time.Time) (string, error) {
	claims := ResetClaims{
		UserID:          userID,
		Email:           email,
		PasswordVersion: passwordVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  []string{resetAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.Secret)
}

func (r ResetTokens) Parse(tokenStr string, now time.Time) (*ResetClaims, error) {
	claims := &ResetClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.Secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(resetAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, errors.New("reset token has no user")
	}
	return claims, nil
}
