package auth

import (
	"time"

	"github.com/gin-gonic/gin"

	"tfshrms.cloud/hrms/hrms/core"
	common "tfshrms.cloud/hrms/hrms/web/common"
)

type Endpoint struct {
	base        common.Handler
	credentials *core.Credentials
	reset       *core.PasswordReset
	now         func() time.Time
}

// Register mounts the public authentication routes.
func Register(r gin.IRouter, base common.Handler, credentials *core.Credentials, reset *core.PasswordReset) {
	endpoint := &Endpoint{base: base, credentials: credentials, reset: reset, now: time.Now}
	r.POST("/auth/login", endpoint.Login)
	r.POST("/password-reset/request", endpoint.RequestReset)
	r.POST("/password-reset/verify", endpoint.VerifyReset)
	r.POST("/password-reset/confirm", endpoint.ConfirmReset)
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (ep *Endpoint) Login(c *gin.Context) {
	var dto LoginDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	result, err := ep.credentials.Login(c.Request.Context(), dto.Email, dto.Password)
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, result)
}

type ResetRequestDTO struct {
	Email string `json:"email" binding:"required,email"`
}

func (ep *Endpoint) RequestReset(c *gin.Context) {
	var dto ResetRequestDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	if err := ep.reset.Request(c.Request.Context(), dto.Email, ep.now()); err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, gin.H{"message": "If the email is registered, a reset link has been sent."})
}

type ResetTokenDTO struct {
	Token string `json:"token" binding:"required"`
}

func (ep *Endpoint) VerifyReset(c *gin.Context) {
	var dto ResetTokenDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	email, err := ep.reset.Verify(c.Request.Context(), dto.Token, ep.now())
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, gin.H{"email": email})
}

type ResetConfirmDTO struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

func (ep *Endpoint) ConfirmReset(c *gin.Context) {
	var dto ResetConfirmDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	if err := ep.reset.Confirm(c.Request.Context(), dto.Token, dto.Password, ep.now()); err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, gin.H{"message": "Password updated."})
}
