package common

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tfshrms.cloud/hrms/hrms/core"
	"tfshrms.cloud/hrms/infrastructure/logging"
	web "tfshrms.cloud/hrms/web/common"
	"tfshrms.cloud/hrms/web/middlewares"
)

// Notifier posts operational alerts, e.g. to Slack.
type Notifier interface {
	Error(message string) error
}

type Handler struct {
	DB       *gorm.DB
	Log      *logging.Logger
	Notifier Notifier
}

// CallerID returns the authenticated user id. It aborts with 401 when missing.
func (h *Handler) CallerID(c *gin.Context) (int, bool) {
	id, ok := middlewares.CallerID(c)
	if !ok || id <= 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, web.NewErrorResponse("unauthorized"))
		return 0, false
	}
	return id, true
}

// ParamID parses a positive path id.
func (h *Handler) ParamID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid "+name))
		return 0, false
	}
	return id, true
}

// BindJSON binds the body, writing a 400 on failure.
func (h *Handler) BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return false
	}
	return true
}

// BindOptionalJSON is BindJSON that accepts an empty body.
func (h *Handler) BindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.BindJSON(c, dst)
}

// Bind binds form or JSON bodies by content type.
func (h *Handler) Bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBind(dst); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return false
	}
	return true
}

// Fail writes the response for err. Unexpected errors are logged, reported and
// answered with a generic 500.
func (h *Handler) Fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, web.NewErrorResponse(err.Error()))
	case errors.Is(err, core.ErrConflict):
		c.JSON(http.StatusConflict, web.NewErrorResponse(err.Error()))
	case errors.Is(err, core.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, web.NewErrorResponse(err.Error()))
	default:
		ctx := c.Request.Context()
		h.Log.Error(ctx, "request failed", zap.String("route", c.FullPath()), zap.Error(err))
		if h.Notifier != nil {
			message := fmt.Sprintf("%s %s (request %s): %v", c.Request.Method, c.FullPath(), logging.RequestIDFromContext(ctx), err)
			go func() {
				if err := h.Notifier.Error(message); err != nil {
					h.Log.Warn(ctx, "failed to post alert", zap.Error(err))
				}
			}()
		}
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse("internal error"))
	}
}

// OK wraps data in the success envelope.
func (h *Handler) OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, web.NewSuccessResponse(data))
}
