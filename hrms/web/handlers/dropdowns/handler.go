package dropdowns

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tfshrms.cloud/hrms/hrms/core"
	common "tfshrms.cloud/hrms/hrms/web/common"
	web "tfshrms.cloud/hrms/web/common"
)

type Endpoint struct {
	base      common.Handler
	dropdowns *core.Dropdowns
}

func Register(r gin.IRouter, base common.Handler, dropdowns *core.Dropdowns) {
	endpoint := &Endpoint{base: base, dropdowns: dropdowns}
	r.POST("/dropdowns", endpoint.Get)
}

type QueryDTO struct {
	Type      string `json:"type" binding:"required,oneof=designations roles teams users projects_with_tasks"`
	Role      string `json:"role"`
	ProjectID int    `json:"projectId"`
	UserID    int    `json:"userId"`
}

func (ep *Endpoint) Get(c *gin.Context) {
	callerID, ok := ep.base.CallerID(c)
	if !ok {
		return
	}
	var dto QueryDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}

	ctx := c.Request.Context()
	var (
		data interface{}
		err  error
	)
	switch dto.Type {
	case "designations":
		data, err = ep.dropdowns.Designations(ctx)
	case "roles":
		data, err = ep.dropdowns.Roles(ctx)
	case "teams":
		data, err = ep.dropdowns.Teams(ctx)
	case "users":
		if dto.Role == "" {
			c.JSON(http.StatusBadRequest, web.NewErrorResponse("role is required for users"))
			return
		}
		data, err = ep.dropdowns.UsersByRole(ctx, dto.Role, dto.ProjectID)
	case "projects_with_tasks":
		data, err = ep.dropdowns.ProjectsWithTasks(ctx, callerID, dto.UserID)
	}
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, data)
}
