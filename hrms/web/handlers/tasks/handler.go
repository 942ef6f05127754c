package tasks

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tfshrms.cloud/hrms/hrms/core"
	common "tfshrms.cloud/hrms/hrms/web/common"
	web "tfshrms.cloud/hrms/web/common"
)

type Endpoint struct {
	base  common.Handler
	tasks *core.TaskService
}

func Register(r gin.IRouter, base common.Handler, tasks *core.TaskService) {
	endpoint := &Endpoint{base: base, tasks: tasks}
	r.POST("/tasks", endpoint.Create)
	r.PUT("/tasks/:id", endpoint.Update)
	r.DELETE("/tasks/:id", endpoint.Delete)
	r.POST("/tasks/search", endpoint.Search)
}

type CreateDTO struct {
	ProjectID   int     `json:"projectId" binding:"required,gt=0"`
	Name        string  `json:"taskName" binding:"required"`
	Description string  `json:"taskDescription"`
	Target      float64 `json:"taskTarget" binding:"gte=0"`
	TeamIDs     []int   `json:"teamIds"`
}

func (ep *Endpoint) Create(c *gin.Context) {
	var dto CreateDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	task, err := ep.tasks.Create(c.Request.Context(), core.TaskInput(dto))
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, web.NewSuccessResponse(task))
}

type UpdateDTO struct {
	Name        *string  `json:"taskName"`
	Description *string  `json:"taskDescription"`
	Target      *float64 `json:"taskTarget"`
	TeamIDs     []int    `json:"teamIds"`
}

func (ep *Endpoint) Update(c *gin.Context) {
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	var dto UpdateDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	task, err := ep.tasks.Update(c.Request.Context(), id, core.TaskUpdate(dto))
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, task)
}

func (ep *Endpoint) Delete(c *gin.Context) {
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	if err := ep.tasks.Delete(c.Request.Context(), id); err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type SearchDTO struct {
	ProjectID int `json:"projectId"`
}

func (ep *Endpoint) Search(c *gin.Context) {
	callerID, ok := ep.base.CallerID(c)
	if !ok {
		return
	}
	var dto SearchDTO
	if !ep.base.BindOptionalJSON(c, &dto) {
		return
	}
	tasks, err := ep.tasks.List(c.Request.Context(), callerID, dto.ProjectID)
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSearchResponse(tasks, int64(len(tasks))))
}
