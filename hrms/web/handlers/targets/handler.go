package targets

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tfshrms.cloud/hrms/hrms/core"
	common "tfshrms.cloud/hrms/hrms/web/common"
	web "tfshrms.cloud/hrms/web/common"
	"tfshrms.cloud/hrms/web/handlers"
)

type Endpoint struct {
	base    common.Handler
	targets *core.TargetService
	engine  *core.Engine
	now     func() time.Time
}

func Register(r gin.IRouter, base common.Handler, targets *core.TargetService, engine *core.Engine) {
	endpoint := &Endpoint{base: base, targets: targets, engine: engine, now: time.Now}

	users := r.Group("/user-targets")
	users.POST("", endpoint.AddUserTarget)
	users.PUT("/:id", endpoint.UpdateUserTarget)
	users.DELETE("/:id", endpoint.DeleteUserTarget)
	users.POST("/search", endpoint.SearchUserTargets)
	users.POST("/import", endpoint.ImportUserTargets)

	projects := r.Group("/project-targets")
	projects.POST("", endpoint.AddProjectTargets)
	projects.PUT("/:id", endpoint.UpdateProjectTarget)
	projects.DELETE("/:id", endpoint.DeleteProjectTarget)
	projects.POST("/search", endpoint.SearchProjectTargets)
}

type UserTargetDTO struct {
	UserID             int     `json:"userId" binding:"required,gt=0"`
	MonthYear          string  `json:"monthYear" binding:"required"`
	MonthlyTarget      float64 `json:"monthlyTarget"`
	ExtraAssignedHours float64 `json:"extraAssignedHours"`
	WorkingDays        int     `json:"workingDays"`
}

func (ep *Endpoint) AddUserTarget(c *gin.Context) {
	var dto UserTargetDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	target, err := ep.targets.AddUserTarget(c.Request.Context(), core.UserTargetInput{
		UserID:             dto.UserID,
		MonthYear:          dto.MonthYear,
		MonthlyTarget:      dto.MonthlyTarget,
		ExtraAssignedHours: dto.ExtraAssignedHours,
		WorkingDays:        dto.WorkingDays,
	})
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, web.NewSuccessResponse(target))
}

type UserTargetUpdateDTO struct {
	UserID             *int     `json:"userId"`
	MonthYear          *string  `json:"monthYear"`
	MonthlyTarget      *float64 `json:"monthlyTarget"`
	ExtraAssignedHours *float64 `json:"extraAssignedHours"`
	WorkingDays        *int     `json:"workingDays"`
}

func (ep *Endpoint) UpdateUserTarget(c *gin.Context) {
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	var dto UserTargetUpdateDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	target, err := ep.targets.UpdateUserTarget(c.Request.Context(), id, core.UserTargetUpdate(dto))
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, target)
}

func (ep *Endpoint) DeleteUserTarget(c *gin.Context) {
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	if err := ep.targets.DeleteUserTarget(c.Request.Context(), id); err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type UserTargetSearchDTO struct {
	MonthYear string `json:"monthYear"`
	UserID    int    `json:"userId"`
	TeamID    int    `json:"teamId"`
}

func (ep *Endpoint) SearchUserTargets(c *gin.Context) {
	callerID, ok := ep.base.CallerID(c)
	if !ok {
		return
	}
	var dto UserTargetSearchDTO
	if !ep.base.BindOptionalJSON(c, &dto) {
		return
	}
	rows, err := ep.engine.UserTargetSummaries(c.Request.Context(), callerID, core.UserTargetQuery{
		Month:  dto.MonthYear,
		UserID: dto.UserID,
		TeamID: dto.TeamID,
	}, ep.now())
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSearchResponse(rows, int64(len(rows))))
}

// ImportUserTargets reads a csv or xlsx file sent as "file".
func (ep *Endpoint) ImportUserTargets(c *gin.Context) {
	files, err := handlers.FormFiles(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid multipart body"))
		return
	}
	defer handlers.CloseFiles(files)
	if len(files) != 1 {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Exactly one file is required"))
		return
	}
	result, err := ep.targets.ImportUserTargets(c.Request.Context(), files[0].Name, files[0].Body)
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, result)
}

type ProjectTargetDTO struct {
	ProjectID     int     `json:"projectId"`
	MonthYear     string  `json:"monthYear"`
	MonthlyTarget float64 `json:"monthlyTarget"`
}

type ProjectTargetsDTO struct {
	Targets []ProjectTargetDTO `json:"targets" binding:"required,min=1"`
}

// AddProjectTargets inserts a batch. Duplicates and unknown projects are skipped
// and reported; a batch with nothing inserted is a conflict.
func (ep *Endpoint) AddProjectTargets(c *gin.Context) {
	var dto ProjectTargetsDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	inputs := make([]core.ProjectTargetInput, 0, len(dto.Targets))
	for _, t := range dto.Targets {
		inputs = append(inputs, core.ProjectTargetInput(t))
	}
	result, err := ep.targets.AddProjectTargets(c.Request.Context(), inputs)
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, web.NewSuccessResponse(result))
}

type ProjectTargetUpdateDTO struct {
	ProjectID     *int     `json:"projectId"`
	MonthYear     *string  `json:"monthYear"`
	MonthlyTarget *float64 `json:"monthlyTarget"`
}

func (ep *Endpoint) UpdateProjectTarget(c *gin.Context) {
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	var dto ProjectTargetUpdateDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	target, err := ep.targets.UpdateProjectTarget(c.Request.Context(), id, core.ProjectTargetUpdate(dto))
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, target)
}

func (ep *Endpoint) DeleteProjectTarget(c *gin.Context) {
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	if err := ep.targets.DeleteProjectTarget(c.Request.Context(), id); err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type ProjectTargetSearchDTO struct {
	ProjectID int    `json:"projectId"`
	MonthYear string `json:"monthYear"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

func (ep *Endpoint) SearchProjectTargets(c *gin.Context) {
	var dto ProjectTargetSearchDTO
	if !ep.base.BindOptionalJSON(c, &dto) {
		return
	}
	rows, total, err := ep.targets.ListProjectTargets(c.Request.Context(), core.ProjectTargetQuery(dto))
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSearchResponse(rows, total))
}
