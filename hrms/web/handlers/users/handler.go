package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tfshrms.cloud/hrms/hrms/core"
	common "tfshrms.cloud/hrms/hrms/web/common"
	web "tfshrms.cloud/hrms/web/common"
)

type Endpoint struct {
	base  common.Handler
	users *core.UserService
}

func Register(r gin.IRouter, base common.Handler, users *core.UserService) {
	endpoint := &Endpoint{base: base, users: users}
	r.POST("/users", endpoint.Create)
	r.PUT("/users/:id", endpoint.Update)
	r.DELETE("/users/:id", endpoint.Delete)
	r.POST("/users/search", endpoint.Search)
}

type SupervisorsDTO struct {
	ManagerIDs   []int `json:"projectManagerIds"`
	AssistantIDs []int `json:"assistantManagerIds"`
	QAIDs        []int `json:"qaIds"`
}

type CreateDTO struct {
	Name          string   `json:"userName" binding:"required"`
	Email         string   `json:"userEmail" binding:"required,email"`
	Number        string   `json:"userNumber"`
	Address       string   `json:"userAddress"`
	RoleID        int      `json:"roleId" binding:"required,gt=0"`
	TeamID        *int     `json:"teamId"`
	DesignationID *int     `json:"designationId"`
	Tenure        *float64 `json:"tenure"`
	Password      string   `json:"userPassword" binding:"required"`
	SupervisorsDTO
}

func (ep *Endpoint) Create(c *gin.Context) {
	var dto CreateDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	user, err := ep.users.Create(c.Request.Context(), core.UserInput{
		Name:          dto.Name,
		Email:         dto.Email,
		Number:        dto.Number,
		Address:       dto.Address,
		RoleID:        dto.RoleID,
		TeamID:        dto.TeamID,
		DesignationID: dto.DesignationID,
		Tenure:        dto.Tenure,
		Password:      dto.Password,
		Supervisors:   core.Supervisors(dto.SupervisorsDTO),
	})
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, web.NewSuccessResponse(user))
}

type UpdateDTO struct {
	Name          *string  `json:"userName"`
	Email         *string  `json:"userEmail" binding:"omitempty,email"`
	Number        *string  `json:"userNumber"`
	Address       *string  `json:"userAddress"`
	RoleID        *int     `json:"roleId"`
	TeamID        *int     `json:"teamId"`
	DesignationID *int     `json:"designationId"`
	Tenure        *float64 `json:"tenure"`
	Password      *string  `json:"userPassword"`
	SupervisorsDTO
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
	user, err := ep.users.Update(c.Request.Context(), id, core.UserUpdate{
		Name:          dto.Name,
		Email:         dto.Email,
		Number:        dto.Number,
		Address:       dto.Address,
		RoleID:        dto.RoleID,
		TeamID:        dto.TeamID,
		DesignationID: dto.DesignationID,
		Tenure:        dto.Tenure,
		Password:      dto.Password,
		Supervisors:   core.Supervisors(dto.SupervisorsDTO),
	})
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, user)
}

func (ep *Endpoint) Delete(c *gin.Context) {
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	if err := ep.users.Delete(c.Request.Context(), id); err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type SearchDTO struct {
	TeamID int    `json:"teamId"`
	RoleID int    `json:"roleId"`
	Search string `json:"search"`
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
	users, err := ep.users.List(c.Request.Context(), callerID, core.UserQuery(dto))
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSearchResponse(users, int64(len(users))))
}
