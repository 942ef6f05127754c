package projects

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tfshrms.cloud/hrms/hrms/core"
	common "tfshrms.cloud/hrms/hrms/web/common"
	"tfshrms.cloud/hrms/utils"
	web "tfshrms.cloud/hrms/web/common"
	"tfshrms.cloud/hrms/web/handlers"
)

const filesField = "projectFiles"

type Endpoint struct {
	base     common.Handler
	projects *core.ProjectService
}

func Register(r gin.IRouter, base common.Handler, projects *core.ProjectService) {
	endpoint := &Endpoint{base: base, projects: projects}
	r.POST("/projects", endpoint.Create)
	r.PUT("/projects/:id", endpoint.Update)
	r.DELETE("/projects/:id", endpoint.Delete)
	r.POST("/projects/search", endpoint.Search)
}

// MembersDTO carries member ids per relation. Multipart clients repeat the field.
type MembersDTO struct {
	ManagerIDs   []int `form:"managerIds" json:"managerIds"`
	AssistantIDs []int `form:"assistantManagerIds" json:"assistantManagerIds"`
	QAIDs        []int `form:"qaIds" json:"qaIds"`
	TeamIDs      []int `form:"teamIds" json:"teamIds"`
}

func (m MembersDTO) members() core.ProjectMembers {
	return core.ProjectMembers(m)
}

type CreateDTO struct {
	Name        string `form:"projectName" json:"projectName" binding:"required"`
	Code        string `form:"projectCode" json:"projectCode"`
	Description string `form:"projectDescription" json:"projectDescription"`
	MembersDTO
}

func uploads(files []handlers.UploadedFile) []core.Upload {
	return utils.Map(files, func(f handlers.UploadedFile) core.Upload {
		return core.Upload{Name: f.Name, Body: f.Body}
	})
}

func (ep *Endpoint) files(c *gin.Context) ([]handlers.UploadedFile, bool) {
	files, err := handlers.FormFiles(c, filesField)
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid multipart body"))
		return nil, false
	}
	return files, true
}

func (ep *Endpoint) Create(c *gin.Context) {
	files, ok := ep.files(c)
	if !ok {
		return
	}
	defer handlers.CloseFiles(files)

	var dto CreateDTO
	if !ep.base.Bind(c, &dto) {
		return
	}
	project, err := ep.projects.Create(c.Request.Context(), core.ProjectInput{
		Name:        dto.Name,
		Code:        dto.Code,
		Description: dto.Description,
		Members:     dto.members(),
		Files:       uploads(files),
	})
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, web.NewSuccessResponse(project))
}

type UpdateDTO struct {
	Name        *string `form:"projectName" json:"projectName"`
	Code        *string `form:"projectCode" json:"projectCode"`
	Description *string `form:"projectDescription" json:"projectDescription"`
	ClearFiles  bool    `form:"clearFiles" json:"clearFiles"`
	MembersDTO
}

func (ep *Endpoint) Update(c *gin.Context) {
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	files, ok := ep.files(c)
	if !ok {
		return
	}
	defer handlers.CloseFiles(files)

	var dto UpdateDTO
	if !ep.base.Bind(c, &dto) {
		return
	}
	project, err := ep.projects.Update(c.Request.Context(), id, core.ProjectUpdate{
		Name:        dto.Name,
		Code:        dto.Code,
		Description: dto.Description,
		Members:     dto.members(),
		Files:       uploads(files),
		ClearFiles:  dto.ClearFiles,
	})
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, project)
}

func (ep *Endpoint) Delete(c *gin.Context) {
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	if err := ep.projects.Delete(c.Request.Context(), id); err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type SearchDTO struct {
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
	projects, err := ep.projects.List(c.Request.Context(), callerID, dto.Search)
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSearchResponse(projects, int64(len(projects))))
}
