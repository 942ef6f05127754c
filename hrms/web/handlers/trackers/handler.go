package trackers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tfshrms.cloud/hrms/hrms/core"
	common "tfshrms.cloud/hrms/hrms/web/common"
	"tfshrms.cloud/hrms/utils"
	web "tfshrms.cloud/hrms/web/common"
	"tfshrms.cloud/hrms/web/handlers"
)

const fileField = "trackerFile"

type Endpoint struct {
	base     common.Handler
	trackers *core.TrackerService
	engine   *core.Engine
	now      func() time.Time
}

func Register(r gin.IRouter, base common.Handler, trackers *core.TrackerService, engine *core.Engine) {
	endpoint := &Endpoint{base: base, trackers: trackers, engine: engine, now: time.Now}
	r.POST("/trackers", endpoint.Create)
	r.PUT("/trackers/:id", endpoint.Update)
	r.DELETE("/trackers/:id", endpoint.Delete)
	r.POST("/trackers/search", endpoint.Search)
	r.POST("/trackers/daily", endpoint.Daily)
	r.POST("/trackers/export", endpoint.Export)
	r.PUT("/qc-scores", endpoint.UpsertQC)
}

// inScope writes a 404 when userID is outside the caller's visibility.
func (ep *Endpoint) inScope(c *gin.Context, callerID, userID int) bool {
	scope, err := core.ScopeOf(c.Request.Context(), ep.base.DB, callerID)
	if err != nil {
		ep.base.Fail(c, err)
		return false
	}
	if !scope.Contains(userID) {
		c.JSON(http.StatusNotFound, web.NewErrorResponse(fmt.Sprintf("user %d not found", userID)))
		return false
	}
	return true
}

// upload opens the tracker file part, if any. The caller closes the returned files.
func (ep *Endpoint) upload(c *gin.Context) (*core.Upload, []handlers.UploadedFile, bool) {
	files, err := handlers.FormFiles(c, fileField)
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid multipart body"))
		return nil, nil, false
	}
	if len(files) == 0 {
		return nil, files, true
	}
	if len(files) > 1 {
		handlers.CloseFiles(files)
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Only one tracker file may be uploaded"))
		return nil, nil, false
	}
	return &core.Upload{Name: files[0].Name, Body: files[0].Body}, files, true
}

type CreateDTO struct {
	ProjectID    int      `form:"projectId" json:"projectId" binding:"required,gt=0"`
	TaskID       int      `form:"taskId" json:"taskId" binding:"required,gt=0"`
	UserID       int      `form:"userId" json:"userId"`
	Production   float64  `form:"production" json:"production" binding:"gte=0"`
	TenureTarget *float64 `form:"tenureTarget" json:"tenureTarget"`
	WorkedAt     string   `form:"workedAt" json:"workedAt"`
}

func (ep *Endpoint) Create(c *gin.Context) {
	callerID, ok := ep.base.CallerID(c)
	if !ok {
		return
	}
	file, files, ok := ep.upload(c)
	if !ok {
		return
	}
	defer handlers.CloseFiles(files)

	var dto CreateDTO
	if !ep.base.Bind(c, &dto) {
		return
	}
	if dto.UserID == 0 {
		dto.UserID = callerID
	}
	if dto.UserID != callerID && !ep.inScope(c, callerID, dto.UserID) {
		return
	}

	in := core.TrackerInput{
		ProjectID:    dto.ProjectID,
		TaskID:       dto.TaskID,
		UserID:       dto.UserID,
		Production:   dto.Production,
		TenureTarget: dto.TenureTarget,
		File:         file,
	}
	if s := strings.TrimSpace(dto.WorkedAt); s != "" {
		at, err := utils.ParseISOTime(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid workedAt"))
			return
		}
		utc := at.UTC()
		in.WorkedAt = &utc
	}

	tracker, err := ep.trackers.Create(c.Request.Context(), in, ep.now())
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, web.NewSuccessResponse(tracker))
}

type UpdateDTO struct {
	Production *float64 `form:"production" json:"production"`
	BaseTarget *float64 `form:"baseTarget" json:"baseTarget"`
}

func (ep *Endpoint) Update(c *gin.Context) {
	callerID, ok := ep.base.CallerID(c)
	if !ok {
		return
	}
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	file, files, ok := ep.upload(c)
	if !ok {
		return
	}
	defer handlers.CloseFiles(files)

	var dto UpdateDTO
	if !ep.base.Bind(c, &dto) {
		return
	}
	tracker, err := ep.trackers.Update(c.Request.Context(), callerID, id, core.TrackerUpdate{
		Production: dto.Production,
		BaseTarget: dto.BaseTarget,
		File:       file,
	}, ep.now())
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, tracker)
}

func (ep *Endpoint) Delete(c *gin.Context) {
	callerID, ok := ep.base.CallerID(c)
	if !ok {
		return
	}
	id, ok := ep.base.ParamID(c, "id")
	if !ok {
		return
	}
	if err := ep.trackers.Delete(c.Request.Context(), callerID, id); err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// filters binds an optional filter body shared by the read views.
func (ep *Endpoint) filters(c *gin.Context) (int, core.Filters, bool) {
	callerID, ok := ep.base.CallerID(c)
	if !ok {
		return 0, core.Filters{}, false
	}
	var f core.Filters
	if !ep.base.BindOptionalJSON(c, &f) {
		return 0, core.Filters{}, false
	}
	return callerID, f, true
}

func (ep *Endpoint) Search(c *gin.Context) {
	callerID, f, ok := ep.filters(c)
	if !ok {
		return
	}
	view, err := ep.engine.MonthlyView(c.Request.Context(), callerID, f, ep.now())
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, view)
}

func (ep *Endpoint) Daily(c *gin.Context) {
	callerID, f, ok := ep.filters(c)
	if !ok {
		return
	}
	view, err := ep.engine.DailyView(c.Request.Context(), callerID, f, ep.now())
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, view)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (ep *Endpoint) Export(c *gin.Context) {
	callerID, f, ok := ep.filters(c)
	if !ok {
		return
	}
	view, err := ep.engine.MonthlyView(c.Request.Context(), callerID, f, ep.now())
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	data, err := core.ExportMonthlySummary(view)
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="trackers_%s.xlsx"`, view.MonthYear))
	c.Data(http.StatusOK, xlsxContentType, data)
}

type QCDTO struct {
	UserID        int      `json:"userId" binding:"required,gt=0"`
	Date          string   `json:"date" binding:"required"`
	QCScore       *float64 `json:"qcScore"`
	AssignedHours *float64 `json:"assignedHours"`
}

func (ep *Endpoint) UpsertQC(c *gin.Context) {
	callerID, ok := ep.base.CallerID(c)
	if !ok {
		return
	}
	var dto QCDTO
	if !ep.base.BindJSON(c, &dto) {
		return
	}
	if !ep.inScope(c, callerID, dto.UserID) {
		return
	}
	score, err := core.UpsertQC(c.Request.Context(), ep.base.DB, core.QCInput{
		UserID:        dto.UserID,
		Date:          dto.Date,
		Score:         dto.QCScore,
		AssignedHours: dto.AssignedHours,
	})
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, score)
}
