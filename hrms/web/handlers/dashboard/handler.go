package dashboard

import (
	"github.com/gin-gonic/gin"

	"tfshrms.cloud/hrms/hrms/core"
	common "tfshrms.cloud/hrms/hrms/web/common"
)

type Endpoint struct {
	base      common.Handler
	assembler *core.Assembler
}

func Register(r gin.IRouter, base common.Handler, assembler *core.Assembler) {
	endpoint := &Endpoint{base: base, assembler: assembler}
	r.GET("/whoami", endpoint.WhoAmI)
	r.POST("/dashboard/search", endpoint.Search)
}

type WhoAmIDTO struct {
	UserID int    `json:"userId"`
	Role   string `json:"role"`
}

// WhoAmI reads the role from storage, so a role change applies without a new token.
func (ep *Endpoint) WhoAmI(c *gin.Context) {
	callerID, ok := ep.base.CallerID(c)
	if !ok {
		return
	}
	role, err := core.ResolveRole(c.Request.Context(), ep.base.DB, callerID)
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, WhoAmIDTO{UserID: callerID, Role: role})
}

func (ep *Endpoint) Search(c *gin.Context) {
	callerID, ok := ep.base.CallerID(c)
	if !ok {
		return
	}
	var filters core.Filters
	if !ep.base.BindOptionalJSON(c, &filters) {
		return
	}
	d, err := ep.assembler.Filter(c.Request.Context(), callerID, filters)
	if err != nil {
		ep.base.Fail(c, err)
		return
	}
	ep.base.OK(c, d)
}
