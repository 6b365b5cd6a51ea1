package handler

import (
	"net/http"

	"amarms/internal/guard"
	"amarms/internal/middleware"
	"amarms/internal/permission"
	"amarms/pkg/response"

	"github.com/gin-gonic/gin"
)

// PermissionHandler exposes the role matrix and the page guard to the client.
type PermissionHandler struct {
	auth *middleware.Auth
}

func NewPermissionHandler(auth *middleware.Auth) *PermissionHandler {
	return &PermissionHandler{auth: auth}
}

func (h *PermissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	perms := router.Group("/permissions")
	perms.Use(h.auth.Require(permission.AdminManagePermissions))
	{
		perms.GET("", h.ListPermissions)
		perms.GET("/matrix", h.GetMatrix)
	}

	router.GET("/navigation", h.auth.Require(""), h.Navigation)
	router.GET("/pages/check", h.CheckPage)
}

// ListPermissions returns the permission catalog
// @Summary      List permissions
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]permission.Definition}
// @Failure      403  {object}  response.Response
// @Router       /api/permissions [get]
func (h *PermissionHandler) ListPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, permission.Catalog()))
}

// GetMatrix returns every role with the permissions it grants
// @Summary      Role permission matrix
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=object}
// @Failure      403  {object}  response.Response
// @Router       /api/permissions/matrix [get]
func (h *PermissionHandler) GetMatrix(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"roles":  permission.Roles(),
		"matrix": permission.Matrix(),
	}))
}

// Navigation lists the pages the caller may open
// @Summary      Navigation menu
// @Tags         pages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]guard.Page}
// @Failure      401  {object}  response.Response
// @Router       /api/navigation [get]
func (h *PermissionHandler) Navigation(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, guard.Navigation(actor(c))))
}

// CheckPage runs the route guard for a client-side page
// @Summary      Check page access
// @Description  Anonymous callers get 401 with a login redirect that remembers the page. Callers without the page permission get 403 with the unauthorized page.
// @Tags         pages
// @Produce      json
// @Param        path  query     string  true  "Client route, e.g. /reports"
// @Success      200   {object}  response.Response{data=guard.Decision}
// @Failure      400   {object}  response.Response
// @Failure      401   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Router       /api/pages/check [get]
func (h *PermissionHandler) CheckPage(c *gin.Context) {
	path := c.Query("path")
	if path == "" || path[0] != '/' {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "path must be an absolute client route"))
		return
	}

	// Unlisted paths only need a session.
	var required permission.Permission
	if page, ok := guard.PageFor(path); ok {
		required = page.Permission
	}

	d := guard.Decide(middleware.Session(c), path, required)
	switch d.Outcome {
	case guard.RedirectLogin:
		msg := "Please sign in to continue"
		if !d.ShowNotice {
			msg = "Signed out"
		}
		c.JSON(http.StatusUnauthorized, response.Redirect(http.StatusUnauthorized, msg, d.Location))
	case guard.RedirectUnauthorized:
		c.JSON(http.StatusForbidden, response.Redirect(http.StatusForbidden, "You do not have access to this page", d.Location))
	default:
		c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
	}
}
