package handler

import (
	"net/http"

	"amarms/internal/middleware"
	"amarms/internal/permission"
	"amarms/internal/service"
	"amarms/pkg/pagination"
	"amarms/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService   service.ProjectService
	milestoneService service.MilestoneService
	auth             *middleware.Auth
}

func NewProjectHandler(projectService service.ProjectService, milestoneService service.MilestoneService, auth *middleware.Auth) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, milestoneService: milestoneService, auth: auth}
}

func (h *ProjectHandler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.GET("", h.auth.Require(permission.ProjectsView), h.ListProjects)
		projects.POST("", h.auth.Require(permission.ProjectsCreate), h.CreateProject)
		projects.GET("/:id", h.auth.Require(permission.ProjectsView), h.GetProject)
		projects.PUT("/:id", h.auth.Require(permission.ProjectsEdit), h.UpdateProject)
		projects.DELETE("/:id", h.auth.Require(permission.ProjectsDelete), h.DeleteProject)
		projects.PUT("/:id/specifications", h.auth.Require(permission.ProjectsEdit), h.UpdateSpecifications)
		projects.POST("/:id/members", h.auth.Require(permission.ProjectsEdit), h.AddMember)
		projects.DELETE("/:id/members/:userId", h.auth.Require(permission.ProjectsEdit), h.RemoveMember)
		projects.POST("/:id/resources", h.auth.Require(permission.ProjectsEdit), h.AllocateResource)
		projects.DELETE("/:id/resources/:allocationId", h.auth.Require(permission.ProjectsEdit), h.ReleaseResource)

		projects.GET("/:id/milestones", h.auth.Require(permission.MilestonesView), h.ListMilestones)
		projects.POST("/:id/milestones", h.auth.Require(permission.MilestonesManage), h.CreateMilestone)
	}

	milestones := router.Group("/milestones")
	{
		milestones.GET("/:id", h.auth.Require(permission.MilestonesView), h.GetMilestone)
		milestones.PUT("/:id", h.auth.Require(permission.MilestonesManage), h.UpdateMilestone)
		milestones.DELETE("/:id", h.auth.Require(permission.MilestonesManage), h.DeleteMilestone)
	}
}

// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        status  query     string  false  "planning, active, on_hold or completed"
// @Param        search  query     string  false  "Name contains"
// @Param        mine    query     bool    false  "Only projects the caller belongs to"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	p := pagination.Parse(c)
	filter := service.ProjectFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Mine:   c.Query("mine") == "true",
	}

	projects, total, err := h.projectService.ListProjects(c.Request.Context(), actor(c), filter, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.List("projects", projects, total)))
}

// @Summary      Create project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProjectRequest  true  "Project"
// @Success      201      {object}  response.Response{data=service.ProjectResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, project))
}

// @Summary      Get project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=service.ProjectResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// @Summary      Update project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Project ID"
// @Param        payload  body      service.UpdateProjectRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=service.ProjectResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req service.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// @Summary      Delete project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projectService.DeleteProject(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Project deleted successfully"))
}

// @Summary      Replace project specifications
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Project ID"
// @Param        payload  body      service.SpecificationsRequest  true  "Sections"
// @Success      200      {object}  response.Response{data=service.ProjectResponse}
// @Router       /api/projects/{id}/specifications [put]
func (h *ProjectHandler) UpdateSpecifications(c *gin.Context) {
	var req service.SpecificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.projectService.UpdateSpecifications(c.Request.Context(), actor(c), c.Param("id"), req.Sections)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// @Summary      Add project member
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Project ID"
// @Param        payload  body      service.AddMemberRequest  true  "Member"
// @Success      200      {object}  response.Response{data=service.ProjectResponse}
// @Router       /api/projects/{id}/members [post]
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.projectService.AddMember(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// @Summary      Remove project member
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true  "Project ID"
// @Param        userId  path      string  true  "User ID"
// @Success      200     {object}  response.Response{data=service.ProjectResponse}
// @Router       /api/projects/{id}/members/{userId} [delete]
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	project, err := h.projectService.RemoveMember(c.Request.Context(), actor(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// @Summary      Allocate a resource to a project
// @Description  Records the allocation. Resource counts are managed on the resource itself.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Project ID"
// @Param        payload  body      service.AllocateResourceRequest  true  "Allocation"
// @Success      200      {object}  response.Response{data=service.ProjectResponse}
// @Router       /api/projects/{id}/resources [post]
func (h *ProjectHandler) AllocateResource(c *gin.Context) {
	var req service.AllocateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.projectService.AllocateResource(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// @Summary      Release a resource allocation
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string  true  "Project ID"
// @Param        allocationId  path      string  true  "Allocation ID"
// @Success      200           {object}  response.Response{data=service.ProjectResponse}
// @Router       /api/projects/{id}/resources/{allocationId} [delete]
func (h *ProjectHandler) ReleaseResource(c *gin.Context) {
	project, err := h.projectService.ReleaseResource(c.Request.Context(), actor(c), c.Param("id"), c.Param("allocationId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// @Summary      List project milestones
// @Tags         milestones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=[]service.MilestoneResponse}
// @Router       /api/projects/{id}/milestones [get]
func (h *ProjectHandler) ListMilestones(c *gin.Context) {
	milestones, err := h.milestoneService.ListMilestones(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, milestones))
}

// @Summary      Create milestone
// @Tags         milestones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Project ID"
// @Param        payload  body      service.CreateMilestoneRequest  true  "Milestone"
// @Success      201      {object}  response.Response{data=service.MilestoneResponse}
// @Router       /api/projects/{id}/milestones [post]
func (h *ProjectHandler) CreateMilestone(c *gin.Context) {
	var req service.CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	milestone, err := h.milestoneService.CreateMilestone(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, milestone))
}

// @Summary      Get milestone
// @Tags         milestones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Milestone ID"
// @Success      200  {object}  response.Response{data=service.MilestoneResponse}
// @Router       /api/milestones/{id} [get]
func (h *ProjectHandler) GetMilestone(c *gin.Context) {
	milestone, err := h.milestoneService.GetMilestone(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, milestone))
}

// @Summary      Update milestone
// @Tags         milestones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Milestone ID"
// @Param        payload  body      service.UpdateMilestoneRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=service.MilestoneResponse}
// @Router       /api/milestones/{id} [put]
func (h *ProjectHandler) UpdateMilestone(c *gin.Context) {
	var req service.UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	milestone, err := h.milestoneService.UpdateMilestone(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, milestone))
}

// @Summary      Delete milestone
// @Description  Tasks of the milestone are kept and detached
// @Tags         milestones
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Milestone ID"
// @Success      200  {object}  response.Response
// @Router       /api/milestones/{id} [delete]
func (h *ProjectHandler) DeleteMilestone(c *gin.Context) {
	if err := h.milestoneService.DeleteMilestone(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Milestone deleted successfully"))
}
