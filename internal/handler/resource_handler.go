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

type ResourceHandler struct {
	resourceService service.ResourceService
	auth            *middleware.Auth
}

func NewResourceHandler(resourceService service.ResourceService, auth *middleware.Auth) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService, auth: auth}
}

type removeImageRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *ResourceHandler) RegisterRoutes(router *gin.RouterGroup) {
	view := h.auth.Require(permission.ResourcesView)
	manage := h.auth.Require(permission.ResourcesManage)

	resources := router.Group("/resources")
	{
		resources.GET("", view, h.ListResources)
		resources.POST("", manage, h.CreateResource)
		resources.GET("/:id", view, h.GetResource)
		resources.PUT("/:id", manage, h.UpdateResource)
		resources.PUT("/:id/status", manage, h.UpdateStatus)
		resources.DELETE("/:id", manage, h.DeleteResource)
		resources.POST("/:id/images", manage, h.AddResourceImage)
		resources.DELETE("/:id/images", manage, h.RemoveResourceImage)
	}

	venues := router.Group("/venues")
	{
		venues.GET("", view, h.ListVenues)
		venues.POST("", manage, h.CreateVenue)
		venues.GET("/:id", view, h.GetVenue)
		venues.PUT("/:id", manage, h.UpdateVenue)
		venues.DELETE("/:id", manage, h.DeleteVenue)
		venues.POST("/:id/images", manage, h.AddVenueImage)
	}
}

// @Summary      List resources
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        kind    query     string  false  "hardware or software"
// @Param        search  query     string  false  "Name contains"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/resources [get]
func (h *ResourceHandler) ListResources(c *gin.Context) {
	p := pagination.Parse(c)

	resources, total, err := h.resourceService.ListResources(c.Request.Context(), c.Query("kind"), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.List("resources", resources, total)))
}

// @Summary      Create resource
// @Description  A new resource has all units available
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateResourceRequest  true  "Resource"
// @Success      201      {object}  response.Response{data=model.Resource}
// @Failure      400      {object}  response.Response
// @Router       /api/resources [post]
func (h *ResourceHandler) CreateResource(c *gin.Context) {
	var req service.CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resource, err := h.resourceService.CreateResource(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, resource))
}

// @Summary      Get resource
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Resource ID"
// @Success      200  {object}  response.Response{data=model.Resource}
// @Failure      404  {object}  response.Response
// @Router       /api/resources/{id} [get]
func (h *ResourceHandler) GetResource(c *gin.Context) {
	resource, err := h.resourceService.GetResource(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resource))
}

// @Summary      Update resource details
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Resource ID"
// @Param        payload  body      service.UpdateResourceRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=model.Resource}
// @Router       /api/resources/{id} [put]
func (h *ResourceHandler) UpdateResource(c *gin.Context) {
	var req service.UpdateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resource, err := h.resourceService.UpdateResource(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resource))
}

// UpdateStatus repartitions units between available, in use and maintenance
// @Summary      Update resource quantities
// @Description  available + in_use + maintenance must equal total, otherwise 422
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Resource ID"
// @Param        payload  body      service.ResourceStatusRequest  true  "Quantities"
// @Success      200      {object}  response.Response{data=model.Resource}
// @Failure      422      {object}  response.Response
// @Router       /api/resources/{id}/status [put]
func (h *ResourceHandler) UpdateStatus(c *gin.Context) {
	var req service.ResourceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resource, err := h.resourceService.UpdateStatus(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resource))
}

// @Summary      Delete resource
// @Tags         resources
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Resource ID"
// @Success      200  {object}  response.Response
// @Router       /api/resources/{id} [delete]
func (h *ResourceHandler) DeleteResource(c *gin.Context) {
	if err := h.resourceService.DeleteResource(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Resource deleted successfully"))
}

// @Summary      Add resource image
// @Tags         resources
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Resource ID"
// @Param        file  formData  file    true  "Image"
// @Success      200   {object}  response.Response{data=model.Resource}
// @Router       /api/resources/{id}/images [post]
func (h *ResourceHandler) AddResourceImage(c *gin.Context) {
	name, f, ok := formFile(c, "file")
	if !ok {
		return
	}
	defer f.Close()

	resource, err := h.resourceService.AddResourceImage(c.Request.Context(), actor(c), c.Param("id"), name, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resource))
}

// @Summary      Remove resource image
// @Tags         resources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "Resource ID"
// @Param        payload  body      removeImageRequest  true  "Image URL"
// @Success      200      {object}  response.Response{data=model.Resource}
// @Router       /api/resources/{id}/images [delete]
func (h *ResourceHandler) RemoveResourceImage(c *gin.Context) {
	var req removeImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resource, err := h.resourceService.RemoveResourceImage(c.Request.Context(), actor(c), c.Param("id"), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resource))
}

// @Summary      List venues
// @Tags         venues
// @Produce      json
// @Security     BearerAuth
// @Param        min_capacity  query     int   false  "Minimum capacity"
// @Param        available     query     bool  false  "Only bookable venues"
// @Success      200           {object}  response.Response{data=[]model.Venue}
// @Router       /api/venues [get]
func (h *ResourceHandler) ListVenues(c *gin.Context) {
	venues, err := h.resourceService.ListVenues(c.Request.Context(), queryInt(c, "min_capacity"), c.Query("available") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, venues))
}

// @Summary      Create venue
// @Tags         venues
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.VenueRequest  true  "Venue"
// @Success      201      {object}  response.Response{data=model.Venue}
// @Router       /api/venues [post]
func (h *ResourceHandler) CreateVenue(c *gin.Context) {
	var req service.VenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	venue, err := h.resourceService.CreateVenue(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, venue))
}

// @Summary      Get venue
// @Tags         venues
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Venue ID"
// @Success      200  {object}  response.Response{data=model.Venue}
// @Router       /api/venues/{id} [get]
func (h *ResourceHandler) GetVenue(c *gin.Context) {
	venue, err := h.resourceService.GetVenue(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, venue))
}

// @Summary      Update venue
// @Tags         venues
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Venue ID"
// @Param        payload  body      service.VenueRequest  true  "Venue"
// @Success      200      {object}  response.Response{data=model.Venue}
// @Router       /api/venues/{id} [put]
func (h *ResourceHandler) UpdateVenue(c *gin.Context) {
	var req service.VenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	venue, err := h.resourceService.UpdateVenue(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, venue))
}

// @Summary      Delete venue
// @Tags         venues
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Venue ID"
// @Success      200  {object}  response.Response
// @Router       /api/venues/{id} [delete]
func (h *ResourceHandler) DeleteVenue(c *gin.Context) {
	if err := h.resourceService.DeleteVenue(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Venue deleted successfully"))
}

// @Summary      Add venue image
// @Tags         venues
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Venue ID"
// @Param        file  formData  file    true  "Image"
// @Success      200   {object}  response.Response{data=model.Venue}
// @Router       /api/venues/{id}/images [post]
func (h *ResourceHandler) AddVenueImage(c *gin.Context) {
	name, f, ok := formFile(c, "file")
	if !ok {
		return
	}
	defer f.Close()

	venue, err := h.resourceService.AddVenueImage(c.Request.Context(), actor(c), c.Param("id"), name, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, venue))
}
