package handler

import (
	"net/http"

	"amarms/internal/middleware"
	"amarms/internal/service"
	"amarms/pkg/pagination"
	"amarms/pkg/response"

	"github.com/gin-gonic/gin"
)

// CampaignHandler serves the marketing, PR and graphics boards. Each campaign is gated
// on its department's view or manage permission, checked in the service.
type CampaignHandler struct {
	campaignService service.CampaignService
	auth            *middleware.Auth
}

func NewCampaignHandler(campaignService service.CampaignService, auth *middleware.Auth) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, auth: auth}
}

func (h *CampaignHandler) RegisterRoutes(router *gin.RouterGroup) {
	campaigns := router.Group("/campaigns")
	campaigns.Use(h.auth.Require(""))
	{
		campaigns.GET("", h.ListCampaigns)
		campaigns.POST("", h.CreateCampaign)
		campaigns.GET("/:id", h.GetCampaign)
		campaigns.PUT("/:id", h.UpdateCampaign)
		campaigns.DELETE("/:id", h.DeleteCampaign)
		campaigns.POST("/:id/assets", h.AddAsset)
	}
}

// @Summary      List campaigns
// @Description  Without a department filter, lists campaigns of every department the caller may view
// @Tags         campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Param        department  query     string  false  "marketing, pr or graphics"
// @Param        status      query     string  false  "Campaign status"
// @Param        project_id  query     string  false  "Linked project"
// @Success      200         {object}  response.Response{data=object}
// @Failure      403         {object}  response.Response
// @Router       /api/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	p := pagination.Parse(c)
	filter := service.CampaignFilter{
		Department: c.Query("department"),
		Status:     c.Query("status"),
		ProjectID:  c.Query("project_id"),
	}

	campaigns, total, err := h.campaignService.ListCampaigns(c.Request.Context(), actor(c), filter, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.List("campaigns", campaigns, total)))
}

// @Summary      Create campaign
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CampaignRequest  true  "Campaign"
// @Success      201      {object}  response.Response{data=model.Campaign}
// @Failure      403      {object}  response.Response
// @Router       /api/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req service.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	campaign, err := h.campaignService.CreateCampaign(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, campaign))
}

// @Summary      Get campaign
// @Tags         campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Campaign ID"
// @Success      200  {object}  response.Response{data=model.Campaign}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	campaign, err := h.campaignService.GetCampaign(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, campaign))
}

// @Summary      Update campaign
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Campaign ID"
// @Param        payload  body      service.CampaignRequest  true  "Campaign"
// @Success      200      {object}  response.Response{data=model.Campaign}
// @Router       /api/campaigns/{id} [put]
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	var req service.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	campaign, err := h.campaignService.UpdateCampaign(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, campaign))
}

// @Summary      Delete campaign
// @Tags         campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Campaign ID"
// @Success      200  {object}  response.Response
// @Router       /api/campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	if err := h.campaignService.DeleteCampaign(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Campaign deleted successfully"))
}

// @Summary      Add campaign asset
// @Tags         campaigns
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Campaign ID"
// @Param        file  formData  file    true  "Asset"
// @Success      200   {object}  response.Response{data=model.Campaign}
// @Router       /api/campaigns/{id}/assets [post]
func (h *CampaignHandler) AddAsset(c *gin.Context) {
	name, f, ok := formFile(c, "file")
	if !ok {
		return
	}
	defer f.Close()

	campaign, err := h.campaignService.AddAsset(c.Request.Context(), actor(c), c.Param("id"), name, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, campaign))
}
