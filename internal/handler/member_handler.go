package handler

import (
	"net/http"

	"amarms/internal/middleware"
	"amarms/internal/permission"
	"amarms/internal/repository"
	"amarms/internal/service"
	"amarms/pkg/pagination"
	"amarms/pkg/response"

	"github.com/gin-gonic/gin"
)

type MemberHandler struct {
	memberService service.MemberService
	auth          *middleware.Auth
}

// NewMemberHandler sets up the routing dependencies for the team directory
func NewMemberHandler(memberService service.MemberService, auth *middleware.Auth) *MemberHandler {
	return &MemberHandler{memberService: memberService, auth: auth}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *MemberHandler) RegisterRoutes(router *gin.RouterGroup) {
	members := router.Group("/members")
	{
		members.GET("", h.auth.Require(permission.TeamView), h.ListMembers)
		members.GET("/pending", h.auth.Require(permission.AdminApproveMembers), h.ListPending)
		members.GET("/:id", h.auth.Require(permission.TeamView), h.GetMember)
		members.PUT("/:id", h.auth.Require(permission.TeamView), h.UpdateMember)
		members.POST("/:id/approve", h.auth.Require(permission.AdminApproveMembers), h.ApproveMember)
		members.POST("/:id/suspend", h.auth.Require(permission.AdminApproveMembers), h.SuspendMember)
		members.PUT("/:id/role", h.auth.Require(permission.AdminManagePermissions), h.ChangeRole)
	}
}

// ListMembers handles GET /members and extracts pagination controls
// @Summary      List members
// @Description  Retrieves a paginated team directory
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Param        status      query     string  false  "pending, active or suspended"
// @Param        role        query     string  false  "Role name"
// @Param        department  query     string  false  "Department"
// @Param        search      query     string  false  "Name, username or email"
// @Success      200         {object}  response.Response{data=object}
// @Failure      500         {object}  response.Response
// @Router       /api/members [get]
func (h *MemberHandler) ListMembers(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.UserFilter{
		Status:     c.Query("status"),
		Role:       c.Query("role"),
		Department: c.Query("department"),
		Search:     c.Query("search"),
	}

	users, total, err := h.memberService.ListMembers(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch members"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.List("users", users, total)))
}

// ListPending handles GET /members/pending
// @Summary      List accounts awaiting approval
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /api/members/pending [get]
func (h *MemberHandler) ListPending(c *gin.Context) {
	p := pagination.Parse(c)

	users, total, err := h.memberService.ListPending(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch pending members"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.List("users", users, total)))
}

// GetMember handles GET /members/:id
// @Summary      Get member by ID
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/members/{id} [get]
func (h *MemberHandler) GetMember(c *gin.Context) {
	user, err := h.memberService.GetMember(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateMember handles PUT /members/:id
// @Summary      Update member profile
// @Description  Members may edit themselves; editing others needs team.manage
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "User ID"
// @Param        payload  body      service.UpdateMemberRequest  true  "Profile Fields"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/members/{id} [put]
func (h *MemberHandler) UpdateMember(c *gin.Context) {
	var req service.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.memberService.UpdateMember(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ApproveMember handles POST /members/:id/approve
// @Summary      Approve a pending account
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/members/{id}/approve [post]
func (h *MemberHandler) ApproveMember(c *gin.Context) {
	user, err := h.memberService.ApproveMember(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// SuspendMember handles POST /members/:id/suspend
// @Summary      Suspend an account
// @Description  Revokes every refresh token of the account
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/members/{id}/suspend [post]
func (h *MemberHandler) SuspendMember(c *gin.Context) {
	user, err := h.memberService.SuspendMember(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// ChangeRole handles PUT /members/:id/role
// @Summary      Change a member's role
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        payload  body      service.ChangeRoleRequest  true  "Role"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/members/{id}/role [put]
func (h *MemberHandler) ChangeRole(c *gin.Context) {
	var req service.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.memberService.ChangeRole(c.Request.Context(), actor(c), c.Param("id"), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
