package handler

import (
	"net/http"

	"amarms/internal/middleware"
	"amarms/internal/permission"
	"amarms/internal/service"
	"amarms/pkg/response"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService service.CommentService
	auth           *middleware.Auth
}

func NewCommentHandler(commentService service.CommentService, auth *middleware.Auth) *CommentHandler {
	return &CommentHandler{commentService: commentService, auth: auth}
}

func (h *CommentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/projects/:id/comments", h.auth.Require(permission.ProjectsView), h.ListComments)
	router.POST("/projects/:id/comments", h.auth.Require(permission.CommentsCreate), h.CreateComment)
	// Authors may always delete their own comments.
	router.DELETE("/comments/:id", h.auth.Require(""), h.DeleteComment)
}

// @Summary      List project comments
// @Tags         comments
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true   "Project ID"
// @Param        task_id  query     string  false  "Only comments on this task"
// @Success      200      {object}  response.Response{data=[]model.Comment}
// @Router       /api/projects/{id}/comments [get]
func (h *CommentHandler) ListComments(c *gin.Context) {
	comments, err := h.commentService.ListComments(c.Request.Context(), c.Param("id"), c.Query("task_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, comments))
}

// @Summary      Post a comment
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Project ID"
// @Param        payload  body      service.CreateCommentRequest  true  "Comment"
// @Success      201      {object}  response.Response{data=model.Comment}
// @Router       /api/projects/{id}/comments [post]
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var req service.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, comment))
}

// @Summary      Delete a comment
// @Tags         comments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Comment ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/comments/{id} [delete]
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	if err := h.commentService.DeleteComment(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Comment deleted successfully"))
}
