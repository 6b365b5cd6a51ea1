package handler

import (
	"context"
	"net/http"
	"strconv"

	"amarms/internal/middleware"
	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/service"
	"amarms/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService service.TaskService
	auth        *middleware.Auth
}

func NewTaskHandler(taskService service.TaskService, auth *middleware.Auth) *TaskHandler {
	return &TaskHandler{taskService: taskService, auth: auth}
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects/:id")
	{
		projects.GET("/board", h.auth.Require(permission.TasksView), h.GetBoard)
		projects.POST("/tasks", h.auth.Require(permission.TasksCreate), h.CreateTask)
		projects.DELETE("/trash", h.auth.Require(permission.TasksClearTrash), h.ClearTrash)
	}

	tasks := router.Group("/tasks")
	{
		tasks.GET("/mine", h.auth.Require(permission.TasksView), h.ListMyTasks)
		tasks.GET("/:id", h.auth.Require(permission.TasksView), h.GetTask)
		tasks.PUT("/:id", h.auth.Require(permission.TasksEdit), h.UpdateTask)
		tasks.POST("/:id/move", h.auth.Require(permission.TasksMove), h.MoveTask)
		tasks.POST("/:id/approve", h.auth.Require(permission.TasksReview), h.ApproveTask)
		tasks.POST("/:id/reject", h.auth.Require(permission.TasksReview), h.RejectTask)
		tasks.POST("/:id/evidence", h.auth.Require(permission.TasksEdit), h.UploadEvidence)
	}
}

// GetBoard returns the five kanban columns of a project
// @Summary      Get task board
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string  true   "Project ID"
// @Param        milestone  query     string  false  "Milestone ID or \"all\""
// @Success      200        {object}  response.Response{data=service.BoardResponse}
// @Failure      404        {object}  response.Response
// @Router       /api/projects/{id}/board [get]
func (h *TaskHandler) GetBoard(c *gin.Context) {
	b, err := h.taskService.GetBoard(c.Request.Context(), c.Param("id"), c.DefaultQuery("milestone", model.MilestoneAll))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, b))
}

// @Summary      Create task
// @Description  New tasks start in the todo column
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Project ID"
// @Param        payload  body      service.CreateTaskRequest  true  "Task"
// @Success      201      {object}  response.Response{data=model.Task}
// @Failure      400      {object}  response.Response
// @Router       /api/projects/{id}/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, task))
}

// ClearTrash permanently deletes every trashed task of a project
// @Summary      Clear trash
// @Description  Requires confirm=true in the body or query string
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true   "Project ID"
// @Param        confirm  query     bool                       false  "Confirm deletion"
// @Param        payload  body      service.ClearTrashRequest  false  "Confirmation"
// @Success      200      {object}  response.Response{data=service.ClearTrashResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/projects/{id}/trash [delete]
func (h *TaskHandler) ClearTrash(c *gin.Context) {
	var req service.ClearTrashRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	confirm := req.Confirm || c.Query("confirm") == "true"

	res, err := h.taskService.ClearTrash(c.Request.Context(), actor(c), c.Param("id"), confirm)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// @Summary      List my open tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Task}
// @Router       /api/tasks/mine [get]
func (h *TaskHandler) ListMyTasks(c *gin.Context) {
	tasks, err := h.taskService.ListMyTasks(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tasks))
}

// @Summary      Get task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=model.Task}
// @Failure      404  {object}  response.Response
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// @Summary      Update task details
// @Description  Send the version last seen; a stale version yields 409
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Task ID"
// @Param        payload  body      service.UpdateTaskRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=model.Task}
// @Failure      409      {object}  response.Response
// @Router       /api/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req service.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// MoveTask drops a card into another column
// @Summary      Move task
// @Description  Entering review resets the review to pending. Moving into the current column changes nothing.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Task ID"
// @Param        payload  body      service.MoveTaskRequest  true  "Target column"
// @Success      200      {object}  response.Response{data=model.Task}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tasks/{id}/move [post]
func (h *TaskHandler) MoveTask(c *gin.Context) {
	var req service.MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.taskService.MoveTask(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// @Summary      Approve task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Task ID"
// @Param        payload  body      service.ReviewTaskRequest  true  "Review comment"
// @Success      200      {object}  response.Response{data=model.Task}
// @Failure      409      {object}  response.Response
// @Router       /api/tasks/{id}/approve [post]
func (h *TaskHandler) ApproveTask(c *gin.Context) {
	h.review(c, h.taskService.ApproveTask)
}

// @Summary      Request changes on a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Task ID"
// @Param        payload  body      service.ReviewTaskRequest  true  "Review comment"
// @Success      200      {object}  response.Response{data=model.Task}
// @Failure      409      {object}  response.Response
// @Router       /api/tasks/{id}/reject [post]
func (h *TaskHandler) RejectTask(c *gin.Context) {
	h.review(c, h.taskService.RejectTask)
}

type reviewFunc func(ctx context.Context, actor permission.Principal, id string, req service.ReviewTaskRequest) (*model.Task, error)

func (h *TaskHandler) review(c *gin.Context, fn reviewFunc) {
	var req service.ReviewTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := fn(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}

// UploadEvidence attaches a file to the task
// @Summary      Upload task evidence
// @Tags         tasks
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true   "Task ID"
// @Param        file     formData  file    true   "Evidence file"
// @Param        version  formData  int     false  "Version last seen"
// @Success      200      {object}  response.Response{data=model.Task}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tasks/{id}/evidence [post]
func (h *TaskHandler) UploadEvidence(c *gin.Context) {
	name, f, ok := formFile(c, "file")
	if !ok {
		return
	}
	defer f.Close()

	version, _ := strconv.Atoi(c.PostForm("version"))
	task, err := h.taskService.UploadEvidence(c.Request.Context(), actor(c), c.Param("id"), name, version, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, task))
}
