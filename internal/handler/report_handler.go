package handler

import (
	"net/http"
	"time"

	"amarms/internal/middleware"
	"amarms/internal/permission"
	"amarms/internal/service"
	"amarms/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService   service.ReportService
	calendarService service.CalendarService
	auth            *middleware.Auth
}

func NewReportHandler(reportService service.ReportService, calendarService service.CalendarService, auth *middleware.Auth) *ReportHandler {
	return &ReportHandler{reportService: reportService, calendarService: calendarService, auth: auth}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard", h.auth.Require(permission.DashboardView), h.GetDashboard)
	router.GET("/reports", h.auth.Require(permission.ReportsView), h.GetReport)
	router.GET("/calendar", h.auth.Require(permission.CalendarView), h.GetCalendar)
}

// @Summary      Get dashboard
// @Description  The caller's open tasks, overdue count, project status breakdown and navigation
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.DashboardResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/dashboard [get]
func (h *ReportHandler) GetDashboard(c *gin.Context) {
	dash, err := h.reportService.GetDashboard(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dash))
}

// @Summary      Get reports
// @Description  Project progress, resource utilization and campaign budgets the caller may see
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.ReportResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/reports [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, err := h.reportService.GetReport(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// parseCalendarDate accepts YYYY-MM-DD or RFC3339.
func parseCalendarDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// @Summary      Get calendar events
// @Description  Tasks, milestones and campaigns overlapping the window. Defaults to the current month.
// @Tags         reports
// @Produce      json
// @Param        start_date query string false "Start date (YYYY-MM-DD or RFC3339)"
// @Param        end_date   query string false "End date (YYYY-MM-DD or RFC3339)"
// @Success      200 {object} response.Response{data=[]model.CalendarEvent}
// @Failure      400 {object} response.Response "Invalid date format"
// @Security     BearerAuth
// @Router       /api/calendar [get]
func (h *ReportHandler) GetCalendar(c *gin.Context) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	// Default to current month if no dates are provided
	now := time.Now().UTC()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		startDate, err = parseCalendarDate(startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected YYYY-MM-DD or RFC3339"))
			return
		}
	}

	if endDateStr == "" {
		endDate = startDate.AddDate(0, 1, -1)
	} else {
		endDate, err = parseCalendarDate(endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected YYYY-MM-DD or RFC3339"))
			return
		}
	}

	events, err := h.calendarService.Events(c.Request.Context(), actor(c), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"events":     events,
		"start_date": startDate.Format("2006-01-02"),
		"end_date":   endDate.Format("2006-01-02"),
	}))
}
