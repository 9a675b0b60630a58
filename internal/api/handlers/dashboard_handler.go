package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saif-ali01/projectXAPI/internal/services"
)

// DashboardHandler serves the dashboard, budget and report endpoints.
type DashboardHandler struct {
	dashboardService services.IDashboardService
	budgetService    services.IBudgetService
	reportService    services.IReportService
	now              func() time.Time
}

func NewDashboardHandler(dashboardService services.IDashboardService, budgetService services.IBudgetService, reportService services.IReportService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		budgetService:    budgetService,
		reportService:    reportService,
		now:              time.Now,
	}
}

// Summary handles GET /api/dashboard/summary
func (h *DashboardHandler) Summary(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	summary, err := h.dashboardService.Summary(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RevenueTrend handles GET /api/dashboard/revenue-trend
func (h *DashboardHandler) RevenueTrend(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	points, err := h.dashboardService.RevenueTrend(c.Request.Context(), ownerID, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// Budget handles GET /api/budget?date=YYYY-MM-DD
func (h *DashboardHandler) Budget(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	date, err := services.ParseBudgetDate(c.Query("date"), h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid date format. Use YYYY-MM-DD"})
		return
	}
	budget, err := h.budgetService.Compute(c.Request.Context(), ownerID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, budget)
}

// ReportResponse is the body of GET /api/reports.
type ReportResponse struct {
	Success bool                   `json:"success"`
	Data    []services.ReportGroup `json:"data"`
	Meta    services.ReportMeta    `json:"meta"`
}

// ExportRequest is the body of POST /api/reports/export.
type ExportRequest struct {
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
	Type      string `json:"type" binding:"required"`
}

// Report handles GET /api/reports
func (h *DashboardHandler) Report(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	req, err := services.ParseReportRequest(c.Query("startDate"), c.Query("endDate"), c.Query("type"), h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.reportService.GenerateReport(c.Request.Context(), ownerID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReportResponse{Success: true, Data: report.Groups, Meta: report.Meta})
}

// ExportReport handles POST /api/reports/export
func (h *DashboardHandler) ExportReport(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var body ExportRequest
	if !bindJSON(c, &body) {
		return
	}
	req, err := services.ParseReportRequest(body.StartDate, body.EndDate, body.Type, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	export, err := h.reportService.Export(c.Request.Context(), ownerID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, export)
}
