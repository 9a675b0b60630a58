package handlers_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/saif-ali01/projectXAPI/internal/api/handlers"
	"github.com/saif-ali01/projectXAPI/internal/apperrors"
	"github.com/saif-ali01/projectXAPI/internal/services"
)

type dashboardFixture struct {
	router    *gin.Engine
	dashboard *MockDashboardService
	budget    *MockBudgetService
	report    *MockReportService
}

func setupDashboardRouter(owner primitive.ObjectID) dashboardFixture {
	gin.SetMode(gin.TestMode)
	f := dashboardFixture{
		dashboard: new(MockDashboardService),
		budget:    new(MockBudgetService),
		report:    new(MockReportService),
	}
	handler := handlers.NewDashboardHandler(f.dashboard, f.budget, f.report)

	r := gin.New()
	g := r.Group("/api", asOwner(owner))
	g.GET("/dashboard/summary", handler.Summary)
	g.GET("/dashboard/revenue-trend", handler.RevenueTrend)
	g.GET("/budget", handler.Budget)
	g.GET("/reports", handler.Report)
	g.POST("/reports/export", handler.ExportReport)
	f.router = r
	return f
}

func TestDashboardHandler_Summary(t *testing.T) {
	owner := primitive.NewObjectID()
	f := setupDashboardRouter(owner)
	f.dashboard.On("Summary", mock.Anything, owner).Return(&services.DashboardSummary{
		TotalRevenue: 1200, TotalExpenses: 300, PendingInvoices: 2, ActiveClients: 4,
	}, nil)

	w := serve(f.router, http.MethodGet, "/api/dashboard/summary", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1200), body["totalRevenue"])
	assert.Equal(t, float64(2), body["pendingInvoices"])
	assert.Equal(t, float64(4), body["activeClients"])
}

func TestDashboardHandler_RevenueTrendStoreDown(t *testing.T) {
	owner := primitive.NewObjectID()
	f := setupDashboardRouter(owner)
	f.dashboard.On("RevenueTrend", mock.Anything, owner, mock.AnythingOfType("time.Time")).
		Return(nil, apperrors.Dependency("record store unavailable", errors.New("no reachable servers")))

	w := serve(f.router, http.MethodGet, "/api/dashboard/revenue-trend", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "record store unavailable", decodeBody(t, w)["message"])
}

func TestDashboardHandler_Budget(t *testing.T) {
	owner := primitive.NewObjectID()
	f := setupDashboardRouter(owner)

	f.budget.On("Compute", mock.Anything, owner, mock.MatchedBy(func(d time.Time) bool {
		return d.Format("2006-01-02") == "2024-03-15" && d.Location().String() == "Asia/Kolkata"
	})).Return(&services.Budget{
		Daily: services.DailyBudget{Date: "2024-03-15", BudgetTotals: services.BudgetTotals{TotalEarnings: 100, TotalExpenses: 40, Budget: 60}},
	}, nil)

	w := serve(f.router, http.MethodGet, "/api/budget?date=2024-03-15", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	daily := body["data"].(map[string]interface{})["daily"].(map[string]interface{})
	assert.Equal(t, "2024-03-15", daily["date"])
	assert.Equal(t, float64(60), daily["budget"])

	w = serve(f.router, http.MethodGet, "/api/budget?date=15-03-2024", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.budget.AssertNumberOfCalls(t, "Compute", 1)
}

func TestDashboardHandler_Report(t *testing.T) {
	owner := primitive.NewObjectID()
	f := setupDashboardRouter(owner)

	f.report.On("GenerateReport", mock.Anything, owner, mock.MatchedBy(func(req *services.ReportRequest) bool {
		return req.Mode == services.ReportByCategory && req.Start.Format("2006-01-02") == "2024-01-01"
	})).Return(&services.Report{
		Groups: []services.ReportGroup{{Key: "Food", Total: 80}, {Key: "Travel", Total: 20}},
		Meta:   services.ReportMeta{StartDate: "2024-01-01", EndDate: "2024-01-31", ReportType: services.ReportByCategory, Count: 2},
	}, nil)

	w := serve(f.router, http.MethodGet, "/api/reports?startDate=2024-01-01&endDate=2024-01-31&type=category", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["data"], 2)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["count"])
	assert.Equal(t, "category", meta["reportType"])
}

func TestDashboardHandler_ReportErrors(t *testing.T) {
	owner := primitive.NewObjectID()
	f := setupDashboardRouter(owner)
	f.report.On("GenerateReport", mock.Anything, owner, mock.Anything).
		Return(nil, apperrors.NoData(services.NoReportDataMessage))

	w := serve(f.router, http.MethodGet, "/api/reports?startDate=2024-01-01&endDate=2024-01-31&type=monthly", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No transactions found in the selected date range", body["message"])

	w = serve(f.router, http.MethodGet, "/api/reports?startDate=2024-01-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(f.router, http.MethodGet, "/api/reports?startDate=2024-01-01&endDate=2024-01-31&type=weekly", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.report.AssertNumberOfCalls(t, "GenerateReport", 1)
}

func TestDashboardHandler_ExportReport(t *testing.T) {
	owner := primitive.NewObjectID()
	f := setupDashboardRouter(owner)
	expires := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	f.report.On("Export", mock.Anything, owner, mock.Anything).Return(&services.ReportExport{
		Key: "reports/" + owner.Hex() + "/x.csv", URL: "https://bucket.example/x.csv?sig=1", ExpiresAt: expires,
	}, nil)

	w := serve(f.router, http.MethodPost, "/api/reports/export", `{"startDate":"2024-01-01","endDate":"2024-01-31","type":"yearly"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "https://bucket.example/x.csv?sig=1", body["url"])
	assert.Equal(t, "2024-02-01T12:00:00Z", body["expiresAt"])

	w = serve(f.router, http.MethodPost, "/api/reports/export", `{"startDate":"2024-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.report.AssertNumberOfCalls(t, "Export", 1)
}

func TestDashboardHandler_ExportWithoutStorage(t *testing.T) {
	owner := primitive.NewObjectID()
	f := setupDashboardRouter(owner)
	f.report.On("Export", mock.Anything, owner, mock.Anything).
		Return(nil, apperrors.Dependency("Report storage is not configured", nil))

	w := serve(f.router, http.MethodPost, "/api/reports/export", `{"startDate":"2024-01-01","endDate":"2024-01-31","type":"category"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
