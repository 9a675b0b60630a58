package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/api/handlers"
	"github.com/saif-ali01/projectXAPI/internal/api/middleware"
	"github.com/saif-ali01/projectXAPI/internal/auth"
	"github.com/saif-ali01/projectXAPI/internal/cache"
	"github.com/saif-ali01/projectXAPI/internal/config"
	"github.com/saif-ali01/projectXAPI/internal/db"
	"github.com/saif-ali01/projectXAPI/internal/email"
	"github.com/saif-ali01/projectXAPI/internal/logger"
	"github.com/saif-ali01/projectXAPI/internal/outbox"
	"github.com/saif-ali01/projectXAPI/internal/services"
	"github.com/saif-ali01/projectXAPI/internal/storage"
)

// Dependencies are the connections SetupRouter builds its services on.
type Dependencies struct {
	DB        *mongo.Database
	Redis     *redis.Client
	TxManager db.TransactionManager
	// ObjectStorage may be nil, in which case report export answers 503.
	ObjectStorage storage.IObjectStorage
}

// SetupRouter configures and returns the main Gin engine.
// ctx bounds background work started for the router, such as rate limiter cleanup.
func SetupRouter(ctx context.Context, cfg *config.Config, deps Dependencies, log *zap.Logger) *gin.Engine {
	database := deps.DB

	var summaryCache services.SummaryCache
	if deps.Redis != nil {
		summaryCache = cache.NewJSONCache(deps.Redis, "dashboard:summary", cfg.DashboardCacheTTL)
	}

	reconciler := services.NewEarningReconciler(database, log)
	billService := services.NewBillService(database, deps.TxManager, reconciler, log)
	balanceService := services.NewBalanceService(database)
	workService := services.NewWorkService(database, deps.TxManager, reconciler, log)
	clientService := services.NewClientService(database)
	partyService := services.NewPartyService(database)
	expenseService := services.NewExpenseService(database, cfg.ExpenseBudget)
	earningService := services.NewEarningService(database)
	dashboardService := services.NewDashboardService(database, summaryCache, log)
	budgetService := services.NewBudgetService(database)
	reportService := services.NewReportService(database, deps.ObjectStorage, cfg.ReportExportURLTTL, log)
	userService := services.NewUserService(database, deps.TxManager, outbox.NewMongoStore(database), services.UserServiceConfig{
		JwtSecret:     cfg.JwtSecret,
		JwtTTL:        cfg.JwtTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		FrontendURL:   cfg.FrontendURL,
		AppName:       cfg.AppName,
	}, log)

	var google handlers.GoogleAuthenticator
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	handlers.SetupValidator()
	r := gin.New()
	r.Use(logger.RequestID(), logger.GinMiddleware(log), logger.Recovery(log))
	r.Use(middleware.CORSMiddleware(cfg.FrontendURL))

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, log)

	billHandler := handlers.NewBillHandler(billService, balanceService)
	workHandler := handlers.NewWorkHandler(workService)
	clientHandler := handlers.NewClientHandler(clientService)
	partyHandler := handlers.NewPartyHandler(partyService)
	expenseHandler := handlers.NewExpenseHandler(expenseService)
	earningHandler := handlers.NewEarningHandler(earningService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, budgetService, reportService)
	authHandler := handlers.NewAuthHandler(userService, google, cfg.FrontendURL)
	emailTemplateHandler := handlers.NewEmailTemplateHandler(services.NewEmailTemplateService(database))
	healthHandler := handlers.NewHealthHandler(healthChecks(deps))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", healthHandler.Health)

		authGroup := apiGroup.Group("/auth")
		authGroup.Use(rateLimiter.Limit())
		{
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
			if google != nil {
				authGroup.GET("/google", authHandler.GoogleStart)
				authGroup.GET("/google/callback", authHandler.GoogleCallback)
			}
			authGroup.GET("/me", middleware.AuthMiddleware(cfg.JwtSecret), authHandler.Me)
		}

		authRequired := apiGroup.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			bills := authRequired.Group("/bills")
			bills.POST("", billHandler.Create)
			bills.GET("", billHandler.List)
			bills.GET("/stats", billHandler.Stats)
			bills.GET("/parties", billHandler.PartyNames)
			bills.GET("/id/:id", billHandler.GetByID)
			bills.PUT("/id/:id", billHandler.Update)
			bills.DELETE("/id/:id", billHandler.Delete)
			bills.GET("/serial/:serialNumber", billHandler.GetBySerial)
			bills.GET("/party/:partyName", billHandler.PartyBalance)

			works := authRequired.Group("/works")
			works.POST("", workHandler.Create)
			works.GET("", workHandler.List)
			works.GET("/:id", workHandler.Get)
			works.PATCH("/:id", workHandler.Update)
			works.DELETE("/:id", workHandler.Delete)

			clients := authRequired.Group("/clients")
			clients.POST("", clientHandler.Create)
			clients.GET("", clientHandler.List)
			clients.PUT("/:id", clientHandler.Update)
			clients.DELETE("/:id", clientHandler.Delete)

			parties := authRequired.Group("/parties")
			parties.GET("", partyHandler.List)
			parties.POST("", partyHandler.Create)
			parties.GET("/:id", partyHandler.Get)
			parties.PUT("/:id", partyHandler.Update)
			parties.DELETE("/:id", partyHandler.Delete)

			expenses := authRequired.Group("/expenses")
			expenses.POST("", expenseHandler.Create)
			expenses.GET("", expenseHandler.List)
			expenses.GET("/summary", expenseHandler.Summary)
			expenses.GET("/over-time", expenseHandler.OverTime)
			expenses.GET("/categories", expenseHandler.Categories)
			expenses.GET("/transactions", expenseHandler.Transactions)
			expenses.GET("/:id", expenseHandler.Get)
			expenses.PUT("/:id", expenseHandler.Update)
			expenses.DELETE("/:id", expenseHandler.Delete)

			earnings := authRequired.Group("/earnings")
			earnings.GET("", earningHandler.List)
			earnings.POST("", earningHandler.Create)

			authRequired.GET("/dashboard/summary", dashboardHandler.Summary)
			authRequired.GET("/dashboard/revenue-trend", dashboardHandler.RevenueTrend)
			authRequired.GET("/budget", dashboardHandler.Budget)
			authRequired.GET("/reports", dashboardHandler.Report)
			authRequired.POST("/reports/export", dashboardHandler.ExportReport)

			admin := authRequired.Group("/admin", middleware.AdminMiddleware())
			admin.GET("/email-templates/:templateId", emailTemplateHandler.Get)
			admin.PUT("/email-templates/:templateId", emailTemplateHandler.Save)
		}
	}

	return r
}

func healthChecks(deps Dependencies) map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{
		"mongo": handlers.PingerFunc(func(ctx context.Context) error {
			return db.Ping(ctx, deps.DB)
		}),
	}
	if deps.Redis != nil {
		checks["redis"] = handlers.PingerFunc(func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		})
	}
	return checks
}

// serviceRequest is the body of the service API.
type serviceRequest struct {
	Method    string          `json:"method" binding:"required"`
	Arguments json.RawMessage `json:"arguments"`
}

const (
	testEmailPollAttempts = 10
	testEmailPollInterval = 200 * time.Millisecond
)

// SetupServiceRouter configures the internal service API used by operators and end-to-end tests.
func SetupServiceRouter(rdb redis.Cmdable, shutdownChan chan<- struct{}, log *zap.Logger) *gin.Engine {
	log = log.Named("service_api")
	r := gin.New()
	r.Use(logger.RequestID(), logger.GinMiddleware(log), logger.Recovery(log))

	r.POST("/api", func(c *gin.Context) {
		var req serviceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Info("Shutdown requested via service API")
			select {
			case shutdownChan <- struct{}{}:
				c.JSON(http.StatusOK, gin.H{"success": true, "message": "Shutdown initiated"})
			default:
				c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Shutdown already in progress"})
			}

		case "getTestEmail":
			var args []string // ["template_id", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateId, email]"})
				return
			}
			if rdb == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Redis is not configured"})
				return
			}
			templateID, to := args[0], args[1]

			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()

			// The worker may not have delivered yet, so poll briefly.
			var msg *email.MockEmail
			var err error
			for i := 0; i < testEmailPollAttempts; i++ {
				msg, err = email.GetMockEmail(ctx, rdb, to, templateID)
				if !errors.Is(err, email.ErrMockEmailNotFound) {
					break
				}
				time.Sleep(testEmailPollInterval)
			}
			if errors.Is(err, email.ErrMockEmailNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for key %s", email.MockEmailKey(to, templateID))})
				return
			}
			if err != nil {
				log.Error("Failed to read test email", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
				return
			}
			rdb.Del(ctx, email.MockEmailKey(to, templateID))
			c.JSON(http.StatusOK, gin.H{"success": true, "data": msg})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
