// Package server assembles the HTTP router from the application services.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"moneta/internal/handlers"
	"moneta/internal/middleware"
	"moneta/internal/models"
	"moneta/internal/services"

	_ "moneta/internal/docs" // swagger docs
)

// Services is everything the router needs to serve requests.
type Services struct {
	Users        services.UserServicer
	Workspaces   services.WorkspaceServicer
	Accounts     services.AccountServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Budgets      services.BudgetServicer
	Recurring    services.RecurringServicer
	Processor    services.RecurringProcessor
	Audit        services.AuditServicer
}

// Options controls optional parts of the router.
type Options struct {
	PipelineAPIKey string
	EnableSwagger  bool
	RequestLogging bool
}

// New builds the gin engine with every route mounted under /api/v1.
func New(svc Services, opts Options) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Audit)
	workspaceHandler := handlers.NewWorkspaceHandler(svc.Workspaces, svc.Audit)
	accountHandler := handlers.NewAccountHandler(svc.Accounts, svc.Audit)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Audit)
	budgetHandler := handlers.NewBudgetHandler(svc.Budgets, svc.Audit)
	recurringHandler := handlers.NewRecurringHandler(svc.Recurring, svc.Audit)
	processHandler := handlers.NewProcessHandler(svc.Processor)

	router := gin.New()
	router.Use(gin.Recovery())
	if opts.RequestLogging {
		router.Use(middleware.RequestLogging())
	}
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	if opts.EnableSwagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Internal routes
	internal := v1.Group("/internal", middleware.PipelineAuthMiddleware(opts.PipelineAPIKey))
	internal.POST("/recurring/process", processHandler.ProcessDue)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.POST("/workspaces", workspaceHandler.CreateWorkspace)
	protected.GET("/workspaces", workspaceHandler.GetUserWorkspaces)

	viewer := middleware.WorkspaceAccess(svc.Workspaces, models.WorkspaceRoleViewer)
	member := middleware.WorkspaceAccess(svc.Workspaces, models.WorkspaceRoleMember)
	admin := middleware.WorkspaceAccess(svc.Workspaces, models.WorkspaceRoleAdmin)

	ws := protected.Group("/workspaces/:workspaceId")
	ws.GET("/members", viewer, workspaceHandler.GetMembers)
	ws.POST("/members", admin, workspaceHandler.AddMember)

	accounts := ws.Group("/accounts")
	accounts.POST("", member, accountHandler.CreateAccount)
	accounts.GET("", viewer, accountHandler.GetWorkspaceAccounts)
	accounts.GET("/:id", viewer, accountHandler.GetAccountByID)
	accounts.PUT("/:id", member, accountHandler.UpdateAccount)

	categories := ws.Group("/categories")
	categories.POST("", member, categoryHandler.CreateCategory)
	categories.GET("", viewer, categoryHandler.GetWorkspaceCategories)
	categories.GET("/:id", viewer, categoryHandler.GetCategoryByID)
	categories.PUT("/:id", member, categoryHandler.UpdateCategory)

	transactions := ws.Group("/transactions")
	transactions.POST("", member, transactionHandler.CreateTransaction)
	transactions.GET("", viewer, transactionHandler.GetWorkspaceTransactions)
	transactions.GET("/:id", viewer, transactionHandler.GetTransactionByID)
	transactions.POST("/:id/archive", member, transactionHandler.ArchiveTransaction)

	budgets := ws.Group("/budgets")
	budgets.POST("", member, budgetHandler.CreateBudget)
	budgets.GET("", viewer, budgetHandler.GetWorkspaceBudgets)
	budgets.GET("/:id", viewer, budgetHandler.GetBudgetByID)
	budgets.PUT("/:id", member, budgetHandler.UpdateBudget)
	budgets.POST("/:id/archive", member, budgetHandler.ArchiveBudget)
	budgets.GET("/:id/progress", viewer, budgetHandler.GetBudgetProgress)

	recurringRoutes := ws.Group("/recurring-transactions")
	recurringRoutes.POST("", member, recurringHandler.CreateRecurring)
	recurringRoutes.GET("", viewer, recurringHandler.GetWorkspaceRecurring)
	recurringRoutes.GET("/:id", viewer, recurringHandler.GetRecurringByID)
	recurringRoutes.PUT("/:id", member, recurringHandler.UpdateRecurring)
	recurringRoutes.POST("/:id/pause", member, recurringHandler.PauseRecurring)
	recurringRoutes.POST("/:id/resume", member, recurringHandler.ResumeRecurring)
	recurringRoutes.POST("/:id/archive", member, recurringHandler.ArchiveRecurring)
	recurringRoutes.GET("/:id/preview", viewer, recurringHandler.PreviewRecurring)

	return router
}
