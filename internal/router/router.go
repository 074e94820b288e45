package router

import (
	"time"

	"github.com/taskvault/taskvault-backend/internal/database/repository"
	"github.com/taskvault/taskvault-backend/internal/handlers"
	"github.com/taskvault/taskvault-backend/internal/middleware"
	"github.com/taskvault/taskvault-backend/internal/services"
	"github.com/taskvault/taskvault-backend/internal/services/apikey"
	"github.com/taskvault/taskvault-backend/internal/services/auth"
	"github.com/taskvault/taskvault-backend/internal/services/excel"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin router with all application routes
func SetupRouter(db *gorm.DB, authService *auth.AuthService, rabbitMQService *services.RabbitMQService) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	// Create a new router
	r := gin.New()

	// Use middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Create repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)

	// Create services
	apiKeyService := apikey.NewService(apiKeyRepo, userRepo)
	taskService := services.NewTaskService(taskRepo, eventPublisherOrNil(rabbitMQService))
	excelService := excel.NewService()

	// Create middleware with services
	flexibleAuthMiddleware := middleware.NewFlexibleAuthMiddleware(apiKeyService, authService, userRepo)
	bearerTokenMiddleware := middleware.NewBearerTokenMiddleware(authService, userRepo)
	taskOwnershipMiddleware := middleware.NewTaskOwnershipMiddleware(taskRepo)

	// Create handlers with services
	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService, excelService)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyService)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 routes
	api := r.Group("/api/v1")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		// Auth routes (public)
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.RefreshToken)
		}

		// Auth routes accepting either credential type
		authProtected := api.Group("/auth")
		authProtected.Use(flexibleAuthMiddleware.FlexibleAuth())
		{
			authProtected.POST("/logout", authHandler.Logout)
			authProtected.GET("/profile", authHandler.GetProfile)
		}

		// Task routes (API key or JWT)
		tasks := api.Group("/tasks")
		tasks.Use(flexibleAuthMiddleware.FlexibleAuth())
		{
			tasks.GET("", taskHandler.GetTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/export", taskHandler.ExportTasks)

			// Item routes resolve ownership before the handler runs
			tasks.GET("/:id", taskOwnershipMiddleware.LoadOwnedTask(), taskHandler.GetTask)
			tasks.PUT("/:id", taskOwnershipMiddleware.LoadOwnedTask(), taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskOwnershipMiddleware.LoadOwnedTask(), taskHandler.DeleteTask)
		}

		// Key management routes (JWT only; an API key cannot manage keys)
		keys := api.Group("/keys")
		keys.Use(bearerTokenMiddleware.BearerTokenAuth())
		{
			keys.POST("", apiKeyHandler.CreateAPIKey)
			keys.GET("", apiKeyHandler.GetAPIKeys)
			keys.PUT("/:id", apiKeyHandler.UpdateAPIKey)
			keys.DELETE("/:id", apiKeyHandler.DeleteAPIKey)
		}
	}

	return r
}

// eventPublisherOrNil avoids a typed-nil interface when RabbitMQ is down
func eventPublisherOrNil(rabbitMQService *services.RabbitMQService) services.EventPublisher {
	if rabbitMQService == nil {
		return nil
	}
	return rabbitMQService
}
