package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/config"
	"github.com/yukikurage/brand-task-api/internal/constants"
	"github.com/yukikurage/brand-task-api/internal/database"
	"github.com/yukikurage/brand-task-api/internal/handlers"
	"github.com/yukikurage/brand-task-api/internal/logging"
	"github.com/yukikurage/brand-task-api/internal/middleware"
	"github.com/yukikurage/brand-task-api/internal/repository"
	"github.com/yukikurage/brand-task-api/internal/services"
	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Stdout logging until the database is reachable
	logging.Setup(!cfg.IsProduction())

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	db := database.GetDB()

	// Errors are also persisted to system_logs
	dbHandler := logging.NewDBHandler(db, 5*time.Second)
	logging.Setup(!cfg.IsProduction(), dbHandler)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cfg.LogRetention, cleanupDone)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.GinMode,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	brandRepo := repository.NewBrandRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	historyRepo := repository.NewTaskHistoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	// Mail delivery for password reset codes
	var mailer services.Mailer = services.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	}

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	// Services
	authService := services.NewAuthService(userRepo, mailer, services.AuthOptions{
		JWTSecret:   cfg.JWTSecret,
		JWTExpiry:   cfg.JWTExpiry,
		AdminEmails: cfg.AdminEmails,
	})
	brandService := services.NewBrandService(brandRepo, userRepo, taskRepo)
	taskService := services.NewTaskService(taskRepo, commentRepo, historyRepo, userRepo, brandRepo,
		services.NewAuditRecorder(historyRepo), aiService)
	commentService := services.NewCommentService(commentRepo, taskService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(authService)
	brandHandler := handlers.NewBrandHandler(brandService)
	taskHandler := handlers.NewTaskHandler(taskService)
	commentHandler := handlers.NewCommentHandler(commentService)
	legacyCommentHandler := handlers.NewLegacyCommentHandler(commentService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())

	// CORS configuration
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", constants.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", constants.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 || slices.Contains(cfg.CORSOrigins, "*") {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	r.Use(cors.New(corsConfig))

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,                        // Redis pool size
		"tcp",                     // network type
		redisAddr,                 // Redis address from config
		"",                        // username (empty for default user)
		"",                        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Brand Task API is running",
		})
	})

	requireAuth := middleware.RequireAuth(authService)
	requireTask := middleware.RequireTaskAccess(taskService)
	authLimiter := middleware.RateLimiter(rate.Every(6*time.Second), 10)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authLimiter, authHandler.Register)
			auth.POST("/login", authLimiter, authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
			auth.POST("/forget-password", authLimiter, authHandler.ForgetPassword)
			auth.POST("/verify-otp", authLimiter, authHandler.VerifyOTP)
			auth.POST("/change-password", authLimiter, authHandler.ChangePassword)
		}

		// User administration (admin only)
		users := api.Group("/users")
		users.Use(requireAuth, middleware.RequireAdmin())
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}

		// Brand routes (protected)
		brands := api.Group("/brands")
		brands.Use(requireAuth)
		{
			brands.GET("", brandHandler.ListBrands)
			brands.POST("", brandHandler.CreateOrUpdateBrand)
			brands.POST("/bulk", brandHandler.BulkUpsertBrands)
			brands.GET("/:id", middleware.RequireBrandAccess(brandService), brandHandler.GetBrand)
			brands.PUT("/:id", brandHandler.UpdateBrand)
			brands.DELETE("/:id", brandHandler.DeleteBrand)
			brands.POST("/:id/collaborators", brandHandler.InviteCollaborator)
			brands.POST("/:id/invitation", brandHandler.RespondToInvite)
			brands.DELETE("/:id/collaborators/:email", brandHandler.RemoveCollaborator)
			brands.PUT("/:id/collaborators/:email/role", brandHandler.ChangeCollaboratorRole)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/:id", requireTask, taskHandler.GetTask)
			tasks.PUT("/:id", requireTask, taskHandler.UpdateTask)
			tasks.DELETE("/:id", requireTask, taskHandler.DeleteTask)
			tasks.PUT("/:id/approve", requireTask, taskHandler.ApproveTask)
			tasks.GET("/:id/history", requireTask, taskHandler.GetTaskHistory)
			tasks.GET("/:id/comments", requireTask, commentHandler.ListComments)
			tasks.POST("/:id/comments", requireTask, commentHandler.AddComment)
			tasks.DELETE("/:id/comments/:commentId", requireTask, commentHandler.DeleteComment)
		}

		// Comment routes kept for existing clients
		comments := api.Group("/comments")
		comments.Use(requireAuth)
		{
			comments.POST("/addComment/:taskId", legacyCommentHandler.AddComment)
			comments.GET("/getComments/:taskId", legacyCommentHandler.GetComments)
			comments.DELETE("/deleteComment/:taskId/:commentId", legacyCommentHandler.DeleteComment)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	close(cleanupDone)
	dbHandler.Stop()
	dbHandler.Flush()
}
