package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"lms_backend/internal/config"
	"lms_backend/internal/handler"
	"lms_backend/internal/hub"
	"lms_backend/internal/middleware"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Invalid database DSN", "error", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	// The hub loop and the redis bridge run for the life of the process.
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()

	chatHub := hub.New(appLogger)
	bridge := hub.NewRedisBridge(rdb, chatHub, appLogger)
	go chatHub.Run(hubCtx)
	go bridge.Run(hubCtx)

	services := service.NewServices(repos, cfg, chatHub, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(repos.RateLimit, appLogger)

	handlers := handler.NewHandlers(services, chatHub, cfg, appLogger)

	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}
	hubCancel()

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.ClientOrigin))
	router.Use(middleware.RequestLogger(log))

	router.GET("/health", handlers.Health.Check)

	// Uploaded attachments are served directly from disk.
	router.Static("/media", cfg.Media.UploadDir)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", rateLimitMiddleware.Limit(20, time.Minute), handlers.Auth.Register)
			auth.POST("/login", rateLimitMiddleware.Limit(20, time.Minute), handlers.Auth.Login)
			auth.POST("/forgot-password", rateLimitMiddleware.Limit(5, time.Minute), handlers.Auth.ForgotPassword)
			auth.POST("/reset-password", rateLimitMiddleware.Limit(5, time.Minute), handlers.Auth.ResetPassword)
		}

		protected := v1.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			protected.POST("/auth/logout", handlers.Auth.Logout)

			users := protected.Group("/users")
			{
				users.GET("/me", handlers.User.Me)
				users.PUT("/me/password", handlers.User.ChangePassword)
				users.GET("", authMiddleware.RequireAdmin(), handlers.User.List)
				users.DELETE("/:id", authMiddleware.RequireAdmin(), handlers.User.Delete)
			}

			conversations := protected.Group("/conversations")
			{
				conversations.POST("", handlers.Chat.Access)
				conversations.GET("", handlers.Chat.List)
				conversations.POST("/:id/messages", handlers.Chat.Send)
				conversations.GET("/:id/messages", handlers.Chat.Messages)
				conversations.PUT("/:id/read", handlers.Chat.MarkRead)
			}

			messages := protected.Group("/messages")
			{
				messages.PUT("/:id", handlers.Chat.UpdateMessage)
				messages.DELETE("/:id", handlers.Chat.DeleteMessage)
			}

			courses := protected.Group("/courses")
			{
				courses.GET("", handlers.Course.List)
				courses.GET("/:id", handlers.Course.Get)
				courses.POST("", authMiddleware.RequireAdmin(), handlers.Course.Create)
				courses.PUT("/:id", authMiddleware.RequireAdmin(), handlers.Course.Update)
				courses.DELETE("/:id", authMiddleware.RequireAdmin(), handlers.Course.Delete)

				courses.POST("/:id/teacher", authMiddleware.RequireAdmin(), handlers.Course.AssignTeacher)
				courses.DELETE("/:id/teacher", authMiddleware.RequireAdmin(), handlers.Course.RemoveTeacher)

				courses.GET("/:id/enrollments", handlers.Course.ListEnrolled)
				courses.POST("/:id/enrollments", authMiddleware.RequireAdmin(), handlers.Course.Enroll)
				courses.DELETE("/:id/enrollments/:studentId", authMiddleware.RequireAdmin(), handlers.Course.Unenroll)
				courses.PUT("/:id/enrollment-state", authMiddleware.RequireAdmin(), handlers.Course.SetEnrollmentState)
			}

			payments := protected.Group("/payments")
			{
				payments.POST("/checkout", handlers.Payment.Checkout)
				payments.GET("/transactions", authMiddleware.RequireAdmin(), handlers.Payment.ListTransactions)
			}
		}
	}

	// WebSocket push channel; the token travels in the query string.
	router.GET("/ws", handlers.WebSocket.Serve)

	return router
}
