package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hasflow/gatekeeper/audit"
	"github.com/hasflow/gatekeeper/config"
	"github.com/hasflow/gatekeeper/controller"
	"github.com/hasflow/gatekeeper/dao"
	"github.com/hasflow/gatekeeper/db"
	logger "github.com/hasflow/gatekeeper/logging"
	"github.com/hasflow/gatekeeper/middleware"
	"github.com/hasflow/gatekeeper/queue"
	"github.com/hasflow/gatekeeper/service"
	"github.com/hasflow/gatekeeper/token"
	"github.com/hasflow/gatekeeper/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger()
	defer logger.Sync()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Initialize services and utilities
	authCfg := config.NewAuthConfig()
	validationUtil := util.NewValidationUtil()
	cacheService := util.NewCacheService()
	notificationService := util.NewNotificationService()
	enqueuer := queue.NewRedisQueue(db.RedisClient)
	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)
	audit.RegisterEventHandlers(eventBus, auditService)

	verifier, err := token.NewVerifier(authCfg)
	if err != nil {
		logger.Fatal("Failed to initialize token verifier", zap.Error(err))
	}
	issuer, err := token.NewIssuer(authCfg.JWTSecret)
	if err != nil {
		logger.Fatal("Failed to initialize token issuer", zap.Error(err))
	}

	// Initialize DAOs
	userDAO := dao.NewUserDAO(
		config.GetString("hasura.baseUrl"),
		config.GetString("hasura.adminSecret"),
		config.GetDuration("hasura.timeout"),
	)

	// Initialize services
	authService := service.NewAuthService(
		verifier,
		userDAO,
		cacheService,
		validationUtil,
		eventBus,
		authCfg,
	)
	accountService := service.NewAccountService(
		userDAO,
		cacheService,
		verifier,
		issuer,
		validationUtil,
		enqueuer,
		notificationService,
		eventBus,
	)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	actionController := controller.NewActionController(accountService)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	// Register routes
	api := router.Group("/")
	authController.RegisterRoutes(api)
	actionController.RegisterRoutes(api)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
