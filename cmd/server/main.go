package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todoshi/auth"
	"todoshi/internal/chat"
	"todoshi/internal/config"
	"todoshi/internal/db"
	"todoshi/internal/middleware"
	"todoshi/internal/project"
	"todoshi/internal/projectlog"
	"todoshi/internal/realtime"
	"todoshi/internal/request"
	"todoshi/internal/storage"
	"todoshi/internal/todo"
	"todoshi/internal/user"
	"todoshi/internal/worker"
	"todoshi/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "todoshi",
		Short: "Todoshi collaboration backend",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadConfig()
			if config.AppConfig.IsProduction() {
				logrus.SetFormatter(&logrus.JSONFormatter{})
				gin.SetMode(gin.ReleaseMode)
			}
		},
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Connect()
			if err != nil {
				return err
			}
			defer db.Close(conn)
			return db.Migrate(conn)
		},
	}
}

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and the websocket endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "don't migrate the schema on startup")
	return cmd
}

func serve(skipMigrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	conn, err := db.Connect()
	if err != nil {
		return err
	}
	defer db.Close(conn)

	if !skipMigrate {
		if err := db.Migrate(conn); err != nil {
			return err
		}
	}

	// Redis is optional, the cache degrades to always-miss
	redisClient := redis.NewClient(ctx)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := redis.NewCache(redisClient)

	objects, err := storage.NewMinioStore(storage.Config{
		Endpoint:        config.AppConfig.MinioEndpoint,
		AccessKeyID:     config.AppConfig.MinioAccessKey,
		SecretAccessKey: config.AppConfig.MinioSecretKey,
		Bucket:          config.AppConfig.MinioBucket,
		UseSSL:          config.AppConfig.MinioUseSSL,
		PublicURL:       config.AppConfig.MinioPublicURL,
	})
	if err != nil {
		return err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		logrus.WithError(err).Warn("object storage unavailable, uploads will fail")
	}

	pool := worker.NewWorkerPool(config.AppConfig.WorkerPoolSize, 30*time.Second)

	// Initialize repository
	userRepo := user.NewRepository(conn)
	projectRepo := project.NewRepository(conn)
	todoRepo := todo.NewRepository(conn)
	logRepo := projectlog.NewRepository(conn)
	messageRepo := chat.NewRepository(conn)
	requestRepo := request.NewRepository(conn)

	// Initialize service
	userService := user.NewService(userRepo, objects, pool)
	hub := realtime.NewHub(userService)
	projectService := project.NewService(projectRepo, cache, objects, pool, hub)
	todoService := todo.NewService(todoRepo, projectService, userService)
	logService := projectlog.NewService(logRepo, projectService)
	chatService := chat.NewService(messageRepo, projectService, userService, objects, pool, hub)
	requestService := request.NewService(requestRepo, projectService, userService, cache, hub)

	verifier := auth.NewJWTVerifier(userService)
	authMiddleware := &middleware.Auth{Verifier: verifier}
	eventRouter := realtime.NewRouter(hub, projectService, logService, todoService)

	// Initialize handler
	handlers := routeHandlers{
		users:    user.NewHandler(userService),
		projects: project.NewHandler(projectService),
		todos:    todo.NewHandler(todoService),
		logs:     projectlog.NewHandler(logService),
		chats:    chat.NewHandler(chatService),
		requests: request.NewHandler(requestService),
		ws:       realtime.NewHandler(ctx, verifier, hub, eventRouter),
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(corsConfig()))
	router.Use(middleware.ErrorHandler())
	registerRoutes(router, handlers, authMiddleware.AuthMiddleWare())

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("Server listening on port %s", serverPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server shutdown error")
	}
	// hijacked websocket connections are not tracked by the server
	hub.Close()
	pool.Shutdown()

	logrus.Info("Server shutdown complete")
	return nil
}

func corsConfig() cors.Config {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}

	if config.AppConfig.IsProduction() {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	} else {
		// Allow all origins in development
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	}
	return corsConfig
}
