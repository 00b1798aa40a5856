package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/AzimPial/Chat-Us/internal/config"
	"github.com/AzimPial/Chat-Us/internal/database"
	"github.com/AzimPial/Chat-Us/internal/handlers"
	"github.com/AzimPial/Chat-Us/internal/logging"
	"github.com/AzimPial/Chat-Us/internal/middleware"
	"github.com/AzimPial/Chat-Us/internal/realtime"
	"github.com/AzimPial/Chat-Us/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger := logging.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.Server.LogLevel)
	if cfg.Server.Debug {
		level = logging.LevelDebug
	}
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting Chat Us server...")

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := database.RunMigrations(cfg.Database.DSN(), "migrations"); err != nil {
		return err
	}
	logger.Info("Migrations completed")

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		// Sessions fall back to Postgres and fan-out stays in-process.
		logger.Warn("Redis unavailable, running degraded", map[string]interface{}{
			"error": err.Error(),
		})
		redisDB = &database.RedisDB{}
	} else {
		logger.Info("Connected to Redis")
	}
	defer func() { _ = redisDB.Close() }()

	// Event broker, bridged across instances over Redis
	broker := realtime.NewBroker(redisDB.Client, uuid.NewString(), logger.WithComponent("realtime"))
	defer broker.Close()

	bridgeCtx, cancelBridge := context.WithCancel(context.Background())
	defer cancelBridge()
	go broker.RunBridge(bridgeCtx)

	// Initialize services
	dbConn := services.NewPoolConn(db.Pool)

	emailService := services.NewEmailService(&cfg.Email)
	userService := services.NewUserService(dbConn, broker)
	authService := services.NewAuthService(dbConn, redisDB.Client)
	friendService := services.NewFriendService(dbConn, broker, emailService)
	messageService := services.NewMessageService(dbConn, broker)
	conversationService := services.NewConversationService(dbConn, messageService, broker)
	mediaService, err := services.NewMediaService(cfg.Media.Dir, cfg.Media.BaseURL, cfg.Media.MaxBytes)
	if err != nil {
		return fmt.Errorf("initializing media store: %w", err)
	}

	// Initialize handlers
	var redisCheck handlers.HealthChecker
	if redisDB.Client != nil {
		redisCheck = redisDB
	}
	healthHandler := handlers.NewHealthHandler(db, redisCheck)
	authHandler := handlers.NewAuthHandler(userService, authService, cfg.Server.Secure)
	profileHandler := handlers.NewProfileHandler(userService)
	friendHandler := handlers.NewFriendHandler(friendService)
	groupHandler := handlers.NewGroupHandler(conversationService)
	messageHandler := handlers.NewMessageHandler(messageService)
	mediaHandler := handlers.NewMediaHandler(mediaService)
	wsHandler := handlers.NewWSHandler(broker, userService, friendService, conversationService, messageService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger.WithComponent("http"))
	authRateLimiter := middleware.NewAuthRateLimiter(redisDB.Client)
	sendRateLimiter := middleware.NewSendRateLimiter(redisDB.Client)

	requireAuth := authMiddleware.RequireAuth

	// Set up router
	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Auth endpoints
	mux.Handle("POST /api/auth/register", authRateLimiter.Limit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", authRateLimiter.Limit(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/logout", requireAuth(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(authHandler.Me)))

	// Profile endpoints
	mux.Handle("GET /api/profiles/{id}", requireAuth(http.HandlerFunc(profileHandler.Get)))
	mux.Handle("PUT /api/profile", requireAuth(http.HandlerFunc(profileHandler.Update)))

	// Friend endpoints
	mux.Handle("GET /api/friends", requireAuth(http.HandlerFunc(friendHandler.List)))
	mux.Handle("DELETE /api/friends/{id}", requireAuth(http.HandlerFunc(friendHandler.Remove)))
	mux.Handle("GET /api/friends/requests", requireAuth(http.HandlerFunc(friendHandler.ListRequests)))
	mux.Handle("POST /api/friends/requests", requireAuth(http.HandlerFunc(friendHandler.SendRequest)))
	mux.Handle("PUT /api/friends/requests/{id}", requireAuth(http.HandlerFunc(friendHandler.ResolveRequest)))

	// Conversation and group endpoints
	mux.Handle("GET /api/conversations", requireAuth(http.HandlerFunc(groupHandler.ListConversations)))
	mux.Handle("POST /api/groups", requireAuth(http.HandlerFunc(groupHandler.Create)))
	mux.Handle("GET /api/groups/{id}", requireAuth(http.HandlerFunc(groupHandler.Get)))
	mux.Handle("PUT /api/groups/{id}/name", requireAuth(http.HandlerFunc(groupHandler.Rename)))
	mux.Handle("POST /api/groups/{id}/members", requireAuth(http.HandlerFunc(groupHandler.AddMember)))
	mux.Handle("DELETE /api/groups/{id}/members/{userId}", requireAuth(http.HandlerFunc(groupHandler.RemoveMember)))
	mux.Handle("POST /api/groups/{id}/leave", requireAuth(http.HandlerFunc(groupHandler.Leave)))

	// Message endpoints
	mux.Handle("GET /api/conversations/{id}/messages", requireAuth(http.HandlerFunc(messageHandler.History)))
	mux.Handle("POST /api/conversations/{id}/messages", requireAuth(sendRateLimiter.Limit(http.HandlerFunc(messageHandler.Send))))
	mux.Handle("PUT /api/conversations/{id}/messages/{messageId}/seen", requireAuth(http.HandlerFunc(messageHandler.MarkSeen)))

	// Media endpoints (serving is public, references are unguessable enough)
	mux.Handle("POST /api/media", requireAuth(http.HandlerFunc(mediaHandler.Upload)))
	mux.HandleFunc("GET /media/{path...}", mediaHandler.Serve)

	// Realtime endpoint
	mux.Handle("GET /ws", requireAuth(http.HandlerFunc(wsHandler.Serve)))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Websocket connections are long-lived; write timeouts are enforced
		// per-frame inside the connection handler instead.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		cancelBridge()
		broker.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
