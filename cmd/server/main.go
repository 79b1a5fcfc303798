package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HammerMeetNail/drawmaster/internal/config"
	"github.com/HammerMeetNail/drawmaster/internal/database"
	"github.com/HammerMeetNail/drawmaster/internal/handlers"
	"github.com/HammerMeetNail/drawmaster/internal/identity"
	"github.com/HammerMeetNail/drawmaster/internal/logging"
	"github.com/HammerMeetNail/drawmaster/internal/middleware"
	"github.com/HammerMeetNail/drawmaster/internal/services"
	"github.com/HammerMeetNail/drawmaster/internal/tree"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.Server.LogLevel)
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting drawmaster server...", logging.Fields{"env": cfg.Server.Environment})

	logger.Info("Connecting to PostgreSQL", logging.Fields{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	logger.Info("Connecting to Redis", logging.Fields{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	var treeStore tree.Store
	switch cfg.Tree.Backend {
	case "memory":
		logger.Warn("Using in-memory tree store; sessions will not survive a restart")
		treeStore = tree.NewMemory()
	default:
		treeStore = tree.NewRedis(redisDB.Client, cfg.Tree.KeyPrefix, tree.WithEventsChannel(cfg.Tree.EventsChannel))
	}

	directory := identity.NewDirectory(db.Pool)
	resolver := identity.NewCachedResolver(directory, identity.NewRedisCache(redisDB.Client), cfg.Auth.IdentityCacheTTL)

	dbAdapter := services.NewPoolAdapter(db.Pool)
	profileService := services.NewProfileService(dbAdapter)
	friendService := services.NewFriendService(dbAdapter, resolver, logger)
	sessionService := services.NewSessionService(treeStore, friendService, services.StubScorer{}, logger, services.SessionOptions{
		ConditionalWrites: cfg.Tree.ConditionalWrites,
		InviteTTL:         cfg.Game.InviteTTL,
	})

	var verifier middleware.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier, directory, logger)
	if cfg.Auth.Skip {
		logger.Warn("AUTH_SKIP is set; unauthenticated requests act as the dev uid", logging.Fields{"uid": cfg.Auth.DevUID})
		authMiddleware.WithDevUID(cfg.Auth.DevUID)
	}

	limit := int64(cfg.RateLimit.FriendRequests)
	handler := newRouter(routes{
		health:   handlers.NewHealthHandler(db, redisDB),
		profiles: handlers.NewProfileHandler(profileService, logger),
		friends:  handlers.NewFriendHandler(friendService, logger),
		sessions: handlers.NewSessionHandler(sessionService, logger),
		auth:     authMiddleware,
		requestLimiter: middleware.NewRateLimiter(redisDB.Client, limit, cfg.RateLimit.Window,
			"ratelimit:friend-request:", middleware.ByIdentity, false),
		inviteLimiter: middleware.NewRateLimiter(redisDB.Client, limit, cfg.RateLimit.Window,
			"ratelimit:invite:", middleware.ByIdentity, false),
		logger: logger,
		secure: cfg.Server.Secure,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", logging.Fields{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", logging.Fields{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
