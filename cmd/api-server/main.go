package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"booktracker/database"
	"booktracker/internal/config"
	"booktracker/internal/httpapi/handler"
	"booktracker/internal/httpapi/middleware"
	"booktracker/internal/httpapi/repository"
	"booktracker/internal/httpapi/service"
	"booktracker/internal/search"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	// Redis backs the search cache only; the API runs fine without it.
	cache := connectRedis(cfg, logger)

	userRepo := repository.NewUserRepository(db)
	bookRepo := repository.NewBookRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	authService := service.NewAuthService(userRepo, cfg)
	catalogService := service.NewCatalogService(bookRepo)
	progressService := service.NewProgressService(progressRepo, bookRepo)
	statsService := service.NewStatsService(progressRepo)

	var oauth *service.GoogleOAuth
	if cfg.OAuthEnabled() {
		oauth = service.NewGoogleOAuth(cfg)
	} else {
		logger.Warn("google oauth not configured, sign-in limited to local accounts")
	}

	booksClient := search.NewGoogleBooksClient(cfg.GoogleBooksAPIURL, cfg.GoogleBooksAPIKey, cache, cfg.CacheTTL, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authHandler := handler.NewAuthHandler(authService, oauth, cfg)
	bookHandler := handler.NewBookHandler(catalogService, progressService, booksClient)
	progressHandler := handler.NewProgressHandler(progressService)
	statsHandler := handler.NewStatsHandler(statsService)

	authHandler.RegisterRoutes(r.Group("/auth"))

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(authService))
	bookHandler.RegisterRoutes(api.Group("/books"))
	progressHandler.RegisterRoutes(api.Group("/progress"))
	statsHandler.RegisterRoutes(api.Group("/stats"))

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("server starting", "addr", addr, "env", cfg.GoEnv)
	if err := r.Run(addr); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelDebug
	switch cfg.LogLevel {
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h)
}

func connectRedis(cfg *config.Config, logger *slog.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, search cache disabled", "err", err)
		return nil
	}
	return rdb
}
