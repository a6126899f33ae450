package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/playmatatu/dropzone/internal/api"
	"github.com/playmatatu/dropzone/internal/config"
	"github.com/playmatatu/dropzone/internal/database"
	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/migrations"
	"github.com/playmatatu/dropzone/internal/redis"
	"github.com/playmatatu/dropzone/internal/scores"
	"github.com/playmatatu/dropzone/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()
	ctx := context.Background()

	// Initialize database (memory driver keeps everything in process)
	var db *sqlx.DB
	if cfg.DatabaseDriver != "memory" {
		if cfg.MigrateOnStart {
			log.Println("[MIGRATE] Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}

		var err error
		db, err = database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Printf("[DB] Connected (driver=%s)", cfg.DatabaseDriver)
	} else {
		log.Println("[DB] Using in-memory score store")
	}

	// Initialize Redis (optional)
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	// Attempt events fan out through Redis when available, else straight to the hub
	var svc *scores.Service
	if rdb != nil {
		svc = scores.NewServiceFromConfig(cfg, db, rdb)
		ws.StartAttemptEventSubscriber(ctx, rdb, hub)
	} else {
		svc = scores.NewServiceFromConfig(cfg, db, nil, scores.WithPublisher(hub))
	}

	// Initialize session manager and idle expiry
	simCfg := game.DefaultConfig().WithDimensions(float64(cfg.GameWidth), float64(cfg.GameHeight))
	frames := game.TickerFrames(time.Duration(cfg.FrameIntervalMs) * time.Millisecond)
	manager := game.NewManager(simCfg, frames, time.Duration(cfg.SessionIdleMinutes)*time.Minute)
	go manager.StartExpiryChecker(ctx, time.Minute)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, cfg, svc, hub, manager)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Dropzone server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
