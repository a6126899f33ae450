package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/playmatatu/dropzone/internal/config"
	"github.com/playmatatu/dropzone/internal/database"
	"github.com/playmatatu/dropzone/internal/game"
	"github.com/playmatatu/dropzone/internal/migrations"
	"github.com/playmatatu/dropzone/internal/redis"
	"github.com/playmatatu/dropzone/internal/scores"
	"github.com/playmatatu/dropzone/internal/tui"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	userID := flag.String("user", os.Getenv("PLAYER_ID"), "player ID to record attempts under (empty plays as guest)")
	logPath := flag.String("log", "dropzone.log", "log file; the terminal is used for drawing")
	mute := flag.Bool("mute", false, "disable landing sounds")
	flag.Parse()

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	var db *sqlx.DB
	if cfg.DatabaseDriver != "memory" {
		if cfg.MigrateOnStart {
			if err := migrations.RunMigrations(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to run migrations: %v\n", err)
				os.Exit(1)
			}
		}
		db, err = database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Printf("[TUI] Redis unavailable, continuing without it: %v", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	svc := scores.NewServiceFromConfig(cfg, db, rdb)

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	sound := tui.Silent()
	if !*mute {
		sound = tui.NewSound()
	}
	defer sound.Close()

	frames := game.TickerFrames(time.Duration(cfg.FrameIntervalMs) * time.Millisecond)
	app := tui.NewApp(screen, svc, sound, *userID, frames)
	app.Run(context.Background())
}
