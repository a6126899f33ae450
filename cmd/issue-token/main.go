package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/playmatatu/dropzone/internal/auth"
	"github.com/playmatatu/dropzone/internal/config"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	userID := flag.String("user", os.Getenv("PLAYER_ID"), "player ID to embed in the token")
	ttl := flag.Duration("ttl", time.Duration(cfg.TokenTTLHours)*time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		log.Fatal("A player ID is required (-user or PLAYER_ID)")
	}
	if cfg.JWTSecret == "change-me-in-production" {
		log.Printf("WARNING: Using default JWT secret. Set JWT_SECRET env var in production!")
	}

	token, err := auth.IssueToken(cfg.JWTSecret, *userID, *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	log.Printf("✓ Token issued for %s (expires in %s)", *userID, *ttl)
	log.Println("Connect with:")
	log.Printf("  ws://localhost:%s/api/v1/play/ws?token=<token>", cfg.Port)
	fmt.Println(token)
}
