package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/restaurant-ops/backend/api/handlers"
	"github.com/restaurant-ops/backend/internal/auth"
	"github.com/restaurant-ops/backend/internal/db"
	"github.com/restaurant-ops/backend/internal/hub"
	"github.com/restaurant-ops/backend/internal/repository"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "data/restaurant.db")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	heartbeat, err := time.ParseDuration(getEnv("HEARTBEAT_INTERVAL", "30s"))
	if err != nil {
		log.Fatalf("Invalid HEARTBEAT_INTERVAL: %v", err)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database
	database, err := db.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Structured logger for the hub
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Initialize user repository and credential resolver
	userRepo := repository.NewUserRepository(database)
	resolver := auth.NewResolver([]byte(jwtSecret), userRepo)

	// Initialize the event hub and start its heartbeat monitor
	eventHub := hub.New(hub.Config{HeartbeatInterval: heartbeat}, logger)
	eventHub.Start()
	defer eventHub.Close()

	hubHandler := hub.NewHandler(eventHub, resolver, logger)

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(hubHandler)
	healthHandler := handlers.NewHealthHandler(eventHub)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	healthHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		eventHub.Close()
		database.Close()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
