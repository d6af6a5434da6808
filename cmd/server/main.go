package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/signbridge/backend/api/handlers"
	"github.com/signbridge/backend/internal/classifier"
	"github.com/signbridge/backend/internal/db"
	"github.com/signbridge/backend/internal/repository"
	"github.com/signbridge/backend/internal/signaling"
	"github.com/signbridge/backend/internal/textcorrect"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "data/history.db")
	workerCmd := getEnv("CLASSIFIER_CMD", "python3 classifier/worker.py")
	correctURL := getEnv("CORRECT_URL", "")
	correctKey := getEnv("CORRECT_API_KEY", "")

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize classification history repository
	historyRepo := repository.NewClassificationRepository(database)

	// Initialize the worker supervisor. The worker itself is spawned lazily
	// on the first classify request.
	workerParts := strings.Fields(workerCmd)
	if len(workerParts) == 0 {
		log.Fatalf("CLASSIFIER_CMD is empty")
	}
	supervisor := classifier.NewSupervisor(classifier.Config{
		Command: workerParts[0],
		Args:    workerParts[1:],
	})
	defer supervisor.Close()

	// Initialize signaling
	registry := signaling.NewRegistry()
	hub := signaling.NewHub(registry)
	wsHandler := signaling.NewHandler(hub)

	// Initialize handlers
	classifyHandler := handlers.NewClassifyHandler(supervisor, historyRepo)
	signalHandler := handlers.NewSignalHandler(wsHandler)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/healthz", func(c *gin.Context) {
		c.String(200, "ok")
	})

	// WebSocket signaling endpoint
	signalHandler.RegisterRoutes(r)

	// API routes
	api := r.Group("/api")
	{
		classifyHandler.RegisterRoutes(api)

		if correctURL != "" {
			corrector := textcorrect.NewHTTPCorrector(correctURL, correctKey)
			handlers.NewCorrectHandler(corrector).RegisterRoutes(api)
		}
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		supervisor.Close()
		db.CloseDB()
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
