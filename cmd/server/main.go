package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cardvault/backend/internal/api"
	"github.com/cardvault/backend/internal/catalog"
	"github.com/cardvault/backend/internal/database"
	"github.com/cardvault/backend/internal/services"
	"github.com/cardvault/backend/internal/store"
)

func main() {
	// Database path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./cardvault.db"
	}

	// Initialize database
	if err := database.Initialize(dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	// Price resolver with its tiered caches
	resolver, err := store.NewPriceResolver(db)
	if err != nil {
		log.Fatalf("Failed to initialize price resolver: %v", err)
	}

	// Collection store
	collectionStore := store.New(db, resolver)

	// Card catalog (read-only collaborator)
	catalogService := catalog.NewService(db)

	// Price feed client with daily request budget
	feedAPIKey := os.Getenv("PRICEFEED_API_KEY")
	feedDailyLimit := 100 // Default free tier limit
	if limitStr := os.Getenv("PRICEFEED_DAILY_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			feedDailyLimit = limit
		}
	}
	feedClient := services.NewFeedClient(feedAPIKey, os.Getenv("PRICEFEED_BASE_URL"), feedDailyLimit)

	// Background workers
	priceWorker := services.NewPriceWorker(db, feedClient, resolver)
	valueWorker := services.NewValueWorker(db, collectionStore)

	// Sharing + import/export
	shareBaseURL := os.Getenv("SHARE_BASE_URL")
	if shareBaseURL == "" {
		shareBaseURL = "http://localhost:8080"
	}
	sharingService := services.NewSharingService(db, collectionStore, shareBaseURL)
	impexpService := services.NewImportExportService(collectionStore)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start price worker in background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in price worker: %v - restarting in 30 seconds", r)
					}
				}()
				priceWorker.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return // Graceful shutdown
			case <-time.After(30 * time.Second):
				log.Println("Price worker restarting after panic recovery...")
			}
		}
	}()

	// Start value snapshot worker in background
	go valueWorker.Start(ctx)

	// Setup router
	router := api.SetupRouter(collectionStore, resolver, catalogService, sharingService, impexpService, priceWorker, valueWorker)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the background workers
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
