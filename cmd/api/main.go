package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/yucheng-liao/todo-sync/internal/database"
	"github.com/yucheng-liao/todo-sync/internal/domain"
	"github.com/yucheng-liao/todo-sync/internal/realtime"
	"github.com/yucheng-liao/todo-sync/internal/repository"
	"github.com/yucheng-liao/todo-sync/internal/server"
	"github.com/yucheng-liao/todo-sync/internal/service"

	_ "github.com/joho/godotenv/autoload"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, hub *realtime.Hub, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// Give in-flight requests 5 seconds to finish.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	// Websocket connections are hijacked and outlive Shutdown; drop them
	// explicitly.
	hub.Shutdown()

	if dbService != nil {
		log.Println("Closing database connection pool...")
		if err := dbService.Close(); err != nil {
			log.Printf("Error closing database connection pool: %v", err)
		}
	}

	log.Println("Server exiting")

	done <- true
}

func main() {
	dbService := database.New()

	gormDB := dbService.GetDB()

	log.Println("Running database auto-migration...")
	if err := gormDB.AutoMigrate(&domain.Todo{}); err != nil {
		log.Fatalf("Failed to auto-migrate database: %v", err)
	}

	todoRepo := repository.NewGormTodoRepository(gormDB)
	todoService := service.NewTodoService(todoRepo)
	hub := realtime.NewHub()

	apiServer := server.NewServer(todoService, dbService, hub)

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, dbService, hub, done)

	log.Printf("Starting server on %s", apiServer.Addr)
	err := apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server ListenAndServe error: %v", err)
	}

	<-done
	log.Println("Graceful shutdown complete.")
}
