package main

//go:generate swag init

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/tavolo-app/finance/db"
	_ "github.com/tavolo-app/finance/docs"
	"github.com/tavolo-app/finance/events"
	"github.com/tavolo-app/finance/handlers"
	"github.com/tavolo-app/finance/ledger"
)

// @title           Restaurant Finance API
// @version         1.0.0
// @description     Financial ledger for the restaurant platform: bank accounts, transactions, transfers, and recurring projections.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.basic  BasicAuth

func main() {
	godotenv.Load()

	// Configure structured logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	// Open database
	database, err := db.Open()
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Run migrations
	if err := db.Migrate(database); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Optional AMQP event publisher
	publisher, err := events.NewPublisherFromEnv()
	if err != nil {
		slog.Error("failed to connect to AMQP broker", "error", err)
		os.Exit(1)
	}
	if publisher != nil {
		defer publisher.Close()
		slog.Info("ledger event publishing enabled")
	}

	// Shared dependencies for handlers
	handlers.DB = database
	handlers.Ledger = ledger.NewService(database)
	handlers.Events = publisher

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// API routes with basic auth and restaurant scoping
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(handlers.BasicAuth)
		r.Use(handlers.RestaurantScope)

		// Bank accounts
		r.Get("/accounts", handlers.ListAccounts)
		r.Post("/accounts", handlers.CreateAccount)
		r.Get("/accounts/{id}", handlers.GetAccount)
		r.Put("/accounts/{id}", handlers.UpdateAccount)
		r.Delete("/accounts/{id}", handlers.DeleteAccount)

		// Categories
		r.Get("/categories", handlers.ListCategories)
		r.Post("/categories", handlers.CreateCategory)
		r.Put("/categories/{id}", handlers.UpdateCategory)
		r.Delete("/categories/{id}", handlers.DeleteCategory)

		// Suppliers
		r.Get("/suppliers", handlers.ListSuppliers)
		r.Post("/suppliers", handlers.CreateSupplier)
		r.Get("/suppliers/{id}", handlers.GetSupplier)
		r.Put("/suppliers/{id}", handlers.UpdateSupplier)
		r.Delete("/suppliers/{id}", handlers.DeleteSupplier)

		// Transactions
		r.Get("/transactions", handlers.ListTransactions)
		r.Post("/transactions", handlers.CreateTransaction)
		r.Post("/transactions/transfer", handlers.CreateTransfer)
		r.Post("/transactions/sync-recurring", handlers.SyncRecurring)
		r.Get("/transactions/{id}", handlers.GetTransaction)
		r.Put("/transactions/{id}", handlers.UpdateTransaction)
		r.Delete("/transactions/{id}", handlers.DeleteTransaction)

		// Dashboard
		r.Get("/dashboard", handlers.GetDashboard)
	})

	// Swagger UI
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
