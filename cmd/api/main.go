// @title          TripSplit API
// @version        1.0
// @description    Group travel expenses with balances and settle-up suggestions.
// @host           localhost:8080
// @BasePath       /api/v1
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/fkhayef/tripsplit/docs"
	"github.com/fkhayef/tripsplit/internal/config"
	"github.com/fkhayef/tripsplit/internal/database"
	"github.com/fkhayef/tripsplit/internal/expense"
	expensesplit "github.com/fkhayef/tripsplit/internal/expense/split"
	"github.com/fkhayef/tripsplit/internal/notification"
	"github.com/fkhayef/tripsplit/internal/settlement"
	"github.com/fkhayef/tripsplit/internal/trip"
	"github.com/fkhayef/tripsplit/internal/user"
	"github.com/fkhayef/tripsplit/pkg/logging"
	mw "github.com/fkhayef/tripsplit/pkg/middleware"
	"github.com/fkhayef/tripsplit/pkg/validation"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	// Load configuration
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel)
	if envErr != nil {
		logger.Info("No .env file found, using environment variables")
	}

	// Money is rendered as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database successfully")

	// Change feed: writes publish through Postgres, the listener fans them out
	publisher := notification.NewPublisher(cfg.ChangeChannel)
	hub := notification.NewHub()
	listener := notification.NewListener(notification.ListenerConfig{
		DatabaseURL:  cfg.DatabaseURL,
		Channel:      cfg.ChangeChannel,
		MinReconnect: cfg.ListenerMinReconnect,
		MaxReconnect: cfg.ListenerMaxReconnect,
	}, hub, logger)
	go func() {
		if err := listener.Run(ctx); err != nil {
			logger.Error("Change feed stopped", "error", err)
		}
	}()

	validator := validation.New()
	splitFactory := expensesplit.NewFactory()

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService, validator)

	// Trip feature, also the participant directory
	tripRepo := trip.NewRepository(db, publisher)
	tripService := trip.NewService(tripRepo)
	tripHandler := trip.NewHandler(tripService, validator)

	// Expense feature
	expenseRepo := expense.NewRepository(db, publisher)
	expenseValidator := expense.NewValidator(validator, tripService, splitFactory)
	expenseService := expense.NewService(expenseRepo, expenseValidator, splitFactory)
	expenseHandler := expense.NewHandler(expenseService)

	// Settlement feature: derived on every request from the current expenses
	settlementService := settlement.NewService(expenseService, tripService, userService, logger)
	settlementHandler := settlement.NewHandler(settlementService, hub)

	notificationHandler := notification.NewHandler(hub)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.Identify)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Mount feature routers
		r.Mount("/users", userHandler.Routes())
		r.Mount("/trips", tripHandler.Routes())
		r.Mount("/expenses", expenseHandler.Routes())
		r.Mount("/settlements", settlementHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Open balance streams end with the server context
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}
