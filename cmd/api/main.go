package main

import (
	"context"
	"errors"
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

	_ "github.com/fkhayef/mixi/docs"
	"github.com/fkhayef/mixi/internal/auth"
	"github.com/fkhayef/mixi/internal/balance"
	"github.com/fkhayef/mixi/internal/config"
	"github.com/fkhayef/mixi/internal/database"
	"github.com/fkhayef/mixi/internal/expense"
	expensesplit "github.com/fkhayef/mixi/internal/expense/split"
	"github.com/fkhayef/mixi/internal/group"
	"github.com/fkhayef/mixi/internal/metrics"
	"github.com/fkhayef/mixi/internal/notification"
	"github.com/fkhayef/mixi/internal/settlement"
	"github.com/fkhayef/mixi/internal/user"
	"github.com/fkhayef/mixi/pkg/logging"
	mw "github.com/fkhayef/mixi/pkg/middleware"
)

//go:generate swag init -g cmd/api/main.go -d ../../ -o ../../docs

// @title                       Mixi API
// @version                     1.0
// @description                 Shared expenses, balances and debt settlement for groups.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the token.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LogLevel)

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		slog.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	slog.Info("Connected to database successfully")

	m := metrics.New()

	// Split Strategy Factory (Factory Pattern)
	splitFactory := expensesplit.NewSplitStrategyFactory()

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	// Auth
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	authHandler := auth.NewHandler(userService, jwtManager)

	// Notification feature
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo, slog.Default())
	notificationHandler := notification.NewHandler(notificationService)

	// Group feature
	groupRepo := group.NewRepository(db)
	groupService := group.NewService(groupRepo, notificationService, cfg.DefaultCurrency)
	groupHandler := group.NewHandler(groupService)

	// Expense feature (with split factory injected)
	expenseRepo := expense.NewRepository(db)
	expenseService := expense.NewService(expenseRepo, groupService, notificationService, m, splitFactory)
	expenseHandler := expense.NewHandler(expenseService)

	// Balance feature, read-only over expenses
	balanceService := balance.NewService(expenseService, groupService)
	balanceHandler := balance.NewHandler(balanceService)

	// Settlement feature
	settlementRepo := settlement.NewRepository(db, expenseRepo)
	settlementService := settlement.NewService(settlementRepo, expenseService, groupService, notificationService, m)
	settlementHandler := settlement.NewHandler(settlementService)

	authMiddleware := mw.AuthMiddleware(jwtManager)
	if cfg.AuthMode == config.AuthModeDev {
		slog.Warn("Dev auth enabled: requests are trusted via " + mw.TestUserHeader)
		authMiddleware = mw.TestUserMiddleware
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(slog.Default()))
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/users", userHandler.Routes(authMiddleware))
		r.Mount("/auth", authHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Mount("/groups", groupHandler.Routes())
			r.Mount("/expenses", expenseHandler.Routes())
			r.Mount("/balances", balanceHandler.Routes())
			r.Mount("/settlements", settlementHandler.Routes())
			r.Mount("/notifications", notificationHandler.Routes())
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

