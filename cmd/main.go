package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gamelle/league-system/config"
	"github.com/gamelle/league-system/db"
	"github.com/gamelle/league-system/handlers"
	appMiddleware "github.com/gamelle/league-system/middleware"
	"github.com/gamelle/league-system/repositories"
	api "github.com/gamelle/league-system/routes"
	"github.com/gamelle/league-system/services"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const sweeperInterval = 10 * time.Minute // How often stale live sessions are reaped

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация репозиториев
	txManager := repositories.NewTxManager(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	sessionRepo := repositories.NewPostgresLiveSessionRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository()
	logger.Info("repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo)
	accessGate := services.NewAccessGate(leagueRepo, playerRepo)
	finalizer := services.NewFinalizer(matchRepo)
	liveMatchService := services.NewLiveMatchService(
		txManager,
		sessionRepo,
		leagueRepo,
		playerRepo,
		accessGate,
		finalizer,
		logger,
	)
	logger.Info("services initialized")

	// Фоновый свипер брошенных сессий
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go func() {
		ticker := time.NewTicker(sweeperInterval)
		defer ticker.Stop()
		logger.Info("stale session sweeper started",
			slog.Duration("interval", sweeperInterval),
			slog.Duration("ttl", cfg.SessionStaleTTL))

		for {
			select {
			case <-sweeperCtx.Done():
				return
			case <-ticker.C:
				swept, err := liveMatchService.AbandonStale(sweeperCtx, cfg.SessionStaleTTL)
				if err != nil {
					logger.Error("sweeper run failed", slog.Any("error", err))
				} else if swept > 0 {
					logger.Info("sweeper abandoned stale sessions", slog.Int("count", swept))
				}
			}
		}
	}()

	// Инициализация обработчиков HTTP
	authenticator := appMiddleware.NewAuthenticator(cfg.JWTSecretKey)
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	liveMatchHandler := handlers.NewLiveMatchHandler(liveMatchService)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, authenticator, authHandler, liveMatchHandler)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopSweeper()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
