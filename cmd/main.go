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

	"github.com/arenastats/scoring-system/cache"
	"github.com/arenastats/scoring-system/config"
	"github.com/arenastats/scoring-system/db"
	"github.com/arenastats/scoring-system/handlers"
	"github.com/arenastats/scoring-system/live"
	"github.com/arenastats/scoring-system/repositories"
	api "github.com/arenastats/scoring-system/routes"
	"github.com/arenastats/scoring-system/services"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const ledgerAuditInterval = 60 * time.Second // How often the ledger audit runs

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

	// Подключение к Redis: кеш таблиц и дельта-леджер. Опционально —
	// без REDIS_ADDR сервис работает в режиме полного пересчёта.
	// Интерфейсные поля присваиваются только при живом подключении,
	// чтобы не получить типизированный nil.
	var lbCache services.LeaderboardCache
	var ledger services.DeltaLedger
	var cachePinger handlers.Pinger
	if cfg.RedisAddr != "" {
		redisCache, err := cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		lbCache = redisCache
		ledger = cache.NewLedger(redisCache)
		cachePinger = redisCache
		logger.Info("redis cache and delta ledger initialized", slog.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("REDIS_ADDR not set, running without cache and delta ledger")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	stageRepo := repositories.NewPostgresStageRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	rulesetRepo := repositories.NewPostgresRulesetRepository(dbConn)
	resultRepo := repositories.NewPostgresResultRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	rulesetService := services.NewRulesetService(rulesetRepo, stageRepo, tournamentRepo, logger)
	leaderboardService := services.NewLeaderboardService(
		tournamentRepo,
		stageRepo,
		teamRepo,
		resultRepo,
		rulesetService,
		lbCache,
		ledger,
		logger,
	)
	resultService := services.NewResultService(
		dbConn, // For its own transactions
		matchRepo,
		stageRepo,
		resultRepo,
		rulesetService,
		leaderboardService,
		lbCache,
		ledger,
		wsHub,
		logger,
	)
	matchService := services.NewMatchService(
		matchRepo,
		stageRepo,
		leaderboardService,
		lbCache,
		wsHub,
		logger,
	)
	logger.Info("Services initialized")

	// Периодическая сверка дельта-леджера с сохранёнными результатами
	if ledger != nil {
		go func() {
			ticker := time.NewTicker(ledgerAuditInterval)
			defer ticker.Stop()
			logger.Info("ledger audit scheduler started", slog.Duration("interval", ledgerAuditInterval))

			for range ticker.C {
				if err := leaderboardService.AuditStageLedgers(context.Background()); err != nil {
					logger.Error("ledger audit run failed", slog.Any("error", err))
				}
			}
		}()
	}

	// Инициализация обработчиков HTTP
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	resultHandler := handlers.NewResultHandler(resultService)
	rulesetHandler := handlers.NewRulesetHandler(rulesetService, resultService)
	matchHandler := handlers.NewMatchHandler(matchService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	healthHandler := handlers.NewHealthHandler(dbConn, cachePinger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		leaderboardHandler,
		resultHandler,
		rulesetHandler,
		matchHandler,
		webSocketHandler,
		healthHandler,
	)
	logger.Info("Routes configured")

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
