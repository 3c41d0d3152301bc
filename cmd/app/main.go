package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-api/internal/auth"
	"github.com/BuzzLyutic/todo-api/internal/config"
	"github.com/BuzzLyutic/todo-api/internal/handler"
	"github.com/BuzzLyutic/todo-api/internal/service"
	"github.com/BuzzLyutic/todo-api/internal/worker"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err) // Без конфига работать не с чем
	}

	// Подключаем логгер
	logger, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Подключаем БД
	store, err := openStorage(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err)) // Fatal потому что дальнейшая работа теряет смысл
	}
	defer store.close() // Запланированное закрытие соединения

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		logger.Fatal("Failed to init token service", zap.Error(err))
	}

	userService := service.NewUserService(store.users, auth.NewPasswordHasher(cfg.BcryptCost), tokens, cfg.TokenTTL(), logger)
	taskService := service.NewTaskService(store.tasks, logger)

	r := handler.NewRouter(handler.Deps{
		Users:         userService,
		Tasks:         taskService,
		Logger:        logger,
		Ping:          store.ping,
		AuthRateLimit: cfg.AuthRateLimit,
		AuthRateBurst: cfg.AuthRateBurst,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	// Фоновая очистка старых ключей идемпотентности
	janitor := worker.NewJanitor(store.purger, logger, cfg.JanitorInterval, cfg.IdempotencyKeyTTL)
	janitor.Start(context.Background())

	srv := http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	janitor.Stop()
	logger.Info("Server stopped successfully!")
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
