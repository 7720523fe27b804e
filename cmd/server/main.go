package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"storypath-server/internal/auth"
	"storypath-server/internal/config"
	"storypath-server/internal/database"
	"storypath-server/internal/generator"
	"storypath-server/internal/handler"
	"storypath-server/internal/logger"
	"storypath-server/internal/repository"
	"storypath-server/internal/service"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск StoryPath Server...")

	// Загружаем конфиг ДО инициализации логгера
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Подключение к PostgreSQL
	dbPool, err := database.Connect(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()

	// Применяем миграции
	if err := database.ApplyMigrations(dbPool); err != nil {
		zapLogger.Fatal("Не удалось применить миграции", zap.Error(err))
	}
	zapLogger.Info("Database migrations applied")

	// Инициализация зависимостей
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration)
	if err != nil {
		zapLogger.Fatal("Не удалось создать TokenManager", zap.Error(err))
	}

	userRepo := auth.NewPgUserRepository(dbPool, zapLogger)
	authService := auth.NewService(userRepo, tokens, zapLogger)
	authHandler := auth.NewHandler(authService, zapLogger)

	storyRepo := repository.NewPgStoryRepository(zapLogger)
	sessionRepo := repository.NewPgSessionRepository(zapLogger)
	txHelper := service.NewTransactionHelper(dbPool, zapLogger)

	storyGenerator := generator.NewOpenAIGenerator(generator.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.GenerationTimeout,
	}, zapLogger)

	branchEngine := service.NewBranchEngine(storyRepo, sessionRepo, storyGenerator, dbPool, txHelper, zapLogger)
	sessionService := service.NewSessionService(branchEngine, sessionRepo, dbPool, txHelper, zapLogger)
	storyHandler := handler.NewStoryHandler(branchEngine, sessionService, tokens, zapLogger)

	// Настройка HTTP сервера
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.ZapLoggingMiddleware(zapLogger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	authHandler.RegisterRoutes(router)
	storyHandler.RegisterRoutes(router, authHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zapLogger.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Ошибка HTTP сервера", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Получен сигнал завершения, останавливаем сервер...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Ошибка при остановке сервера", zap.Error(err))
	}
	zapLogger.Info("Сервер остановлен")
}
