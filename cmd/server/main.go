package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godyjooce/1win-predictor.01-international4/internal/api/handlers"
	"github.com/godyjooce/1win-predictor.01-international4/internal/api/routes"
	"github.com/godyjooce/1win-predictor.01-international4/internal/config"
	"github.com/godyjooce/1win-predictor.01-international4/internal/registry"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/gate"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/prompt"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/stream"
	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/noop"
	"github.com/godyjooce/1win-predictor.01-international4/pkg/llm"
	"github.com/godyjooce/1win-predictor.01-international4/pkg/llm/providers"

	"go.uber.org/zap"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Настройка логгера
	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		panic(fmt.Sprintf("Failed to setup logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting oracle-chat server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("google_enabled", cfg.Providers.Google.IsEnabled()),
		zap.Bool("openrouter_enabled", cfg.Providers.OpenRouter.IsEnabled()),
		zap.Duration("max_stream_duration", cfg.Server.MaxStreamDuration),
	)

	// Реестр моделей
	modelRegistry, err := registry.Load(logger)
	if err != nil {
		logger.Fatal("Failed to load model registry", zap.Error(err))
	}

	// LLM клиенты для включённых провайдеров
	clients, err := buildClients(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM clients", zap.Error(err))
	}
	if len(clients) == 0 {
		logger.Warn("No providers enabled, all chat requests will be rejected")
	}

	// Загрузчик системного промпта
	prompts := prompt.NewLoader(cfg.Prompt.APIURL, cfg.Prompt.SecretKey, cfg.Prompt.Timeout, logger)

	// Диспетчер стримов
	dispatcher := stream.NewDispatcher(clients, prompts, logger)

	// Резолвер: включённость провайдера выводится из конфига на каждый запрос
	providerEnabled := func(providerID string) bool {
		switch providerID {
		case "google":
			return cfg.Providers.Google.IsEnabled()
		case "openrouter":
			return cfg.Providers.OpenRouter.IsEnabled()
		default:
			return false
		}
	}
	resolver := registry.NewResolver(providerEnabled, logger)

	// Верификатор регистрации
	verifier := gate.NewVerifier(cfg.Registration.CheckURL, cfg.Registration.Timeout, logger)

	// История отключена в этом деплое: no-op хранилище
	chatStore := noop.New(logger)

	// Инициализация handlers
	chatHandler := handlers.NewChatHandler(dispatcher, resolver, cfg.Server.MaxStreamDuration, logger)
	modelsHandler := handlers.NewModelsHandler(modelRegistry, providerEnabled, logger)
	registrationHandler := handlers.NewRegistrationHandler(verifier, logger)
	historyHandler := handlers.NewHistoryHandler(chatStore, logger)
	healthHandler := handlers.NewHealthHandler(dispatcher.Metrics(), logger)

	// Настройка роутов
	router := routes.SetupRoutes(cfg, logger,
		chatHandler, modelsHandler, registrationHandler, historyHandler, healthHandler)

	// Настройка HTTP сервера
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildClients создаёт LLM клиента на каждый включённый провайдер
func buildClients(cfg *config.Config, logger *zap.Logger) (map[string]*llm.Client, error) {
	factory := providers.NewFactory(logger)
	clients := make(map[string]*llm.Client)

	providerConfigs := map[string]providers.Config{
		"google": {
			Provider: "google",
			APIKey:   cfg.Providers.Google.APIKey,
			BaseURL:  cfg.Providers.Google.BaseURL,
			Timeout:  cfg.Providers.Google.Timeout,
			Enabled:  cfg.Providers.Google.Enabled,
		},
		"openrouter": {
			Provider: "openrouter",
			APIKey:   cfg.Providers.OpenRouter.APIKey,
			BaseURL:  cfg.Providers.OpenRouter.BaseURL,
			Timeout:  cfg.Providers.OpenRouter.Timeout,
			Enabled:  cfg.Providers.OpenRouter.Enabled,
		},
	}

	for id, pc := range providerConfigs {
		if !pc.IsEnabled() {
			logger.Info("Provider disabled, skipping", zap.String("provider_id", id))
			continue
		}

		provider, err := factory.CreateProvider(pc)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", id, err)
		}

		clients[id] = llm.NewClientWithProvider(provider, logger.With(zap.String("provider_id", id)))
		logger.Info("Provider initialized", zap.String("provider_id", id))
	}

	return clients, nil
}

func setupLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	// Настройка уровня логирования
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zapCfg.Build()
}
